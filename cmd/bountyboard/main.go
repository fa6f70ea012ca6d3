package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/bounty-board/pkg/app"
	"github.com/code-payments/bounty-board/pkg/code/bank"
	"github.com/code-payments/bounty-board/pkg/code/bountyboard"
	"github.com/code-payments/bounty-board/pkg/code/data/account"
	leveldb_account_store "github.com/code-payments/bounty-board/pkg/code/data/account/leveldb"
	memory_account_store "github.com/code-payments/bounty-board/pkg/code/data/account/memory"
	postgres_account_store "github.com/code-payments/bounty-board/pkg/code/data/account/postgres"
	"github.com/code-payments/bounty-board/pkg/code/ledger"
	bountyboard_web "github.com/code-payments/bounty-board/pkg/code/server/web/bountyboard"
	pg "github.com/code-payments/bounty-board/pkg/database/postgres"
	"github.com/code-payments/bounty-board/pkg/metrics"
	"github.com/code-payments/bounty-board/pkg/rate"
)

const (
	storeTypePostgres = "postgres"
	storeTypeLevelDB  = "leveldb"
	storeTypeMemory   = "memory"
)

type appConfig struct {
	StoreType string `mapstructure:"store_type"`

	Postgres struct {
		User               string `mapstructure:"user"`
		Password           string `mapstructure:"password"`
		Host               string `mapstructure:"host"`
		Port               int    `mapstructure:"port"`
		DbName             string `mapstructure:"db_name"`
		MaxOpenConnections int    `mapstructure:"max_open_connections"`
		MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	} `mapstructure:"postgres"`

	LevelDBPath string `mapstructure:"leveldb_path"`

	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
	RateLimitMaxKeys   int     `mapstructure:"rate_limit_max_keys"`

	EventWorkers   uint `mapstructure:"event_workers"`
	EventQueueSize uint `mapstructure:"event_queue_size"`
}

var defaultAppConfig = appConfig{
	StoreType: storeTypeLevelDB,

	LevelDBPath: "data/accounts",

	RateLimitPerSecond: 5,
	RateLimitBurst:     20,
	RateLimitMaxKeys:   100_000,

	EventWorkers:   8,
	EventQueueSize: 1024,
}

type bountyBoardApp struct {
	log *logrus.Entry

	closeStore func() error
	emitter    *bountyboard.AsyncEmitter
	server     *bountyboard_web.Server

	shutdownCh chan struct{}
	stopOnce   sync.Once
}

// Init implements app.App.Init
func (a *bountyBoardApp) Init(config app.Config, metricsProvider *newrelic.Application) error {
	conf := defaultAppConfig
	if err := mapstructure.Decode(config, &conf); err != nil {
		return errors.Wrap(err, "invalid app config")
	}

	accounts, closeStore, err := newAccountStore(&conf)
	if err != nil {
		return err
	}
	a.closeStore = closeStore

	b := bank.New(accounts, bank.WithEnvConfigs())

	a.emitter = bountyboard.NewAsyncEmitter(
		&metricsEmitter{
			delegate:        bountyboard.NewLogEmitter(),
			metricsProvider: metricsProvider,
		},
		conf.EventWorkers,
		conf.EventQueueSize,
	)

	var limiter rate.Limiter = &rate.NoLimiter{}
	if conf.RateLimitPerSecond > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(conf.RateLimitPerSecond), conf.RateLimitBurst, conf.RateLimitMaxKeys)
	}

	a.server = bountyboard_web.NewBountyBoardServer(
		bountyboard.NewProcessor(b, a.emitter, bountyboard.WithEnvConfigs()),
		limiter,
		ledger.New(b),
	)

	a.log.WithField("store_type", conf.StoreType).Info("bounty board initialized")
	return nil
}

// GetHandlers implements app.App.GetHandlers
func (a *bountyBoardApp) GetHandlers() map[string]http.HandlerFunc {
	return a.server.GetHandlers()
}

// ShutdownChan implements app.App.ShutdownChan
func (a *bountyBoardApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *bountyBoardApp) Stop() {
	a.stopOnce.Do(func() {
		if a.emitter != nil {
			a.emitter.Close()
		}

		if a.closeStore != nil {
			if err := a.closeStore(); err != nil {
				a.log.WithError(err).Warn("failure closing account store")
			}
		}

		close(a.shutdownCh)
	})
}

func newAccountStore(conf *appConfig) (account.Store, func() error, error) {
	switch conf.StoreType {
	case storeTypePostgres:
		db, err := pg.NewFromConfig(&pg.Config{
			User:               conf.Postgres.User,
			Password:           conf.Postgres.Password,
			Host:               conf.Postgres.Host,
			Port:               conf.Postgres.Port,
			DbName:             conf.Postgres.DbName,
			MaxOpenConnections: conf.Postgres.MaxOpenConnections,
			MaxIdleConnections: conf.Postgres.MaxIdleConnections,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "error connecting to postgres")
		}
		return postgres_account_store.New(db), db.Close, nil
	case storeTypeLevelDB:
		store, closeFunc, err := leveldb_account_store.New(conf.LevelDBPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "error opening leveldb")
		}
		return store, closeFunc, nil
	case storeTypeMemory:
		return memory_account_store.New(), func() error { return nil }, nil
	}
	return nil, nil, errors.Errorf("unsupported store type: %s", conf.StoreType)
}

// metricsEmitter attaches the New Relic application to the context of events
// delivered from the async emitter's workers.
type metricsEmitter struct {
	delegate        bountyboard.Emitter
	metricsProvider *newrelic.Application
}

func (e *metricsEmitter) Emit(ctx context.Context, event *bountyboard.Event) {
	e.delegate.Emit(metrics.NewContext(ctx, e.metricsProvider), event)
}

func main() {
	log := logrus.StandardLogger().WithField("type", "bountyboard")

	err := app.Run(&bountyBoardApp{
		log:        log,
		shutdownCh: make(chan struct{}),
	})
	if err != nil {
		log.WithError(err).Error("error running service")
	}
}
