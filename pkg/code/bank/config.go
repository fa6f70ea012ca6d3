package bank

import (
	"time"

	"github.com/code-payments/bounty-board/pkg/config"
	"github.com/code-payments/bounty-board/pkg/config/env"
	"github.com/code-payments/bounty-board/pkg/config/memory"
	"github.com/code-payments/bounty-board/pkg/config/wrapper"
)

const (
	envConfigPrefix = "BANK_"

	MaxCommitAttemptsConfigEnvName = envConfigPrefix + "MAX_COMMIT_ATTEMPTS"
	defaultMaxCommitAttempts       = 5

	MaxCommitBackoffConfigEnvName = envConfigPrefix + "MAX_COMMIT_BACKOFF"
	defaultMaxCommitBackoff       = 250 * time.Millisecond

	EnforceRentConfigEnvName = envConfigPrefix + "ENFORCE_RENT"
	defaultEnforceRent       = true
)

type conf struct {
	maxCommitAttempts config.Uint64
	maxCommitBackoff  config.Duration
	enforceRent       config.Bool
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxCommitAttempts: env.NewUint64Config(MaxCommitAttemptsConfigEnvName, defaultMaxCommitAttempts),
			maxCommitBackoff:  env.NewDurationConfig(MaxCommitBackoffConfigEnvName, defaultMaxCommitBackoff),
			enforceRent:       env.NewBoolConfig(EnforceRentConfigEnvName, defaultEnforceRent),
		}
	}
}

type testOverrides struct {
	maxCommitAttempts uint64
	disableRent       bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.maxCommitAttempts == 0 {
		overrides.maxCommitAttempts = defaultMaxCommitAttempts
	}

	return func() *conf {
		return &conf{
			maxCommitAttempts: wrapper.NewUint64Config(memory.NewConfig(overrides.maxCommitAttempts), defaultMaxCommitAttempts),
			maxCommitBackoff:  wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), defaultMaxCommitBackoff),
			enforceRent:       wrapper.NewBoolConfig(memory.NewConfig(!overrides.disableRent), defaultEnforceRent),
		}
	}
}
