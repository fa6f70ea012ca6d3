package bountyboard

import (
	"github.com/code-payments/bounty-board/pkg/config"
	"github.com/code-payments/bounty-board/pkg/config/env"
	"github.com/code-payments/bounty-board/pkg/config/memory"
	"github.com/code-payments/bounty-board/pkg/config/wrapper"
)

const (
	envConfigPrefix = "BOUNTY_BOARD_"

	MaxBountiesPageSizeConfigEnvName = envConfigPrefix + "MAX_BOUNTIES_PAGE_SIZE"
	defaultMaxBountiesPageSize       = 100

	BoardCacheBudgetConfigEnvName = envConfigPrefix + "BOARD_CACHE_BUDGET"
	defaultBoardCacheBudget       = 10_000
)

type conf struct {
	maxBountiesPageSize config.Uint64
	boardCacheBudget    config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxBountiesPageSize: env.NewUint64Config(MaxBountiesPageSizeConfigEnvName, defaultMaxBountiesPageSize),
			boardCacheBudget:    env.NewUint64Config(BoardCacheBudgetConfigEnvName, defaultBoardCacheBudget),
		}
	}
}

type testOverrides struct {
	maxBountiesPageSize uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.maxBountiesPageSize == 0 {
		overrides.maxBountiesPageSize = defaultMaxBountiesPageSize
	}

	return func() *conf {
		return &conf{
			maxBountiesPageSize: wrapper.NewUint64Config(memory.NewConfig(overrides.maxBountiesPageSize), defaultMaxBountiesPageSize),
			boardCacheBudget:    wrapper.NewUint64Config(memory.NewConfig(uint64(defaultBoardCacheBudget)), defaultBoardCacheBudget),
		}
	}
}
