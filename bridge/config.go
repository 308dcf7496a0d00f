package bridge

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

type Config struct {
	Params *chaincfg.Params

	MinimumCollateral      uint64
	CollateralRatioPercent uint64

	IssueFeeBps         uint64
	RedeemFeeBps        uint64
	RedeemPunishmentBps uint64

	IssuePeriod  time.Duration
	RedeemPeriod time.Duration

	// Blocks, the including one counted, a payment needs in the relay.
	Confirmations uint32

	// Terminal requests kept in memory per kind.
	CacheSize int
}

func DefaultConfig() *Config {
	return &Config{
		Params:                 &chaincfg.MainNetParams,
		MinimumCollateral:      1e8,
		CollateralRatioPercent: 150,
		IssueFeeBps:            50,
		RedeemFeeBps:           50,
		RedeemPunishmentBps:    1000,
		IssuePeriod:            24 * time.Hour,
		RedeemPeriod:           48 * time.Hour,
		Confirmations:          6,
		CacheSize:              1024,
	}
}

func (cfg *Config) Validate() error {
	if cfg.Params == nil {
		return fmt.Errorf("missing btc chain params")
	}
	if cfg.CollateralRatioPercent < 100 {
		return fmt.Errorf("collateral ratio must be at least 100%%, got %d%%", cfg.CollateralRatioPercent)
	}
	for name, bps := range map[string]uint64{
		"issue fee":         cfg.IssueFeeBps,
		"redeem fee":        cfg.RedeemFeeBps,
		"redeem punishment": cfg.RedeemPunishmentBps,
	} {
		if bps >= 10000 {
			return fmt.Errorf("%s must be below 10000 bps, got %d", name, bps)
		}
	}
	if cfg.IssuePeriod <= 0 || cfg.RedeemPeriod <= 0 {
		return fmt.Errorf("request periods must be positive")
	}
	if cfg.RedeemPeriod%time.Second != 0 {
		return fmt.Errorf("redeem period must be whole seconds, got %s", cfg.RedeemPeriod)
	}
	if cfg.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	return nil
}
