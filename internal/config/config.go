// Package config loads and validates all operational parameters enumerated
// in spec.md §6. Load order: .env file, then process environment; there is
// no settings-database override layer in this module (persistence is an
// external collaborator per spec.md §1).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/coinwatch/confluence/internal/chains"
)

// Config holds every tunable named in spec.md §6's configuration table.
type Config struct {
	Chains []chains.ID

	TIngest   time.Duration
	TDiscover time.Duration
	TMonitor  time.Duration
	TStats    time.Duration

	DiscoveryLookbackHours int
	TransferBlockRange     int

	MinLiquidityUSD  float64
	MinVolume24hUSD  float64
	MaxTaxPct        float64

	PoolSendThreshold int

	ConfluenceWindow time.Duration
	MinConfluence    int

	WatchlistTopN int
	Weights       Weights

	StablecoinExclusions map[string]bool // lowercased address (every chain) -> true

	LogLevel string
	Port     int
	DataDir  string
}

// Weights are the composite-score weights of spec.md §4.7. They always sum
// to 1.0 (Load validates this, and adaptive adjustment preserves it — see
// internal/modules/watchlist/adaptive.go).
type Weights struct {
	PnL   float64
	Act   float64
	Early float64
}

// Sum returns w_pnl + w_act + w_early.
func (w Weights) Sum() float64 { return w.PnL + w.Act + w.Early }

// Load reads .env (if present) then the process environment, applying the
// defaults from spec.md §6 for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	chainIDs, err := chains.ParseIDs(getEnv("CHAINS", "eth,base,arbitrum,solana"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Chains: chainIDs,

		TIngest:   getDuration("T_INGEST", 5*time.Minute),
		TDiscover: getDuration("T_DISCOVER", 7*time.Minute),
		TMonitor:  getDuration("T_MONITOR", 2*time.Minute),
		TStats:    getDuration("T_STATS", 15*time.Minute),

		DiscoveryLookbackHours: getInt("DISCOVERY_LOOKBACK_HOURS", 3),
		TransferBlockRange:     getInt("TRANSFER_BLOCK_RANGE", 2000),

		MinLiquidityUSD: getFloat("MIN_LIQUIDITY_USD", 50000),
		MinVolume24hUSD: getFloat("MIN_VOLUME_24H_USD", 50000),
		MaxTaxPct:       getFloat("MAX_TAX_PCT", 10),

		PoolSendThreshold: getInt("POOL_SEND_THRESHOLD", 2),

		ConfluenceWindow: getDuration("CONFLUENCE_WINDOW", 30*time.Minute),
		MinConfluence:    getInt("MIN_CONFLUENCE", 2),

		WatchlistTopN: getInt("WATCHLIST_TOP_N", 30),
		Weights: Weights{
			PnL:   getFloat("WEIGHT_PNL", 0.30),
			Act:   getFloat("WEIGHT_ACTIVITY", 0.30),
			Early: getFloat("WEIGHT_EARLY", 0.40),
		},

		StablecoinExclusions: parseExclusions(getEnv("STABLECOIN_EXCLUSIONS", "")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getInt("PORT", 8080),
		DataDir:  getEnv("DATA_DIR", "./data"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the invariants the rest of the pipeline assumes hold:
// weights sum to 1, intervals are positive, and at least one chain is enabled.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("config: at least one chain must be enabled")
	}
	const epsilon = 1e-9
	if sum := c.Weights.Sum(); sum < 1-epsilon || sum > 1+epsilon {
		return fmt.Errorf("config: composite weights must sum to 1.0, got %f", sum)
	}
	if c.TIngest <= 0 || c.TDiscover <= 0 || c.TMonitor <= 0 || c.TStats <= 0 {
		return fmt.Errorf("config: all job intervals must be positive")
	}
	if c.ConfluenceWindow <= 0 {
		return fmt.Errorf("config: CONFLUENCE_WINDOW must be positive")
	}
	if c.MinConfluence < 2 {
		return fmt.Errorf("config: MIN_CONFLUENCE must be at least 2")
	}
	return nil
}

func parseExclusions(csv string) map[string]bool {
	out := map[string]bool{}
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		out[strings.ToLower(raw)] = true
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
