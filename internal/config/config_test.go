package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/chains"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"CHAINS", "MIN_CONFLUENCE", "WEIGHT_PNL", "WEIGHT_ACTIVITY", "WEIGHT_EARLY"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.ElementsMatch(t, []chains.ID{chains.Ethereum, chains.Base, chains.Arbitrum, chains.Solana}, cfg.Chains)
	assert.Equal(t, 2, cfg.MinConfluence)
	assert.InDelta(t, 1.0, cfg.Weights.Sum(), 1e-9)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := &Config{
		Chains:           []chains.ID{chains.Ethereum},
		TIngest:          1, TDiscover: 1, TMonitor: 1, TStats: 1,
		ConfluenceWindow: 1,
		MinConfluence:    2,
		Weights:          Weights{PnL: 0.5, Act: 0.5, Early: 0.5},
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsLowMinConfluence(t *testing.T) {
	cfg := &Config{
		Chains:           []chains.ID{chains.Ethereum},
		TIngest:          1, TDiscover: 1, TMonitor: 1, TStats: 1,
		ConfluenceWindow: 1,
		MinConfluence:    1,
		Weights:          Weights{PnL: 0.3, Act: 0.3, Early: 0.4},
	}
	err := cfg.Validate()
	require.Error(t, err)
}
