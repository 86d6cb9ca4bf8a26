package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

func trade(txHash string, side domain.Side, qty, price float64, at time.Time) domain.Trade {
	return domain.Trade{
		TxHash: txHash, Chain: chains.Ethereum, Timestamp: at,
		Wallet: "0xw1", Token: "0xaaa", Side: side,
		Quantity: qty, UnitPriceUSD: price, ValueUSD: qty * price,
	}
}

// Scenario E: buy 100 @ $1, buy 50 @ $2, sell 120 @ $3 -> realized PnL = 220,
// one remaining lot of 30 @ $2.
func TestScenarioE_FIFORealizesEarliestLotFirst(t *testing.T) {
	base := time.Now().UTC()
	trades := []domain.Trade{
		trade("0x1", domain.SideBuy, 100, 1, base),
		trade("0x2", domain.SideBuy, 50, 2, base.Add(time.Minute)),
		trade("0x3", domain.SideSell, 120, 3, base.Add(2*time.Minute)),
	}

	result, matches := ComputeFIFO(chains.Ethereum, "0xw1", "0xaaa", trades)

	assert.InDelta(t, 220, result.Position.RealizedPnLUSD, 1e-9)
	require.Len(t, result.Position.Lots, 1)
	assert.InDelta(t, 30, result.Position.Lots[0].QtyRemaining, 1e-9)
	assert.InDelta(t, 2, result.Position.Lots[0].UnitCostUSD, 1e-9)
	assert.Equal(t, 0, result.ZeroCostWarnings)

	require.Len(t, matches, 2)
	assert.InDelta(t, 3, BestTradeMultiple(matches), 1e-9)
}

func TestSellExceedingHistoryFallsBackToZeroCost(t *testing.T) {
	base := time.Now().UTC()
	trades := []domain.Trade{
		trade("0x1", domain.SideSell, 10, 5, base),
	}

	result, _ := ComputeFIFO(chains.Ethereum, "0xw1", "0xaaa", trades)

	assert.InDelta(t, 50, result.Position.RealizedPnLUSD, 1e-9)
	assert.InDelta(t, 10, result.Position.ZeroCostFallback, 1e-9)
	assert.Equal(t, 1, result.ZeroCostWarnings)
}

func TestUnrealizedPnLUsesCurrentPrice(t *testing.T) {
	pos := domain.Position{
		Lots: []domain.Lot{{QtyRemaining: 30, UnitCostUSD: 2, AcquiredAt: time.Now()}},
		Token: "0xaaa",
	}
	unrealized := UnrealizedPnL(pos, func(token string) (float64, bool) { return 4, true })
	assert.InDelta(t, 60, unrealized, 1e-9)

	missing := UnrealizedPnL(pos, func(token string) (float64, bool) { return 0, false })
	assert.Equal(t, float64(0), missing)
}

func TestOutOfOrderTradesAreSortedBeforeMatching(t *testing.T) {
	base := time.Now().UTC()
	// Deliberately out of chronological order.
	trades := []domain.Trade{
		trade("0x3", domain.SideSell, 100, 3, base.Add(2*time.Minute)),
		trade("0x1", domain.SideBuy, 100, 1, base),
	}

	result, _ := ComputeFIFO(chains.Ethereum, "0xw1", "0xaaa", trades)
	assert.InDelta(t, 200, result.Position.RealizedPnLUSD, 1e-9)
	assert.Equal(t, 0, result.ZeroCostWarnings)
}
