package discovery

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/domain"
)

// Scenario F: A->B x10, A->C x1, D->B x1. POOL_SEND_THRESHOLD=2.
// A is the only address exceeding the threshold, so A->B and A->C are buys;
// D->B is discarded since neither D nor B sends more than twice.
func TestScenarioF_PoolDetection(t *testing.T) {
	var batch []adapters.Transfer
	for i := 0; i < 10; i++ {
		batch = append(batch, adapters.Transfer{TxHash: fmt.Sprintf("ab%d", i), From: "A", To: "B", Token: "0xaaa", Quantity: 1})
	}
	batch = append(batch, adapters.Transfer{TxHash: "ac0", From: "A", To: "C", Token: "0xaaa", Quantity: 1})
	batch = append(batch, adapters.Transfer{TxHash: "db0", From: "D", To: "B", Token: "0xaaa", Quantity: 1})

	classified := ClassifyTokenCentric(batch, 2)
	require.Len(t, classified, 11)

	var buysToB, buysToC int
	for _, c := range classified {
		assert.Equal(t, domain.SideBuy, c.Side)
		switch c.Wallet {
		case "B":
			buysToB++
		case "C":
			buysToC++
		default:
			t.Fatalf("unexpected wallet %q classified", c.Wallet)
		}
	}
	assert.Equal(t, 10, buysToB)
	assert.Equal(t, 1, buysToC)
}

func TestClassifyWalletCentricIncoming(t *testing.T) {
	batch := []adapters.Transfer{
		{TxHash: "1", From: "POOL", To: "W1", Quantity: 10},
		{TxHash: "2", From: "POOL", To: "W1", Quantity: 5},
		{TxHash: "3", From: "POOL", To: "W1", Quantity: 1},
	}
	classified := ClassifyWalletCentric("W1", adapters.DirectionIn, batch, 2)
	assert.Len(t, classified, 3)
	for _, c := range classified {
		assert.Equal(t, domain.SideBuy, c.Side)
		assert.Equal(t, "W1", c.Wallet)
	}
}

func TestClassifyWalletCentricDiscardsBelowThreshold(t *testing.T) {
	batch := []adapters.Transfer{
		{TxHash: "1", From: "NOTAPOOL", To: "W1", Quantity: 10},
	}
	classified := ClassifyWalletCentric("W1", adapters.DirectionIn, batch, 2)
	assert.Empty(t, classified)
}
