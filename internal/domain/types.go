// Package domain holds the core entities of the wallet confluence pipeline,
// as defined in spec.md §3. These types are persistence-agnostic; Store
// implementations (internal/store) map them to whatever schema they use.
package domain

import (
	"time"

	"github.com/coinwatch/confluence/internal/chains"
)

// Side is the direction of a Trade or a confluence bag.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Token is identified by (chain, address); address is pre-normalized by the
// caller via chains.NormalizeAddress before it ever reaches a Token value.
type Token struct {
	Chain        chains.ID
	Address      string
	Symbol       string
	DisplayName  string
	LiquidityUSD float64
	Volume24hUSD float64
	LastPriceUSD float64
	TaxBuyPct    float64
	TaxSellPct   float64
	IsHoneypot   bool
	CreatedAt    time.Time
}

// Key returns the (chain, address) composite identity.
func (t Token) Key() TokenKey { return TokenKey{Chain: t.Chain, Address: t.Address} }

// TokenKey is the composite identity of a Token.
type TokenKey struct {
	Chain   chains.ID
	Address string
}

// MarketCapEstimate returns liquidity * 3 as the proxy used by the Being-Early
// score when an explicit market cap isn't available (spec.md §4.5).
func (t Token) MarketCapEstimate() float64 { return t.LiquidityUSD * 3 }

// SeedToken is an append-only snapshot of a token appearing on a trending
// feed. Never mutated or deleted once written.
type SeedToken struct {
	Chain      chains.ID
	Address    string
	Source     string
	SnapshotTS time.Time
}

// Wallet is identified by (chain, address).
type Wallet struct {
	Chain       chains.ID
	Address     string
	FirstSeenAt time.Time
	Labels      []string
}

// WalletKey is the composite identity of a Wallet.
type WalletKey struct {
	Chain   chains.ID
	Address string
}

func (w Wallet) Key() WalletKey { return WalletKey{Chain: w.Chain, Address: w.Address} }

func (w Wallet) HasLabel(label string) bool {
	for _, l := range w.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Trade is an immutable, idempotently-inserted fill. Identity is TxHash,
// unique within a chain.
type Trade struct {
	TxHash      string
	Chain       chains.ID
	Timestamp   time.Time
	Wallet      string
	Token       string
	Side        Side
	Quantity    float64
	UnitPriceUSD float64
	ValueUSD    float64
	Venue       string
}

// Lot is a single open FIFO lot within a Position.
type Lot struct {
	QtyRemaining float64
	UnitCostUSD  float64
	AcquiredAt   time.Time
}

// Position is the derived FIFO state of one (chain, wallet, token).
// Rebuilt deterministically from Trades; never a primary source of truth.
type Position struct {
	Chain            chains.ID
	Wallet           string
	Token            string
	Lots             []Lot
	RealizedPnLUSD   float64
	ZeroCostFallback float64 // sells matched against missing history, at zero cost
}

// OpenQty sums qty_remaining across all open lots.
func (p Position) OpenQty() float64 {
	var q float64
	for _, l := range p.Lots {
		q += l.QtyRemaining
	}
	return q
}

// WalletStats30D is the rolling 30-day aggregate recomputed in full by C6.
type WalletStats30D struct {
	Wallet              string
	Chain               chains.ID
	TradeCount          int
	RealizedPnLUSD      float64
	UnrealizedPnLUSD    float64
	BestTradeMultiple    float64
	EarlyScoreMedian    float64
	MaxDrawdownPct      float64
	IsBot               bool
	UpdatedAt           time.Time
}

// WatchlistStatus is the lifecycle state of a WatchlistEntry.
type WatchlistStatus string

const (
	WatchlistActive  WatchlistStatus = "active"
	WatchlistRemoved WatchlistStatus = "removed"
	WatchlistPending WatchlistStatus = "pending"
)

// WatchlistEntry is managed by C7.
type WatchlistEntry struct {
	Wallet          string
	Chain           chains.ID
	CompositeScore  float64
	Status          WatchlistStatus
	AddedAt         time.Time
	LastEvaluatedAt time.Time
}

// ConfluenceMember is one (wallet, event_ts) pair held in the sliding window
// for a given (chain, side, token) key.
type ConfluenceMember struct {
	Wallet  string
	EventTS time.Time
}

// AlertKind distinguishes buy-side from sell-side confluence alerts.
type AlertKind string

const (
	AlertBuyConfluence  AlertKind = "buy_confluence"
	AlertSellConfluence AlertKind = "sell_confluence"
)

// AlertRecord is the append-only emitted-alert ledger with its dedup key
// (spec.md §4.9).
type AlertRecord struct {
	ID             string
	DedupKey       string
	Kind           AlertKind
	Chain          chains.ID
	Token          string
	Side           Side
	Wallets        []string
	WindowMS       int64
	Weights        [3]float64 // snapshot of composite-score weights at emission time
	PricesSnapshot []byte     // msgpack-encoded per-wallet stats snapshot
	CreatedAt      time.Time
}
