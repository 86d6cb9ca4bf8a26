package watchlist

import (
	"math"
	"sync"

	"github.com/coinwatch/confluence/internal/config"
)

// maxDailyShiftPerWeight bounds per spec.md §9's adaptive-weights design
// note: weight movement is capped at 0.05 per weight per day.
const maxDailyShiftPerWeight = 0.05

// AlertOutcome is a closed-loop signal about one past AlertRecord: did the
// wallets involved go on to realize further profit (win) or not (loss). The
// chat transport or a human reviewer supplies this; it is outside this
// module's scope to collect it.
type AlertOutcome struct {
	PnLWin   bool
	ActWin   bool
	EarlyWin bool
}

// AdaptiveWeights holds the composite-score weights and nudges them within
// bounds from AlertOutcome history, always keeping the three weights summing
// to 1 (spec.md §9). Safe for concurrent use: Current/Apply may run from the
// scheduler's worker pool alongside an in-flight watchlist evaluation.
type AdaptiveWeights struct {
	mu      sync.Mutex
	current [3]float64 // pnl, act, early
	shifted float64    // cumulative |shift| applied today, reset by ResetDaily
}

// NewAdaptiveWeights seeds the weights from config. If adaptive adjustment is
// disabled, callers should simply never call ApplyOutcome — Current then
// always returns the fixed configured defaults, matching spec.md §9's
// "implementations that omit it must use the fixed defaults."
func NewAdaptiveWeights(cfg *config.Config) *AdaptiveWeights {
	return &AdaptiveWeights{current: [3]float64{cfg.Weights.PnL, cfg.Weights.Act, cfg.Weights.Early}}
}

// Current returns the weights snapshot to use for this evaluation pass, and
// to stamp onto any AlertRecord emitted from wallets scored with it.
func (w *AdaptiveWeights) Current() [3]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// ApplyOutcome nudges each weight toward dimensions that won and away from
// ones that lost, renormalizes so the three weights still sum to 1, then
// scales the move back so no weight moves more than the per-day cap in total.
func (w *AdaptiveWeights) ApplyOutcome(o AlertOutcome, step float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := maxDailyShiftPerWeight - w.shifted
	if remaining <= 0 {
		return
	}
	if step > remaining {
		step = remaining
	}

	delta := [3]float64{}
	if o.PnLWin {
		delta[0] += step
	} else {
		delta[0] -= step
	}
	if o.ActWin {
		delta[1] += step
	} else {
		delta[1] -= step
	}
	if o.EarlyWin {
		delta[2] += step
	} else {
		delta[2] -= step
	}

	next := [3]float64{w.current[0] + delta[0], w.current[1] + delta[1], w.current[2] + delta[2]}
	for i := range next {
		if next[i] < 0 {
			next[i] = 0
		}
	}
	sum := next[0] + next[1] + next[2]
	if sum > 0 {
		for i := range next {
			next[i] /= sum
		}
	}

	// Renormalizing can move a weight by more than step; scale the whole move
	// back so no weight moves further than the remaining daily budget.
	move := 0.0
	for i := range next {
		move = math.Max(move, math.Abs(next[i]-w.current[i]))
	}
	if move > remaining {
		for i := range next {
			next[i] = w.current[i] + (next[i]-w.current[i])*remaining/move
		}
		move = remaining
	}

	w.current = next
	w.shifted += move
}

// ResetDaily clears the per-day movement budget; call once at the start of
// each day's watchlist maintenance run.
func (w *AdaptiveWeights) ResetDaily() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shifted = 0
}
