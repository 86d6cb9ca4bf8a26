// Package reliability tracks per-component operational health and performs
// the periodic off-box database backup.
package reliability

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ComponentHealth is one component's current degradation state, per
// spec.md §7 ("mark the component degraded" after sustained failures).
type ComponentHealth struct {
	Name      string
	Degraded  bool
	Reason    string
	UpdatedAt time.Time
}

// Tracker holds the degradation state of every component the scheduler (or
// an adapter registry) reports into. Read by the status server for
// /healthz and /status.
type Tracker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	now        func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{components: make(map[string]ComponentHealth), now: time.Now}
}

// MarkDegraded records component as degraded with reason. Satisfies
// scheduler.DegradationSink.
func (t *Tracker) MarkDegraded(component, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.components[component] = ComponentHealth{Name: component, Degraded: true, Reason: reason, UpdatedAt: t.now()}
}

// MarkHealthy clears a component's degraded flag, or records it as healthy
// if never seen before.
func (t *Tracker) MarkHealthy(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.components[component] = ComponentHealth{Name: component, Degraded: false, UpdatedAt: t.now()}
}

// Snapshot returns every tracked component's current state.
func (t *Tracker) Snapshot() []ComponentHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ComponentHealth, 0, len(t.components))
	for _, c := range t.components {
		out = append(out, c)
	}
	return out
}

// AnyDegraded reports whether at least one tracked component is currently
// degraded, the signal the status server's /healthz uses to return 503.
func (t *Tracker) AnyDegraded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.components {
		if c.Degraded {
			return true
		}
	}
	return false
}

// SystemStats is an instantaneous CPU/RAM reading, surfaced on /status
// alongside the component health table.
type SystemStats struct {
	CPUPercent float64
	RAMPercent float64
}

// ReadSystemStats samples CPU (over a short window) and memory usage.
func ReadSystemStats() SystemStats {
	var stats SystemStats
	if pct, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.RAMPercent = vm.UsedPercent
	}
	return stats
}
