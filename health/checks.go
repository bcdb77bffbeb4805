package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/resilience"
)

// CircuitLister lists stored circuits. *resilience.Registry implements it.
type CircuitLister interface {
	AllCircuits(ctx context.Context) ([]resilience.CircuitModel, error)
}

// CircuitCheckerConfig configures CircuitChecker.
type CircuitCheckerConfig struct {
	// UnhealthyRatio is the fraction of Open circuits at which the check
	// turns unhealthy. Any Open circuit below it reports degraded.
	// Default: 0.5
	UnhealthyRatio float64
}

// CircuitChecker reports Open circuits.
type CircuitChecker struct {
	circuits CircuitLister
	config   CircuitCheckerConfig
}

// NewCircuitChecker creates a checker over circuits.
func NewCircuitChecker(circuits CircuitLister, config CircuitCheckerConfig) *CircuitChecker {
	if config.UnhealthyRatio <= 0 || config.UnhealthyRatio > 1 {
		config.UnhealthyRatio = 0.5
	}
	return &CircuitChecker{circuits: circuits, config: config}
}

// Name implements Checker.
func (c *CircuitChecker) Name() string {
	return "circuits"
}

// Check implements Checker.
func (c *CircuitChecker) Check(ctx context.Context) Result {
	models, err := c.circuits.AllCircuits(ctx)
	if err != nil {
		return Unhealthy("cannot list circuits", err)
	}

	var open []string
	halfOpen := 0
	for _, m := range models {
		switch m.BreakStatus() {
		case resilience.StateOpen:
			open = append(open, m.MethodKey)
		case resilience.StateHalfOpen:
			halfOpen++
		}
	}
	details := map[string]any{
		"total":    len(models),
		"open":     len(open),
		"halfOpen": halfOpen,
	}
	if len(open) > 0 {
		details["openKeys"] = open
	}

	switch {
	case len(open) == 0:
		return Healthy("no open circuits").WithDetails(details)
	case float64(len(open))/float64(len(models)) >= c.config.UnhealthyRatio:
		return Unhealthy(fmt.Sprintf("%d of %d circuits open", len(open), len(models)), nil).WithDetails(details)
	default:
		return Degraded(fmt.Sprintf("%d of %d circuits open", len(open), len(models))).WithDetails(details)
	}
}

// StoreChecker reports whether the cache store answers.
type StoreChecker struct {
	store cache.Store
}

// NewStoreChecker creates a checker over store. Stores with a Ping method
// are pinged; others are asked for their stats.
func NewStoreChecker(store cache.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

// Name implements Checker.
func (c *StoreChecker) Name() string {
	return "store"
}

// Check implements Checker.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("store ping failed", err)
		}
	}
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return Unhealthy("store stats failed", err)
	}
	return Healthy("store reachable").WithDetails(map[string]any{"nodes": len(stats)})
}

// EventCounter reports event log write outcomes. *eventlog.Emitter implements it.
type EventCounter interface {
	Dropped() uint64
	Failed() uint64
}

// EventLogChecker reports events lost since the previous check.
type EventLogChecker struct {
	counter EventCounter

	mu          sync.Mutex
	lastDropped uint64
	lastFailed  uint64
}

// NewEventLogChecker creates a checker over counter.
func NewEventLogChecker(counter EventCounter) *EventLogChecker {
	return &EventLogChecker{counter: counter}
}

// Name implements Checker.
func (c *EventLogChecker) Name() string {
	return "eventlog"
}

// Check implements Checker.
func (c *EventLogChecker) Check(context.Context) Result {
	dropped, failed := c.counter.Dropped(), c.counter.Failed()

	c.mu.Lock()
	newDropped, newFailed := dropped-c.lastDropped, failed-c.lastFailed
	c.lastDropped, c.lastFailed = dropped, failed
	c.mu.Unlock()

	details := map[string]any{
		"dropped":      dropped,
		"failed":       failed,
		"droppedSince": newDropped,
		"failedSince":  newFailed,
	}
	if newDropped > 0 || newFailed > 0 {
		return Degraded(fmt.Sprintf("%d events dropped, %d failed since last check", newDropped, newFailed)).WithDetails(details)
	}
	return Healthy("events written").WithDetails(details)
}

var (
	_ Checker = (*CircuitChecker)(nil)
	_ Checker = (*StoreChecker)(nil)
	_ Checker = (*EventLogChecker)(nil)
)
