package health

import (
	"context"
	"fmt"
	"runtime"
)

// EntryCounter reports how many entries an in-process store holds.
type EntryCounter interface {
	Len() int
}

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the fraction of MaxAlloc that triggers degraded status.
	// Value should be between 0 and 1. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the fraction of MaxAlloc that triggers unhealthy status.
	// Value should be between 0 and 1. Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes.
	// Default: 0 (the memory obtained from the OS)
	MaxAlloc uint64

	// Entries, when set, adds the cache entry count to the details.
	Entries EntryCounter
}

// MemoryChecker reports heap pressure. It matters when the cache itself
// lives in the process heap.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a checker named "memory".
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config}
}

// Name returns the checker name.
func (m *MemoryChecker) Name() string { return "memory" }

// Check compares the live heap with the budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	budget := m.config.MaxAlloc
	if budget == 0 {
		budget = stats.Sys
	}

	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"heap_in_use":      stats.HeapInuse,
		"heap_objects":     stats.HeapObjects,
		"sys_bytes":        stats.Sys,
		"num_gc":           stats.NumGC,
		"budget_bytes":     budget,
	}
	if m.config.Entries != nil {
		details["cache_entries"] = m.config.Entries.Len()
	}
	if budget == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(budget)
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", ratio*100)).WithDetails(details)
}

var _ Checker = (*MemoryChecker)(nil)
