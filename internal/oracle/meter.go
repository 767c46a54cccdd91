// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"sync"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// Meter wraps an Oracle and sums the metrics of every call made through it,
// including failed calls that reported metrics. Calls served from the cache
// never reach the Meter and so cost nothing.
type Meter struct {
	next Oracle

	mu    sync.Mutex
	usage types.OracleUsage
}

// NewMeter wraps next.
func NewMeter(next Oracle) *Meter {
	return &Meter{next: next}
}

// Identity returns the wrapped oracle's identity so cache keys are unchanged.
func (m *Meter) Identity() string { return m.next.Identity() }

// Ask forwards to the wrapped oracle and records its metrics.
func (m *Meter) Ask(ctx context.Context, req Request) (Response, error) {
	resp, err := m.next.Ask(ctx, req)
	m.mu.Lock()
	m.usage.Add(resp.Metrics.Usage())
	m.mu.Unlock()
	return resp, err
}

// Usage returns the totals so far.
func (m *Meter) Usage() types.OracleUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}
