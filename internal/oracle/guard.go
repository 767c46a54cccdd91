// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// retryDelay is the pause before retrying a transient failure. Tests
// override this to avoid real sleeps.
var retryDelay = 2 * time.Second

// GuardConfig bounds how a Guard calls its inner oracle.
type GuardConfig struct {
	// MaxInFlight is the size of the shared admission window.
	MaxInFlight int

	// Timeout applies to each attempt.
	Timeout time.Duration

	// MaxRetries counts retries after the first attempt for transient
	// failures (timeouts and upstream errors).
	MaxRetries int

	Logger *slog.Logger
}

// Guard wraps an Oracle with a bounded in-flight window, a per-call timeout
// and a retry for transient failures. One Guard is shared by every
// component in a process so that the window caps the whole system.
type Guard struct {
	inner   Oracle
	sem     *semaphore.Weighted
	timeout time.Duration
	retries int
	log     *slog.Logger
}

// NewGuard creates a Guard around inner.
func NewGuard(inner Oracle, cfg GuardConfig) *Guard {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = types.DefaultMaxInFlight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = types.DefaultOracleTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		timeout: cfg.Timeout,
		retries: cfg.MaxRetries,
		log:     log,
	}
}

// Identity returns the inner oracle's identity.
func (g *Guard) Identity() string { return g.inner.Identity() }

// Ask admits the call through the window and retries transient failures.
// Every returned error is an *types.OracleError.
func (g *Guard) Ask(ctx context.Context, req Request) (Response, error) {
	var lastErr *types.OracleError
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			g.log.Warn("retrying oracle call", "op", req.Op, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return Response{}, classify(req.Op, ctx.Err())
			case <-time.After(retryDelay):
			}
		}

		resp, err := g.askOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = classify(req.Op, err)
		if !lastErr.Temporary() || ctx.Err() != nil {
			break
		}
	}
	return Response{}, lastErr
}

func (g *Guard) askOnce(ctx context.Context, req Request) (Response, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Response{}, err
	}
	defer g.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.inner.Ask(callCtx, req)
	if err == nil && resp.Metrics.Duration == 0 {
		resp.Metrics.Duration = time.Since(start)
	}
	if err == nil && callCtx.Err() != nil {
		// A response that arrives after the deadline is discarded.
		err = callCtx.Err()
	}
	g.log.Debug("oracle call", "op", req.Op, "duration", time.Since(start), "error", err)
	return resp, err
}

// classify maps err onto the oracle error taxonomy.
func classify(op string, err error) *types.OracleError {
	var oe *types.OracleError
	if errors.As(err, &oe) {
		if oe.Op == "" {
			oe.Op = op
		}
		return oe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.OracleError{Kind: types.OracleTimeout, Op: op, Err: err}
	}
	return &types.OracleError{Kind: types.OracleUpstream, Op: op, Err: err}
}
