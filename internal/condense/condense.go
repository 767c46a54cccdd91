// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package condense is the composition root of kernel-press: it establishes
// the consensus kernels of a document, gates on their stability, compresses
// the document, verifies what survived and optionally restores what did not.
package condense

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/cluster"
	"github.com/pdiddy/kernel-press/internal/consensus"
	"github.com/pdiddy/kernel-press/internal/extract"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/internal/press"
	"github.com/pdiddy/kernel-press/internal/restore"
	"github.com/pdiddy/kernel-press/internal/tokens"
	"github.com/pdiddy/kernel-press/internal/verify"
	"github.com/pdiddy/kernel-press/pkg/types"
)

// Deps are the shared collaborators of an Orchestrator.
type Deps struct {
	// Oracle answers every judgment call. Wrap it in an oracle.Guard to
	// bound concurrency and time.
	Oracle oracle.Oracle

	// Cache memoizes oracle calls. Nil disables caching.
	Cache *cache.Facade

	// Registry resolves pipeline mechanisms. Nil selects the built-ins.
	Registry press.Registry

	Logger *slog.Logger
}

// Options configure one Condense call.
type Options struct {
	types.CondenseConfig

	// Bypass forces fresh oracle calls throughout the run.
	Bypass bool
}

// Orchestrator runs the condense pipeline.
type Orchestrator struct {
	deps Deps
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Registry == nil {
		d.Registry = press.DefaultRegistry()
	}
	return &Orchestrator{deps: d}
}

// stages are the per-run components, all sharing one metered oracle.
type stages struct {
	meter     *oracle.Meter
	consensus *consensus.Engine
	press     *press.Press
	verifier  *verify.Verifier
	restorer  *restore.Restorer
}

func (o *Orchestrator) stages(log *slog.Logger) stages {
	m := oracle.NewMeter(o.deps.Oracle)
	c := o.deps.Cache
	return stages{
		meter:     m,
		consensus: consensus.New(extract.New(m, c, log), cluster.New(m, c, log), log),
		press:     press.NewWithRegistry(m, c, o.deps.Registry, log),
		verifier:  verify.New(m, c, log),
		restorer:  restore.New(m, c, log),
	}
}

// Condense compresses content while tracking its consensus kernels.
//
// The steps are: consensus extraction, stability gate, K independent
// press+verify attempts (the first is primary), variance across attempts,
// optional restoration of the primary's lost kernels, and the style
// post-filter.
//
// Blank content, zero consensus kernels and unusable options fail with an
// InputError; low agreement fails with a StabilityError. On a StabilityError
// the returned result still carries the run id, stability and usage.
func (o *Orchestrator) Condense(ctx context.Context, content string, opts Options) (result types.CondenseResult, err error) {
	cfg := opts.CondenseConfig.WithDefaults()
	result = types.CondenseResult{
		RunID:      uuid.NewString(),
		VerifyMode: cfg.VerifyMode,
	}
	log := o.deps.Logger.With("run_id", result.RunID)

	if strings.TrimSpace(content) == "" {
		return result, types.NewInputError(types.ErrCodeEmptyInput, "document is empty")
	}
	passes, err := o.deps.Registry.Parse(cfg.Pipeline)
	if err != nil {
		return result, err
	}
	switch cfg.VerifyMode {
	case types.VerifyNone, types.VerifyCheck, types.VerifyRestore:
	default:
		return result, types.NewInputError(types.ErrCodeInvalidOption, "unknown verify mode %q (want none, verify or restore)", cfg.VerifyMode)
	}

	st := o.stages(log)
	defer func() { result.Usage = st.meter.Usage() }()

	log.Info("condense started", "bytes", len(content), "pipeline", press.Format(passes), "verify", cfg.VerifyMode, "attempts", cfg.Attempts)

	cons, err := st.consensus.Run(ctx, content, consensus.Params{
		Runs:      cfg.Consensus.Runs,
		Threshold: cfg.Consensus.Threshold,
		Bypass:    opts.Bypass,
	})
	if err != nil {
		return result, fmt.Errorf("consensus: %w", err)
	}
	result.Stability = cons.Stability

	if err := consensus.Gate(cons.Stability, cfg.Consensus.StabilityThreshold); err != nil {
		log.Warn("stability gate failed", "mean_jaccard", cons.Stability.MeanJaccard, "threshold", cfg.Consensus.StabilityThreshold)
		return result, err
	}

	kernels := cons.ConceptKernels()
	if len(kernels) == 0 {
		return result, types.NewInputError(types.ErrCodeNoKernels, "no consensus kernels from %d runs (cluster count %d)", cons.Runs, cons.ClusterCount)
	}

	attempts, err := o.runAttempts(ctx, st, content, passes, kernels, cfg, opts.Bypass)
	if err != nil {
		return result, err
	}
	primary := attempts[0]
	result.Attempts = attempts
	result.AttemptsRun = len(attempts)
	result.Variance = variance(attempts)
	result.Passes = primary.Press.Passes

	text := primary.Press.Content
	report := primary.Report

	if cfg.VerifyMode == types.VerifyRestore && len(report.Lost) > 0 {
		restored, err := st.restorer.Restore(ctx, text, report.Lost, restore.Options{Bypass: opts.Bypass})
		if err != nil {
			return result, fmt.Errorf("restore: %w", err)
		}
		report, err = st.verifier.Verify(ctx, kernels, restored.Content, verify.Options{Bypass: opts.Bypass})
		if err != nil {
			return result, fmt.Errorf("re-verify: %w", err)
		}
		text = restored.Content
		result.Restored = true
		log.Info("restored lost kernels", "lost_before", len(primary.Report.Lost), "lost_after", len(report.Lost))
	}

	if !cfg.NoStyleFilter {
		text, err = o.styleFilter(ctx, st, text, opts.Bypass, &result)
		if err != nil {
			return result, err
		}
	}

	result.CompressedText = text
	result.Tokens = types.TokenCounts{
		Before: tokens.Approx(content),
		After:  tokens.Approx(text),
	}
	result.Tokens.Ratio = tokens.Ratio(result.Tokens.Before, result.Tokens.After)
	result.Kernels = types.KernelCounts{
		Before:   len(kernels),
		Retained: []types.ConceptKernel{},
		Lost:     []types.ConceptKernel{},
	}
	result.Density.Before = density(content, len(kernels))
	if primary.Verified {
		result.Kernels.After = len(report.Retained)
		result.Kernels.Retained = report.Retained
		result.Kernels.Lost = report.Lost
		result.Density.After = density(text, len(report.Retained))
	}

	log.Info("condense complete",
		"tokens_before", result.Tokens.Before,
		"tokens_after", result.Tokens.After,
		"kernels", result.Kernels.Before,
		"retained", result.Kernels.After,
		"restored", result.Restored,
	)
	return result, nil
}

// runAttempts runs K independent press+verify attempts concurrently.
func (o *Orchestrator) runAttempts(ctx context.Context, st stages, content string, passes []types.PipelinePass, kernels []types.ConceptKernel, cfg types.CondenseConfig, bypass bool) ([]types.AttemptResult, error) {
	attempts := make([]types.AttemptResult, cfg.Attempts)
	g, gctx := errgroup.WithContext(ctx)
	for i := range attempts {
		g.Go(func() error {
			pr, err := st.press.Run(gctx, content, passes, kernels, press.Options{Attempt: i, Bypass: bypass})
			if err != nil {
				return fmt.Errorf("attempt %d: press: %w", i+1, err)
			}
			a := types.AttemptResult{Attempt: i + 1, Press: pr}
			a.Density.Before = density(content, len(kernels))

			if cfg.VerifyMode != types.VerifyNone {
				report, err := st.verifier.Verify(gctx, kernels, pr.Content, verify.Options{Bypass: bypass})
				if err != nil {
					return fmt.Errorf("attempt %d: verify: %w", i+1, err)
				}
				a.Verified = true
				a.Report = report
				a.Density.After = density(pr.Content, len(report.Retained))
			}
			attempts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// styleFilter applies the lexical hedge filter, then one strip-hedges pass.
func (o *Orchestrator) styleFilter(ctx context.Context, st stages, text string, bypass bool, result *types.CondenseResult) (string, error) {
	filtered := StyleFilter(text)
	passes, err := o.deps.Registry.Parse(StripPass)
	if err != nil {
		return "", fmt.Errorf("style filter: %w", err)
	}
	pr, err := st.press.Run(ctx, filtered, passes, nil, press.Options{Bypass: bypass})
	if err != nil {
		return "", fmt.Errorf("style filter: %w", err)
	}
	result.Passes = append(append([]types.PassReport(nil), result.Passes...), pr.Passes...)
	return pr.Content, nil
}
