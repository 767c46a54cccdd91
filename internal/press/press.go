// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package press runs compression pipelines: ordered passes of mechanisms,
// each pass one oracle call whose output feeds the next pass.
package press

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/internal/tokens"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const opPress = "press"

// Options tune a single pipeline run.
type Options struct {
	// Attempt discriminates independent compressions of the same input.
	Attempt int

	Bypass bool
}

// Press executes pipelines.
type Press struct {
	oracle   oracle.Oracle
	cache    *cache.Facade
	registry Registry
	log      *slog.Logger
}

// New creates a Press over the built-in mechanisms. cache may be nil.
func New(o oracle.Oracle, c *cache.Facade, log *slog.Logger) *Press {
	return NewWithRegistry(o, c, DefaultRegistry(), log)
}

// NewWithRegistry creates a Press over reg.
func NewWithRegistry(o oracle.Oracle, c *cache.Facade, reg Registry, log *slog.Logger) *Press {
	if log == nil {
		log = slog.Default()
	}
	return &Press{oracle: o, cache: c, registry: reg, log: log}
}

type aiResponse struct {
	Content   string `json:"content"`
	Rationale string `json:"rationale"`
}

// Run applies passes to content strictly in sequence. kernels are sent to
// the oracle only for passes carrying the require-kernels modifier.
//
// Zero passes echo content with ratio 1. Blank content returns zero token
// counts. Neither calls the oracle. Any pass failure aborts the run.
func (p *Press) Run(ctx context.Context, content string, passes []types.PipelinePass, kernels []types.ConceptKernel, opts Options) (types.PressResult, error) {
	result := types.PressResult{
		Content:       content,
		Ratio:         1,
		PerPassRatios: []float64{},
	}
	if strings.TrimSpace(content) == "" {
		return result, nil
	}

	result.TokensBefore = tokens.Approx(content)
	result.TokensAfter = result.TokensBefore

	current := content
	for i, pass := range passes {
		before := tokens.Approx(current)
		out, err := p.runPass(ctx, i, pass, current, kernels, opts)
		if err != nil {
			return types.PressResult{}, fmt.Errorf("pass %d (%s): %w", i+1, pass, err)
		}
		after := tokens.Approx(out)
		ratio := tokens.Ratio(before, after)

		result.PerPassRatios = append(result.PerPassRatios, ratio)
		result.Passes = append(result.Passes, types.PassReport{
			Pass:         pass.String(),
			Placement:    Placement(pass),
			TokensBefore: before,
			TokensAfter:  after,
			Ratio:        ratio,
		})
		current = out
	}

	result.Content = current
	result.TokensAfter = tokens.Approx(current)
	result.Ratio = tokens.Ratio(result.TokensBefore, result.TokensAfter)
	return result, nil
}

func (p *Press) runPass(ctx context.Context, index int, pass types.PipelinePass, content string, kernels []types.ConceptKernel, opts Options) (string, error) {
	payload := Payload{
		Content:    content,
		Directives: pass.String(),
		Placement:  Placement(pass),
	}
	for _, name := range pass.Mechanisms() {
		m, ok := p.registry[name]
		if !ok {
			return "", types.NewInputError(types.ErrCodeUnknownDirective, "unknown mechanism %q", name)
		}
		payload.Mechanisms = append(payload.Mechanisms, m)
	}
	if pass.RequiresKernels() {
		payload.Kernels = kernels
	}

	key, err := cache.Key("press", map[string]any{
		"content": content,
		"pass":    payload.Directives,
		"kernels": payload.Kernels,
		"index":   index,
		"oracle":  p.oracle.Identity(),
		"attempt": opts.Attempt,
	})
	if err != nil {
		return "", err
	}

	out, hit, err := cache.Memo(ctx, p.cache, key, opts.Bypass, func(ctx context.Context) (string, error) {
		prompt, err := renderPrompt(payload)
		if err != nil {
			return "", fmt.Errorf("rendering prompt: %w", err)
		}
		resp, _, err := oracle.Ask[aiResponse](ctx, p.oracle, oracle.Request{
			Op:      opPress,
			Role:    roleContext,
			Prompt:  prompt,
			Schema:  passSchema,
			Payload: payload,
		})
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(resp.Content) == "" {
			return "", &types.OracleError{Kind: types.OracleMalformed, Op: opPress, Err: errors.New("pass returned empty content")}
		}
		return resp.Content, nil
	})
	if err != nil {
		return "", err
	}
	p.log.Debug("press pass complete", "pass", payload.Directives, "attempt", opts.Attempt, "cache_hit", hit)
	return out, nil
}
