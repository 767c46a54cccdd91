// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns document text into concept kernels with one oracle
// call per attempt.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const opExtract = "extract"

// Extractor wraps the extraction oracle call.
type Extractor struct {
	oracle oracle.Oracle
	cache  *cache.Facade
	log    *slog.Logger
}

// New creates an Extractor. cache may be nil.
func New(o oracle.Oracle, c *cache.Facade, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{oracle: o, cache: c, log: log}
}

// Options tune a single extraction.
type Options struct {
	// Attempt discriminates independent draws of the same document so the
	// cache stores one entry per attempt.
	Attempt int

	// Bypass ignores and overwrites any cached result.
	Bypass bool
}

// aiResponse is the structured response from the oracle.
type aiResponse struct {
	Kernels   []aiKernel `json:"kernels"`
	Rationale string     `json:"rationale"`
}

// aiKernel is a single kernel as returned by the oracle.
type aiKernel struct {
	ID       string `json:"id"`
	Concept  string `json:"concept"`
	Category string `json:"category"`
}

// Extract returns the concept kernels of content.
//
// Blank content yields an empty result without an oracle call. Oracle
// failures of any kind degrade to an empty, Degraded result rather than an
// error; the only error returned is the context's.
func (e *Extractor) Extract(ctx context.Context, content string, opts Options) (types.ExtractionResult, error) {
	if strings.TrimSpace(content) == "" {
		return types.ExtractionResult{Kernels: []types.ConceptKernel{}, Rationale: "blank document"}, nil
	}

	key, err := cache.Key("extract", map[string]any{
		"content": content,
		"oracle":  e.oracle.Identity(),
		"attempt": opts.Attempt,
	})
	if err != nil {
		return types.ExtractionResult{}, err
	}

	result, hit, err := cache.Memo(ctx, e.cache, key, opts.Bypass, func(ctx context.Context) (types.ExtractionResult, error) {
		return e.ask(ctx, content)
	})
	if err != nil {
		if ctx.Err() != nil {
			return types.ExtractionResult{}, ctx.Err()
		}
		e.log.Warn("extraction degraded to empty result", "attempt", opts.Attempt, "error", err)
		return types.ExtractionResult{
			Kernels:   []types.ConceptKernel{},
			Rationale: fmt.Sprintf("extraction failed, no kernels recorded: %v", err),
			Degraded:  true,
		}, nil
	}

	e.log.Debug("extracted kernels", "attempt", opts.Attempt, "kernels", len(result.Kernels), "cache_hit", hit)
	return result, nil
}

func (e *Extractor) ask(ctx context.Context, content string) (types.ExtractionResult, error) {
	prompt, err := renderPrompt(content)
	if err != nil {
		return types.ExtractionResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	resp, _, err := oracle.Ask[aiResponse](ctx, e.oracle, oracle.Request{
		Op:      opExtract,
		Role:    roleContext,
		Prompt:  prompt,
		Schema:  extractionSchema,
		Payload: content,
	})
	if err != nil {
		return types.ExtractionResult{}, err
	}

	return types.ExtractionResult{
		Kernels:   convertKernels(resp.Kernels),
		Rationale: resp.Rationale,
	}, nil
}

// convertKernels normalizes oracle kernels. Kernels with no concept text
// are dropped, unknown categories fall back to principle, and missing or
// repeated ids are replaced so ids are unique within the result.
func convertKernels(items []aiKernel) []types.ConceptKernel {
	result := make([]types.ConceptKernel, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		concept := strings.TrimSpace(item.Concept)
		if concept == "" {
			continue
		}

		category := types.KernelCategory(strings.ToLower(strings.TrimSpace(item.Category)))
		if !types.ValidCategories[category] {
			category = types.CategoryPrinciple
		}

		id := strings.TrimSpace(item.ID)
		if id == "" || seen[id] {
			id = freshID(seen, len(result)+1)
		}
		seen[id] = true

		result = append(result, types.ConceptKernel{ID: id, Concept: concept, Category: category})
	}
	return result
}

// freshID returns the first "k<n>" id, n >= start, not yet in seen.
func freshID(seen map[string]bool, start int) string {
	for n := start; ; n++ {
		id := fmt.Sprintf("k%d", n)
		if !seen[id] {
			return id
		}
	}
}
