// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/internal/oracle/oracletest"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const doc = "Always return errors. Never panic in library code. Always return errors explicitly."

func kernelsReply(items ...aiKernel) oracletest.Handler {
	return func(int, oracle.Request) (any, error) {
		return aiResponse{Kernels: items, Rationale: "merged duplicates"}, nil
	}
}

func newExtractor(fake *oracletest.Fake) *Extractor {
	return New(fake, cache.NewFacade(cache.NewMemoryStore(), nil), nil)
}

func TestExtract_ReturnsKernels(t *testing.T) {
	fake := oracletest.New("fake").On(opExtract, kernelsReply(
		aiKernel{ID: "k1", Concept: "Return errors explicitly.", Category: "rule"},
		aiKernel{ID: "k2", Concept: "Library code does not panic.", Category: "constraint"},
	))
	e := newExtractor(fake)

	result, err := e.Extract(context.Background(), doc, Options{})
	require.NoError(t, err)
	require.Len(t, result.Kernels, 2)
	assert.Equal(t, types.ConceptKernel{ID: "k1", Concept: "Return errors explicitly.", Category: types.CategoryRule}, result.Kernels[0])
	assert.Equal(t, types.CategoryConstraint, result.Kernels[1].Category)
	assert.Equal(t, "merged duplicates", result.Rationale)
	assert.False(t, result.Degraded)

	reqs := fake.Requests(opExtract)
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, doc)
	assert.Equal(t, roleContext, reqs[0].Role)
	assert.Equal(t, doc, reqs[0].Payload)
}

func TestExtract_BlankDocumentSkipsOracle(t *testing.T) {
	fake := oracletest.New("fake")
	e := newExtractor(fake)

	for _, content := range []string{"", "   ", "\n\t\n"} {
		result, err := e.Extract(context.Background(), content, Options{})
		require.NoError(t, err)
		assert.Empty(t, result.Kernels)
		assert.NotNil(t, result.Kernels)
	}
	assert.Equal(t, 0, fake.Total())
}

func TestExtract_IsIdempotentThroughCache(t *testing.T) {
	fake := oracletest.New("fake").On(opExtract, kernelsReply(
		aiKernel{ID: "k1", Concept: "Return errors explicitly.", Category: "rule"},
	))
	e := newExtractor(fake)

	first, err := e.Extract(context.Background(), doc, Options{Attempt: 1})
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), doc, Options{Attempt: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls(opExtract))
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestExtract_AttemptsAreIndependentEntries(t *testing.T) {
	fake := oracletest.New("fake").On(opExtract, kernelsReply(
		aiKernel{ID: "k1", Concept: "Return errors explicitly.", Category: "rule"},
	))
	e := newExtractor(fake)

	for attempt := 0; attempt < 3; attempt++ {
		_, err := e.Extract(context.Background(), doc, Options{Attempt: attempt})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fake.Calls(opExtract))
}

func TestExtract_BypassCallsOracleAgain(t *testing.T) {
	fake := oracletest.New("fake").On(opExtract, kernelsReply(
		aiKernel{ID: "k1", Concept: "Return errors explicitly.", Category: "rule"},
	))
	e := newExtractor(fake)

	_, err := e.Extract(context.Background(), doc, Options{})
	require.NoError(t, err)
	_, err = e.Extract(context.Background(), doc, Options{Bypass: true})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(opExtract))
}

func TestExtract_OracleFailureDegrades(t *testing.T) {
	tests := []struct {
		name    string
		handler oracletest.Handler
	}{
		{"upstream error", func(int, oracle.Request) (any, error) {
			return nil, &types.OracleError{Kind: types.OracleUpstream, Op: opExtract, Err: errors.New("503")}
		}},
		{"malformed output", func(int, oracle.Request) (any, error) {
			return json.RawMessage(`{"kernels": "not a list"}`), nil
		}},
		{"missing kernels", func(int, oracle.Request) (any, error) {
			return json.RawMessage(`{"rationale": "nothing"}`), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewMemoryStore()
			fake := oracletest.New("fake").On(opExtract, tt.handler)
			e := New(fake, cache.NewFacade(store, nil), nil)

			result, err := e.Extract(context.Background(), doc, Options{})
			require.NoError(t, err)
			assert.True(t, result.Degraded)
			assert.Empty(t, result.Kernels)
			assert.NotEmpty(t, result.Rationale)

			n, _ := store.Len()
			assert.Equal(t, 0, n, "degraded results are not cached")
		})
	}
}

func TestExtract_CancelledContextIsAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := oracletest.New("fake").On(opExtract, func(int, oracle.Request) (any, error) {
		cancel()
		return nil, context.Canceled
	})
	e := newExtractor(fake)

	_, err := e.Extract(ctx, doc, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertKernels(t *testing.T) {
	tests := []struct {
		name  string
		input []aiKernel
		want  []types.ConceptKernel
	}{
		{
			name:  "normalizes category case",
			input: []aiKernel{{ID: "a", Concept: "x", Category: " Rule "}},
			want:  []types.ConceptKernel{{ID: "a", Concept: "x", Category: types.CategoryRule}},
		},
		{
			name:  "unknown category falls back to principle",
			input: []aiKernel{{ID: "a", Concept: "x", Category: "heuristic"}},
			want:  []types.ConceptKernel{{ID: "a", Concept: "x", Category: types.CategoryPrinciple}},
		},
		{
			name:  "empty concept dropped",
			input: []aiKernel{{ID: "a", Concept: "  ", Category: "rule"}, {ID: "b", Concept: "y", Category: "rule"}},
			want:  []types.ConceptKernel{{ID: "b", Concept: "y", Category: types.CategoryRule}},
		},
		{
			name: "duplicate and missing ids replaced",
			input: []aiKernel{
				{ID: "k1", Concept: "x", Category: "rule"},
				{ID: "k1", Concept: "y", Category: "rule"},
				{ID: "", Concept: "z", Category: "rule"},
			},
			want: []types.ConceptKernel{
				{ID: "k1", Concept: "x", Category: types.CategoryRule},
				{ID: "k2", Concept: "y", Category: types.CategoryRule},
				{ID: "k3", Concept: "z", Category: types.CategoryRule},
			},
		},
		{
			name:  "nil input",
			input: nil,
			want:  []types.ConceptKernel{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertKernels(tt.input))
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	p, err := renderPrompt("Document body {{not a template}}")
	require.NoError(t, err)
	assert.Contains(t, p, "Document body {{not a template}}")
	assert.Contains(t, p, "constraint")
}
