// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package press

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/internal/oracle/oracletest"
	"github.com/pdiddy/kernel-press/internal/tokens"
	"github.com/pdiddy/kernel-press/pkg/types"
)

var kernels = []types.ConceptKernel{{ID: "k1", Concept: "Return errors explicitly.", Category: types.CategoryRule}}

const source = "You should really always make sure that you return errors explicitly to the caller of the function."

// halver keeps the first half of the words and tags the output with the pass.
func halver(_ int, req oracle.Request) (any, error) {
	p := req.Payload.(Payload)
	words := strings.Fields(p.Content)
	return map[string]any{"content": strings.Join(words[:(len(words)+1)/2], " ")}, nil
}

func mustParse(t *testing.T, spec string) []types.PipelinePass {
	t.Helper()
	passes, err := Parse(spec)
	require.NoError(t, err)
	return passes
}

func TestRun_NoPassesEchoesInput(t *testing.T) {
	fake := oracletest.New("fake")
	result, err := New(fake, nil, nil).Run(context.Background(), "hello", nil, nil, Options{})
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Content)
	assert.Equal(t, 1.0, result.Ratio)
	assert.Equal(t, result.TokensBefore, result.TokensAfter)
	assert.Equal(t, tokens.Approx("hello"), result.TokensBefore)
	assert.Empty(t, result.PerPassRatios)
	assert.Equal(t, 0, fake.Total())
}

func TestRun_BlankSourceSkipsOracle(t *testing.T) {
	fake := oracletest.New("fake")
	result, err := New(fake, nil, nil).Run(context.Background(), " \n", mustParse(t, "telegraphic | dedupe"), kernels, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TokensBefore)
	assert.Equal(t, 0, result.TokensAfter)
	assert.Equal(t, 0, fake.Total())
}

func TestRun_PassesRunSequentially(t *testing.T) {
	fake := oracletest.New("fake").On(opPress, halver)
	result, err := New(fake, nil, nil).Run(context.Background(), source, mustParse(t, "telegraphic | dedupe | tersify"), nil, Options{})
	require.NoError(t, err)

	reqs := fake.Requests(opPress)
	require.Len(t, reqs, 3)
	assert.Equal(t, source, reqs[0].Payload.(Payload).Content)
	for i := 1; i < 3; i++ {
		prev := strings.Fields(reqs[i-1].Payload.(Payload).Content)
		want := strings.Join(prev[:(len(prev)+1)/2], " ")
		assert.Equal(t, want, reqs[i].Payload.(Payload).Content)
	}
	assert.Equal(t, "telegraphic", reqs[0].Payload.(Payload).Directives)
	assert.Equal(t, "tersify", reqs[2].Payload.(Payload).Directives)

	require.Len(t, result.PerPassRatios, 3)
	require.Len(t, result.Passes, 3)
	for i, r := range result.PerPassRatios {
		assert.Less(t, r, 1.0)
		assert.Equal(t, r, result.Passes[i].Ratio)
	}
	assert.Equal(t, tokens.Approx(source), result.TokensBefore)
	assert.Equal(t, tokens.Approx(result.Content), result.TokensAfter)
	assert.InDelta(t, float64(result.TokensAfter)/float64(result.TokensBefore), result.Ratio, 1e-9)
}

func TestRun_KernelsOnlyForModifierPasses(t *testing.T) {
	fake := oracletest.New("fake").On(opPress, halver)
	_, err := New(fake, nil, nil).Run(context.Background(), source, mustParse(t, "telegraphic | dedupe+req:kernels"), kernels, Options{})
	require.NoError(t, err)

	reqs := fake.Requests(opPress)
	require.Len(t, reqs, 2)

	first := reqs[0].Payload.(Payload)
	assert.Nil(t, first.Kernels)
	assert.Equal(t, "none", first.Placement)
	assert.NotContains(t, reqs[0].Prompt, "k1: Return errors explicitly.")

	second := reqs[1].Payload.(Payload)
	assert.Equal(t, kernels, second.Kernels)
	assert.Equal(t, "after", second.Placement)
	assert.Contains(t, reqs[1].Prompt, "k1: Return errors explicitly.")
	assert.Contains(t, reqs[1].Prompt, "dedupe+req:kernels")
}

func TestRun_CachePerAttempt(t *testing.T) {
	fake := oracletest.New("fake").On(opPress, halver)
	p := New(fake, cache.NewFacade(cache.NewMemoryStore(), nil), nil)
	passes := mustParse(t, "telegraphic")

	first, err := p.Run(context.Background(), source, passes, nil, Options{Attempt: 0})
	require.NoError(t, err)
	again, err := p.Run(context.Background(), source, passes, nil, Options{Attempt: 0})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, fake.Calls(opPress))

	_, err = p.Run(context.Background(), source, passes, nil, Options{Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(opPress))
}

func TestRun_PassFailureAborts(t *testing.T) {
	fake := oracletest.New("fake").On(opPress, func(call int, req oracle.Request) (any, error) {
		if call == 1 {
			return nil, &types.OracleError{Kind: types.OracleUpstream, Op: opPress, Err: errors.New("529")}
		}
		return halver(call, req)
	})
	_, err := New(fake, nil, nil).Run(context.Background(), source, mustParse(t, "telegraphic | dedupe | tersify"), nil, Options{})
	require.Error(t, err)
	assert.True(t, types.IsOracleError(err))
	assert.Contains(t, err.Error(), "pass 2 (dedupe)")
	assert.Equal(t, 2, fake.Calls(opPress))
}

func TestRun_EmptyOutputIsMalformed(t *testing.T) {
	fake := oracletest.New("fake").On(opPress, func(int, oracle.Request) (any, error) {
		return map[string]any{"content": "  "}, nil
	})
	_, err := New(fake, nil, nil).Run(context.Background(), source, mustParse(t, "telegraphic"), nil, Options{})
	assert.True(t, types.IsMalformed(err))
}

func TestRun_MechanismInstructionsInPrompt(t *testing.T) {
	fake := oracletest.New("fake").On(opPress, halver)
	_, err := New(fake, nil, nil).Run(context.Background(), source, mustParse(t, "listify+strip-hedges"), nil, Options{})
	require.NoError(t, err)

	prompt := fake.Requests(opPress)[0].Prompt
	assert.Contains(t, prompt, DefaultRegistry()["listify"].Instruction)
	assert.Contains(t, prompt, DefaultRegistry()["strip-hedges"].Instruction)
	assert.Contains(t, prompt, source)
}
