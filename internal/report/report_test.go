// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kernel-press/pkg/types"
)

var (
	kRule       = types.ConceptKernel{ID: "k1", Concept: "Return errors explicitly.", Category: types.CategoryRule}
	kPrinciple  = types.ConceptKernel{ID: "k2", Concept: "Keep functions small.", Category: types.CategoryPrinciple}
	kDefinition = types.ConceptKernel{ID: "k3", Concept: "A kernel is an atomic idea.", Category: types.CategoryDefinition}
)

func sampleCondense() types.CondenseResult {
	return types.CondenseResult{
		RunID:          "3f1c2a9e-0000-4000-8000-000000000001",
		CompressedText: "Return errors explicitly.\nKeep functions small.",
		Tokens:         types.TokenCounts{Before: 120, After: 48, Ratio: 0.4},
		Kernels: types.KernelCounts{
			Before:   3,
			After:    2,
			Retained: []types.ConceptKernel{kRule, kPrinciple},
			Lost:     []types.ConceptKernel{kDefinition},
		},
		Density:     types.DensityMetrics{Before: 140, After: 95.5},
		Stability:   types.ConsensusStability{MeanJaccard: 0.8333333, MinJaccard: 0.5, MaxJaccard: 1, Comparisons: 3},
		Variance:    &types.Variance{DensityStdDev: 4.25, RetainedStdDev: 0.4714, Attempts: 3},
		AttemptsRun: 3,
		VerifyMode:  types.VerifyCheck,
		Passes: []types.PassReport{
			{Pass: "req:kernels+telegraphic", Placement: "before", TokensBefore: 120, TokensAfter: 52, Ratio: 0.4333},
			{Pass: "strip-hedges", Placement: "none", TokensBefore: 52, TokensAfter: 48, Ratio: 0.923},
		},
		Usage: types.OracleUsage{Calls: 9, InputTokens: 5400, OutputTokens: 1200, Duration: 1500 * time.Millisecond},
	}
}

func sampleConsensus() types.ConsensusResult {
	return types.ConsensusResult{
		Kernels: []types.ConsensusKernel{
			{ConceptKernel: kRule, Coverage: 3, Variants: []types.KernelVariant{{Run: 0, Concept: "Return errors explicitly."}}},
			{ConceptKernel: kPrinciple, Coverage: 2, Variants: []types.KernelVariant{{Run: 1, Concept: "Keep functions small."}}},
		},
		Stability:       types.ConsensusStability{MeanJaccard: 0.6667, MinJaccard: 0.5, MaxJaccard: 1, Comparisons: 3},
		Runs:            3,
		Threshold:       0.5,
		MinAppearances:  2,
		ClusterCount:    4,
		RunKernelCounts: []int{2, 2, 0},
		DegradedRuns:    []int{2},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCondenseText_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CondenseText(&buf, sampleCondense()))
	newGoldie(t).Assert(t, "condense_text", buf.Bytes())
}

func TestConsensusText_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ConsensusText(&buf, sampleConsensus()))
	newGoldie(t).Assert(t, "consensus_text", buf.Bytes())
}

func TestCondenseText_VerifyNoneOmitsRetention(t *testing.T) {
	r := sampleCondense()
	r.VerifyMode = types.VerifyNone
	r.Kernels = types.KernelCounts{Before: 3}
	r.Variance = nil

	var buf bytes.Buffer
	require.NoError(t, CondenseText(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "3 consensus\n")
	assert.NotContains(t, out, "retained")
	assert.NotContains(t, out, "Variance")
	assert.NotContains(t, out, "Lost kernels")
}

func TestCondense_MachineFormats(t *testing.T) {
	r := sampleCondense()

	var jsonBuf bytes.Buffer
	require.NoError(t, Condense(&jsonBuf, FormatJSON, r))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded["run_id"])
	assert.Equal(t, r.CompressedText, decoded["compressed_text"])

	var yamlBuf bytes.Buffer
	require.NoError(t, Condense(&yamlBuf, FormatYAML, r))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
	assert.Equal(t, r.RunID, fromYAML["run_id"])
	assert.Equal(t, "verify", fromYAML["verify_mode"])
}

func TestConsensus_YAMLInlinesKernelFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Consensus(&buf, FormatYAML, sampleConsensus()))

	var decoded struct {
		Kernels []types.ConsensusKernel `yaml:"kernels"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Kernels, 2)
	assert.Equal(t, kRule, decoded.Kernels[0].ConceptKernel)
	assert.Equal(t, 3, decoded.Kernels[0].Coverage)
}

func TestRetention(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Retention(&buf, types.RetentionReport{
		Retained:      []types.ConceptKernel{kRule},
		Lost:          []types.ConceptKernel{kPrinciple},
		RetentionRate: 0.5,
	}))
	assert.Contains(t, buf.String(), "0.50 (1 retained, 1 lost)")
	assert.Contains(t, buf.String(), "  - k2 (principle): Keep functions small.")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.True(t, types.IsInputError(err))
}
