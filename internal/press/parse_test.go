// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package press

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kernel-press/pkg/types"
)

func mech(name string) types.Directive {
	return types.Directive{Kind: types.DirectiveMechanism, Name: name}
}

var reqKernels = types.Directive{Kind: types.DirectiveModifier, Name: types.ModifierRequireKernels}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []types.PipelinePass
	}{
		{"blank", "  ", []types.PipelinePass{}},
		{"single mechanism", "telegraphic", []types.PipelinePass{{Directives: []types.Directive{mech("telegraphic")}}}},
		{
			name: "modifier order kept",
			spec: "req:kernels+telegraphic | dedupe + req:kernels",
			want: []types.PipelinePass{
				{Directives: []types.Directive{reqKernels, mech("telegraphic")}},
				{Directives: []types.Directive{mech("dedupe"), reqKernels}},
			},
		},
		{
			name: "several mechanisms in one pass",
			spec: "dedupe+tersify+listify",
			want: []types.PipelinePass{{Directives: []types.Directive{mech("dedupe"), mech("tersify"), mech("listify")}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
		code types.InputErrorCode
	}{
		{"unknown mechanism", "telegraphic | squash", types.ErrCodeUnknownDirective},
		{"unknown modifier", "req:everything+dedupe", types.ErrCodeUnknownDirective},
		{"empty pass", "telegraphic || dedupe", types.ErrCodeInvalidOption},
		{"empty directive", "telegraphic+", types.ErrCodeInvalidOption},
		{"modifier only", "req:kernels", types.ErrCodeInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.spec)
			var ie *types.InputError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Equal(t, tt.code, ie.Code)
		})
	}
}

func TestParseYAML(t *testing.T) {
	got, err := ParseYAML([]byte("- [req:kernels, telegraphic]\n- [dedupe]\n"))
	require.NoError(t, err)
	want, err := Parse("req:kernels+telegraphic | dedupe")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseYAML([]byte("- [squash]\n"))
	assert.True(t, types.IsInputError(err))

	_, err = ParseYAML([]byte("{not: a list}"))
	assert.True(t, types.IsInputError(err))
}

func TestFormat_RoundTrips(t *testing.T) {
	spec := "req:kernels+telegraphic | dedupe+req:kernels | sitrep"
	passes, err := Parse(spec)
	require.NoError(t, err)
	assert.Equal(t, spec, Format(passes))
}

func TestPlacement(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"telegraphic", "none"},
		{"req:kernels+telegraphic", "before"},
		{"telegraphic+req:kernels", "after"},
		{"req:kernels+telegraphic+req:kernels", "both"},
		{"dedupe+req:kernels+telegraphic", "inside"},
		{"req:kernels+dedupe+req:kernels+telegraphic", "inside"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			passes, err := Parse(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Placement(passes[0]))
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"dedupe", "listify", "sitrep", "strip-hedges", "telegraphic", "tersify"}, reg.Names())
	for _, m := range reg {
		assert.NotEmpty(t, m.Instruction, m.Name)
		assert.NotEmpty(t, m.Summary, m.Name)
	}
}

func TestLoadRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "mechanisms: [\n"},
		{"empty name", "mechanisms:\n  - name: ''\n    instruction: x\n"},
		{"separator in name", "mechanisms:\n  - name: a+b\n    instruction: x\n"},
		{"duplicate", "mechanisms:\n  - name: a\n    instruction: x\n  - name: a\n    instruction: y\n"},
		{"no instruction", "mechanisms:\n  - name: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestRegistry_CustomMechanisms(t *testing.T) {
	reg, err := LoadRegistry([]byte("mechanisms:\n  - name: shout\n    instruction: Uppercase everything.\n"))
	require.NoError(t, err)

	passes, err := reg.Parse("shout+req:kernels")
	require.NoError(t, err)
	assert.Equal(t, []string{"shout"}, passes[0].Mechanisms())

	_, err = reg.Parse("telegraphic")
	assert.True(t, types.IsInputError(err))
}
