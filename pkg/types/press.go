// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// DirectiveKind tags a pipeline directive as a mechanism or a modifier.
type DirectiveKind string

const (
	DirectiveMechanism DirectiveKind = "mechanism"
	DirectiveModifier  DirectiveKind = "modifier"
)

// ModifierRequireKernels is the only modifier: it hands the kernel list to
// the oracle as a hard constraint for the pass it appears in.
const ModifierRequireKernels = "req:kernels"

// Directive is one token of a pipeline pass.
type Directive struct {
	Kind DirectiveKind `json:"kind" yaml:"kind"`
	Name string        `json:"name" yaml:"name"`
}

// String returns the directive token as written in a pipeline spec.
func (d Directive) String() string { return d.Name }

// PipelinePass is an ordered list of directives. Order is significant: the
// position of the require-kernels modifier relative to the mechanisms is
// forwarded to the oracle as written.
type PipelinePass struct {
	Directives []Directive `json:"directives" yaml:"directives"`
}

// RequiresKernels reports whether the modifier appears anywhere in the pass.
func (p PipelinePass) RequiresKernels() bool {
	for _, d := range p.Directives {
		if d.Kind == DirectiveModifier && d.Name == ModifierRequireKernels {
			return true
		}
	}
	return false
}

// Mechanisms returns the mechanism names of the pass in order.
func (p PipelinePass) Mechanisms() []string {
	var names []string
	for _, d := range p.Directives {
		if d.Kind == DirectiveMechanism {
			names = append(names, d.Name)
		}
	}
	return names
}

// String renders the pass in pipeline spec syntax (directives joined by "+").
func (p PipelinePass) String() string {
	tokens := make([]string, len(p.Directives))
	for i, d := range p.Directives {
		tokens[i] = d.Name
	}
	return strings.Join(tokens, "+")
}

// PassReport records token accounting for one executed pass.
type PassReport struct {
	Pass         string  `json:"pass" yaml:"pass"`
	Placement    string  `json:"placement" yaml:"placement"`
	TokensBefore int     `json:"tokens_before" yaml:"tokens_before"`
	TokensAfter  int     `json:"tokens_after" yaml:"tokens_after"`
	Ratio        float64 `json:"ratio" yaml:"ratio"`
}

// PressResult is the output of one Pipeline Press invocation.
type PressResult struct {
	Content       string       `json:"content" yaml:"content"`
	TokensBefore  int          `json:"tokens_before" yaml:"tokens_before"`
	TokensAfter   int          `json:"tokens_after" yaml:"tokens_after"`
	Ratio         float64      `json:"ratio" yaml:"ratio"`
	PerPassRatios []float64    `json:"per_pass_ratios" yaml:"per_pass_ratios"`
	Passes        []PassReport `json:"passes,omitempty" yaml:"passes,omitempty"`
}
