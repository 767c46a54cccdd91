// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package press

import (
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kernel-press/pkg/types"
)

const (
	passSeparator      = "|"
	directiveSeparator = "+"
)

// Parse parses a pipeline spec against the built-in mechanisms.
//
// Grammar:
//
//	pipeline  = pass { "|" pass }
//	pass      = directive { "+" directive }
//	directive = "req:kernels" | mechanism-name
//
// A blank spec is the empty pipeline.
func Parse(spec string) ([]types.PipelinePass, error) {
	return DefaultRegistry().Parse(spec)
}

// Parse parses a pipeline spec against r.
func (r Registry) Parse(spec string) ([]types.PipelinePass, error) {
	if strings.TrimSpace(spec) == "" {
		return []types.PipelinePass{}, nil
	}
	var tokens [][]string
	for _, pass := range strings.Split(spec, passSeparator) {
		tokens = append(tokens, strings.Split(pass, directiveSeparator))
	}
	return r.build(tokens)
}

// ParseYAML parses a pipeline given as a YAML list of passes, each a list of
// directive tokens, against the built-in mechanisms:
//
//	- [req:kernels, telegraphic]
//	- [dedupe]
func ParseYAML(data []byte) ([]types.PipelinePass, error) {
	return DefaultRegistry().ParseYAML(data)
}

// ParseYAML parses a YAML pipeline against r.
func (r Registry) ParseYAML(data []byte) ([]types.PipelinePass, error) {
	var tokens [][]string
	if err := yaml.Unmarshal(data, &tokens); err != nil {
		return nil, types.NewInputError(types.ErrCodeInvalidOption, "pipeline yaml: %v", err)
	}
	return r.build(tokens)
}

func (r Registry) build(tokens [][]string) ([]types.PipelinePass, error) {
	passes := make([]types.PipelinePass, 0, len(tokens))
	for i, passTokens := range tokens {
		var pass types.PipelinePass
		for _, tok := range passTokens {
			tok = strings.TrimSpace(tok)
			switch {
			case tok == "":
				return nil, types.NewInputError(types.ErrCodeInvalidOption, "pass %d has an empty directive", i+1)
			case tok == types.ModifierRequireKernels:
				pass.Directives = append(pass.Directives, types.Directive{Kind: types.DirectiveModifier, Name: tok})
			default:
				if _, ok := r[tok]; !ok {
					return nil, types.NewInputError(types.ErrCodeUnknownDirective,
						"pass %d: unknown directive %q (known: %s, %s)", i+1, tok, types.ModifierRequireKernels, strings.Join(r.Names(), ", "))
				}
				pass.Directives = append(pass.Directives, types.Directive{Kind: types.DirectiveMechanism, Name: tok})
			}
		}
		if len(pass.Mechanisms()) == 0 {
			return nil, types.NewInputError(types.ErrCodeInvalidOption, "pass %d names no mechanism", i+1)
		}
		passes = append(passes, pass)
	}
	return passes, nil
}

// Placement labels where the require-kernels modifier sits relative to the
// mechanisms of a pass: "none", "before", "after", "both" (before the first
// and after the last) or "inside" (between two mechanisms).
func Placement(pass types.PipelinePass) string {
	first, last := -1, -1
	for i, d := range pass.Directives {
		if d.Kind == types.DirectiveMechanism {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	var before, after, inside bool
	for i, d := range pass.Directives {
		if d.Kind != types.DirectiveModifier {
			continue
		}
		switch {
		case first < 0 || i < first:
			before = true
		case i > last:
			after = true
		default:
			inside = true
		}
	}

	switch {
	case inside:
		return "inside"
	case before && after:
		return "both"
	case before:
		return "before"
	case after:
		return "after"
	default:
		return "none"
	}
}

// Format renders passes back into spec syntax.
func Format(passes []types.PipelinePass) string {
	parts := make([]string, len(passes))
	for i, p := range passes {
		parts[i] = p.String()
	}
	return strings.Join(parts, " "+passSeparator+" ")
}
