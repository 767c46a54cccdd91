// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders condense and consensus results for people
// (styled text) and for machines (JSON or YAML).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", types.NewInputError(types.ErrCodeInvalidOption, "unknown format %q (want text, json or yaml)", s)
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// styles holds the text renderer's styles, bound to one output so color is
// only emitted to terminals that support it.
type styles struct {
	heading lipgloss.Style
	label   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		label:   r.NewStyle().Bold(true),
		good:    r.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
	}
}

func (s styles) row(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", s.label.Render(fmt.Sprintf("%-10s", label)), value)
}

// Condense writes r in the requested format.
func Condense(w io.Writer, format Format, r types.CondenseResult) error {
	switch format {
	case FormatJSON:
		return JSON(w, r)
	case FormatYAML:
		return YAML(w, r)
	default:
		return CondenseText(w, r)
	}
}

// CondenseText writes a human-readable summary of r followed by the
// compressed text.
func CondenseText(w io.Writer, r types.CondenseResult) error {
	s := newStyles(w)

	fmt.Fprintf(w, "%s %s\n\n", s.heading.Render("kernel-press"), s.dim.Render("run "+r.RunID))

	s.row(w, "Tokens", fmt.Sprintf("%d -> %d (ratio %.2f)", r.Tokens.Before, r.Tokens.After, r.Tokens.Ratio))

	kernels := fmt.Sprintf("%d consensus", r.Kernels.Before)
	if r.VerifyMode != types.VerifyNone {
		lost := fmt.Sprintf("%d lost", len(r.Kernels.Lost))
		if len(r.Kernels.Lost) > 0 {
			lost = s.bad.Render(lost)
		} else {
			lost = s.good.Render(lost)
		}
		kernels += fmt.Sprintf(", %d retained, %s", r.Kernels.After, lost)
	}
	s.row(w, "Kernels", kernels)
	s.row(w, "Density", fmt.Sprintf("%.1f -> %.1f chars/kernel", r.Density.Before, r.Density.After))
	s.row(w, "Stability", stabilityLine(r.Stability))
	if r.Variance != nil {
		s.row(w, "Variance", fmt.Sprintf("density sd %.2f, retained sd %.2f over %d attempts",
			r.Variance.DensityStdDev, r.Variance.RetainedStdDev, r.Variance.Attempts))
	}
	verify := string(r.VerifyMode)
	if r.Restored {
		verify += " (restored)"
	}
	s.row(w, "Verify", verify)
	s.row(w, "Oracle", fmt.Sprintf("%d calls, %d in / %d out tokens, %s",
		r.Usage.Calls, r.Usage.InputTokens, r.Usage.OutputTokens, r.Usage.Duration))

	if len(r.Passes) > 0 {
		fmt.Fprintf(w, "\n%s\n", s.heading.Render("Passes"))
		for i, p := range r.Passes {
			fmt.Fprintf(w, "  %d. %s %s %d -> %d (%.2f)\n",
				i+1, p.Pass, s.dim.Render("["+p.Placement+"]"), p.TokensBefore, p.TokensAfter, p.Ratio)
		}
	}

	if len(r.Kernels.Lost) > 0 {
		fmt.Fprintf(w, "\n%s\n", s.heading.Render("Lost kernels"))
		writeKernels(w, r.Kernels.Lost)
	}

	fmt.Fprintf(w, "\n%s\n%s\n", s.heading.Render("Compressed text"), r.CompressedText)
	return nil
}

// Consensus writes r in the requested format.
func Consensus(w io.Writer, format Format, r types.ConsensusResult) error {
	switch format {
	case FormatJSON:
		return JSON(w, r)
	case FormatYAML:
		return YAML(w, r)
	default:
		return ConsensusText(w, r)
	}
}

// ConsensusText writes the consensus kernels with their coverage.
func ConsensusText(w io.Writer, r types.ConsensusResult) error {
	s := newStyles(w)

	s.row(w, "Runs", fmt.Sprintf("%d (threshold %.2f, min appearances %d)", r.Runs, r.Threshold, r.MinAppearances))
	s.row(w, "Clusters", fmt.Sprintf("%d, %d kept", r.ClusterCount, len(r.Kernels)))
	s.row(w, "Stability", stabilityLine(r.Stability))
	if len(r.DegradedRuns) > 0 {
		s.row(w, "Degraded", s.bad.Render(fmt.Sprintf("runs %v", r.DegradedRuns)))
	}

	fmt.Fprintf(w, "\n%s\n", s.heading.Render("Kernels"))
	for _, k := range r.Kernels {
		fmt.Fprintf(w, "  - %s (%s, %d/%d runs): %s\n", k.ID, k.Category, k.Coverage, r.Runs, k.Concept)
	}
	return nil
}

// Retention writes a retention report as text.
func Retention(w io.Writer, r types.RetentionReport) error {
	s := newStyles(w)
	s.row(w, "Retention", fmt.Sprintf("%.2f (%d retained, %d lost)", r.RetentionRate, len(r.Retained), len(r.Lost)))
	if len(r.Lost) > 0 {
		fmt.Fprintf(w, "\n%s\n", s.heading.Render("Lost kernels"))
		writeKernels(w, r.Lost)
	}
	return nil
}

func stabilityLine(st types.ConsensusStability) string {
	return fmt.Sprintf("mean %.3f, min %.3f, max %.3f (%d comparisons)",
		st.MeanJaccard, st.MinJaccard, st.MaxJaccard, st.Comparisons)
}

func writeKernels(w io.Writer, kernels []types.ConceptKernel) {
	for _, k := range kernels {
		fmt.Fprintf(w, "  - %s (%s): %s\n", k.ID, k.Category, k.Concept)
	}
}
