// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// VerifyMode selects how much retention work Condense performs.
type VerifyMode string

const (
	VerifyNone    VerifyMode = "none"
	VerifyCheck   VerifyMode = "verify"
	VerifyRestore VerifyMode = "restore"
)

// TokenCounts holds approximate token counts before and after condensing.
type TokenCounts struct {
	Before int     `json:"before" yaml:"before"`
	After  int     `json:"after" yaml:"after"`
	Ratio  float64 `json:"ratio" yaml:"ratio"`
}

// KernelCounts reports the consensus kernel set and how much of it survived.
type KernelCounts struct {
	Before   int             `json:"before" yaml:"before"`
	After    int             `json:"after" yaml:"after"`
	Lost     []ConceptKernel `json:"lost" yaml:"lost"`
	Retained []ConceptKernel `json:"retained" yaml:"retained"`
}

// DensityMetrics is characters per kernel before and characters per retained
// kernel after compression. After is 0 when no kernel was retained.
type DensityMetrics struct {
	Before float64 `json:"before" yaml:"before"`
	After  float64 `json:"after" yaml:"after"`
}

// Variance is the population standard deviation across attempts of the
// compression metrics. Only present when more than one attempt ran.
type Variance struct {
	DensityStdDev  float64 `json:"density_stddev" yaml:"density_stddev"`
	RetainedStdDev float64 `json:"retained_stddev" yaml:"retained_stddev"`
	Attempts       int     `json:"attempts" yaml:"attempts"`
}

// AttemptResult captures one press+verify attempt.
type AttemptResult struct {
	Attempt  int             `json:"attempt" yaml:"attempt"`
	Press    PressResult     `json:"press" yaml:"press"`
	Verified bool            `json:"verified" yaml:"verified"`
	Report   RetentionReport `json:"report" yaml:"report"`
	Density  DensityMetrics  `json:"density" yaml:"density"`
}

// OracleUsage sums oracle metrics over a run. Cache hits contribute nothing.
type OracleUsage struct {
	Calls        int           `json:"calls" yaml:"calls"`
	InputTokens  int           `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int           `json:"output_tokens" yaml:"output_tokens"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// Add accumulates m into u.
func (u *OracleUsage) Add(m OracleUsage) {
	u.Calls += m.Calls
	u.InputTokens += m.InputTokens
	u.OutputTokens += m.OutputTokens
	u.Duration += m.Duration
}

// CondenseResult is the produced interface of the Condense Orchestrator.
type CondenseResult struct {
	RunID          string             `json:"run_id" yaml:"run_id"`
	CompressedText string             `json:"compressed_text" yaml:"compressed_text"`
	Tokens         TokenCounts        `json:"tokens" yaml:"tokens"`
	Kernels        KernelCounts       `json:"kernels" yaml:"kernels"`
	Density        DensityMetrics     `json:"density" yaml:"density"`
	Stability      ConsensusStability `json:"stability" yaml:"stability"`
	Variance       *Variance          `json:"variance,omitempty" yaml:"variance,omitempty"`
	AttemptsRun    int                `json:"attempts_run" yaml:"attempts_run"`
	VerifyMode     VerifyMode         `json:"verify_mode" yaml:"verify_mode"`
	Restored       bool               `json:"restored" yaml:"restored"`
	Passes         []PassReport       `json:"passes,omitempty" yaml:"passes,omitempty"`
	Attempts       []AttemptResult    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Usage          OracleUsage        `json:"usage" yaml:"usage"`
}
