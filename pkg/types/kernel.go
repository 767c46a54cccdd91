// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the kernel-press pipeline:
// concept kernels, clusters, consensus and retention results, pipeline passes,
// configuration and the error taxonomy.
package types

// KernelCategory classifies a concept kernel.
type KernelCategory string

const (
	CategoryRule       KernelCategory = "rule"
	CategoryPrinciple  KernelCategory = "principle"
	CategoryDefinition KernelCategory = "definition"
	CategoryPattern    KernelCategory = "pattern"
	CategoryConstraint KernelCategory = "constraint"
)

// ValidCategories is the set of accepted KernelCategory values.
var ValidCategories = map[KernelCategory]bool{
	CategoryRule:       true,
	CategoryPrinciple:  true,
	CategoryDefinition: true,
	CategoryPattern:    true,
	CategoryConstraint: true,
}

// ConceptKernel is an atomic, deduplicated idea extracted from a document.
type ConceptKernel struct {
	// ID is unique only within one extraction result.
	ID string `json:"id" yaml:"id"`

	// Concept is the kernel phrased as a single self-contained statement.
	Concept string `json:"concept" yaml:"concept"`

	Category KernelCategory `json:"category" yaml:"category"`
}

// ExtractionResult is the output of one Concept Extractor call.
type ExtractionResult struct {
	Kernels []ConceptKernel `json:"kernels" yaml:"kernels"`

	// Rationale is the oracle's explanation, or a description of why the
	// extraction degraded to an empty result.
	Rationale string `json:"rationale" yaml:"rationale"`

	// Degraded is true when the oracle failed and Kernels was defaulted to empty.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// KernelVariant is one run's phrasing of a consensus kernel.
type KernelVariant struct {
	Run     int    `json:"run" yaml:"run"`
	Concept string `json:"concept" yaml:"concept"`
}

// ConsensusKernel is a kernel confirmed by a qualifying fraction of
// independent extraction runs.
type ConsensusKernel struct {
	ConceptKernel `yaml:",inline"`

	// Variants collects every member phrasing tagged by its origin run.
	Variants []KernelVariant `json:"variants" yaml:"variants"`

	// Coverage is the number of distinct runs contributing to the cluster.
	Coverage int `json:"coverage" yaml:"coverage"`
}

// Cluster is a partition class of kernels judged semantically equivalent.
type Cluster struct {
	Representative ConceptKernel   `json:"representative" yaml:"representative"`
	Members        []ConceptKernel `json:"members" yaml:"members"`
	MemberCount    int             `json:"member_count" yaml:"member_count"`
}

// ClusterResult is the output of one Semantic Clusterer call. Rationale is
// kept for audit only.
type ClusterResult struct {
	Clusters     []Cluster `json:"clusters" yaml:"clusters"`
	ClusterCount int       `json:"cluster_count" yaml:"cluster_count"`
	Rationale    string    `json:"rationale" yaml:"rationale"`
}

// ConsensusStability is the pairwise Jaccard agreement between runs over the
// clusters each run touched. MinJaccard <= MeanJaccard <= MaxJaccard.
type ConsensusStability struct {
	MeanJaccard float64 `json:"mean_jaccard" yaml:"mean_jaccard"`
	MinJaccard  float64 `json:"min_jaccard" yaml:"min_jaccard"`
	MaxJaccard  float64 `json:"max_jaccard" yaml:"max_jaccard"`
	Comparisons int     `json:"comparisons" yaml:"comparisons"`
}

// PerfectStability is the trivial agreement reported when there is nothing
// to disagree about.
func PerfectStability(comparisons int) ConsensusStability {
	return ConsensusStability{MeanJaccard: 1, MinJaccard: 1, MaxJaccard: 1, Comparisons: comparisons}
}

// ConsensusResult is the output of one Consensus Engine call.
type ConsensusResult struct {
	Kernels   []ConsensusKernel  `json:"kernels" yaml:"kernels"`
	Stability ConsensusStability `json:"stability" yaml:"stability"`

	Runs           int     `json:"runs" yaml:"runs"`
	Threshold      float64 `json:"threshold" yaml:"threshold"`
	MinAppearances int     `json:"min_appearances" yaml:"min_appearances"`

	// ClusterCount is the number of clusters before majority filtering.
	ClusterCount int `json:"cluster_count" yaml:"cluster_count"`

	// RunKernelCounts holds the number of kernels each run extracted.
	RunKernelCounts []int `json:"run_kernel_counts" yaml:"run_kernel_counts"`

	// DegradedRuns lists runs whose extraction fell back to an empty result.
	DegradedRuns []int `json:"degraded_runs,omitempty" yaml:"degraded_runs,omitempty"`
}

// ConceptKernels strips consensus metadata, returning plain kernels.
func (r ConsensusResult) ConceptKernels() []ConceptKernel {
	out := make([]ConceptKernel, len(r.Kernels))
	for i, k := range r.Kernels {
		out[i] = k.ConceptKernel
	}
	return out
}

// RetentionCheck is the oracle's judgment for one kernel.
type RetentionCheck struct {
	KernelID string `json:"kernel_id" yaml:"kernel_id"`
	Retained bool   `json:"retained" yaml:"retained"`
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// RetentionReport partitions kernels into retained and lost.
// len(Retained)+len(Lost) always equals the number of kernels checked.
type RetentionReport struct {
	Retained      []ConceptKernel  `json:"retained" yaml:"retained"`
	Lost          []ConceptKernel  `json:"lost" yaml:"lost"`
	RetentionRate float64          `json:"retention_rate" yaml:"retention_rate"`
	Checks        []RetentionCheck `json:"checks,omitempty" yaml:"checks,omitempty"`
	Rationale     string           `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// RestoreResult is the output of one Restorer call.
type RestoreResult struct {
	Content   string `json:"content" yaml:"content"`
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}
