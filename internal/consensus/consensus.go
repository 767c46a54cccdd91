// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package consensus stabilizes concept extraction by running several
// independent extractions, clustering their kernels across runs and keeping
// the clusters a majority of runs agree on.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/kernel-press/internal/cluster"
	"github.com/pdiddy/kernel-press/internal/extract"
	"github.com/pdiddy/kernel-press/pkg/types"
)

// Extractor produces the kernels of one extraction run.
type Extractor interface {
	Extract(ctx context.Context, content string, opts extract.Options) (types.ExtractionResult, error)
}

// Clusterer partitions kernels from several runs.
type Clusterer interface {
	Cluster(ctx context.Context, opts cluster.Options, sources ...cluster.Source) (types.ClusterResult, error)
}

// Params configure one consensus run. Zero values take the defaults.
type Params struct {
	// Runs is the number of independent extractions (N).
	Runs int

	// Threshold is the fraction of runs, in (0,1], a cluster must span to
	// become a consensus kernel.
	Threshold float64

	// Bypass forces fresh oracle calls for every step.
	Bypass bool
}

func (p Params) withDefaults() Params {
	if p.Runs == 0 {
		p.Runs = types.DefaultRuns
	}
	if p.Threshold == 0 {
		p.Threshold = types.DefaultThreshold
	}
	return p
}

func (p Params) validate() error {
	if p.Runs < 1 {
		return types.NewInputError(types.ErrCodeInvalidOption, "runs must be at least 1, got %d", p.Runs)
	}
	if p.Threshold <= 0 || p.Threshold > 1 {
		return types.NewInputError(types.ErrCodeInvalidOption, "threshold must be in (0,1], got %g", p.Threshold)
	}
	return nil
}

// Engine runs consensus extraction.
type Engine struct {
	extractor Extractor
	clusterer Clusterer
	log       *slog.Logger
}

// New creates an Engine.
func New(ex Extractor, cl Clusterer, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{extractor: ex, clusterer: cl, log: log}
}

// Run extracts content Runs times, clusters all kernels in one call, and
// returns the clusters spanning at least ceil(Runs*Threshold) runs as
// consensus kernels together with the pairwise stability of the runs.
//
// A blank document returns an empty result with perfect stability and makes
// no oracle calls.
func (e *Engine) Run(ctx context.Context, content string, params Params) (types.ConsensusResult, error) {
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return types.ConsensusResult{}, err
	}
	n := params.Runs
	minAppearances := MinAppearances(n, params.Threshold)

	result := types.ConsensusResult{
		Kernels:         []types.ConsensusKernel{},
		Runs:            n,
		Threshold:       params.Threshold,
		MinAppearances:  minAppearances,
		RunKernelCounts: make([]int, n),
	}
	if strings.TrimSpace(content) == "" {
		result.Stability = types.PerfectStability(0)
		return result, nil
	}

	runs := make([]types.ExtractionResult, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r, err := e.extractor.Extract(gctx, content, extract.Options{Attempt: i, Bypass: params.Bypass})
			if err != nil {
				return fmt.Errorf("extraction run %d: %w", i, err)
			}
			runs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.ConsensusResult{}, err
	}

	sources := make([]cluster.Source, n)
	runOf := make(map[string]int)
	for i, r := range runs {
		ns := runNamespace(i)
		sources[i] = cluster.Source{Namespace: ns, Kernels: r.Kernels}
		result.RunKernelCounts[i] = len(r.Kernels)
		if r.Degraded {
			result.DegradedRuns = append(result.DegradedRuns, i)
		}
		for _, k := range r.Kernels {
			runOf[cluster.QualifiedID(ns, k.ID)] = i
		}
	}

	clusters, err := e.clusterer.Cluster(ctx, cluster.Options{Bypass: params.Bypass}, sources...)
	if err != nil {
		return types.ConsensusResult{}, fmt.Errorf("clustering runs: %w", err)
	}
	result.ClusterCount = clusters.ClusterCount

	touched := make([]map[int]bool, n)
	for i := range touched {
		touched[i] = make(map[int]bool)
	}

	for ci, c := range clusters.Clusters {
		covered := make(map[int]bool)
		variants := make([]types.KernelVariant, 0, len(c.Members))
		for _, m := range c.Members {
			run := runOf[m.ID]
			covered[run] = true
			touched[run][ci] = true
			variants = append(variants, types.KernelVariant{Run: run, Concept: m.Concept})
		}
		if len(covered) < minAppearances {
			continue
		}
		result.Kernels = append(result.Kernels, types.ConsensusKernel{
			ConceptKernel: types.ConceptKernel{
				ID:       fmt.Sprintf("k%d", len(result.Kernels)+1),
				Concept:  c.Representative.Concept,
				Category: c.Representative.Category,
			},
			Variants: variants,
			Coverage: len(covered),
		})
	}

	result.Stability = Stability(touched)

	e.log.Info("consensus complete",
		"runs", n,
		"clusters", result.ClusterCount,
		"kernels", len(result.Kernels),
		"min_appearances", minAppearances,
		"mean_jaccard", result.Stability.MeanJaccard,
		"degraded_runs", len(result.DegradedRuns),
	)
	return result, nil
}

func runNamespace(run int) string {
	return fmt.Sprintf("r%d", run)
}

// MinAppearances returns ceil(runs*threshold), the number of distinct runs a
// cluster must span. The small epsilon keeps products such as 10*0.3 from
// rounding up past their exact value.
func MinAppearances(runs int, threshold float64) int {
	return int(math.Ceil(float64(runs)*threshold - 1e-9))
}

// Stability computes pairwise Jaccard agreement between runs, where each
// run is described by the set of cluster indices it touched. Two empty sets
// agree perfectly. Fewer than two runs yields perfect stability with zero
// comparisons.
func Stability(touched []map[int]bool) types.ConsensusStability {
	n := len(touched)
	if n < 2 {
		return types.PerfectStability(0)
	}

	minJ, maxJ, sum := 1.0, 0.0, 0.0
	comparisons := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			jac := jaccard(touched[i], touched[j])
			sum += jac
			minJ = math.Min(minJ, jac)
			maxJ = math.Max(maxJ, jac)
			comparisons++
		}
	}

	// Summation error must not push the mean outside [min, max].
	mean := math.Max(minJ, math.Min(maxJ, sum/float64(comparisons)))
	return types.ConsensusStability{
		MeanJaccard: mean,
		MinJaccard:  minJ,
		MaxJaccard:  maxJ,
		Comparisons: comparisons,
	}
}

func jaccard(a, b map[int]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
