// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package condense

import (
	"math"

	"github.com/pdiddy/kernel-press/internal/tokens"
	"github.com/pdiddy/kernel-press/pkg/types"
)

// density returns characters per kernel, or 0 with no kernels.
func density(text string, kernels int) float64 {
	if kernels == 0 {
		return 0
	}
	return float64(tokens.Chars(text)) / float64(kernels)
}

// populationStdDev returns the population standard deviation of xs.
func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	sq := 0.0
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// variance summarizes compression instability across verified attempts.
// It is nil for a single attempt or when attempts were not verified.
func variance(attempts []types.AttemptResult) *types.Variance {
	if len(attempts) < 2 || !attempts[0].Verified {
		return nil
	}
	densities := make([]float64, len(attempts))
	retained := make([]float64, len(attempts))
	for i, a := range attempts {
		densities[i] = a.Density.After
		retained[i] = float64(len(a.Report.Retained))
	}
	return &types.Variance{
		DensityStdDev:  populationStdDev(densities),
		RetainedStdDev: populationStdDev(retained),
		Attempts:       len(attempts),
	}
}
