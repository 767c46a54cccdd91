// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package consensus

import "github.com/pdiddy/kernel-press/pkg/types"

// Gate fails with a StabilityError when the measured mean Jaccard agreement
// is below threshold. A threshold of zero selects the default.
func Gate(stability types.ConsensusStability, threshold float64) error {
	if threshold == 0 {
		threshold = types.DefaultStabilityThreshold
	}
	if stability.MeanJaccard < threshold {
		return &types.StabilityError{
			MeanJaccard: stability.MeanJaccard,
			Threshold:   threshold,
			Stability:   stability,
		}
	}
	return nil
}
