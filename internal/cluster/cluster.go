// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cluster partitions a flat kernel list into groups of semantically
// equivalent kernels with one oracle call.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const opCluster = "cluster"

// Source is one group of kernels. A non-empty Namespace is prefixed to every
// kernel id ("<namespace>_<id>") so kernels from independent extractions
// cannot collide.
type Source struct {
	Namespace string
	Kernels   []types.ConceptKernel
}

// QualifiedID returns the id a kernel carries after namespacing.
func QualifiedID(namespace, id string) string {
	if namespace == "" {
		return id
	}
	return namespace + "_" + id
}

// Options tune a single clustering call.
type Options struct {
	Bypass bool
}

// Payload is the structured input sent with every clustering request.
type Payload struct {
	Kernels []types.ConceptKernel
}

type aiResponse struct {
	Clusters  []aiCluster `json:"clusters"`
	Rationale string      `json:"rationale"`
}

type aiCluster struct {
	RepresentativeID string   `json:"representativeId"`
	MemberIDs        []string `json:"memberIds"`
}

// Clusterer wraps the clustering oracle call.
type Clusterer struct {
	oracle oracle.Oracle
	cache  *cache.Facade
	log    *slog.Logger
}

// New creates a Clusterer. cache may be nil.
func New(o oracle.Oracle, c *cache.Facade, log *slog.Logger) *Clusterer {
	if log == nil {
		log = slog.Default()
	}
	return &Clusterer{oracle: o, cache: c, log: log}
}

// Cluster partitions the kernels of all sources. The result is always a
// partition of the namespaced input: every kernel lands in exactly one
// cluster. Zero or one kernel is answered without an oracle call. Oracle
// failures are returned.
func (c *Clusterer) Cluster(ctx context.Context, opts Options, sources ...Source) (types.ClusterResult, error) {
	kernels, err := flatten(sources)
	if err != nil {
		return types.ClusterResult{}, err
	}

	switch len(kernels) {
	case 0:
		return types.ClusterResult{Clusters: []types.Cluster{}, Rationale: "no kernels to cluster"}, nil
	case 1:
		return types.ClusterResult{
			Clusters:     []types.Cluster{singleton(kernels[0])},
			ClusterCount: 1,
			Rationale:    "single kernel forms its own cluster",
		}, nil
	}

	key, err := cache.Key("cluster", map[string]any{
		"kernels": kernels,
		"oracle":  c.oracle.Identity(),
	})
	if err != nil {
		return types.ClusterResult{}, err
	}

	result, hit, err := cache.Memo(ctx, c.cache, key, opts.Bypass, func(ctx context.Context) (types.ClusterResult, error) {
		return c.ask(ctx, kernels)
	})
	if err != nil {
		return types.ClusterResult{}, fmt.Errorf("clustering %d kernels: %w", len(kernels), err)
	}
	c.log.Debug("clustered kernels", "kernels", len(kernels), "clusters", result.ClusterCount, "cache_hit", hit)
	return result, nil
}

func (c *Clusterer) ask(ctx context.Context, kernels []types.ConceptKernel) (types.ClusterResult, error) {
	payload := Payload{Kernels: kernels}
	prompt, err := renderPrompt(payload)
	if err != nil {
		return types.ClusterResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	resp, _, err := oracle.Ask[aiResponse](ctx, c.oracle, oracle.Request{
		Op:      opCluster,
		Role:    roleContext,
		Prompt:  prompt,
		Schema:  clusterSchema,
		Payload: payload,
	})
	if err != nil {
		return types.ClusterResult{}, err
	}

	clusters := c.partition(resp.Clusters, kernels)
	return types.ClusterResult{
		Clusters:     clusters,
		ClusterCount: len(clusters),
		Rationale:    resp.Rationale,
	}, nil
}

// flatten namespaces and concatenates the sources, rejecting duplicate ids.
func flatten(sources []Source) ([]types.ConceptKernel, error) {
	var kernels []types.ConceptKernel
	seen := make(map[string]bool)
	for _, src := range sources {
		for _, k := range src.Kernels {
			k.ID = QualifiedID(src.Namespace, k.ID)
			if seen[k.ID] {
				return nil, types.NewInputError(types.ErrCodeInvalidOption, "duplicate kernel id %q; namespace kernels from separate extractions", k.ID)
			}
			seen[k.ID] = true
			kernels = append(kernels, k)
		}
	}
	return kernels, nil
}

func singleton(k types.ConceptKernel) types.Cluster {
	return types.Cluster{Representative: k, Members: []types.ConceptKernel{k}, MemberCount: 1}
}

// partition turns the oracle's groupings into a strict partition of kernels.
//
// Ids are resolved exactly, else by a "_<id>" suffix match that must be
// unique. A cluster whose representative cannot be resolved is dropped.
// Unresolvable members are dropped, as are members already placed in an
// earlier cluster. The representative joins its own member list if the
// oracle left it out. Kernels the oracle never placed become singletons.
func (c *Clusterer) partition(groups []aiCluster, kernels []types.ConceptKernel) []types.Cluster {
	r := newResolver(kernels)
	assigned := make(map[string]bool, len(kernels))
	clusters := make([]types.Cluster, 0, len(groups))

	for _, g := range groups {
		rep, ok := r.resolve(g.RepresentativeID)
		if !ok {
			c.log.Warn("dropping cluster with unresolved representative", "representative", g.RepresentativeID)
			continue
		}

		var members []types.ConceptKernel
		hasRep := false
		for _, id := range g.MemberIDs {
			k, ok := r.resolve(id)
			if !ok {
				c.log.Warn("dropping unresolved cluster member", "member", id)
				continue
			}
			if assigned[k.ID] {
				continue
			}
			assigned[k.ID] = true
			members = append(members, k)
			if k.ID == rep.ID {
				hasRep = true
			}
		}

		if !hasRep {
			if assigned[rep.ID] {
				// The representative was claimed by an earlier cluster.
				if len(members) == 0 {
					continue
				}
				rep = members[0]
			} else {
				assigned[rep.ID] = true
				members = append([]types.ConceptKernel{rep}, members...)
			}
		}

		clusters = append(clusters, types.Cluster{Representative: rep, Members: members, MemberCount: len(members)})
	}

	for _, k := range kernels {
		if !assigned[k.ID] {
			c.log.Debug("kernel left unclustered by oracle, adding singleton", "id", k.ID)
			clusters = append(clusters, singleton(k))
		}
	}
	return clusters
}

type resolver struct {
	byID    map[string]types.ConceptKernel
	kernels []types.ConceptKernel
}

func newResolver(kernels []types.ConceptKernel) resolver {
	byID := make(map[string]types.ConceptKernel, len(kernels))
	for _, k := range kernels {
		byID[k.ID] = k
	}
	return resolver{byID: byID, kernels: kernels}
}

// resolve maps an oracle-supplied id to an input kernel. A suffix match is
// accepted only when exactly one kernel id ends in "_<id>"; ambiguous ids
// stay unresolved.
func (r resolver) resolve(given string) (types.ConceptKernel, bool) {
	given = strings.TrimSpace(given)
	if given == "" {
		return types.ConceptKernel{}, false
	}
	if k, ok := r.byID[given]; ok {
		return k, true
	}

	var match types.ConceptKernel
	n := 0
	for _, k := range r.kernels {
		if strings.HasSuffix(k.ID, "_"+given) {
			match = k
			n++
		}
	}
	return match, n == 1
}
