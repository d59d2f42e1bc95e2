package pathfind

import (
	"context"
	"sort"

	"searoute/pkg/apperror"
	"searoute/pkg/config"
	"searoute/pkg/domain"
	"searoute/services/route-svc/internal/cost"
)

// Algorithm names reported in responses and metrics.
const (
	AlgorithmDijkstra = "dijkstra"
	AlgorithmAStar    = "a_star"
)

// Query describes one routing request against a graph snapshot.
type Query struct {
	Origin             string
	Destination        string
	Vessel             *domain.VesselConstraints
	Criteria           domain.Criterion
	MaxConnectingPorts int
	MaxAlternatives    int
}

// Result holds the primary path, alternatives, and search statistics.
type Result struct {
	Primary         Path
	Alternatives    []Path
	Algorithm       string
	Expansions      int
	RoutesEvaluated int
}

// Finder runs shortest-path searches over graph snapshots. Stateless and
// safe for concurrent use; each request gets its own search state.
type Finder struct {
	model        *cost.Model
	altCostRatio float64
	cancelEvery  int
}

// NewFinder creates a pathfinder bound to a cost model.
func NewFinder(model *cost.Model, cfg config.PathfinderConfig) *Finder {
	cancelEvery := cfg.CancelCheckInterval
	if cancelEvery <= 0 {
		cancelEvery = 4096
	}
	ratio := cfg.AltCostRatio
	if ratio < 1.0 {
		ratio = 1.5
	}
	return &Finder{model: model, altCostRatio: ratio, cancelEvery: cancelEvery}
}

// FindRoutes returns the optimal path and up to MaxAlternatives loopless
// alternatives. Returns NO_ROUTE_FOUND when the destination is unreachable
// within the hop budget over the feasible subgraph.
func (f *Finder) FindRoutes(ctx context.Context, g *domain.PortGraph, q Query) (*Result, error) {
	algorithm := AlgorithmDijkstra
	heuristicPerNM := 0.0
	if q.Criteria == domain.CriterionBalanced {
		algorithm = AlgorithmAStar
		heuristicPerNM = f.model.HeuristicPerNM(q.Criteria, q.Vessel)
	}

	params := searchParams{
		origin:         q.Origin,
		destination:    q.Destination,
		vessel:         q.Vessel,
		criteria:       q.Criteria,
		maxEdges:       q.MaxConnectingPorts + 1,
		heuristicPerNM: heuristicPerNM,
	}

	expansions := 0
	primary, found, err := f.shortestPath(ctx, g, params, &expansions)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.New(apperror.CodeNoRouteFound, "no feasible route between the requested ports").
			WithDetails("origin", q.Origin).
			WithDetails("destination", q.Destination).
			WithDetails("max_connecting_ports", q.MaxConnectingPorts)
	}

	result := &Result{
		Primary:         primary,
		Algorithm:       algorithm,
		RoutesEvaluated: 1,
	}

	if q.MaxAlternatives > 0 {
		alts, evaluated, err := f.alternatives(ctx, g, params, primary, q.MaxAlternatives, &expansions)
		if err != nil {
			return nil, err
		}
		result.Alternatives = alts
		result.RoutesEvaluated += evaluated
	}

	result.Expansions = expansions
	return result, nil
}

// =============================================================================
// Yen's algorithm for k shortest loopless paths
// =============================================================================
//
// For every accepted path, each of its prefixes becomes a potential "root":
// the spur search re-runs the shortest-path core from the deviation node with
// the previously used continuation edges and the root's interior nodes
// banned, which guarantees the candidate deviates and stays loopless.
//
// Candidates costing more than altCostRatio times the primary are discarded;
// the candidate pool is kept sorted with the same tie-break rules as the
// heap so the output order is deterministic.
//
// References:
//   - Yen, J. Y. (1971). "Finding the K Shortest Loopless Paths in a Network"
// =============================================================================

func (f *Finder) alternatives(ctx context.Context, g *domain.PortGraph, base searchParams, primary Path, maxAlternatives int, expansions *int) ([]Path, int, error) {
	accepted := []Path{primary}
	costCeiling := primary.Cost * f.altCostRatio
	evaluated := 0

	var candidates []Path
	seen := map[string]bool{primary.Key(): true}

	for len(accepted)-1 < maxAlternatives {
		prev := accepted[len(accepted)-1]

		for spur := 0; spur < len(prev.Codes)-1; spur++ {
			rootCodes := prev.Codes[:spur+1]
			rootEdges := prev.Edges[:spur]

			params := base
			params.maxEdges = base.maxEdges - spur
			params.origin = prev.Codes[spur]
			params.bannedEdges = make(map[string]bool)
			params.bannedNodes = make(map[string]bool)

			// Ban continuation edges of every accepted path sharing this root
			for _, p := range accepted {
				if len(p.Codes) > spur+1 && seqEqual(p.Codes[:spur+1], rootCodes) {
					params.bannedEdges[p.Edges[spur].Key()] = true
				}
			}
			// Ban root interior nodes to keep candidates loopless
			for _, code := range rootCodes[:len(rootCodes)-1] {
				params.bannedNodes[code] = true
			}

			spurPath, found, err := f.shortestPath(ctx, g, params, expansions)
			if err != nil {
				return nil, evaluated, err
			}
			if !found {
				continue
			}

			candidate := joinPaths(rootCodes, rootEdges, spurPath, f.rootCost(base, rootEdges, g))
			evaluated++

			if candidate.Cost > costCeiling+domain.Epsilon {
				continue
			}
			if seen[candidate.Key()] {
				continue
			}
			seen[candidate.Key()] = true
			candidates = append(candidates, candidate)
		}

		if len(candidates) == 0 {
			break
		}

		sortPaths(candidates)
		next := candidates[0]
		candidates = candidates[1:]

		if next.Cost > costCeiling+domain.Epsilon {
			break
		}
		accepted = append(accepted, next)
	}

	return accepted[1:], evaluated, nil
}

// rootCost recomputes the scalar cost of the root prefix.
func (f *Finder) rootCost(base searchParams, rootEdges []*domain.Edge, g *domain.PortGraph) float64 {
	total := 0.0
	for _, e := range rootEdges {
		to, ok := g.Port(e.To)
		if !ok {
			continue
		}
		total += f.model.Scalar(base.criteria, f.model.EdgeCost(e, base.vessel, to))
	}
	return total
}

// joinPaths concatenates a root prefix with a spur path.
func joinPaths(rootCodes []string, rootEdges []*domain.Edge, spur Path, rootCost float64) Path {
	codes := make([]string, 0, len(rootCodes)+len(spur.Codes)-1)
	codes = append(codes, rootCodes...)
	codes = append(codes, spur.Codes[1:]...)

	edges := make([]*domain.Edge, 0, len(rootEdges)+len(spur.Edges))
	edges = append(edges, rootEdges...)
	edges = append(edges, spur.Edges...)

	return Path{Codes: codes, Edges: edges, Cost: rootCost + spur.Cost}
}

// sortPaths orders candidates by cost, then hops, then code sequence.
func sortPaths(paths []Path) {
	sort.Slice(paths, func(i, j int) bool {
		if diff := paths[i].Cost - paths[j].Cost; diff < -domain.Epsilon || diff > domain.Epsilon {
			return paths[i].Cost < paths[j].Cost
		}
		if len(paths[i].Codes) != len(paths[j].Codes) {
			return len(paths[i].Codes) < len(paths[j].Codes)
		}
		return seqLess(paths[i].Codes, paths[j].Codes)
	})
}

func seqEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
