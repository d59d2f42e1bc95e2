package pathfind

import (
	"container/heap"
	"context"
	"errors"

	"searoute/pkg/apperror"
	"searoute/pkg/domain"
	"searoute/pkg/geo"
)

// =============================================================================
// Labeled shortest-path search
// =============================================================================
//
// A single search core serves both Dijkstra and A*: A* is Dijkstra with a
// non-zero admissible heuristic added to the heap priority. The search runs
// over an expanded state space (port, hops-used) because the hop cap makes
// plain per-port labels incorrect: a costlier path with fewer hops may still
// reach the destination within the budget where the cheapest one cannot.
//
// Determinism: on equal priority the heap prefers fewer hops, then the
// lexicographically smaller UN/LOCODE sequence. Together with the graph's
// sorted adjacency lists this makes results reproducible across runs.
//
// Time Complexity: O((V*H + E*H) log (V*H)) with binary heap, H = hop budget
// =============================================================================

// searchItem is an element of the priority queue. It carries the full path
// so that equal-cost ties can be broken by code sequence.
type searchItem struct {
	code     string
	cost     float64 // accumulated scalar cost
	priority float64 // cost + heuristic estimate to destination
	hops     int     // edges used so far
	codes    []string
	edges    []*domain.Edge
	index    int
}

type searchQueue []*searchItem

func (q searchQueue) Len() int { return len(q) }

func (q searchQueue) Less(i, j int) bool {
	// Primary: by priority (min-heap)
	if diff := q[i].priority - q[j].priority; diff < -domain.Epsilon || diff > domain.Epsilon {
		return q[i].priority < q[j].priority
	}
	// Tie-break: fewer hops
	if q[i].hops != q[j].hops {
		return q[i].hops < q[j].hops
	}
	// Final tie-break: lexicographically smaller code sequence
	return seqLess(q[i].codes, q[j].codes)
}

func (q searchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *searchQueue) Push(x any) {
	item := x.(*searchItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*q = old[0 : n-1]
	return item
}

// seqLess compares two code sequences lexicographically element by element.
func seqLess(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// hopState is the search state: a port reached with a given number of edges.
type hopState struct {
	code string
	hops int
}

// searchParams configures one shortest-path run.
type searchParams struct {
	origin      string
	destination string
	vessel      *domain.VesselConstraints
	criteria    domain.Criterion
	maxEdges    int // hop budget: max connecting ports + 1

	// heuristicPerNM > 0 turns the run into A*
	heuristicPerNM float64

	// Yen spur-search restrictions
	bannedEdges map[string]bool
	bannedNodes map[string]bool
}

// Path is a complete route through the graph with its scalar cost.
type Path struct {
	Codes []string
	Edges []*domain.Edge
	Cost  float64
}

// Hops returns the number of connecting ports on the path.
func (p Path) Hops() int {
	if len(p.Codes) < 2 {
		return 0
	}
	return len(p.Codes) - 2
}

// Key returns a canonical identity of the path for deduplication.
func (p Path) Key() string {
	key := p.Codes[0]
	for _, c := range p.Codes[1:] {
		key += ">" + c
	}
	return key
}

// shortestPath runs the labeled search. It returns the optimal path under
// the tie-break rules, or ok=false when the destination is unreachable.
// The expansion counter is shared across searches of one request so the
// cancellation cadence holds globally.
func (f *Finder) shortestPath(ctx context.Context, g *domain.PortGraph, p searchParams, expansions *int) (Path, bool, error) {
	destPort, ok := g.Port(p.destination)
	if !ok {
		return Path{}, false, nil
	}

	bestCost := make(map[hopState]float64)
	settled := make(map[hopState]bool)

	start := &searchItem{
		code:  p.origin,
		codes: []string{p.origin},
	}
	start.priority = f.heuristic(g, p, p.origin, destPort)

	pq := searchQueue{}
	heap.Init(&pq)
	heap.Push(&pq, start)
	bestCost[hopState{p.origin, 0}] = 0

	for pq.Len() > 0 {
		*expansions++
		if *expansions%f.cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Path{}, false, cancelError(err)
			}
		}

		current := heap.Pop(&pq).(*searchItem)
		state := hopState{current.code, current.hops}

		// The first settled item per state wins: among equal costs the heap
		// already ordered by hops and code sequence.
		if settled[state] {
			continue
		}
		settled[state] = true

		if current.code == p.destination {
			return Path{Codes: current.codes, Edges: current.edges, Cost: current.cost}, true, nil
		}

		if current.hops >= p.maxEdges {
			continue
		}

		fromPort, ok := g.Port(current.code)
		if !ok {
			continue
		}

		for _, e := range g.Neighbors(current.code) {
			if p.bannedNodes[e.To] || p.bannedEdges[e.Key()] {
				continue
			}
			toPort, ok := g.Port(e.To)
			if !ok {
				continue
			}
			if !e.FeasibleFor(p.vessel, fromPort, toPort) {
				continue
			}
			// Simple paths only
			if containsCode(current.codes, e.To) {
				continue
			}

			edgeCost := f.model.Scalar(p.criteria, f.model.EdgeCost(e, p.vessel, toPort))
			nextCost := current.cost + edgeCost
			nextState := hopState{e.To, current.hops + 1}

			if known, ok := bestCost[nextState]; ok && nextCost > known+domain.Epsilon {
				continue
			}
			if known, ok := bestCost[nextState]; !ok || nextCost < known-domain.Epsilon {
				bestCost[nextState] = nextCost
			}

			codes := make([]string, len(current.codes)+1)
			copy(codes, current.codes)
			codes[len(current.codes)] = e.To

			edges := make([]*domain.Edge, len(current.edges)+1)
			copy(edges, current.edges)
			edges[len(current.edges)] = e

			heap.Push(&pq, &searchItem{
				code:     e.To,
				cost:     nextCost,
				priority: nextCost + f.heuristic(g, p, e.To, destPort),
				hops:     current.hops + 1,
				codes:    codes,
				edges:    edges,
			})
		}
	}

	return Path{}, false, nil
}

// heuristic returns the A* remaining-cost bound for a node, 0 for Dijkstra.
func (f *Finder) heuristic(g *domain.PortGraph, p searchParams, code string, dest *domain.Port) float64 {
	if p.heuristicPerNM <= 0 {
		return 0
	}
	from, ok := g.Port(code)
	if !ok {
		return 0
	}
	return p.heuristicPerNM * geo.DistanceNM(from.Location, dest.Location)
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// cancelError maps a context error onto the calculation error contract.
func cancelError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrDeadline
	}
	return apperror.ErrCancelled
}
