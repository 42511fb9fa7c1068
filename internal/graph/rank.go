// Package graph ranks the nodes of weighted undirected graphs.
package graph

import (
	"math"
	"sort"
)

// RankOptions configures the PageRank computation.
type RankOptions struct {
	// Damping is the probability of following an edge vs teleporting (default: 0.85)
	Damping float64

	// MaxIterations is the maximum number of power iterations (default: 50)
	MaxIterations int

	// Tolerance for convergence detection (default: 1e-9)
	Tolerance float64

	// TopK is the number of top results to return (default: 10)
	TopK int
}

// DefaultRankOptions returns the defaults used by Rank.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Damping:       0.85,
		MaxIterations: 50,
		Tolerance:     1e-9,
		TopK:          10,
	}
}

// Ranked is one node with its score.
type Ranked struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// RankOutput is the result of a Rank call.
type RankOutput struct {
	Results    []Ranked `json:"results"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
}

// Graph is a sparse weighted undirected graph.
type Graph struct {
	nodes   []string
	nodeIdx map[string]int
	adj     [][]edgeEntry
	edges   int
}

type edgeEntry struct {
	target int
	weight float64
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodeIdx: make(map[string]int)}
}

// AddNode adds a node if it doesn't exist, returns its index.
func (g *Graph) AddNode(id string) int {
	if idx, ok := g.nodeIdx[id]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.nodeIdx[id] = idx
	g.adj = append(g.adj, nil)
	return idx
}

// AddEdge links a and b in both directions. Non-positive weights and
// self-loops are ignored.
func (g *Graph) AddEdge(a, b string, weight float64) {
	if a == b || weight <= 0 {
		return
	}
	ai := g.AddNode(a)
	bi := g.AddNode(b)
	g.adj[ai] = append(g.adj[ai], edgeEntry{target: bi, weight: weight})
	g.adj[bi] = append(g.adj[bi], edgeEntry{target: ai, weight: weight})
	g.edges++
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int {
	return g.edges
}

// Rank computes weighted PageRank. With no seeds the teleport vector is
// uniform; otherwise it is uniform over the seeds that exist in the
// graph. Mass on isolated nodes is redistributed through the teleport
// vector so scores always sum to one. Ties are broken by node id.
func (g *Graph) Rank(seeds []string, opts RankOptions) *RankOutput {
	n := len(g.nodes)
	if n == 0 {
		return &RankOutput{Results: []Ranked{}, Converged: true}
	}

	def := DefaultRankOptions()
	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = def.Damping
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}

	teleport := make([]float64, n)
	var seedIdx []int
	for _, s := range seeds {
		if idx, ok := g.nodeIdx[s]; ok {
			seedIdx = append(seedIdx, idx)
		}
	}
	if len(seedIdx) == 0 {
		for i := range teleport {
			teleport[i] = 1 / float64(n)
		}
	} else {
		for _, idx := range seedIdx {
			teleport[idx] += 1 / float64(len(seedIdx))
		}
	}

	degree := make([]float64, n)
	for i, edges := range g.adj {
		for _, e := range edges {
			degree[i] += e.weight
		}
	}

	scores := append([]float64(nil), teleport...)
	next := make([]float64, n)
	out := &RankOutput{}

	for iter := range opts.MaxIterations {
		out.Iterations = iter + 1

		dangling := 0.0
		for i := range next {
			next[i] = 0
			if degree[i] == 0 {
				dangling += scores[i]
			}
		}
		for i, edges := range g.adj {
			if degree[i] == 0 {
				continue
			}
			contrib := scores[i] / degree[i]
			for _, e := range edges {
				next[e.target] += contrib * e.weight
			}
		}

		maxDiff := 0.0
		for i := range next {
			next[i] = opts.Damping*(next[i]+dangling*teleport[i]) + (1-opts.Damping)*teleport[i]
			maxDiff = math.Max(maxDiff, math.Abs(next[i]-scores[i]))
		}
		scores, next = next, scores

		if maxDiff < opts.Tolerance {
			out.Converged = true
			break
		}
	}

	ranked := make([]Ranked, n)
	for i, s := range scores {
		ranked[i] = Ranked{ID: g.nodes[i], Score: s}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}
	out.Results = ranked
	return out
}
