package analysis

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"scout/internal/graph"
	"scout/internal/terms"
)

const (
	topicMaxFeatures = 400
	topicEdgeMinimum = 0.25
	centralTermCount = 10
)

// TopicNode is one vocabulary term.
type TopicNode struct {
	ID   int    `json:"id"`
	Term string `json:"term"`
}

// TopicEdge links two terms whose document profiles are similar.
type TopicEdge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// TopicGraph is the term co-occurrence graph of the corpus.
type TopicGraph struct {
	Nodes []TopicNode `json:"nodes"`
	Edges []TopicEdge `json:"edges"`
}

// BuildTopicGraph vectorizes docs and links every term pair whose column
// cosine similarity is at least 0.25. A corpus without terms yields an
// empty graph.
func BuildTopicGraph(docs []string) (*TopicGraph, error) {
	tg := &TopicGraph{Nodes: []TopicNode{}, Edges: []TopicEdge{}}

	model, err := terms.Vectorizer{MaxFeatures: topicMaxFeatures, StopWords: true}.Fit(docs)
	if errors.Is(err, terms.ErrEmptyVocabulary) {
		return tg, nil
	}
	if err != nil {
		return nil, err
	}

	for i, term := range model.Vocabulary {
		tg.Nodes = append(tg.Nodes, TopicNode{ID: i, Term: term})
	}

	var gram mat.Dense
	gram.Mul(model.Weights.T(), model.Weights)
	v := len(model.Vocabulary)
	norms := make([]float64, v)
	for i := range norms {
		norms[i] = math.Sqrt(gram.At(i, i))
	}

	for i := 0; i < v; i++ {
		for j := i + 1; j < v; j++ {
			if norms[i] == 0 || norms[j] == 0 {
				continue
			}
			w := gram.At(i, j) / (norms[i] * norms[j])
			if w >= topicEdgeMinimum {
				tg.Edges = append(tg.Edges, TopicEdge{Source: i, Target: j, Weight: w})
			}
		}
	}
	return tg, nil
}

// CentralTerms ranks the graph's terms by weighted PageRank and returns
// the top k. Isolated terms are ranked too, but a graph without edges
// has no centre and yields nothing.
func CentralTerms(tg *TopicGraph, k int) []graph.Ranked {
	g := graph.NewGraph()
	for _, n := range tg.Nodes {
		g.AddNode(n.Term)
	}
	for _, e := range tg.Edges {
		g.AddEdge(tg.Nodes[e.Source].Term, tg.Nodes[e.Target].Term, e.Weight)
	}
	if g.NumNodes() == 0 || g.NumEdges() == 0 {
		return []graph.Ranked{}
	}
	opts := graph.DefaultRankOptions()
	opts.TopK = k
	return g.Rank(nil, opts).Results
}
