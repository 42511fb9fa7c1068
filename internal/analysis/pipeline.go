// Package analysis projects stored repository embeddings to 2-D, clusters
// them, builds a topic graph from their text and writes the visual report.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scout/internal/embedding"
	scouterrors "scout/internal/errors"
	"scout/internal/graph"
	"scout/internal/storage"
)

// Embedder is the part of the embedding service the pipeline needs.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Options controls one pipeline invocation.
type Options struct {
	// OutDir receives the report files. Defaults to "reports".
	OutDir string
	// RunID and Persist together attach the results to a run.
	RunID   int64
	Persist bool
}

// Row is one repository's place on the map.
type Row struct {
	URL     string  `json:"url"`
	Owner   string  `json:"owner"`
	Name    string  `json:"name"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
}

// Files lists the paths written by one invocation.
type Files struct {
	ClustersCSV string `json:"clustersCsv"`
	TopicGraph  string `json:"topicGraph"`
	HTML        string `json:"html"`
}

// Result is the output of Run.
type Result struct {
	Rows         []Row          `json:"rows"`
	Graph        *TopicGraph    `json:"graph"`
	CentralTerms []graph.Ranked `json:"centralTerms"`
	Files        Files          `json:"files"`
	Backfilled   int            `json:"backfilled"`
	Persisted    int            `json:"persisted"`
}

// Pipeline runs the analysis over a knowledge store.
type Pipeline struct {
	repos    *storage.RepoStore
	runs     *storage.RunStore
	embedder Embedder
	logger   *slog.Logger
	now      func() time.Time
}

// NewPipeline creates a pipeline over db.
func NewPipeline(db *storage.DB, embedder Embedder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		repos:    storage.NewRepoStore(db),
		runs:     storage.NewRunStore(db),
		embedder: embedder,
		logger:   logger,
		now:      time.Now,
	}
}

// EnsureEmbeddings embeds every repository missing a vector or dimension,
// using its README, else its description, else the empty string. Returns
// the number of repositories updated.
func (p *Pipeline) EnsureEmbeddings(ctx context.Context) (int, error) {
	missing, err := p.repos.ListMissingEmbeddings()
	if err != nil {
		return 0, err
	}
	for _, r := range missing {
		vec := p.embedder.Embed(ctx, embedText(r))
		if err := p.repos.UpdateEmbedding(r.ID, embedding.ToBlob(vec), len(vec)); err != nil {
			return 0, err
		}
	}
	if len(missing) > 0 {
		p.logger.Info("Backfilled embeddings", "count", len(missing))
	}
	return len(missing), nil
}

func embedText(r *storage.Repository) string {
	if strings.TrimSpace(r.ReadmeText) != "" {
		return r.ReadmeText
	}
	return r.Description
}

// Run backfills embeddings, projects and clusters every repository, builds
// the topic graph, writes the report files and optionally persists the
// results under a run.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	persist := opts.Persist && opts.RunID > 0
	if persist {
		if _, err := p.runs.Get(opts.RunID); err != nil {
			return nil, err
		}
	}
	if opts.OutDir == "" {
		opts.OutDir = "reports"
	}

	backfilled, err := p.EnsureEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	repos, err := p.repos.List()
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(repos))
	docs := make([]string, len(repos))
	for i, r := range repos {
		if vectors[i], err = decodeEmbedding(r); err != nil {
			return nil, err
		}
		docs[i] = r.ReadmeText + " \n" + r.Description
	}

	x := stack(vectors)
	coords := project2D(x)
	labels := assignClusters(x)

	rows := make([]Row, len(repos))
	for i, r := range repos {
		rows[i] = Row{
			URL:     r.URL,
			Owner:   r.Owner,
			Name:    r.Name,
			X:       coords[i][0],
			Y:       coords[i][1],
			Cluster: labels[i],
		}
	}

	topics, err := BuildTopicGraph(docs)
	if err != nil {
		return nil, scouterrors.Wrap(scouterrors.InternalError, "failed to build topic graph", err)
	}
	p.logger.Debug("Analysis computed",
		"repos", len(rows),
		"clusters", ClusterCount(len(rows)),
		"terms", len(topics.Nodes),
		"edges", len(topics.Edges),
	)

	central := CentralTerms(topics, centralTermCount)

	files, err := writeReport(opts.OutDir, p.now().UTC(), rows, topics, central)
	if err != nil {
		return nil, err
	}

	result := &Result{Rows: rows, Graph: topics, CentralTerms: central, Files: files, Backfilled: backfilled}
	if persist {
		graphJSON, err := json.Marshal(topics)
		if err != nil {
			return nil, fmt.Errorf("failed to encode topic graph: %w", err)
		}
		points := make([]storage.ClusterPoint, len(rows))
		for i, r := range rows {
			points[i] = storage.ClusterPoint{
				URL: r.URL, Owner: r.Owner, Name: r.Name,
				X: r.X, Y: r.Y, Label: r.Cluster,
			}
		}
		if result.Persisted, err = p.runs.SaveAnalysis(opts.RunID, string(graphJSON), points); err != nil {
			return nil, err
		}
		p.logger.Info("Persisted analysis", "run_id", opts.RunID, "points", result.Persisted)
	}
	return result, nil
}

// decodeEmbedding reads a stored vector. Rows without one contribute a
// zero vector of the nominal width.
func decodeEmbedding(r *storage.Repository) ([]float32, error) {
	if !r.HasEmbedding() {
		return make([]float32, embedding.DefaultDim), nil
	}
	return embedding.FromBlob(r.Embedding, r.EmbeddingDim)
}
