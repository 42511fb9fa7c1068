package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"scout/internal/embedding"
	scouterrors "scout/internal/errors"
	"scout/internal/slogutil"
	"scout/internal/storage"
)

func setupTestPipeline(t *testing.T) (*Pipeline, *storage.DB) {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	db, err := storage.Open(filepath.Join(t.TempDir(), "scout.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p := NewPipeline(db, embedding.New(embedding.DefaultDim, logger), logger)
	p.now = func() time.Time { return time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC) }
	return p, db
}

func addRepo(t *testing.T, db *storage.DB, url, readme, desc string) {
	t.Helper()
	parts := strings.Split(strings.TrimPrefix(url, "https://github.com/"), "/")
	_, _, err := storage.NewRepoStore(db).Upsert(storage.RepoInput{
		URL:         url,
		Owner:       parts[0],
		Name:        parts[1],
		ReadmeText:  readme,
		Description: desc,
		Source:      "test",
	})
	if err != nil {
		t.Fatalf("Upsert(%s) failed: %v", url, err)
	}
}

func TestClusterCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{8, 2},
		{13, 3}, // sqrt(6.5) = 2.55
		{18, 3},
		{50, 5},
		{128, 8},
		{1000, 8},
	}
	for _, tt := range tests {
		if got := ClusterCount(tt.n); got != tt.want {
			t.Errorf("ClusterCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestAssignClusters_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		rows int
	}{
		{"empty", 0},
		{"single", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var x *mat.Dense
			if tt.rows > 0 {
				x = mat.NewDense(tt.rows, 3, nil)
			}
			labels := assignClusters(x)
			if len(labels) != tt.rows {
				t.Fatalf("got %d labels, want %d", len(labels), tt.rows)
			}
			for _, l := range labels {
				if l != 0 {
					t.Errorf("label = %d, want 0", l)
				}
			}
		})
	}
}

func TestKMeans_SeparatesGroups(t *testing.T) {
	data := []float64{
		0, 0,
		0.1, 0,
		0, 0.1,
		10, 10,
		10.1, 10,
		10, 10.1,
	}
	x := mat.NewDense(6, 2, data)

	labels := kmeans(x, 2)
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("first group split: %v", labels)
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("second group split: %v", labels)
	}
	if labels[0] == labels[3] {
		t.Errorf("groups merged: %v", labels)
	}

	again := kmeans(x, 2)
	for i := range labels {
		if labels[i] != again[i] {
			t.Fatalf("k-means is not deterministic: %v vs %v", labels, again)
		}
	}
}

func TestProject2D(t *testing.T) {
	t.Run("fewer than two rows", func(t *testing.T) {
		coords := project2D(mat.NewDense(1, 4, []float64{1, 2, 3, 4}))
		if len(coords) != 1 || coords[0] != [2]float64{} {
			t.Errorf("coords = %v, want one zero point", coords)
		}
	})

	t.Run("line is captured by first component", func(t *testing.T) {
		x := mat.NewDense(3, 3, []float64{
			0, 0, 0,
			1, 1, 1,
			2, 2, 2,
		})
		coords := project2D(x)
		if len(coords) != 3 {
			t.Fatalf("got %d coords", len(coords))
		}
		// Centered, the middle row sits at the origin.
		if abs(coords[1][0]) > 1e-9 || abs(coords[1][1]) > 1e-9 {
			t.Errorf("middle point = %v, want origin", coords[1])
		}
		if abs(abs(coords[0][0])-abs(coords[2][0])) > 1e-9 || coords[0][0] == 0 {
			t.Errorf("end points not symmetric on PC1: %v", coords)
		}
	})
}

func TestStack_PadsMixedWidths(t *testing.T) {
	x := stack([][]float32{{1, 2}, {3, 4, 5}})
	r, c := x.Dims()
	if r != 2 || c != 3 {
		t.Fatalf("dims = %dx%d, want 2x3", r, c)
	}
	if x.At(0, 2) != 0 || x.At(1, 2) != 5 {
		t.Errorf("unexpected padding: %v", mat.Formatted(x))
	}
}

func TestBuildTopicGraph(t *testing.T) {
	t.Run("edges respect threshold", func(t *testing.T) {
		docs := []string{
			"grammar parser earley grammar",
			"browser agent simulation",
			"grammar parser peg",
		}
		g, err := BuildTopicGraph(docs)
		if err != nil {
			t.Fatalf("BuildTopicGraph failed: %v", err)
		}
		if len(g.Nodes) == 0 {
			t.Fatal("expected nodes")
		}
		for i, n := range g.Nodes {
			if n.ID != i {
				t.Errorf("node %d has id %d", i, n.ID)
			}
		}
		for _, e := range g.Edges {
			if e.Weight < 0.25 {
				t.Errorf("edge %+v below threshold", e)
			}
			if e.Source >= e.Target {
				t.Errorf("edge %+v not ordered", e)
			}
		}
		// grammar and parser always co-occur.
		idx := map[string]int{}
		for _, n := range g.Nodes {
			idx[n.Term] = n.ID
		}
		found := false
		for _, e := range g.Edges {
			if e.Source == idx["grammar"] && e.Target == idx["parser"] {
				found = true
			}
		}
		if !found {
			t.Error("expected grammar-parser edge")
		}
	})

	t.Run("empty vocabulary", func(t *testing.T) {
		g, err := BuildTopicGraph([]string{"", "the and"})
		if err != nil {
			t.Fatalf("BuildTopicGraph failed: %v", err)
		}
		if len(g.Nodes) != 0 || len(g.Edges) != 0 {
			t.Errorf("graph = %+v, want empty", g)
		}
		data, _ := json.Marshal(g)
		if string(data) != `{"nodes":[],"edges":[]}` {
			t.Errorf("json = %s", data)
		}
	})
}

func TestCentralTerms(t *testing.T) {
	tg := &TopicGraph{
		Nodes: []TopicNode{{ID: 0, Term: "agent"}, {ID: 1, Term: "grammar"}, {ID: 2, Term: "parser"}, {ID: 3, Term: "peg"}},
		Edges: []TopicEdge{
			{Source: 1, Target: 2, Weight: 0.9},
			{Source: 1, Target: 3, Weight: 0.6},
		},
	}
	got := CentralTerms(tg, 2)
	if len(got) != 2 || got[0].ID != "grammar" {
		t.Errorf("CentralTerms = %+v, want grammar first", got)
	}

	if got := CentralTerms(&TopicGraph{}, 5); len(got) != 0 {
		t.Errorf("empty graph should rank nothing, got %+v", got)
	}
	unlinked := &TopicGraph{Nodes: []TopicNode{{ID: 0, Term: "agent"}, {ID: 1, Term: "grammar"}}, Edges: []TopicEdge{}}
	if got := CentralTerms(unlinked, 5); len(got) != 0 {
		t.Errorf("graph without edges should rank nothing, got %+v", got)
	}
}

func TestRun_TwoDistinctRepositories(t *testing.T) {
	p, db := setupTestPipeline(t)
	addRepo(t, db, "https://github.com/a/grammar", "earley parser grammar toolkit", "")
	addRepo(t, db, "https://github.com/b/swarm", "browser agent society simulation", "")

	runID, err := storage.NewRunStore(db).Create("CORE", "")
	if err != nil {
		t.Fatalf("Create run failed: %v", err)
	}

	out := t.TempDir()
	res, err := p.Run(context.Background(), Options{OutDir: out, RunID: runID, Persist: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}
	if res.Backfilled != 2 {
		t.Errorf("Backfilled = %d, want 2", res.Backfilled)
	}
	for _, r := range res.Rows {
		if r.Cluster < 0 || r.Cluster >= 2 {
			t.Errorf("row %s has cluster %d", r.URL, r.Cluster)
		}
	}
	for _, e := range res.Graph.Edges {
		if e.Weight < 0.25 {
			t.Errorf("edge %+v below threshold", e)
		}
	}

	for _, path := range []string{res.Files.ClustersCSV, res.Files.TopicGraph, res.Files.HTML} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected file %s: %v", path, err)
		}
	}
	if filepath.Base(res.Files.ClustersCSV) != "clusters_20250704.csv" {
		t.Errorf("clusters file = %s", res.Files.ClustersCSV)
	}
	html, _ := os.ReadFile(res.Files.HTML)
	if !strings.Contains(string(html), "Repository Embedding Map") || strings.Count(string(html), "<circle") != 2 {
		t.Errorf("unexpected html report:\n%s", html)
	}

	runs := storage.NewRunStore(db)
	points, err := runs.ClusterPoints(runID)
	if err != nil {
		t.Fatalf("ClusterPoints failed: %v", err)
	}
	if len(points) != 2 || res.Persisted != 2 {
		t.Errorf("persisted %d points (reported %d), want 2", len(points), res.Persisted)
	}
	graph, err := runs.LatestTopicGraph(runID)
	if err != nil || graph == nil {
		t.Fatalf("expected persisted topic graph, err=%v", err)
	}

	missing, _ := storage.NewRepoStore(db).ListMissingEmbeddings()
	if len(missing) != 0 {
		t.Errorf("%d repositories still missing embeddings", len(missing))
	}
}

func TestRun_UnknownRunFailsBeforeWriting(t *testing.T) {
	p, db := setupTestPipeline(t)
	addRepo(t, db, "https://github.com/a/grammar", "earley parser", "")

	out := filepath.Join(t.TempDir(), "reports")
	_, err := p.Run(context.Background(), Options{OutDir: out, RunID: 99, Persist: true})
	if !scouterrors.Is(err, scouterrors.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("report directory should not be created")
	}
	missing, _ := storage.NewRepoStore(db).ListMissingEmbeddings()
	if len(missing) != 1 {
		t.Error("embeddings should not be backfilled")
	}
}

func TestRun_EmptyStore(t *testing.T) {
	p, _ := setupTestPipeline(t)
	res, err := p.Run(context.Background(), Options{OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Rows) != 0 || len(res.Graph.Nodes) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
