package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scout/internal/payload"
	"scout/internal/storage"
)

// Exporter writes run bundles from a knowledge store
type Exporter struct {
	runs   *storage.RunStore
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(db *storage.DB, logger *slog.Logger) *Exporter {
	return &Exporter{
		runs:   storage.NewRunStore(db),
		logger: logger,
		now:    time.Now,
	}
}

// Export writes the bundle for runID into <OutDir>/run_<id>_<date>. Files
// for artifacts the run does not have are omitted; the research log,
// registry and scorecard tables are always written.
func (e *Exporter) Export(runID int64, opts Options) (*Result, error) {
	if opts.OutDir == "" {
		opts.OutDir = "exports"
	}

	run, err := e.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	date := run.RunDate
	if date == "" {
		date = "unknown"
	}
	dir := filepath.Join(opts.OutDir, fmt.Sprintf("run_%d_%s", runID, date))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	e.logger.Debug("Starting run export", "run_id", runID, "dir", dir)

	manifest := Manifest{
		RunID:     run.ID,
		RunDate:   run.RunDate,
		Mode:      run.Mode,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339Nano),
		Generated: e.now().UTC().Format(time.RFC3339),
	}
	written := func(name string) { manifest.Files = append(manifest.Files, name) }

	registry, err := e.runs.RegistryItems(runID)
	if err != nil {
		return nil, err
	}
	if err := writeCSV(filepath.Join(dir, FileRegistry), registryRows(registry)); err != nil {
		return nil, err
	}
	manifest.Counts.Registry = len(registry)
	written(FileRegistry)

	scorecard, err := e.runs.ScorecardItems(runID)
	if err != nil {
		return nil, err
	}
	if err := writeCSV(filepath.Join(dir, FileScorecard), scorecardRows(scorecard)); err != nil {
		return nil, err
	}
	manifest.Counts.Scorecard = len(scorecard)
	written(FileScorecard)

	logs, err := e.runs.ResearchLogs(runID)
	if err != nil {
		return nil, err
	}
	if err := writeFile(filepath.Join(dir, FileResearchLog), FormatResearchLog(logs)); err != nil {
		return nil, err
	}
	manifest.Counts.ResearchLog = len(logs)
	written(FileResearchLog)

	report, err := e.runs.LatestReport(runID)
	if err != nil {
		return nil, err
	}
	if report != nil {
		if err := writeFile(filepath.Join(dir, FileReport), "# "+report.Title+"\n\n"+report.Content); err != nil {
			return nil, err
		}
		written(FileReport)
	}

	graph, err := e.runs.LatestTopicGraph(runID)
	if err != nil {
		return nil, err
	}
	if graph != nil {
		if err := writeFile(filepath.Join(dir, FileTopicGraph), graph.JSON); err != nil {
			return nil, err
		}
		written(FileTopicGraph)
	}

	points, err := e.runs.ClusterPoints(runID)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		if err := writeCSV(filepath.Join(dir, FileClusters), clusterRows(points)); err != nil {
			return nil, err
		}
		manifest.Counts.ClusterPoints = len(points)
		written(FileClusters)
	}

	portfolio, err := e.runs.LatestPortfolioUpdate(runID)
	if err != nil {
		return nil, err
	}
	if portfolio != nil {
		if err := writeFile(filepath.Join(dir, FilePortfolio), portfolio.Summary); err != nil {
			return nil, err
		}
		written(FilePortfolio)
	}

	if err := writeFile(filepath.Join(dir, FileReadme), FormatReadme(manifest)); err != nil {
		return nil, err
	}
	written(FileReadme)

	manifestYAML, err := yaml.Marshal(&manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeFile(filepath.Join(dir, FileManifest), string(manifestYAML)); err != nil {
		return nil, err
	}

	result := &Result{Dir: dir, Manifest: manifest}
	if opts.Archive {
		result.Archive = dir + ".tar.gz"
		if err := archiveDir(dir, result.Archive); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Exported run", "run_id", runID, "dir", dir, "files", len(manifest.Files)+1)
	return result, nil
}

// FormatResearchLog renders one "- [timestamp] entry" line per entry
func FormatResearchLog(logs []*storage.ResearchLogEntry) string {
	var sb strings.Builder
	for _, l := range logs {
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", l.Timestamp, l.Entry))
	}
	return sb.String()
}

// FormatReadme renders the human-readable bundle manifest
func FormatReadme(m Manifest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Run %d Export\n\n", m.RunID))
	sb.WriteString(fmt.Sprintf("- Date: %s\n\n", m.RunDate))
	sb.WriteString(fmt.Sprintf("- Mode: %s\n\n", m.Mode))
	sb.WriteString(fmt.Sprintf("- Created: %s\n\n", m.CreatedAt))
	files := append(append([]string{}, m.Files...), FileReadme, FileManifest)
	sb.WriteString(fmt.Sprintf("- Files: %s\n", strings.Join(files, ", ")))
	return sb.String()
}

func registryRows(items []*storage.RegistryItem) [][]string {
	rows := [][]string{{
		"repo_url", "name", "link", "inferred_primitives",
		"novelty", "maturity", "weirdness", "notes", "meta",
	}}
	for _, it := range items {
		meta, _ := it.Meta.Encode()
		rows = append(rows, []string{
			it.RepoURL, it.Name, it.Link, it.InferredPrimitives,
			formatOptional(it.Novelty), formatOptional(it.Maturity), formatOptional(it.Weirdness),
			it.Notes, meta,
		})
	}
	return rows
}

// scorecardRows flattens rubrics into one column per key, sorted, after
// the fixed columns.
func scorecardRows(items []*storage.ScorecardItem) [][]string {
	keySet := make(map[string]struct{})
	for _, it := range items {
		for _, k := range it.Rubric.Keys() {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := append([]string{"idea", "weighted_score", "mode", "created_at"}, keys...)
	rows := [][]string{header}
	for _, it := range items {
		row := []string{
			it.Idea,
			strconv.FormatFloat(it.WeightedScore, 'g', -1, 64),
			it.Mode,
			it.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		for _, k := range keys {
			row = append(row, formatValue(it.Rubric, k))
		}
		rows = append(rows, row)
	}
	return rows
}

func clusterRows(points []storage.ClusterPoint) [][]string {
	rows := [][]string{{"url", "owner", "name", "x", "y", "cluster_label", "meta"}}
	for _, p := range points {
		meta, _ := p.Meta.Encode()
		rows = append(rows, []string{
			p.URL, p.Owner, p.Name,
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64),
			strconv.Itoa(p.Label),
			meta,
		})
	}
	return rows
}

// formatValue renders one rubric value; missing keys are empty cells and
// nested values are JSON.
func formatValue(p payload.Payload, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
