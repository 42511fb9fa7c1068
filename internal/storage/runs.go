package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	scouterrors "scout/internal/errors"
	"scout/internal/payload"
)

// RunDateLayout is the DDMMYYYY format of runs.run_date.
const RunDateLayout = "02012006"

// DefaultReportKind is used when SaveReport is given no kind.
const DefaultReportKind = "trends_and_potential"

// Run is a session that scopes a batch of artifacts.
type Run struct {
	ID        int64
	RunDate   string
	Mode      string
	CreatedAt time.Time
}

// ResearchLogEntry is one line of a run's research log.
type ResearchLogEntry struct {
	ID        int64
	RunID     int64
	Timestamp string
	Entry     string
}

// RegistryItem is a scored candidate repository recorded within a run.
type RegistryItem struct {
	ID                 int64
	RunID              int64
	RepoURL            string
	Name               string
	Link               string
	InferredPrimitives string
	Novelty            *float64
	Maturity           *float64
	Weirdness          *float64
	Notes              string
	Meta               payload.Payload
}

// ScorecardItem is a rubric-scored idea recorded within a run.
type ScorecardItem struct {
	ID            int64
	RunID         int64
	Idea          string
	WeightedScore float64
	Rubric        payload.Payload
	Mode          string
	CreatedAt     time.Time
}

// Report is a Markdown document attached to a run.
type Report struct {
	ID        int64
	RunID     int64
	Kind      string
	Title     string
	Content   string
	CreatedAt time.Time
}

// TopicGraphSnapshot is a serialized topic graph attached to a run.
type TopicGraphSnapshot struct {
	ID        int64
	RunID     int64
	JSON      string
	CreatedAt time.Time
}

// ClusterPoint is one repository's projected coordinate and cluster label.
type ClusterPoint struct {
	URL   string
	Owner string
	Name  string
	X     float64
	Y     float64
	Label int
	Meta  payload.Payload
}

// PortfolioUpdate is a free-text summary attached to a run.
type PortfolioUpdate struct {
	ID        int64
	RunID     int64
	Summary   string
	CreatedAt time.Time
}

// RunStore provides the run lifecycle and the append-only artifact writers.
// Every writer fails with NotFound before writing if the run does not exist.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new run store
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Create inserts a run. An empty date defaults to today in DDMMYYYY.
func (s *RunStore) Create(mode, runDate string) (int64, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return 0, scouterrors.New(scouterrors.ValidationError, "run mode is required")
	}
	if runDate == "" {
		runDate = s.db.now().UTC().Format(RunDateLayout)
	}

	res, err := s.db.Exec(
		"INSERT INTO runs (run_date, mode, created_at) VALUES (?, ?, ?)",
		runDate, mode, s.db.timestamp(),
	)
	if err != nil {
		return 0, scouterrors.Wrap(scouterrors.StorageError, "failed to create run", err)
	}
	return res.LastInsertId()
}

// Get returns the run or a NotFound error.
func (s *RunStore) Get(id int64) (*Run, error) {
	var (
		run     Run
		date    sql.NullString
		mode    sql.NullString
		created sql.NullString
	)
	err := s.db.QueryRow("SELECT id, run_date, mode, created_at FROM runs WHERE id = ?", id).
		Scan(&run.ID, &date, &mode, &created)
	if err == sql.ErrNoRows {
		return nil, runNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.RunDate = date.String
	run.Mode = mode.String
	run.CreatedAt, _ = parseTime(created.String)
	return &run, nil
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query("SELECT id, run_date, mode, created_at FROM runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run                 Run
			date, mode, created sql.NullString
		)
		if err := rows.Scan(&run.ID, &date, &mode, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.RunDate = date.String
		run.Mode = mode.String
		run.CreatedAt, _ = parseTime(created.String)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func runNotFound(id int64) error {
	return scouterrors.Newf(scouterrors.NotFound, "run %d not found", id)
}

// requireRun is checked inside each writer's transaction.
func requireRun(q querier, runID int64) error {
	var id int64
	err := q.QueryRow("SELECT id FROM runs WHERE id = ?", runID).Scan(&id)
	if err == sql.ErrNoRows {
		return runNotFound(runID)
	}
	if err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	return nil
}

// insertForRun verifies the run and executes one INSERT in a transaction.
func (s *RunStore) insertForRun(runID int64, what, query string, args ...interface{}) (int64, error) {
	var id int64
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if err := requireRun(tx, runID); err != nil {
			return err
		}
		res, err := tx.Exec(query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", what, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, wrapStorage(err, "failed to save "+what)
	}
	return id, nil
}

// wrapStorage leaves coded errors alone and tags the rest as storage failures.
func wrapStorage(err error, msg string) error {
	if scouterrors.CodeOf(err) != "" {
		return err
	}
	return scouterrors.Wrap(scouterrors.StorageError, msg, err)
}

// AppendResearchLog adds an entry. An empty timestamp means now.
func (s *RunStore) AppendResearchLog(runID int64, entry, timestamp string) (int64, error) {
	if timestamp == "" {
		timestamp = s.db.timestamp()
	}
	return s.insertForRun(runID, "research log entry",
		"INSERT INTO research_logs (run_id, timestamp, entry) VALUES (?, ?, ?)",
		runID, timestamp, entry,
	)
}

// AddRegistryItem records a scored candidate.
func (s *RunStore) AddRegistryItem(runID int64, item RegistryItem) (int64, error) {
	meta, err := item.Meta.Encode()
	if err != nil {
		return 0, err
	}
	return s.insertForRun(runID, "registry item", `
		INSERT INTO registry_items (
			run_id, repo_url, name, link, inferred_primitives,
			novelty, maturity, weirdness, notes, meta
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, nullString(item.RepoURL), nullString(item.Name), nullString(item.Link),
		nullString(item.InferredPrimitives), nullFloat(item.Novelty), nullFloat(item.Maturity),
		nullFloat(item.Weirdness), nullString(item.Notes), nullString(meta),
	)
}

// AddScorecardItem records a rubric-scored idea.
func (s *RunStore) AddScorecardItem(runID int64, idea string, weightedScore float64, rubric payload.Payload, mode string) (int64, error) {
	if strings.TrimSpace(idea) == "" {
		return 0, scouterrors.New(scouterrors.ValidationError, "scorecard idea is required")
	}
	rubricJSON, err := rubric.Encode()
	if err != nil {
		return 0, err
	}
	return s.insertForRun(runID, "scorecard item",
		"INSERT INTO scorecard_items (run_id, idea, weighted_score, rubric, mode, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		runID, idea, weightedScore, nullString(rubricJSON), nullString(mode), s.db.timestamp(),
	)
}

// SaveReport attaches a Markdown report. An empty kind uses DefaultReportKind.
func (s *RunStore) SaveReport(runID int64, title, content, kind string) (int64, error) {
	if kind == "" {
		kind = DefaultReportKind
	}
	return s.insertForRun(runID, "report",
		"INSERT INTO reports (run_id, kind, title, content_md, created_at) VALUES (?, ?, ?, ?, ?)",
		runID, kind, title, content, s.db.timestamp(),
	)
}

// SaveTopicGraph attaches a serialized topic graph.
func (s *RunStore) SaveTopicGraph(runID int64, graphJSON string) (int64, error) {
	return s.insertForRun(runID, "topic graph",
		"INSERT INTO topic_graphs (run_id, json, created_at) VALUES (?, ?, ?)",
		runID, graphJSON, s.db.timestamp(),
	)
}

// SavePortfolioUpdate attaches a portfolio summary.
func (s *RunStore) SavePortfolioUpdate(runID int64, summary string) (int64, error) {
	return s.insertForRun(runID, "portfolio update",
		"INSERT INTO portfolio_updates (run_id, summary_md, created_at) VALUES (?, ?, ?)",
		runID, summary, s.db.timestamp(),
	)
}

// SaveClusterPoints inserts all points and returns how many were written.
func (s *RunStore) SaveClusterPoints(runID int64, points []ClusterPoint) (int, error) {
	var n int
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if err := requireRun(tx, runID); err != nil {
			return err
		}
		var err error
		n, err = insertClusterPoints(tx, runID, points)
		return err
	})
	if err != nil {
		return 0, wrapStorage(err, "failed to save cluster points")
	}
	return n, nil
}

// SaveAnalysis writes a topic graph and its cluster points together:
// both land or neither does.
func (s *RunStore) SaveAnalysis(runID int64, graphJSON string, points []ClusterPoint) (int, error) {
	var n int
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if err := requireRun(tx, runID); err != nil {
			return err
		}
		_, err := tx.Exec(
			"INSERT INTO topic_graphs (run_id, json, created_at) VALUES (?, ?, ?)",
			runID, graphJSON, s.db.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert topic graph: %w", err)
		}
		n, err = insertClusterPoints(tx, runID, points)
		return err
	})
	if err != nil {
		return 0, wrapStorage(err, "failed to save analysis")
	}
	return n, nil
}

func insertClusterPoints(tx *sql.Tx, runID int64, points []ClusterPoint) (int, error) {
	stmt, err := tx.Prepare(`
		INSERT INTO cluster_points (run_id, url, owner, name, x, y, cluster_label, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare cluster point insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		meta, err := p.Meta.Encode()
		if err != nil {
			return 0, err
		}
		if _, err := stmt.Exec(runID, p.URL, p.Owner, p.Name, p.X, p.Y, p.Label, nullString(meta)); err != nil {
			return 0, fmt.Errorf("failed to insert cluster point: %w", err)
		}
	}
	return len(points), nil
}

// ResearchLogs returns a run's log in insertion order.
func (s *RunStore) ResearchLogs(runID int64) ([]*ResearchLogEntry, error) {
	rows, err := s.db.Query("SELECT id, run_id, timestamp, entry FROM research_logs WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query research logs: %w", err)
	}
	defer rows.Close()

	var out []*ResearchLogEntry
	for rows.Next() {
		var e ResearchLogEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Timestamp, &e.Entry); err != nil {
			return nil, fmt.Errorf("failed to scan research log: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// RegistryItems returns a run's registry in insertion order.
func (s *RunStore) RegistryItems(runID int64) ([]*RegistryItem, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, repo_url, name, link, inferred_primitives,
			novelty, maturity, weirdness, notes, meta
		FROM registry_items WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query registry items: %w", err)
	}
	defer rows.Close()

	var out []*RegistryItem
	for rows.Next() {
		var (
			it                                RegistryItem
			url, name, link, prims, notes, mt sql.NullString
			novelty, maturity, weirdness      sql.NullFloat64
		)
		err := rows.Scan(&it.ID, &it.RunID, &url, &name, &link, &prims,
			&novelty, &maturity, &weirdness, &notes, &mt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registry item: %w", err)
		}
		it.RepoURL = url.String
		it.Name = name.String
		it.Link = link.String
		it.InferredPrimitives = prims.String
		it.Novelty = floatPtr(novelty)
		it.Maturity = floatPtr(maturity)
		it.Weirdness = floatPtr(weirdness)
		it.Notes = notes.String
		if it.Meta, err = payload.Parse(mt.String); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// ScorecardItems returns a run's scorecard in insertion order.
func (s *RunStore) ScorecardItems(runID int64) ([]*ScorecardItem, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, idea, weighted_score, rubric, mode, created_at
		FROM scorecard_items WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scorecard items: %w", err)
	}
	defer rows.Close()

	var out []*ScorecardItem
	for rows.Next() {
		var (
			it                    ScorecardItem
			score                 sql.NullFloat64
			rubric, mode, created sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.RunID, &it.Idea, &score, &rubric, &mode, &created); err != nil {
			return nil, fmt.Errorf("failed to scan scorecard item: %w", err)
		}
		it.WeightedScore = score.Float64
		it.Mode = mode.String
		it.CreatedAt, _ = parseTime(created.String)
		if it.Rubric, err = payload.Parse(rubric.String); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// LatestReport returns the most recent report of a run, or nil.
func (s *RunStore) LatestReport(runID int64) (*Report, error) {
	var (
		r                          Report
		kind, title, body, created sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, run_id, kind, title, content_md, created_at
		FROM reports WHERE run_id = ? ORDER BY id DESC LIMIT 1
	`, runID).Scan(&r.ID, &r.RunID, &kind, &title, &body, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	r.Kind = kind.String
	r.Title = title.String
	r.Content = body.String
	r.CreatedAt, _ = parseTime(created.String)
	return &r, nil
}

// LatestTopicGraph returns the most recent topic graph of a run, or nil.
func (s *RunStore) LatestTopicGraph(runID int64) (*TopicGraphSnapshot, error) {
	var (
		g             TopicGraphSnapshot
		body, created sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, run_id, json, created_at
		FROM topic_graphs WHERE run_id = ? ORDER BY id DESC LIMIT 1
	`, runID).Scan(&g.ID, &g.RunID, &body, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest topic graph: %w", err)
	}
	g.JSON = body.String
	g.CreatedAt, _ = parseTime(created.String)
	return &g, nil
}

// ClusterPoints returns every cluster point stored for a run.
func (s *RunStore) ClusterPoints(runID int64) ([]ClusterPoint, error) {
	rows, err := s.db.Query(`
		SELECT url, owner, name, x, y, cluster_label, meta
		FROM cluster_points WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster points: %w", err)
	}
	defer rows.Close()

	var out []ClusterPoint
	for rows.Next() {
		var (
			p                    ClusterPoint
			url, owner, name, mt sql.NullString
			x, y                 sql.NullFloat64
			label                sql.NullInt64
		)
		if err := rows.Scan(&url, &owner, &name, &x, &y, &label, &mt); err != nil {
			return nil, fmt.Errorf("failed to scan cluster point: %w", err)
		}
		p.URL, p.Owner, p.Name = url.String, owner.String, name.String
		p.X, p.Y = x.Float64, y.Float64
		p.Label = int(label.Int64)
		if p.Meta, err = payload.Parse(mt.String); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestPortfolioUpdate returns the most recent portfolio summary, or nil.
func (s *RunStore) LatestPortfolioUpdate(runID int64) (*PortfolioUpdate, error) {
	var (
		p                PortfolioUpdate
		summary, created sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, run_id, summary_md, created_at
		FROM portfolio_updates WHERE run_id = ? ORDER BY id DESC LIMIT 1
	`, runID).Scan(&p.ID, &p.RunID, &summary, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest portfolio update: %w", err)
	}
	p.Summary = summary.String
	p.CreatedAt, _ = parseTime(created.String)
	return &p, nil
}
