package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		creators := []func(*sql.Tx) error{
			createRepositoryTables,
			createIdeaTables,
			createRunTables,
			createIndexes,
		}
		for _, create := range creators {
			if err := create(tx); err != nil {
				return err
			}
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations brings an existing database up to currentSchemaVersion.
// A file created by another tool without schema_version gets the full
// schema; every statement is IF NOT EXISTS.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations", "from_version", version, "to_version", currentSchemaVersion)

	if version < 1 {
		return db.initializeSchema()
	}
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRepositoryTables creates repositories and the visits ledger.
func createRepositoryTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS repositories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			owner TEXT,
			name TEXT,
			description TEXT,
			readme_text TEXT,
			readme_html TEXT,
			agent_notes TEXT,
			tags TEXT,
			discovered_at TEXT,
			last_visited TEXT,
			embedding BLOB,
			embedding_dim INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create repositories table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo_id INTEGER NOT NULL,
			visited_at TEXT NOT NULL,
			source TEXT,
			reason TEXT,
			FOREIGN KEY(repo_id) REFERENCES repositories(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create visits table: %w", err)
	}
	return nil
}

func createIdeaTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS ideas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			score REAL,
			attrs TEXT,
			created_at TEXT,
			updated_at TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create ideas table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS idea_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			idea_id INTEGER NOT NULL,
			repo_id INTEGER NOT NULL,
			FOREIGN KEY(idea_id) REFERENCES ideas(id),
			FOREIGN KEY(repo_id) REFERENCES repositories(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create idea_links table: %w", err)
	}
	return nil
}

// runTableDDL holds the run table and its artifact tables, in creation order.
var runTableDDL = []struct {
	name string
	ddl  string
}{
	{"runs", `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_date TEXT,
			mode TEXT,
			created_at TEXT
		)`},
	{"research_logs", `
		CREATE TABLE IF NOT EXISTS research_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			entry TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
	{"registry_items", `
		CREATE TABLE IF NOT EXISTS registry_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			repo_url TEXT,
			name TEXT,
			link TEXT,
			inferred_primitives TEXT,
			novelty REAL,
			maturity REAL,
			weirdness REAL,
			notes TEXT,
			meta JSON,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
	{"scorecard_items", `
		CREATE TABLE IF NOT EXISTS scorecard_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			idea TEXT NOT NULL,
			weighted_score REAL,
			rubric JSON,
			mode TEXT,
			created_at TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
	{"reports", `
		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			kind TEXT,
			title TEXT,
			content_md TEXT,
			created_at TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
	{"topic_graphs", `
		CREATE TABLE IF NOT EXISTS topic_graphs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			json TEXT,
			created_at TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
	{"cluster_points", `
		CREATE TABLE IF NOT EXISTS cluster_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			url TEXT,
			owner TEXT,
			name TEXT,
			x REAL,
			y REAL,
			cluster_label INTEGER,
			meta JSON,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
	{"portfolio_updates", `
		CREATE TABLE IF NOT EXISTS portfolio_updates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			summary_md TEXT,
			created_at TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(id)
		)`},
}

func createRunTables(tx *sql.Tx) error {
	for _, t := range runTableDDL {
		if _, err := tx.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

func createIndexes(tx *sql.Tx) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_visits_repo ON visits(repo_id)",
		"CREATE INDEX IF NOT EXISTS idx_idea_links_idea ON idea_links(idea_id)",
		"CREATE INDEX IF NOT EXISTS idx_research_logs_run ON research_logs(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_registry_items_run ON registry_items(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_scorecard_items_run ON scorecard_items(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_reports_run ON reports(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_topic_graphs_run ON topic_graphs(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_cluster_points_run ON cluster_points(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_portfolio_updates_run ON portfolio_updates(run_id)",
	}
	for _, stmt := range indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
