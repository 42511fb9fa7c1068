package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	scouterrors "scout/internal/errors"
)

// Repository is one row of the repositories table.
type Repository struct {
	ID           int64
	URL          string
	Owner        string
	Name         string
	Description  string
	ReadmeText   string
	ReadmeHTML   string
	AgentNotes   string
	Tags         []string
	DiscoveredAt time.Time
	LastVisited  time.Time
	Embedding    []byte
	EmbeddingDim int // 0 when no embedding is stored
}

// HasEmbedding reports whether both the vector and its dimension are set.
func (r *Repository) HasEmbedding() bool {
	return r.Embedding != nil && r.EmbeddingDim > 0
}

// RepoInput carries the content fields and visit provenance for an upsert.
type RepoInput struct {
	URL          string
	Owner        string
	Name         string
	Description  string
	ReadmeText   string
	ReadmeHTML   string
	AgentNotes   string
	Tags         []string
	Embedding    []byte
	EmbeddingDim int

	Source string
	Reason string
}

// Visit is one immutable entry of the visit ledger.
type Visit struct {
	ID        int64
	RepoID    int64
	VisitedAt time.Time
	Source    string
	Reason    string
}

// RepoStore provides operations on repositories and visits
type RepoStore struct {
	db *DB
}

// NewRepoStore creates a new repository store
func NewRepoStore(db *DB) *RepoStore {
	return &RepoStore{db: db}
}

// Upsert inserts the repository or updates the existing row with the same
// URL, then appends one visit. Returns the row id and whether it was created.
func (s *RepoStore) Upsert(in RepoInput) (int64, bool, error) {
	if strings.TrimSpace(in.URL) == "" {
		return 0, false, scouterrors.New(scouterrors.ValidationError, "repository url is required")
	}

	tags, err := encodeTags(in.Tags)
	if err != nil {
		return 0, false, err
	}
	var dim sql.NullInt64
	if in.Embedding != nil && in.EmbeddingDim > 0 {
		dim = sql.NullInt64{Int64: int64(in.EmbeddingDim), Valid: true}
	}

	var (
		id      int64
		created bool
	)
	now := s.db.timestamp()

	err = s.db.WithTx(func(tx *sql.Tx) error {
		err := tx.QueryRow("SELECT id FROM repositories WHERE url = ?", in.URL).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.Exec(`
				INSERT INTO repositories (
					url, owner, name, description, readme_text, readme_html,
					agent_notes, tags, discovered_at, last_visited, embedding, embedding_dim
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				in.URL, in.Owner, in.Name, nullString(in.Description),
				nullString(in.ReadmeText), nullString(in.ReadmeHTML),
				nullString(in.AgentNotes), tags, now, now, blobArg(in.Embedding), dim,
			)
			if err != nil {
				return fmt.Errorf("failed to insert repository: %w", err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read repository id: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("failed to look up repository: %w", err)
		default:
			_, err := tx.Exec(`
				UPDATE repositories
				SET owner = ?, name = ?, description = ?, readme_text = ?, readme_html = ?,
					agent_notes = ?, tags = ?, embedding = ?, embedding_dim = ?, last_visited = ?
				WHERE id = ?
			`,
				in.Owner, in.Name, nullString(in.Description),
				nullString(in.ReadmeText), nullString(in.ReadmeHTML),
				nullString(in.AgentNotes), tags, blobArg(in.Embedding), dim, now, id,
			)
			if err != nil {
				return fmt.Errorf("failed to update repository: %w", err)
			}
		}

		_, err = tx.Exec(
			"INSERT INTO visits (repo_id, visited_at, source, reason) VALUES (?, ?, ?, ?)",
			id, now, nullString(in.Source), nullString(in.Reason),
		)
		if err != nil {
			return fmt.Errorf("failed to record visit: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, false, scouterrors.Wrap(scouterrors.StorageError, "upsert failed for "+in.URL, err)
	}

	return id, created, nil
}

// CanVisit reports whether url may be processed again. Unknown URLs,
// missing or unreadable last-visited values, and visits at least cooldown
// old are all visitable.
func (s *RepoStore) CanVisit(url string, cooldown time.Duration) (bool, error) {
	var last sql.NullString
	err := s.db.QueryRow("SELECT last_visited FROM repositories WHERE url = ?", url).Scan(&last)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, scouterrors.Wrap(scouterrors.StorageError, "failed to read last visit", err)
	}
	if !last.Valid || last.String == "" {
		return true, nil
	}
	visited, ok := parseTime(last.String)
	if !ok {
		return true, nil
	}
	return s.db.now().Sub(visited) >= cooldown, nil
}

const repoColumns = `
	id, url, owner, name, description, readme_text, readme_html, agent_notes,
	tags, discovered_at, last_visited, embedding, embedding_dim`

// GetByURL returns the repository with the given URL, or nil if none.
func (s *RepoStore) GetByURL(url string) (*Repository, error) {
	rows, err := s.db.Query("SELECT "+repoColumns+" FROM repositories WHERE url = ?", url)
	if err != nil {
		return nil, fmt.Errorf("failed to query repository: %w", err)
	}
	repos, err := scanRepositories(rows)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return nil, nil
	}
	return repos[0], nil
}

// List returns every repository in id order.
func (s *RepoStore) List() ([]*Repository, error) {
	return s.list("SELECT " + repoColumns + " FROM repositories ORDER BY id")
}

// ListRecent returns up to limit repositories, most recently visited first.
func (s *RepoStore) ListRecent(limit int) ([]*Repository, error) {
	return s.list("SELECT "+repoColumns+" FROM repositories ORDER BY last_visited DESC, id DESC LIMIT ?", limit)
}

// ListMissingEmbeddings returns repositories whose vector or dimension is NULL.
func (s *RepoStore) ListMissingEmbeddings() ([]*Repository, error) {
	return s.list("SELECT " + repoColumns + " FROM repositories WHERE embedding IS NULL OR embedding_dim IS NULL ORDER BY id")
}

func (s *RepoStore) list(query string, args ...interface{}) ([]*Repository, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	return scanRepositories(rows)
}

// UpdateEmbedding stores a vector for an existing repository without
// touching last_visited or the visit ledger.
func (s *RepoStore) UpdateEmbedding(id int64, blob []byte, dim int) error {
	res, err := s.db.Exec("UPDATE repositories SET embedding = ?, embedding_dim = ? WHERE id = ?", blobArg(blob), dim, id)
	if err != nil {
		return scouterrors.Wrap(scouterrors.StorageError, "failed to update embedding", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return scouterrors.Newf(scouterrors.NotFound, "repository %d not found", id)
	}
	return nil
}

// Count returns the number of stored repositories.
func (s *RepoStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM repositories").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count repositories: %w", err)
	}
	return n, nil
}

// Visits returns the ledger for one repository, oldest first.
func (s *RepoStore) Visits(repoID int64) ([]*Visit, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, visited_at, source, reason
		FROM visits WHERE repo_id = ? ORDER BY id
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		var (
			v              Visit
			visitedAt      string
			source, reason sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.RepoID, &visitedAt, &source, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		v.VisitedAt, _ = parseTime(visitedAt)
		v.Source = source.String
		v.Reason = reason.String
		visits = append(visits, &v)
	}
	return visits, rows.Err()
}

func scanRepositories(rows *sql.Rows) ([]*Repository, error) {
	defer rows.Close()

	var repos []*Repository
	for rows.Next() {
		var (
			r                                  Repository
			owner, name, desc, readme, html    sql.NullString
			notes, tags, discovered, lastVisit sql.NullString
			dim                                sql.NullInt64
		)
		err := rows.Scan(
			&r.ID, &r.URL, &owner, &name, &desc, &readme, &html, &notes,
			&tags, &discovered, &lastVisit, &r.Embedding, &dim,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		r.Owner = owner.String
		r.Name = name.String
		r.Description = desc.String
		r.ReadmeText = readme.String
		r.ReadmeHTML = html.String
		r.AgentNotes = notes.String
		r.Tags = decodeTags(tags.String)
		r.DiscoveredAt, _ = parseTime(discovered.String)
		r.LastVisited, _ = parseTime(lastVisit.String)
		r.EmbeddingDim = int(dim.Int64)
		repos = append(repos, &r)
	}
	return repos, rows.Err()
}

// encodeTags stores the tag set as a JSON array; an empty set is NULL.
func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode tags: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// decodeTags accepts a JSON array or, for hand-written rows, a comma list.
func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err == nil {
		return tags
	}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
