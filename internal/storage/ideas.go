package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	scouterrors "scout/internal/errors"
	"scout/internal/payload"
)

// Idea is a free-standing note that may reference stored repositories.
type Idea struct {
	ID          int64
	Title       string
	Description string
	Score       *float64
	Attrs       payload.Payload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdeaInput is the caller-supplied content of a new idea.
type IdeaInput struct {
	Title       string
	Description string
	Score       *float64
	Attrs       payload.Payload
	RepoURLs    []string
}

// IdeaStore provides operations on ideas and idea_links
type IdeaStore struct {
	db *DB
}

// NewIdeaStore creates a new idea store
func NewIdeaStore(db *DB) *IdeaStore {
	return &IdeaStore{db: db}
}

// Save creates the idea and links it to every URL that resolves to a
// stored repository. URLs without a matching repository are skipped; the
// second return value is the number of links created.
func (s *IdeaStore) Save(in IdeaInput) (int64, int, error) {
	if strings.TrimSpace(in.Title) == "" {
		return 0, 0, scouterrors.New(scouterrors.ValidationError, "idea title is required")
	}
	attrs, err := in.Attrs.Encode()
	if err != nil {
		return 0, 0, err
	}

	var (
		ideaID int64
		linked int
	)
	now := s.db.timestamp()

	err = s.db.WithTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO ideas (title, description, score, attrs, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, in.Title, nullString(in.Description), nullFloat(in.Score), nullString(attrs), now, now)
		if err != nil {
			return fmt.Errorf("failed to insert idea: %w", err)
		}
		if ideaID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read idea id: %w", err)
		}

		for _, url := range in.RepoURLs {
			var repoID int64
			err := tx.QueryRow("SELECT id FROM repositories WHERE url = ?", url).Scan(&repoID)
			if err == sql.ErrNoRows {
				s.db.logger.Debug("Skipping idea link to unknown repository", "idea_id", ideaID, "url", url)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to resolve repository: %w", err)
			}
			if _, err := tx.Exec("INSERT INTO idea_links (idea_id, repo_id) VALUES (?, ?)", ideaID, repoID); err != nil {
				return fmt.Errorf("failed to link idea: %w", err)
			}
			linked++
		}
		return nil
	})
	if err != nil {
		return 0, 0, scouterrors.Wrap(scouterrors.StorageError, "failed to save idea", err)
	}

	return ideaID, linked, nil
}

// Get returns the idea with the given id or a NotFound error.
func (s *IdeaStore) Get(id int64) (*Idea, error) {
	var (
		idea             Idea
		desc, attrs      sql.NullString
		created, updated sql.NullString
		score            sql.NullFloat64
	)
	err := s.db.QueryRow(`
		SELECT id, title, description, score, attrs, created_at, updated_at
		FROM ideas WHERE id = ?
	`, id).Scan(&idea.ID, &idea.Title, &desc, &score, &attrs, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, scouterrors.Newf(scouterrors.NotFound, "idea %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idea: %w", err)
	}

	idea.Description = desc.String
	idea.Score = floatPtr(score)
	idea.CreatedAt, _ = parseTime(created.String)
	idea.UpdatedAt, _ = parseTime(updated.String)
	if idea.Attrs, err = payload.Parse(attrs.String); err != nil {
		return nil, err
	}
	return &idea, nil
}

// LinkedURLs returns the repository URLs linked to an idea.
func (s *IdeaStore) LinkedURLs(ideaID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT r.url FROM idea_links l
		JOIN repositories r ON r.id = l.repo_id
		WHERE l.idea_id = ? ORDER BY l.id
	`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query idea links: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan idea link: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
