package main

import (
	"encoding/json"
	"time"

	"scout/internal/analysis"
	"scout/internal/config"
	"scout/internal/export"
	"scout/internal/frontier"
	"scout/internal/payload"
	"scout/internal/version"
)

// AckResponse acknowledges a single write. It serializes as
// {"status": ..., "<key>": id} plus any extra fields.
type AckResponse struct {
	Status string
	Key    string
	ID     int64
	Extra  map[string]interface{}
}

// MarshalJSON flattens the acknowledgement into one object.
func (a *AckResponse) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"status": a.Status, a.Key: a.ID}
	for k, v := range a.Extra {
		m[k] = v
	}
	return json.Marshal(m)
}

// RepoSaveResponse is printed by repo save.
type RepoSaveResponse struct {
	Status       string `json:"status"` // CREATED, UPDATED or SKIPPED
	RepoID       int64  `json:"repo_id,omitempty"`
	URL          string `json:"url"`
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	Reason       string `json:"reason,omitempty"`
	EmbeddingDim int    `json:"embedding_dim,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// RepoSummary is one row of repo list.
type RepoSummary struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	LastVisited  time.Time `json:"last_visited"`
	HasEmbedding bool      `json:"has_embedding"`
	Visitable    bool      `json:"visitable"`
}

// RepoListResponse is printed by repo list.
type RepoListResponse struct {
	Total        int           `json:"total"`
	Repositories []RepoSummary `json:"repositories"`
}

// VisitInfo is one ledger entry in repo show.
type VisitInfo struct {
	VisitedAt time.Time `json:"visited_at"`
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// RepoShowResponse is printed by repo show.
type RepoShowResponse struct {
	RepoSummary
	AgentNotes   string      `json:"agent_notes,omitempty"`
	DiscoveredAt time.Time   `json:"discovered_at"`
	EmbeddingDim int         `json:"embedding_dim,omitempty"`
	ReadmeBytes  int         `json:"readme_bytes"`
	Visits       []VisitInfo `json:"visits"`
}

// IdeaShowResponse is printed by idea show.
type IdeaShowResponse struct {
	IdeaID      int64           `json:"idea_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Score       *float64        `json:"score,omitempty"`
	Attrs       payload.Payload `json:"attrs,omitempty"`
	Repos       []string        `json:"repos"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RunSummary is one row of run list.
type RunSummary struct {
	ID        int64     `json:"id"`
	RunDate   string    `json:"run_date"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

// RunListResponse is printed by run list.
type RunListResponse struct {
	Runs []RunSummary `json:"runs"`
}

// AnalyzeResponse is printed by analyze.
type AnalyzeResponse struct {
	Status string `json:"status"`
	*analysis.Result
}

// FrontierResponse is printed by frontier.
type FrontierResponse struct {
	Status string `json:"status"`
	*frontier.StepResult
}

// ExportResponse is printed by run export.
type ExportResponse struct {
	Status string `json:"status"`
	*export.Result
}

// ConfigShowResponse is printed by config show.
type ConfigShowResponse struct {
	Config *config.Config `json:"config"`
}

// EnvVarInfo is one row of config env.
type EnvVarInfo struct {
	Name string `json:"name"`
	Set  bool   `json:"set"`
}

// ConfigEnvResponse is printed by config env.
type ConfigEnvResponse struct {
	Variables []EnvVarInfo `json:"variables"`
}

// VersionResponse is printed by version.
type VersionResponse struct {
	version.Build
}
