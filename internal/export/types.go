// Package export writes a run's persisted artifacts to a shareable folder:
// tables as CSV, logs and reports as Markdown, and a manifest.
package export

// Bundle file names
const (
	FileRegistry    = "registry.csv"
	FileScorecard   = "scorecard.csv"
	FileResearchLog = "research_log.md"
	FileReport      = "report.md"
	FileTopicGraph  = "topic_graph.json"
	FileClusters    = "clusters.csv"
	FilePortfolio   = "portfolio.md"
	FileReadme      = "README.md"
	FileManifest    = "manifest.yaml"
)

// Options configures an export
type Options struct {
	// OutDir is the parent of the bundle folder. Defaults to "exports".
	OutDir string
	// Archive also writes <folder>.tar.gz next to the folder.
	Archive bool
}

// Manifest describes a bundle. It is written as manifest.yaml.
type Manifest struct {
	RunID     int64          `yaml:"run_id" json:"runId"`
	RunDate   string         `yaml:"run_date" json:"runDate"`
	Mode      string         `yaml:"mode" json:"mode"`
	CreatedAt string         `yaml:"created_at" json:"createdAt"`
	Generated string         `yaml:"generated" json:"generated"` // ISO 8601 timestamp
	Files     []string       `yaml:"files" json:"files"`
	Counts    ManifestCounts `yaml:"counts" json:"counts"`
}

// ManifestCounts records how many rows each table holds.
type ManifestCounts struct {
	Registry      int `yaml:"registry" json:"registry"`
	Scorecard     int `yaml:"scorecard" json:"scorecard"`
	ResearchLog   int `yaml:"research_log" json:"researchLog"`
	ClusterPoints int `yaml:"cluster_points" json:"clusterPoints"`
}

// Result locates a written bundle.
type Result struct {
	Dir      string   `json:"dir"`
	Archive  string   `json:"archive,omitempty"`
	Manifest Manifest `json:"manifest"`
}
