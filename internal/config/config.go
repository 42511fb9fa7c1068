package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete scout configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	DBPath  string `json:"dbPath" mapstructure:"dbPath"`

	Cooldown CooldownConfig `json:"cooldown" mapstructure:"cooldown"`
	Embedder EmbedderConfig `json:"embedder" mapstructure:"embedder"`
	GitHub   GitHubConfig   `json:"github" mapstructure:"github"`
	Frontier FrontierConfig `json:"frontier" mapstructure:"frontier"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Export   ExportConfig   `json:"export" mapstructure:"export"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// CooldownConfig controls how often a repository may be re-surfaced
type CooldownConfig struct {
	Days int `json:"days" mapstructure:"days"`
}

// EmbedderConfig selects and configures embedding backends
type EmbedderConfig struct {
	// Mode is one of auto, ollama, openai, hash.
	Mode string `json:"mode" mapstructure:"mode"`
	Dim  int    `json:"dim" mapstructure:"dim"`
	// Backends is the preference order used in auto mode. The hashing
	// fallback is always appended.
	Backends []string     `json:"backends" mapstructure:"backends"`
	Ollama   OllamaConfig `json:"ollama" mapstructure:"ollama"`
	OpenAI   OpenAIConfig `json:"openai" mapstructure:"openai"`
}

// OllamaConfig configures the local model backend
type OllamaConfig struct {
	Host  string `json:"host,omitempty" mapstructure:"host"`
	Model string `json:"model" mapstructure:"model"`
}

// OpenAIConfig configures the hosted model backend
type OpenAIConfig struct {
	Model  string `json:"model" mapstructure:"model"`
	APIKey string `json:"-" mapstructure:"apiKey"`
}

// GitHubConfig configures the repository metadata collaborator
type GitHubConfig struct {
	Token           string `json:"-" mapstructure:"token"`
	BaseURL         string `json:"baseUrl,omitempty" mapstructure:"baseUrl"`
	TimeoutSeconds  int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	SearchPerMinute int    `json:"searchPerMinute" mapstructure:"searchPerMinute"`
}

// FrontierConfig contains defaults for the expansion loop
type FrontierConfig struct {
	MaxNew        int      `json:"maxNew" mapstructure:"maxNew"`
	Languages     []string `json:"languages" mapstructure:"languages"`
	PerPage       int      `json:"perPage" mapstructure:"perPage"`
	TopTerms      int      `json:"topTerms" mapstructure:"topTerms"`
	MinTermLength int      `json:"minTermLength" mapstructure:"minTermLength"`
	ProfilePath   string   `json:"profilePath" mapstructure:"profilePath"`
}

// AnalysisConfig contains analysis output settings
type AnalysisConfig struct {
	OutDir string `json:"outDir" mapstructure:"outDir"`
}

// ExportConfig contains export bundle settings
type ExportConfig struct {
	OutDir string `json:"outDir" mapstructure:"outDir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"` // human or json
	Level  string `json:"level" mapstructure:"level"`
	// File, when set, receives a copy of every log line with rotation.
	File       string `json:"file,omitempty" mapstructure:"file"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups,omitempty" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		DBPath:  filepath.Join("data", "scout.db"),
		Cooldown: CooldownConfig{
			Days: 30,
		},
		Embedder: EmbedderConfig{
			Mode:     "auto",
			Dim:      768,
			Backends: []string{"ollama"},
			Ollama: OllamaConfig{
				Model: "nomic-embed-text",
			},
			OpenAI: OpenAIConfig{
				Model: "text-embedding-3-small",
			},
		},
		GitHub: GitHubConfig{
			TimeoutSeconds:  20,
			SearchPerMinute: 30,
		},
		Frontier: FrontierConfig{
			MaxNew:        3,
			Languages:     []string{"Python", "TypeScript", "Rust"},
			PerPage:       10,
			TopTerms:      20,
			MinTermLength: 4,
			ProfilePath:   filepath.Join(".scout", "frontier.toml"),
		},
		Analysis: AnalysisConfig{
			OutDir: "reports",
		},
		Export: ExportConfig{
			OutDir: "exports",
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"dbPath":                 {"SCOUT_DB_PATH"},
	"cooldown.days":          {"SCOUT_COOLDOWN_DAYS"},
	"embedder.mode":          {"SCOUT_EMBEDDER"},
	"embedder.ollama.model":  {"SCOUT_EMBED_MODEL"},
	"embedder.ollama.host":   {"OLLAMA_HOST"},
	"embedder.openai.apiKey": {"OPENAI_API_KEY"},
	"github.token":           {"GITHUB_TOKEN", "GH_TOKEN"},
	"github.baseUrl":         {"SCOUT_GITHUB_API"},
	"frontier.languages":     {"SCOUT_LANGUAGES"},
	"logging.level":          {"SCOUT_LOG_LEVEL"},
	"logging.file":           {"SCOUT_LOG_FILE"},
	"analysis.outDir":        {"SCOUT_REPORTS_DIR"},
	"export.outDir":          {"SCOUT_EXPORTS_DIR"},
	"github.searchPerMinute": {"SCOUT_SEARCH_PER_MINUTE"},
	"embedder.openai.model":  {"SCOUT_OPENAI_MODEL"},
	"frontier.maxNew":        {"SCOUT_FRONTIER_MAX_NEW"},
	"github.timeoutSeconds":  {"SCOUT_HTTP_TIMEOUT"},
	"frontier.profilePath":   {"SCOUT_FRONTIER_PROFILE"},
	"embedder.backends":      {"SCOUT_EMBED_BACKENDS"},
	"logging.format":         {"SCOUT_LOG_FORMAT"},
	"frontier.minTermLength": {"SCOUT_MIN_TERM_LENGTH"},
	"frontier.topTerms":      {"SCOUT_TOP_TERMS"},
	"frontier.perPage":       {"SCOUT_PER_PAGE"},
	"embedder.dim":           {"SCOUT_EMBED_DIM"},
	"logging.maxSize":        {"SCOUT_LOG_MAX_SIZE"},
	"logging.maxBackups":     {"SCOUT_LOG_MAX_BACKUPS"},
}

// GetSupportedEnvVars returns every environment variable LoadConfig
// honors, sorted.
func GetSupportedEnvVars() []string {
	var vars []string
	for _, names := range envBindings {
		vars = append(vars, names...)
	}
	sort.Strings(vars)
	return vars
}

// LoadConfig loads configuration from .scout/config.json under root, then
// applies environment overrides. A missing file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".scout"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Frontier.Languages = splitList(cfg.Frontier.Languages)
	cfg.Embedder.Backends = splitList(cfg.Embedder.Backends)

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("dbPath", d.DBPath)
	v.SetDefault("cooldown.days", d.Cooldown.Days)
	v.SetDefault("embedder.mode", d.Embedder.Mode)
	v.SetDefault("embedder.dim", d.Embedder.Dim)
	v.SetDefault("embedder.backends", d.Embedder.Backends)
	v.SetDefault("embedder.ollama.host", d.Embedder.Ollama.Host)
	v.SetDefault("embedder.ollama.model", d.Embedder.Ollama.Model)
	v.SetDefault("embedder.openai.model", d.Embedder.OpenAI.Model)
	v.SetDefault("embedder.openai.apiKey", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.baseUrl", d.GitHub.BaseURL)
	v.SetDefault("github.timeoutSeconds", d.GitHub.TimeoutSeconds)
	v.SetDefault("github.searchPerMinute", d.GitHub.SearchPerMinute)
	v.SetDefault("frontier.maxNew", d.Frontier.MaxNew)
	v.SetDefault("frontier.languages", d.Frontier.Languages)
	v.SetDefault("frontier.perPage", d.Frontier.PerPage)
	v.SetDefault("frontier.topTerms", d.Frontier.TopTerms)
	v.SetDefault("frontier.minTermLength", d.Frontier.MinTermLength)
	v.SetDefault("frontier.profilePath", d.Frontier.ProfilePath)
	v.SetDefault("analysis.outDir", d.Analysis.OutDir)
	v.SetDefault("export.outDir", d.Export.OutDir)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// splitList flattens comma-joined entries, which is how list values
// arrive from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Save writes the configuration to .scout/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".scout")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// CooldownDuration returns the cooldown window as a duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown.Days) * 24 * time.Hour
}

// HTTPTimeout returns the network timeout for collaborator requests.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.GitHub.TimeoutSeconds) * time.Second
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.DBPath == "" {
		return &ConfigError{Field: "dbPath", Message: "must not be empty"}
	}
	if c.Cooldown.Days < 0 {
		return &ConfigError{Field: "cooldown.days", Message: "must not be negative"}
	}
	switch c.Embedder.Mode {
	case "auto", "ollama", "openai", "hash":
	default:
		return &ConfigError{Field: "embedder.mode", Message: "must be one of auto, ollama, openai, hash"}
	}
	if c.Embedder.Dim <= 0 {
		return &ConfigError{Field: "embedder.dim", Message: "must be positive"}
	}
	for _, b := range c.Embedder.Backends {
		if b != "ollama" && b != "openai" {
			return &ConfigError{Field: "embedder.backends", Message: "unknown backend " + b}
		}
	}
	if c.Frontier.MaxNew < 0 {
		return &ConfigError{Field: "frontier.maxNew", Message: "must not be negative"}
	}
	if c.Frontier.PerPage <= 0 || c.Frontier.PerPage > 100 {
		return &ConfigError{Field: "frontier.perPage", Message: "must be between 1 and 100"}
	}
	if c.GitHub.TimeoutSeconds <= 0 {
		return &ConfigError{Field: "github.timeoutSeconds", Message: "must be positive"}
	}
	if c.Logging.Format != "human" && c.Logging.Format != "json" {
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
