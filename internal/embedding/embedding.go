// Package embedding maps text to fixed-width float32 vectors. A Service
// tries an ordered list of backends and always ends with the hashing
// fallback, so Embed never fails.
package embedding

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"scout/internal/config"
	scouterrors "scout/internal/errors"
)

// DefaultDim is the nominal embedding width.
const DefaultDim = 768

// Mode names accepted by NewFromConfig.
const (
	ModeAuto   = "auto"
	ModeOllama = "ollama"
	ModeOpenAI = "openai"
	ModeHash   = "hash"
)

// Backend produces embeddings for one model provider.
type Backend interface {
	Name() string
	// Load prepares the backend. It is called at most once per Service.
	Load(ctx context.Context) error
	Embed(ctx context.Context, text string) ([]float32, error)
}

// handle wraps a backend with its load-once state.
type handle struct {
	backend Backend
	once    sync.Once
	loadErr error
}

func (h *handle) load(ctx context.Context) error {
	h.once.Do(func() {
		h.loadErr = h.backend.Load(ctx)
	})
	return h.loadErr
}

// Service embeds text through the first backend that answers with a vector
// of the nominal width.
type Service struct {
	dim      int
	handles  []*handle
	fallback *HashingBackend
	logger   *slog.Logger
}

// New builds a Service over backends in preference order. A hashing
// backend of width dim is appended unless the list already ends with one.
func New(dim int, logger *slog.Logger, backends ...Backend) *Service {
	if dim <= 0 {
		dim = DefaultDim
	}
	s := &Service{dim: dim, logger: logger}
	for _, b := range backends {
		if hb, ok := b.(*HashingBackend); ok {
			s.fallback = hb
			continue
		}
		s.handles = append(s.handles, &handle{backend: b})
	}
	if s.fallback == nil {
		s.fallback = NewHashingBackend(dim)
	}
	return s
}

// NewFromConfig builds the backend list for the configured mode.
func NewFromConfig(cfg config.EmbedderConfig, timeout time.Duration, logger *slog.Logger) (*Service, error) {
	dim := cfg.Dim
	if dim <= 0 {
		dim = DefaultDim
	}

	build := func(name string) (Backend, error) {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ModeOllama:
			return NewOllamaBackend(cfg.Ollama.Host, cfg.Ollama.Model, timeout), nil
		case ModeOpenAI:
			return NewOpenAIBackend(cfg.OpenAI.APIKey, cfg.OpenAI.Model, dim, timeout), nil
		case ModeHash:
			return NewHashingBackend(dim), nil
		default:
			return nil, scouterrors.Newf(scouterrors.ValidationError, "unknown embedding backend %q", name)
		}
	}

	var names []string
	switch mode := strings.ToLower(strings.TrimSpace(cfg.Mode)); mode {
	case "", ModeAuto:
		names = cfg.Backends
	case ModeOllama, ModeOpenAI, ModeHash:
		names = []string{mode}
	default:
		return nil, scouterrors.Newf(scouterrors.ValidationError, "unknown embedder mode %q", cfg.Mode)
	}

	backends := make([]Backend, 0, len(names))
	for _, name := range names {
		b, err := build(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return New(dim, logger, backends...), nil
}

// Dim returns the nominal vector width.
func (s *Service) Dim() int {
	return s.dim
}

// Backends lists backend names in the order they are tried.
func (s *Service) Backends() []string {
	names := make([]string, 0, len(s.handles)+1)
	for _, h := range s.handles {
		names = append(names, h.backend.Name())
	}
	return append(names, s.fallback.Name())
}

// Embed returns a vector of width Dim for text. Blank text maps to the zero
// vector. Backend failures are logged and the next backend is tried.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return make([]float32, s.dim)
	}

	for _, h := range s.handles {
		name := h.backend.Name()
		if err := h.load(ctx); err != nil {
			s.logger.Debug("Embedding backend unavailable", "backend", name, "error", err)
			continue
		}
		vec, err := h.backend.Embed(ctx, text)
		if err != nil {
			s.logger.Debug("Embedding backend failed", "backend", name, "error", err)
			continue
		}
		if len(vec) != s.dim {
			s.logger.Debug("Embedding backend returned wrong width", "backend", name, "got", len(vec), "want", s.dim)
			continue
		}
		return vec
	}

	vec, _ := s.fallback.Embed(ctx, text)
	return vec
}

// unavailable wraps a backend failure with its stable code.
func unavailable(backend string, cause error) error {
	return scouterrors.Wrap(scouterrors.EmbeddingBackendUnavailable, backend+" backend unavailable", cause)
}
