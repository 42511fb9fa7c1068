// Package frontier grows the knowledge store one step at a time: it
// derives search terms, queries GitHub per language, filters candidates
// and records admitted repositories under a run.
package frontier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"scout/internal/embedding"
	scouterrors "scout/internal/errors"
	"scout/internal/github"
	"scout/internal/payload"
	"scout/internal/storage"
	"scout/internal/terms"
)

// Source is the repository host the loop searches and fetches from.
type Source interface {
	SearchRepositories(ctx context.Context, term, language string, perPage int) ([]*github.RepoMeta, error)
	FetchRepo(ctx context.Context, owner, name string) (*github.RepoMeta, error)
	FetchReadme(ctx context.Context, owner, name string) (string, string, error)
}

// Embedder produces vectors for admitted repositories.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Options controls one step.
type Options struct {
	RunID int64
	// MaxNew caps admissions for the whole step. Zero admits nothing;
	// callers resolve their own default.
	MaxNew int
	// Languages overrides the profile languages when set.
	Languages []string
	// SeedTerms are used verbatim instead of corpus terms when set.
	SeedTerms     []string
	PerPage       int
	TopTerms      int
	MinTermLength int
	DryRun        bool
}

// Discovery is one admitted candidate.
type Discovery struct {
	URL      string `json:"url"`
	Term     string `json:"term"`
	Language string `json:"lang"`
	Stars    int    `json:"stars"`
	Scores   Scores `json:"scores"`
	RepoID   int64  `json:"repoId,omitempty"`
	Created  bool   `json:"created,omitempty"`
}

// StepResult summarizes one step.
type StepResult struct {
	StepID      string      `json:"stepId"`
	Terms       []string    `json:"terms"`
	Discoveries []Discovery `json:"discoveries"`
	DryRun      bool        `json:"dryRun,omitempty"`
}

// Loop runs frontier steps against a knowledge store.
type Loop struct {
	repos    *storage.RepoStore
	runs     *storage.RunStore
	source   Source
	embedder Embedder
	profile  *Profile
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewLoop creates a loop. A nil profile means DefaultProfile.
func NewLoop(db *storage.DB, source Source, embedder Embedder, profile *Profile, cooldown time.Duration, logger *slog.Logger) *Loop {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Loop{
		repos:    storage.NewRepoStore(db),
		runs:     storage.NewRunStore(db),
		source:   source,
		embedder: embedder,
		profile:  profile,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// Step performs one expansion pass. Writes commit as they happen, so an
// error part-way leaves earlier admissions in place.
func (l *Loop) Step(ctx context.Context, opts Options) (*StepResult, error) {
	if opts.MaxNew < 0 {
		return nil, scouterrors.Newf(scouterrors.ValidationError, "max_new must not be negative, got %d", opts.MaxNew)
	}
	l.applyDefaults(&opts)
	if !opts.DryRun || opts.RunID > 0 {
		if _, err := l.runs.Get(opts.RunID); err != nil {
			return nil, err
		}
	}

	stepID := uuid.New().String()
	logger := l.logger.With("step", stepID, "run_id", opts.RunID)

	result := &StepResult{
		StepID:      stepID,
		Terms:       l.terms(opts, logger),
		Discoveries: []Discovery{},
		DryRun:      opts.DryRun,
	}
	logger.Info("Frontier step started", "terms", len(result.Terms), "languages", strings.Join(opts.Languages, ","), "max_new", opts.MaxNew)

	for _, term := range result.Terms {
		if len(result.Discoveries) >= opts.MaxNew {
			break
		}
		for _, lang := range opts.Languages {
			if len(result.Discoveries) >= opts.MaxNew {
				break
			}
			candidates, err := l.source.SearchRepositories(ctx, term, lang, opts.PerPage)
			if err != nil {
				logger.Warn("Search failed", "term", term, "lang", lang, "error", err)
				continue
			}
			for _, cand := range candidates {
				if len(result.Discoveries) >= opts.MaxNew {
					break
				}
				d, ok, err := l.consider(ctx, cand, term, lang, stepID, opts, logger)
				if err != nil {
					return result, err
				}
				if ok {
					result.Discoveries = append(result.Discoveries, *d)
				}
			}
		}
	}

	logger.Info("Frontier step finished", "admitted", len(result.Discoveries), "dry_run", opts.DryRun)
	return result, nil
}

func (l *Loop) applyDefaults(opts *Options) {
	if len(opts.Languages) == 0 {
		opts.Languages = l.profile.Languages
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	if opts.TopTerms <= 0 {
		opts.TopTerms = 20
	}
	if opts.MinTermLength <= 0 {
		opts.MinTermLength = 4
	}
}

// terms returns the seed terms, else IDF-ranked corpus terms. Extraction
// problems yield no terms.
func (l *Loop) terms(opts Options, logger *slog.Logger) []string {
	if len(opts.SeedTerms) > 0 {
		return opts.SeedTerms
	}
	repos, err := l.repos.List()
	if err != nil {
		logger.Warn("Could not read corpus for term extraction", "error", err)
		return []string{}
	}
	docs := make([]string, len(repos))
	for i, r := range repos {
		docs[i] = r.ReadmeText + " \n" + r.Description
	}
	out, err := terms.ExtractTerms(docs, opts.TopTerms, opts.MinTermLength)
	if err != nil {
		logger.Warn("Term extraction failed", "error", err)
		return []string{}
	}
	return out
}

// consider runs the admission filter for one candidate and, unless dry
// running, records it. The returned error is reserved for store failures.
func (l *Loop) consider(ctx context.Context, cand *github.RepoMeta, term, lang, stepID string, opts Options, logger *slog.Logger) (*Discovery, bool, error) {
	url := cand.URL
	if url == "" {
		return nil, false, nil
	}
	if !l.profile.Relevant(cand.Description, cand.Topics) {
		logger.Debug("Rejected: off-domain", "url", url)
		return nil, false, nil
	}
	ok, err := l.repos.CanVisit(url, l.cooldown)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		logger.Debug("Rejected: cooldown", "url", url)
		return nil, false, nil
	}

	owner, name, err := github.ParseRepoURL(url)
	if err != nil {
		logger.Debug("Rejected: unparseable URL", "url", url, "error", err)
		return nil, false, nil
	}
	meta, err := l.source.FetchRepo(ctx, owner, name)
	if err != nil {
		logger.Warn("Fetch failed", "url", url, "error", err)
		return nil, false, nil
	}
	readme, readmeHTML, err := l.source.FetchReadme(ctx, owner, name)
	if err != nil {
		logger.Warn("README fetch failed", "url", url, "error", err)
		return nil, false, nil
	}

	d := &Discovery{
		URL:      url,
		Term:     term,
		Language: lang,
		Stars:    meta.Stars,
		Scores: Scores{
			Novelty:   Novelty(meta.PushedAt, l.now().UTC().Year()),
			Maturity:  Maturity(meta.Stars),
			Weirdness: l.profile.Weirdness(cand.Description),
		},
	}
	if opts.DryRun {
		logger.Info("Would admit", "url", url, "term", term, "lang", lang)
		return d, true, nil
	}

	text := strings.TrimSpace(readme)
	if text == "" {
		text = strings.TrimSpace(meta.Description)
	}
	var (
		blob []byte
		dim  int
	)
	if text != "" {
		vec := l.embedder.Embed(ctx, text)
		blob, dim = embedding.ToBlob(vec), len(vec)
	}

	d.RepoID, d.Created, err = l.repos.Upsert(storage.RepoInput{
		URL:          url,
		Owner:        owner,
		Name:         name,
		Description:  meta.Description,
		ReadmeText:   readme,
		ReadmeHTML:   readmeHTML,
		AgentNotes:   strings.TrimSpace(meta.Description),
		Embedding:    blob,
		EmbeddingDim: dim,
		Source:       "frontier",
		Reason:       "term=" + term,
	})
	if err != nil {
		return nil, false, err
	}

	novelty, maturity, weirdness := float64(d.Scores.Novelty), float64(d.Scores.Maturity), float64(d.Scores.Weirdness)
	_, err = l.runs.AddRegistryItem(opts.RunID, storage.RegistryItem{
		RepoURL:   url,
		Name:      meta.FullName,
		Link:      url,
		Novelty:   &novelty,
		Maturity:  &maturity,
		Weirdness: &weirdness,
		Notes:     meta.Description,
		Meta: payload.Payload{
			"term":  term,
			"lang":  lang,
			"stars": int64(meta.Stars),
			"step":  stepID,
		},
	})
	if err != nil {
		return nil, false, err
	}

	if _, err := l.runs.AppendResearchLog(opts.RunID, ResearchEntry(term, url, lang, meta.Stars), ""); err != nil {
		return nil, false, err
	}

	logger.Info("Admitted repository", "url", url, "term", term, "lang", lang, "stars", meta.Stars, "created", d.Created)
	return d, true, nil
}

// ResearchEntry is the research log justification for one admission.
func ResearchEntry(term, url, lang string, stars int) string {
	return fmt.Sprintf(
		"Because TF-IDF/high-interest term '%s' yielded %s (lang=%s, stars=%d), persisted it and will explore adjacent terms from its README next.",
		term, url, lang, stars,
	)
}
