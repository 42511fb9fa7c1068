package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scout/internal/embedding"
	scouterrors "scout/internal/errors"
	"scout/internal/github"
	"scout/internal/storage"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Save and inspect repositories in the knowledge store",
}

var (
	repoSaveURL    string
	repoSaveNotes  string
	repoSaveSource string
	repoSaveForce  bool
	repoSaveTags   string
	repoListLimit  int
)

var repoSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Fetch a GitHub repository and its README into the store",
	Long: `Fetch repository metadata and README from GitHub, embed the README
(or the description when there is no README), and upsert the result.

A repository visited within the cooldown window is skipped unless --force
is given. Every save appends a visit to the repository's ledger.

Examples:
  scout repo save --url owner/name
  scout repo save --url https://github.com/owner/name --notes "grammar engine" --tags parsing,peg
  scout repo save --url owner/name --force --source review`,
	Args: cobra.NoArgs,
	RunE: runRepoSave,
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored repositories, most recently visited first",
	Args:  cobra.NoArgs,
	RunE:  runRepoList,
}

var repoShowCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Show one repository with its visit history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepoShow,
}

func init() {
	repoSaveCmd.Flags().StringVar(&repoSaveURL, "url", "", "GitHub repository URL or owner/name (required)")
	repoSaveCmd.Flags().StringVar(&repoSaveNotes, "notes", "", "Short notes (default: description and topics)")
	repoSaveCmd.Flags().StringVar(&repoSaveSource, "source", "manual", "Provenance of this discovery")
	repoSaveCmd.Flags().BoolVar(&repoSaveForce, "force", false, "Ignore the cooldown window")
	repoSaveCmd.Flags().StringVar(&repoSaveTags, "tags", "", "Comma-separated tags")
	_ = repoSaveCmd.MarkFlagRequired("url")

	repoListCmd.Flags().IntVar(&repoListLimit, "limit", 50, "Maximum repositories to list")

	repoCmd.AddCommand(repoSaveCmd, repoListCmd, repoShowCmd)
	rootCmd.AddCommand(repoCmd)
}

// repoFetcher is the subset of the GitHub client repo save needs.
type repoFetcher interface {
	FetchRepo(ctx context.Context, owner, name string) (*github.RepoMeta, error)
	FetchReadme(ctx context.Context, owner, name string) (string, string, error)
}

type textEmbedder interface {
	Embed(ctx context.Context, text string) []float32
}

type repoSaveInput struct {
	URL    string
	Notes  string
	Source string
	Force  bool
	Tags   string
}

// saveRepository runs the full save flow against the store.
func saveRepository(ctx context.Context, repos *storage.RepoStore, fetcher repoFetcher, embedder textEmbedder, cooldown time.Duration, in repoSaveInput, now time.Time) (*RepoSaveResponse, error) {
	owner, name, err := github.ParseRepoURL(in.URL)
	if err != nil {
		return nil, err
	}
	url := github.CanonicalURL(owner, name)
	resp := &RepoSaveResponse{URL: url, Owner: owner, Name: name, Timestamp: now.UTC().Format(time.RFC3339Nano)}

	if !in.Force {
		ok, err := repos.CanVisit(url, cooldown)
		if err != nil {
			return nil, err
		}
		if !ok {
			resp.Status = "SKIPPED"
			resp.Reason = "cooldown"
			return resp, nil
		}
	}

	meta, err := fetcher.FetchRepo(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	readmeText, readmeHTML, err := fetcher.FetchReadme(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	summary := meta.Summary()
	notes := in.Notes
	if notes == "" {
		notes = summary
	}

	input := storage.RepoInput{
		URL:         url,
		Owner:       owner,
		Name:        name,
		Description: meta.Description,
		ReadmeText:  readmeText,
		ReadmeHTML:  readmeHTML,
		AgentNotes:  notes,
		Tags:        splitTags(in.Tags),
		Source:      in.Source,
		Reason:      "save_repository",
	}
	if input.Source == "" {
		input.Source = "manual"
	}

	text := strings.TrimSpace(readmeText)
	if text == "" {
		text = strings.TrimSpace(summary)
	}
	if text != "" {
		vec := embedder.Embed(ctx, text)
		input.Embedding = embedding.ToBlob(vec)
		input.EmbeddingDim = len(vec)
	}

	id, created, err := repos.Upsert(input)
	if err != nil {
		return nil, err
	}
	resp.RepoID = id
	resp.EmbeddingDim = input.EmbeddingDim
	resp.Status = "UPDATED"
	if created {
		resp.Status = "CREATED"
	}
	return resp, nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func runRepoSave(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := newContext()
	defer cancel()

	gh, err := a.github()
	if err != nil {
		return err
	}
	embedder, err := a.embedder()
	if err != nil {
		return err
	}

	resp, err := saveRepository(ctx, storage.NewRepoStore(a.db), gh, embedder, a.cfg.CooldownDuration(), repoSaveInput{
		URL:    repoSaveURL,
		Notes:  repoSaveNotes,
		Source: repoSaveSource,
		Force:  repoSaveForce,
		Tags:   repoSaveTags,
	}, time.Now())
	if err != nil {
		return err
	}
	a.logger.Debug("Repository save finished", "url", resp.URL, "status", resp.Status)
	return printResponse(resp)
}

func summarize(r *storage.Repository, visitable bool) RepoSummary {
	return RepoSummary{
		ID:           r.ID,
		URL:          r.URL,
		Owner:        r.Owner,
		Name:         r.Name,
		Description:  r.Description,
		Tags:         r.Tags,
		LastVisited:  r.LastVisited,
		HasEmbedding: r.HasEmbedding(),
		Visitable:    visitable,
	}
}

func runRepoList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	repos := storage.NewRepoStore(a.db)
	total, err := repos.Count()
	if err != nil {
		return err
	}
	list, err := repos.ListRecent(repoListLimit)
	if err != nil {
		return err
	}

	resp := &RepoListResponse{Total: total, Repositories: make([]RepoSummary, 0, len(list))}
	for _, r := range list {
		ok, err := repos.CanVisit(r.URL, a.cfg.CooldownDuration())
		if err != nil {
			return err
		}
		resp.Repositories = append(resp.Repositories, summarize(r, ok))
	}
	return printResponse(resp)
}

func runRepoShow(cmd *cobra.Command, args []string) error {
	owner, name, err := github.ParseRepoURL(args[0])
	if err != nil {
		return err
	}
	url := github.CanonicalURL(owner, name)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	repos := storage.NewRepoStore(a.db)
	r, err := repos.GetByURL(url)
	if err != nil {
		return err
	}
	if r == nil {
		return scouterrors.Newf(scouterrors.NotFound, "repository %s is not stored", url)
	}
	ok, err := repos.CanVisit(url, a.cfg.CooldownDuration())
	if err != nil {
		return err
	}
	visits, err := repos.Visits(r.ID)
	if err != nil {
		return err
	}

	resp := &RepoShowResponse{
		RepoSummary:  summarize(r, ok),
		AgentNotes:   r.AgentNotes,
		DiscoveredAt: r.DiscoveredAt,
		EmbeddingDim: r.EmbeddingDim,
		ReadmeBytes:  len(r.ReadmeText),
		Visits:       make([]VisitInfo, 0, len(visits)),
	}
	for _, v := range visits {
		resp.Visits = append(resp.Visits, VisitInfo{VisitedAt: v.VisitedAt, Source: v.Source, Reason: v.Reason})
	}
	return printResponse(resp)
}
