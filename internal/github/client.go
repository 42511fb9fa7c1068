// Package github is scout's collaborator for repository metadata, README
// content and repository search.
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v60/github"
	"github.com/yuin/goldmark"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	scouterrors "scout/internal/errors"
)

// Options configures a Client.
type Options struct {
	Token string
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL string
	Timeout time.Duration
	// SearchPerMinute limits search requests. Zero disables the limit.
	SearchPerMinute int
}

// RepoMeta is the subset of repository metadata scout records.
type RepoMeta struct {
	URL         string
	Owner       string
	Name        string
	FullName    string
	Description string
	Topics      []string
	Language    string
	Stars       int
	// PushedAt is the RFC 3339 text of the last push, empty when unknown.
	PushedAt string
}

// Summary joins the description and topics into a one-line note.
func (m *RepoMeta) Summary() string {
	parts := make([]string, 0, 2)
	if d := strings.TrimSpace(m.Description); d != "" {
		parts = append(parts, d)
	}
	if len(m.Topics) > 0 {
		parts = append(parts, "topics: "+strings.Join(m.Topics, ", "))
	}
	return strings.Join(parts, "; ")
}

// Client wraps the GitHub REST API.
type Client struct {
	api     *gh.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	md      goldmark.Markdown
}

// NewClient creates a client. Requests carry the token when one is set.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	var httpClient *http.Client
	if opts.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = opts.Timeout

	api := gh.NewClient(httpClient)
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, scouterrors.Wrap(scouterrors.ValidationError, "invalid GitHub base URL", err)
		}
		api.BaseURL = u
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.SearchPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.SearchPerMinute)), 1)
	}

	return &Client{
		api:     api,
		limiter: limiter,
		logger:  logger,
		md:      goldmark.New(),
	}, nil
}

// FetchRepo returns metadata for owner/name.
func (c *Client) FetchRepo(ctx context.Context, owner, name string) (*RepoMeta, error) {
	repo, _, err := c.api.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, transient(fmt.Sprintf("fetch %s/%s", owner, name), err)
	}
	return toMeta(repo), nil
}

// FetchReadme returns the README as text and rendered HTML. A repository
// without a README yields empty strings and no error.
func (c *Client) FetchReadme(ctx context.Context, owner, name string) (string, string, error) {
	content, _, err := c.api.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		var respErr *gh.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			return "", "", nil
		}
		return "", "", transient(fmt.Sprintf("fetch README of %s/%s", owner, name), err)
	}

	text, err := content.GetContent()
	if err != nil {
		c.logger.Debug("Undecodable README", "repo", owner+"/"+name, "error", err)
		return "", "", nil
	}
	if text == "" {
		return "", "", nil
	}

	var buf bytes.Buffer
	if err := c.md.Convert([]byte(text), &buf); err != nil {
		c.logger.Debug("README conversion failed", "repo", owner+"/"+name, "error", err)
		return text, "", nil
	}
	return text, buf.String(), nil
}

// SearchRepositories returns up to perPage repositories matching term,
// optionally restricted to a language, most-starred first.
func (c *Client) SearchRepositories(ctx context.Context, term, language string, perPage int) ([]*RepoMeta, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transient("search rate limiter", err)
	}

	query := term
	if language != "" {
		query += " language:" + language
	}
	res, _, err := c.api.Search.Repositories(ctx, query, &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, transient("search "+query, err)
	}

	out := make([]*RepoMeta, 0, len(res.Repositories))
	for _, r := range res.Repositories {
		out = append(out, toMeta(r))
	}
	c.logger.Debug("Search completed", "query", query, "results", len(out))
	return out, nil
}

func toMeta(r *gh.Repository) *RepoMeta {
	m := &RepoMeta{
		URL:         r.GetHTMLURL(),
		Owner:       r.GetOwner().GetLogin(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Topics:      r.Topics,
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
	}
	if r.PushedAt != nil {
		m.PushedAt = r.PushedAt.Time.UTC().Format(time.RFC3339)
	}
	return m
}

func transient(what string, err error) error {
	return scouterrors.Wrap(scouterrors.TransientFetch, what+" failed", err)
}
