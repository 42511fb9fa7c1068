package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	scouterrors "scout/internal/errors"
	"scout/internal/slogutil"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		in        string
		owner     string
		name      string
		wantError bool
	}{
		{"https://github.com/octo/hello", "octo", "hello", false},
		{"https://github.com/octo/hello/", "octo", "hello", false},
		{"https://github.com/octo/hello.git", "octo", "hello", false},
		{"https://www.github.com/octo/hello/tree/main", "octo", "hello", false},
		{"  octo/hello  ", "octo", "hello", false},
		{"github.com/octo/hello", "octo", "hello", false},
		{"https://gitlab.com/octo/hello", "", "", true},
		{"octo", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, name, err := ParseRepoURL(tt.in)
			if tt.wantError {
				if !scouterrors.Is(err, scouterrors.ValidationError) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if owner != tt.owner || name != tt.name {
				t.Errorf("ParseRepoURL(%q) = %s/%s, want %s/%s", tt.in, owner, name, tt.owner, tt.name)
			}
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	if got := CanonicalURL("octo", "hello"); got != "https://github.com/octo/hello" {
		t.Errorf("CanonicalURL = %s", got)
	}
}

func TestRepoMetaSummary(t *testing.T) {
	tests := []struct {
		meta RepoMeta
		want string
	}{
		{RepoMeta{}, ""},
		{RepoMeta{Description: "A parser"}, "A parser"},
		{RepoMeta{Topics: []string{"peg", "grammar"}}, "topics: peg, grammar"},
		{RepoMeta{Description: "A parser", Topics: []string{"peg"}}, "A parser; topics: peg"},
	}
	for _, tt := range tests {
		if got := tt.meta.Summary(); got != tt.want {
			t.Errorf("Summary() = %q, want %q", got, tt.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Token: "tok"}, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchRepo(t *testing.T) {
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/repos/octo/hello" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"name":             "hello",
			"full_name":        "octo/hello",
			"html_url":         "https://github.com/octo/hello",
			"description":      "Earley parser",
			"topics":           []string{"grammar"},
			"language":         "Rust",
			"stargazers_count": 512,
			"pushed_at":        "2025-06-01T10:00:00Z",
			"owner":            map[string]any{"login": "octo"},
		})
	}))

	meta, err := c.FetchRepo(context.Background(), "octo", "hello")
	if err != nil {
		t.Fatalf("FetchRepo failed: %v", err)
	}
	if meta.FullName != "octo/hello" || meta.Stars != 512 || meta.Owner != "octo" {
		t.Errorf("unexpected meta: %+v", meta)
	}
	if meta.PushedAt != "2025-06-01T10:00:00Z" {
		t.Errorf("PushedAt = %q", meta.PushedAt)
	}
	if auth != "Bearer tok" {
		t.Errorf("Authorization = %q, want bearer token", auth)
	}
}

func TestFetchRepo_ErrorIsTransient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	_, err := c.FetchRepo(context.Background(), "octo", "hello")
	if !scouterrors.Is(err, scouterrors.TransientFetch) {
		t.Errorf("expected transient fetch error, got %v", err)
	}
}

func TestFetchReadme(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octo/hello/readme":
			writeJSON(w, map[string]any{
				"type":     "file",
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString([]byte("# Hello\n\nA *grammar* toolkit.\n")),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"message": "Not Found"})
		}
	}))

	text, html, err := c.FetchReadme(context.Background(), "octo", "hello")
	if err != nil {
		t.Fatalf("FetchReadme failed: %v", err)
	}
	if !strings.HasPrefix(text, "# Hello") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(html, "<h1>Hello</h1>") || !strings.Contains(html, "<em>grammar</em>") {
		t.Errorf("html = %q", html)
	}

	text, html, err = c.FetchReadme(context.Background(), "octo", "missing")
	if err != nil || text != "" || html != "" {
		t.Errorf("missing README = (%q, %q, %v), want empty and no error", text, html, err)
	}
}

func TestSearchRepositories(t *testing.T) {
	var query, sort, order, perPage string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/repositories" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		query, sort, order, perPage = q.Get("q"), q.Get("sort"), q.Get("order"), q.Get("per_page")
		writeJSON(w, map[string]any{
			"total_count": 2,
			"items": []any{
				map[string]any{"full_name": "a/one", "html_url": "https://github.com/a/one", "stargazers_count": 10},
				map[string]any{"full_name": "b/two", "html_url": "https://github.com/b/two", "stargazers_count": 5},
			},
		})
	}))

	got, err := c.SearchRepositories(context.Background(), "earley parser", "Rust", 10)
	if err != nil {
		t.Fatalf("SearchRepositories failed: %v", err)
	}
	if len(got) != 2 || got[0].URL != "https://github.com/a/one" {
		t.Errorf("unexpected results: %+v", got)
	}
	if query != "earley parser language:Rust" || sort != "stars" || order != "desc" || perPage != "10" {
		t.Errorf("request q=%q sort=%q order=%q per_page=%q", query, sort, order, perPage)
	}
}
