package main

import (
	"reflect"
	"strings"
	"testing"

	scouterrors "scout/internal/errors"
	"scout/internal/payload"
	"scout/internal/storage"
)

func TestLoadIdea(t *testing.T) {
	db := setupTestDB(t)
	if _, _, err := storage.NewRepoStore(db).Upsert(storage.RepoInput{URL: "https://github.com/a/b", Source: "manual"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	ideas := storage.NewIdeaStore(db)
	score := 8.5
	id, _, err := ideas.Save(storage.IdeaInput{
		Title:    "Grammar-constrained agents",
		Score:    &score,
		Attrs:    payload.Payload{"effort": "M"},
		RepoURLs: []string{"https://github.com/a/b", "https://github.com/missing/repo"},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	resp, err := loadIdea(ideas, id)
	if err != nil {
		t.Fatalf("loadIdea failed: %v", err)
	}
	if resp.Title != "Grammar-constrained agents" || resp.Score == nil || *resp.Score != 8.5 {
		t.Errorf("unexpected idea: %+v", resp)
	}
	if !reflect.DeepEqual(resp.Repos, []string{"https://github.com/a/b"}) {
		t.Errorf("repos = %v", resp.Repos)
	}

	human, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse failed: %v", err)
	}
	for _, want := range []string{"Grammar-constrained agents", "effort:   M", "Linked:   1 repositories", "  - https://github.com/a/b"} {
		if !strings.Contains(human, want) {
			t.Errorf("human output missing %q:\n%s", want, human)
		}
	}
}

func TestLoadIdea_Unlinked(t *testing.T) {
	db := setupTestDB(t)
	ideas := storage.NewIdeaStore(db)
	id, _, err := ideas.Save(storage.IdeaInput{Title: "loose"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	resp, err := loadIdea(ideas, id)
	if err != nil {
		t.Fatalf("loadIdea failed: %v", err)
	}
	js, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("FormatResponse failed: %v", err)
	}
	if !strings.Contains(js, `"repos":[]`) {
		t.Errorf("JSON should carry an empty repos list: %s", js)
	}
}

func TestLoadIdea_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := loadIdea(storage.NewIdeaStore(db), 99)
	if !scouterrors.Is(err, scouterrors.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}
