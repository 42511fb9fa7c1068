package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"scout/internal/frontier"
	"scout/internal/version"
)

func init() {
	color.NoColor = true
}

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != `{"key":"value","num":42}` {
		t.Errorf("JSON output = %s", result)
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestAckResponse_JSON(t *testing.T) {
	tests := []struct {
		name string
		ack  *AckResponse
		want string
	}{
		{
			name: "plain",
			ack:  &AckResponse{Status: "CREATED", Key: "run_id", ID: 7},
			want: `{"run_id":7,"status":"CREATED"}`,
		},
		{
			name: "extra fields",
			ack:  &AckResponse{Status: "CREATED", Key: "idea_id", ID: 2, Extra: map[string]interface{}{"linked": 1, "title": "t"}},
			want: `{"idea_id":2,"linked":1,"status":"CREATED","title":"t"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatResponse(tt.ack, FormatJSON)
			if err != nil {
				t.Fatalf("FormatResponse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatHuman_Ack(t *testing.T) {
	got, err := FormatResponse(&AckResponse{Status: "APPENDED", Key: "log_id", ID: 3}, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse failed: %v", err)
	}
	if got != "APPENDED log_id=3" {
		t.Errorf("got %q", got)
	}
}

func TestFormatHuman_RepoSave(t *testing.T) {
	tests := []struct {
		name string
		resp *RepoSaveResponse
		want string
	}{
		{"created", &RepoSaveResponse{Status: "CREATED", RepoID: 4, URL: "https://github.com/a/b", EmbeddingDim: 768}, "CREATED #4 https://github.com/a/b [embedded 768d]"},
		{"skipped", &RepoSaveResponse{Status: "SKIPPED", URL: "https://github.com/a/b", Reason: "cooldown"}, "SKIPPED https://github.com/a/b (cooldown)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatResponse(tt.resp, FormatHuman)
			if err != nil {
				t.Fatalf("FormatResponse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHuman_Tables(t *testing.T) {
	repoList := &RepoListResponse{Total: 1, Repositories: []RepoSummary{{
		ID: 1, Owner: "a", Name: "b", LastVisited: time.Now().Add(-2 * time.Hour), HasEmbedding: true,
	}}}
	got, err := FormatResponse(repoList, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse failed: %v", err)
	}
	for _, want := range []string{"a/b", "2 hours ago", "1 of 1 repositories"} {
		if !strings.Contains(got, want) {
			t.Errorf("repo list missing %q:\n%s", want, got)
		}
	}

	step := &FrontierResponse{Status: "OK", StepResult: &frontier.StepResult{
		StepID: "s1",
		Terms:  []string{"earley"},
		Discoveries: []frontier.Discovery{{
			URL: "https://github.com/x/y", Term: "earley", Language: "Rust", Stars: 1234,
			Scores: frontier.Scores{Novelty: 8, Maturity: 9, Weirdness: 8},
		}},
	}}
	got, err = FormatResponse(step, FormatHuman)
	if err != nil {
		t.Fatalf("FormatResponse failed: %v", err)
	}
	for _, want := range []string{"1 admitted", "https://github.com/x/y", "1,234", "8/9/8"} {
		if !strings.Contains(got, want) {
			t.Errorf("frontier output missing %q:\n%s", want, got)
		}
	}
}

func TestFrontierResponse_JSONFlattens(t *testing.T) {
	resp := &FrontierResponse{Status: "OK", StepResult: &frontier.StepResult{StepID: "s1", Discoveries: []frontier.Discovery{}}}
	got, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("FormatResponse failed: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(got), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["status"] != "OK" || m["stepId"] != "s1" {
		t.Errorf("got %s", got)
	}
	if _, ok := m["discoveries"]; !ok {
		t.Errorf("discoveries should be present: %s", got)
	}
}

func TestRelTime(t *testing.T) {
	if got := relTime(time.Time{}); got != "never" {
		t.Errorf("relTime(zero) = %q", got)
	}
}

func TestVersionResponse(t *testing.T) {
	resp := &VersionResponse{Build: version.Build{Version: "0.4.0", Commit: "abcdef123456", GoVersion: "go1.24.11"}}

	human, err := FormatResponse(resp, FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if human != "scout 0.4.0 (abcdef1, go1.24.11)" {
		t.Errorf("human output = %q", human)
	}

	js, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if js != `{"version":"0.4.0","commit":"abcdef123456","go_version":"go1.24.11"}` {
		t.Errorf("JSON output = %s", js)
	}
}
