package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(NotFound, "run 7 not found")

	if err.Code != NotFound {
		t.Errorf("Code = %v, want %v", err.Code, NotFound)
	}
	if err.Message != "run 7 not found" {
		t.Errorf("Message = %q, want %q", err.Message, "run 7 not found")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestScoutError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *ScoutError
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       Wrap(TransientFetch, "search failed", errors.New("connection refused")),
			wantParts: []string{"TRANSIENT_FETCH", "search failed", "connection refused"},
		},
		{
			name:      "without cause",
			err:       Newf(ValidationError, "invalid repo url %q", "nope"),
			wantParts: []string{"VALIDATION_ERROR", `invalid repo url "nope"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestScoutError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StorageError, "failed to insert visit", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if New(InternalError, "x").Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("frontier step: %w", New(NotFound, "run 3 not found"))

	if !Is(wrapped, NotFound) {
		t.Error("Is(wrapped, NotFound) = false, want true")
	}
	if Is(wrapped, ValidationError) {
		t.Error("Is(wrapped, ValidationError) = true, want false")
	}
	if Is(nil, NotFound) {
		t.Error("Is(nil, NotFound) = true, want false")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf(plain error) should be empty")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ValidationError, "bad payload").WithDetails(map[string]string{"field": "rubric"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["field"] != "rubric" {
		t.Errorf("Details = %v, want field=rubric", err.Details)
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(EmbeddingBackendUnavailable); len(fixes) != 2 {
		t.Errorf("len(fixes) = %d, want 2", len(fixes))
	}
	if fixes := GetSuggestedFixes(InternalError); fixes != nil {
		t.Errorf("fixes for InternalError = %v, want nil", fixes)
	}
}
