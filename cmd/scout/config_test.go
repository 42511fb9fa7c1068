package main

import (
	"strings"
	"testing"
)

func TestEnvReport(t *testing.T) {
	env := map[string]string{"GITHUB_TOKEN": "ghp_secret", "SCOUT_DB_PATH": "/tmp/x.db"}
	resp := envReport(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})

	set := map[string]bool{}
	for _, v := range resp.Variables {
		set[v.Name] = v.Set
	}
	if !set["GITHUB_TOKEN"] || !set["SCOUT_DB_PATH"] {
		t.Errorf("expected GITHUB_TOKEN and SCOUT_DB_PATH set: %+v", resp.Variables)
	}
	if v, ok := set["OPENAI_API_KEY"]; !ok || v {
		t.Errorf("OPENAI_API_KEY should be listed as unset")
	}

	for _, format := range []OutputFormat{FormatJSON, FormatHuman} {
		out, err := FormatResponse(resp, format)
		if err != nil {
			t.Fatalf("FormatResponse(%s) failed: %v", format, err)
		}
		if strings.Contains(out, "ghp_secret") {
			t.Errorf("%s output leaks a value: %s", format, out)
		}
		if !strings.Contains(out, "SCOUT_COOLDOWN_DAYS") {
			t.Errorf("%s output missing SCOUT_COOLDOWN_DAYS", format)
		}
	}
}
