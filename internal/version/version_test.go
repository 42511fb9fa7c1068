package version

import (
	"runtime"
	"testing"
)

func stamp(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origDate
	})
	Version, Commit, BuildDate = version, commit, date
}

func TestFromSettings(t *testing.T) {
	vcs := map[string]string{
		"vcs.revision": "0123456789abcdef",
		"vcs.time":     "2025-07-04T12:00:00Z",
		"vcs.modified": "true",
	}

	tests := []struct {
		name     string
		commit   string
		date     string
		settings map[string]string
		want     Build
	}{
		{
			name:     "no stamp, no vcs",
			settings: map[string]string{},
			want:     Build{Version: "1.2.3"},
		},
		{
			name:     "vcs fills gaps",
			settings: vcs,
			want:     Build{Version: "1.2.3", Commit: "0123456789abcdef", Modified: true, BuildDate: "2025-07-04T12:00:00Z"},
		},
		{
			name:     "ldflags win over vcs",
			commit:   "feedfacecafe",
			date:     "2025-08-01",
			settings: vcs,
			want:     Build{Version: "1.2.3", Commit: "feedfacecafe", BuildDate: "2025-08-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp(t, "1.2.3", tt.commit, tt.date)
			tt.want.GoVersion = runtime.Version()
			if got := fromSettings(tt.settings); got != tt.want {
				t.Errorf("fromSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuild_String(t *testing.T) {
	tests := []struct {
		name  string
		build Build
		want  string
	}{
		{"bare", Build{Version: "0.4.0", GoVersion: "go1.24.11"}, "scout 0.4.0 (go1.24.11)"},
		{"short commit kept", Build{Version: "0.4.0", Commit: "abc", GoVersion: "go1.24.11"}, "scout 0.4.0 (abc, go1.24.11)"},
		{
			"dirty tree",
			Build{Version: "0.4.0", Commit: "abcdef123456", Modified: true, BuildDate: "2025-07-04T12:00:00Z", GoVersion: "go1.24.11"},
			"scout 0.4.0 (abcdef1-dirty, 2025-07-04T12:00:00Z, go1.24.11)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCurrent_UsesStampedVersion(t *testing.T) {
	stamp(t, "9.9.9", "fedcba9876543210", "")
	b := Current()
	if b.Version != "9.9.9" || b.ShortCommit() != "fedcba9" || b.GoVersion == "" {
		t.Errorf("Current() = %+v", b)
	}
}
