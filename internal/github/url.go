package github

import (
	"strings"

	scouterrors "scout/internal/errors"
)

// ParseRepoURL extracts owner and name from a GitHub URL or an owner/name
// shortcut. Trailing slashes and a .git suffix are ignored.
func ParseRepoURL(raw string) (string, string, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	s = strings.TrimSuffix(s, ".git")

	if !strings.HasPrefix(s, "http") {
		if parts := strings.Split(s, "/"); len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	for _, host := range []string{"github.com/", "www.github.com/"} {
		if i := strings.Index(s, host); i >= 0 {
			parts := strings.Split(s[i+len(host):], "/")
			if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
				return parts[0], parts[1], nil
			}
		}
	}
	return "", "", scouterrors.Newf(scouterrors.ValidationError, "unrecognized GitHub URL: %s", raw)
}

// CanonicalURL is the identity scout stores for a repository.
func CanonicalURL(owner, name string) string {
	return "https://github.com/" + owner + "/" + name
}
