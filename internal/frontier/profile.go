package frontier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Profile holds the keyword sets and languages that steer discovery.
type Profile struct {
	Languages []string `toml:"languages"`
	// DomainKeywords admit a candidate when found in its description.
	DomainKeywords []string `toml:"domain_keywords"`
	// TopicKeywords admit a candidate when found in one of its topics.
	TopicKeywords []string `toml:"topic_keywords"`
	// NicheKeywords raise the weirdness score.
	NicheKeywords []string `toml:"niche_keywords"`
}

// DefaultProfile returns the built-in steering profile.
func DefaultProfile() *Profile {
	return &Profile{
		Languages: []string{"Python", "TypeScript", "Rust"},
		DomainKeywords: []string{
			"llm", "agent", "language model", "grammar", "browser", "schema",
			"peg", "earley", "glr", "society", "simulation", "graph",
		},
		TopicKeywords: []string{"llm", "agent", "grammar", "browser", "schema"},
		NicheKeywords: []string{"peg", "earley", "glr", "society", "browser", "grammar", "schema"},
	}
}

// LoadProfile reads a TOML profile. A missing file yields the default
// profile; lists left empty in the file keep their defaults.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}

	var file Profile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse frontier profile: %w", err)
	}
	if len(file.Languages) > 0 {
		p.Languages = file.Languages
	}
	if len(file.DomainKeywords) > 0 {
		p.DomainKeywords = lower(file.DomainKeywords)
	}
	if len(file.TopicKeywords) > 0 {
		p.TopicKeywords = lower(file.TopicKeywords)
	}
	if len(file.NicheKeywords) > 0 {
		p.NicheKeywords = lower(file.NicheKeywords)
	}
	return p, nil
}

// Save writes the profile as TOML, creating parent directories.
func (p *Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return nil
}

// Relevant reports whether a candidate's description or topics mention
// the domain.
func (p *Profile) Relevant(description string, topics []string) bool {
	desc := strings.ToLower(description)
	if containsAny(desc, p.DomainKeywords) {
		return true
	}
	for _, t := range topics {
		if containsAny(strings.ToLower(t), p.TopicKeywords) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lower(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
