package frontier

import (
	"strconv"
	"strings"
)

// Scores are the heuristic ratings recorded for an admitted candidate.
type Scores struct {
	Novelty   int `json:"novelty"`
	Maturity  int `json:"maturity"`
	Weirdness int `json:"weirdness"`
}

// Maturity maps a star count onto a 2..9 scale.
func Maturity(stars int) int {
	switch {
	case stars >= 1000:
		return 9
	case stars >= 500:
		return 8
	case stars >= 100:
		return 6
	case stars >= 20:
		return 4
	default:
		return 2
	}
}

// Novelty is 8 for repositories pushed during year, else 7.
func Novelty(pushedAt string, year int) int {
	if strings.HasPrefix(pushedAt, strconv.Itoa(year)+"-") {
		return 8
	}
	return 7
}

// Weirdness is 6, or 8 when the description names a niche technique.
func (p *Profile) Weirdness(description string) int {
	if containsAny(strings.ToLower(description), p.NicheKeywords) {
		return 8
	}
	return 6
}
