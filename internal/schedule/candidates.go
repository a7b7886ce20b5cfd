package schedule

import (
	"gonum.org/v1/gonum/stat/combin"

	"github.com/derekprior/rally/internal/pairing"
)

// Candidate is a possible match between two teams with no player in common.
type Candidate struct {
	Team1 pairing.Team
	Team2 pairing.Team
}

// CandidateKey identifies a matchup regardless of which side is listed first.
type CandidateKey struct {
	a, b pairing.TeamKey
}

func (c Candidate) Key() CandidateKey {
	a, b := c.Team1.Key(), c.Team2.Key()
	if b.Less(a) {
		a, b = b, a
	}
	return CandidateKey{a, b}
}

// String lists the teams in key order, so both sides of a matchup print the same.
func (k CandidateKey) String() string {
	return k.a.String() + " vs " + k.b.String()
}

// Members returns every player on either side.
func (c Candidate) Members() []string {
	return append(c.Team1.Members(), c.Team2.Members()...)
}

// Involves reports whether name plays in this match.
func (c Candidate) Involves(name string) bool {
	return c.Team1.Contains(name) || c.Team2.Contains(name)
}

func (c Candidate) String() string {
	return c.Team1.String() + " vs " + c.Team2.String()
}

// GenerateCandidates pairs every two teams that share no player. An empty
// result means no match can be formed; it is not an error.
func GenerateCandidates(teams []pairing.Team) []Candidate {
	if len(teams) < 2 {
		return nil
	}
	var candidates []Candidate
	for _, c := range combin.Combinations(len(teams), 2) {
		t1, t2 := teams[c[0]], teams[c[1]]
		if t1.Overlaps(t2) {
			continue
		}
		candidates = append(candidates, Candidate{Team1: t1, Team2: t2})
	}
	return candidates
}
