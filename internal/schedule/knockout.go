package schedule

import (
	"errors"
	"fmt"

	"github.com/derekprior/rally/internal/pairing"
)

// ErrOverlappingTeams means a bracket was requested from teams that share
// players, such as a rotating-partner doubles pool.
var ErrOverlappingTeams = errors.New("teams share players")

// Round is one knockout round: matches in bracket order plus any teams that
// advance without playing.
type Round struct {
	Matches []Candidate
	Byes    []pairing.Team
}

// Knockout builds the first round of a single-elimination bracket by
// pairing adjacent teams. With an odd number of teams the last one gets an
// explicit bye.
func Knockout(teams []pairing.Team) (*Round, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: a bracket needs at least 2 teams, have %d",
			pairing.ErrInsufficientParticipants, len(teams))
	}
	for i := range teams {
		for j := i + 1; j < len(teams); j++ {
			if teams[i].Overlaps(teams[j]) {
				return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingTeams, teams[i], teams[j])
			}
		}
	}

	round := &Round{}
	for i := 0; i+1 < len(teams); i += 2 {
		round.Matches = append(round.Matches, Candidate{Team1: teams[i], Team2: teams[i+1]})
	}
	if len(teams)%2 == 1 {
		round.Byes = append(round.Byes, teams[len(teams)-1])
	}
	return round, nil
}
