package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/derekprior/rally/internal/pairing"
)

// ErrInvalidSlots is returned for a non-positive court count or slot length.
var ErrInvalidSlots = errors.New("invalid slot configuration")

// Default slot lengths for the two event modes.
const (
	LeagueSlot     = 30 * time.Minute
	TournamentSlot = 10 * time.Minute
)

// SlotOptions describes the courts and clock a schedule runs on.
type SlotOptions struct {
	Courts       int
	Start        time.Time
	SlotDuration time.Duration
}

func (o SlotOptions) validate() error {
	if o.Courts <= 0 {
		return fmt.Errorf("%w: courts must be positive, got %d", ErrInvalidSlots, o.Courts)
	}
	if o.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %s", ErrInvalidSlots, o.SlotDuration)
	}
	return nil
}

// ScheduledMatch is a match with its court and start time. Scores stay nil
// until a result is entered.
type ScheduledMatch struct {
	Number int
	Type   pairing.MatchType
	Team1  pairing.Team
	Team2  pairing.Team
	Court  int
	Time   time.Time
	Score1 *int
	Score2 *int
}

// Label is the display name used in exports and warnings.
func (m ScheduledMatch) Label() string {
	return fmt.Sprintf("Match %d", m.Number)
}

// Players returns everyone on court for this match.
func (m ScheduledMatch) Players() []string {
	return append(m.Team1.Members(), m.Team2.Members()...)
}

// Involves reports whether name plays in this match.
func (m ScheduledMatch) Involves(name string) bool {
	return m.Team1.Contains(name) || m.Team2.Contains(name)
}

// HasScore reports whether both scores are recorded.
func (m ScheduledMatch) HasScore() bool {
	return m.Score1 != nil && m.Score2 != nil
}

// SetScore records a final score.
func (m *ScheduledMatch) SetScore(s1, s2 int) {
	m.Score1, m.Score2 = &s1, &s2
}

// ClearScore removes a recorded score.
func (m *ScheduledMatch) ClearScore() {
	m.Score1, m.Score2 = nil, nil
}

// AssignSlots places matches in order: courts cycle 1..Courts and each
// match starts one slot after the previous one.
func AssignSlots(matches []Candidate, mt pairing.MatchType, opts SlotOptions) ([]ScheduledMatch, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	scheduled := make([]ScheduledMatch, len(matches))
	for i, c := range matches {
		scheduled[i] = ScheduledMatch{
			Number: i + 1,
			Type:   mt,
			Team1:  c.Team1,
			Team2:  c.Team2,
			Court:  i%opts.Courts + 1,
			Time:   opts.Start.Add(time.Duration(i) * opts.SlotDuration),
		}
	}
	return scheduled, nil
}
