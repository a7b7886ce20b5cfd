package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/derekprior/rally/internal/pairing"
)

func sampleMatches(n int) []Candidate {
	players := names("P", 2*n)
	var out []Candidate
	for i := 0; i < len(players); i += 2 {
		out = append(out, Candidate{Team1: pairing.Singles(players[i]), Team2: pairing.Singles(players[i+1])})
	}
	return out
}

func TestAssignSlots(t *testing.T) {
	opts := SlotOptions{
		Courts:       3,
		Start:        time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		SlotDuration: LeagueSlot,
	}
	matches, err := AssignSlots(sampleMatches(7), pairing.TypeSingles, opts)
	if err != nil {
		t.Fatalf("AssignSlots() error: %v", err)
	}

	t.Run("courts cycle", func(t *testing.T) {
		want := []int{1, 2, 3, 1, 2, 3, 1}
		for i, m := range matches {
			if m.Court != want[i] {
				t.Errorf("match %d court = %d, want %d", i, m.Court, want[i])
			}
			if m.Court != matches[i%opts.Courts].Court {
				t.Errorf("match %d breaks the court cycle", i)
			}
		}
	})

	t.Run("times advance one slot per match", func(t *testing.T) {
		want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00"}
		for i, m := range matches {
			if got := m.Time.Format("15:04"); got != want[i] {
				t.Errorf("match %d time = %s, want %s", i, got, want[i])
			}
		}
	})

	t.Run("numbers and labels", func(t *testing.T) {
		if matches[0].Number != 1 || matches[0].Label() != "Match 1" {
			t.Errorf("first match = %d %q", matches[0].Number, matches[0].Label())
		}
		if matches[0].Type != pairing.TypeSingles {
			t.Errorf("type = %q, want singles", matches[0].Type)
		}
	})

	t.Run("scores start empty", func(t *testing.T) {
		for _, m := range matches {
			if m.HasScore() {
				t.Errorf("%s already has a score", m.Label())
			}
		}
	})
}

func TestAssignSlotsTournamentSpacing(t *testing.T) {
	opts := SlotOptions{Courts: 1, Start: time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC), SlotDuration: TournamentSlot}
	matches, err := AssignSlots(sampleMatches(3), pairing.TypeSingles, opts)
	if err != nil {
		t.Fatalf("AssignSlots() error: %v", err)
	}
	if got := matches[2].Time.Format("15:04"); got != "18:20" {
		t.Errorf("third match at %s, want 18:20", got)
	}
}

func TestAssignSlotsInvalid(t *testing.T) {
	tests := []SlotOptions{
		{Courts: 0, SlotDuration: LeagueSlot},
		{Courts: -1, SlotDuration: LeagueSlot},
		{Courts: 2, SlotDuration: 0},
	}
	for _, opts := range tests {
		if _, err := AssignSlots(sampleMatches(2), pairing.TypeSingles, opts); !errors.Is(err, ErrInvalidSlots) {
			t.Errorf("AssignSlots(%+v) error = %v, want ErrInvalidSlots", opts, err)
		}
	}
}

func TestScoreHelpers(t *testing.T) {
	m := ScheduledMatch{Number: 3, Team1: pairing.Doubles("A", "B"), Team2: pairing.Doubles("C", "D")}
	m.SetScore(6, 4)
	if !m.HasScore() || *m.Score1 != 6 || *m.Score2 != 4 {
		t.Errorf("score = %v:%v", m.Score1, m.Score2)
	}
	m.ClearScore()
	if m.HasScore() {
		t.Error("score should be cleared")
	}
	if len(m.Players()) != 4 || !m.Involves("C") || m.Involves("E") {
		t.Errorf("players = %v", m.Players())
	}
}

func TestKnockout(t *testing.T) {
	t.Run("odd team gets a bye", func(t *testing.T) {
		teams := singlesTeams(names("P", 5))
		round, err := Knockout(teams)
		if err != nil {
			t.Fatalf("Knockout() error: %v", err)
		}
		if len(round.Matches) != 2 {
			t.Errorf("matches = %d, want 2", len(round.Matches))
		}
		if len(round.Byes) != 1 || round.Byes[0] != teams[4] {
			t.Errorf("byes = %v, want [%s]", round.Byes, teams[4])
		}
		if round.Matches[0].Team1 != teams[0] || round.Matches[0].Team2 != teams[1] {
			t.Errorf("first match = %s, want adjacent teams", round.Matches[0])
		}
	})

	t.Run("overlapping teams rejected", func(t *testing.T) {
		_, err := Knockout(rotatingDoubles(names("D", 4)))
		if !errors.Is(err, ErrOverlappingTeams) {
			t.Errorf("error = %v, want ErrOverlappingTeams", err)
		}
	})

	t.Run("one team is not a bracket", func(t *testing.T) {
		_, err := Knockout(singlesTeams(names("P", 1)))
		if !errors.Is(err, pairing.ErrInsufficientParticipants) {
			t.Errorf("error = %v, want ErrInsufficientParticipants", err)
		}
	})
}
