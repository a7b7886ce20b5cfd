package schedule

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/derekprior/rally/internal/pairing"
)

func names(prefix string, n int) []string {
	var out []string
	for i := range n {
		out = append(out, fmt.Sprintf("%s%d", prefix, i+1))
	}
	return out
}

func singlesTeams(players []string) []pairing.Team {
	var teams []pairing.Team
	for _, p := range players {
		teams = append(teams, pairing.Singles(p))
	}
	return teams
}

func rotatingDoubles(players []string) []pairing.Team {
	var teams []pairing.Team
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			teams = append(teams, pairing.Doubles(players[i], players[j]))
		}
	}
	return teams
}

func testSlots() SlotOptions {
	return SlotOptions{
		Courts:       2,
		Start:        time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		SlotDuration: LeagueSlot,
	}
}

func testOptions(mt pairing.MatchType, gamesPerPlayer int, seed int64) Options {
	return Options{
		MatchType:      mt,
		GamesPerPlayer: gamesPerPlayer,
		Rand:           rand.New(rand.NewSource(seed)),
		Slots:          testSlots(),
	}
}

func TestGenerateCandidates(t *testing.T) {
	t.Run("rotating doubles skip overlapping teams", func(t *testing.T) {
		teams := rotatingDoubles(names("P", 6))
		candidates := GenerateCandidates(teams)
		// 15 teams, each disjoint from C(4,2)=6 others: 15*6/2
		if len(candidates) != 45 {
			t.Errorf("candidates = %d, want 45", len(candidates))
		}
		for _, c := range candidates {
			if c.Team1.Overlaps(c.Team2) {
				t.Errorf("%s puts a player on both sides", c)
			}
		}
	})

	t.Run("rotating mixed drops candidates sharing a player", func(t *testing.T) {
		var teams []pairing.Team
		for _, m := range names("M", 3) {
			for _, f := range names("F", 3) {
				teams = append(teams, pairing.Doubles(m, f))
			}
		}
		candidates := GenerateCandidates(teams)
		// 9 teams, each disjoint from the 2*2 teams with another man and another woman
		if len(candidates) != 18 {
			t.Errorf("candidates = %d, want 18", len(candidates))
		}
		for _, c := range candidates {
			if c.Team1.Overlaps(c.Team2) {
				t.Errorf("%s puts a player on both sides", c)
			}
		}
	})

	t.Run("singles is every pair of players", func(t *testing.T) {
		candidates := GenerateCandidates(singlesTeams(names("P", 5)))
		if len(candidates) != 10 {
			t.Errorf("candidates = %d, want 10", len(candidates))
		}
	})

	t.Run("fully overlapping teams give no candidates", func(t *testing.T) {
		teams := []pairing.Team{pairing.Doubles("A", "B"), pairing.Doubles("A", "C"), pairing.Doubles("B", "C")}
		if c := GenerateCandidates(teams); len(c) != 0 {
			t.Errorf("candidates = %v, want none", c)
		}
	})

	t.Run("key ignores side order", func(t *testing.T) {
		a := Candidate{Team1: pairing.Doubles("A", "B"), Team2: pairing.Doubles("C", "D")}
		b := Candidate{Team1: pairing.Doubles("D", "C"), Team2: pairing.Doubles("B", "A")}
		if a.Key() != b.Key() {
			t.Error("keys differ for the same matchup")
		}
		if got := b.Key().String(); got != "A + B vs C + D" {
			t.Errorf("key string = %q, want %q", got, "A + B vs C + D")
		}
	})
}

func TestScheduleFourSinglesPlayers(t *testing.T) {
	players := names("P", 4)
	candidates := GenerateCandidates(singlesTeams(players))

	for seed := int64(1); seed <= 20; seed++ {
		result, err := Schedule(candidates, players, testOptions(pairing.TypeSingles, 2, seed))
		if err != nil {
			t.Fatalf("seed %d: Schedule() error: %v", seed, err)
		}
		if len(result.Matches) != 4 {
			t.Fatalf("seed %d: matches = %d, want 4", seed, len(result.Matches))
		}
		for _, p := range players {
			if result.Coverage.Counts[p] != 2 {
				t.Errorf("seed %d: %s plays %d matches, want 2", seed, p, result.Coverage.Counts[p])
			}
		}
		assertNoLongStreaks(t, result.Matches, players, DefaultMaxConsecutive)
	}
}

func TestScheduleMixedThreeTeams(t *testing.T) {
	teams := []pairing.Team{
		pairing.Doubles("M1", "F1"),
		pairing.Doubles("M2", "F2"),
		pairing.Doubles("M3", "F3"),
	}
	candidates := GenerateCandidates(teams)
	if len(candidates) != 3 {
		t.Fatalf("candidates = %d, want 3", len(candidates))
	}

	players := []string{"M1", "M2", "M3", "F1", "F2", "F3"}
	result, err := Schedule(candidates, players, testOptions(pairing.TypeMixed, 2, 11))
	if err != nil {
		t.Fatalf("Schedule() error: %v", err)
	}
	if len(result.Matches) != 3 {
		t.Errorf("matches = %d, want 3", len(result.Matches))
	}
	for _, m := range result.Matches {
		if m.Team1.Equal(m.Team2) || m.Team1.Overlaps(m.Team2) {
			t.Errorf("%s plays itself", m.Label())
		}
	}
}

func TestScheduleProperties(t *testing.T) {
	tests := []struct {
		name    string
		mt      pairing.MatchType
		players []string
		teams   []pairing.Team
		target  int
	}{
		{"singles 6 players", pairing.TypeSingles, names("S", 6), singlesTeams(names("S", 6)), 4},
		{"rotating doubles 5 players", pairing.TypeDoubles, names("D", 5), rotatingDoubles(names("D", 5)), 3},
		{"rotating doubles 8 players", pairing.TypeDoubles, names("D", 8), rotatingDoubles(names("D", 8)), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := GenerateCandidates(tt.teams)
			for seed := int64(1); seed <= 5; seed++ {
				result, err := Schedule(candidates, tt.players, testOptions(tt.mt, tt.target, seed))
				if err != nil && !errors.Is(err, ErrInfeasibleConstraints) {
					t.Fatalf("seed %d: Schedule() error: %v", seed, err)
				}

				assertNoLongStreaks(t, result.Matches, tt.players, DefaultMaxConsecutive)

				for _, p := range tt.players {
					short := result.Coverage.Counts[p] < tt.target
					flagged := contains(result.Coverage.Under, p)
					if short != flagged {
						t.Errorf("seed %d: %s plays %d, under-coverage flag = %v", seed, p, result.Coverage.Counts[p], flagged)
					}
				}

				for i, m := range result.Matches {
					if m.Court != i%2+1 {
						t.Errorf("match %d on court %d, want %d", i, m.Court, i%2+1)
					}
					if m.Team1.Overlaps(m.Team2) {
						t.Errorf("%s puts a player on both sides", m.Label())
					}
				}
			}
		})
	}
}

func TestScheduleIsReproducible(t *testing.T) {
	players := names("D", 7)
	candidates := GenerateCandidates(rotatingDoubles(players))

	first, err := Schedule(candidates, players, testOptions(pairing.TypeDoubles, 3, 42))
	if err != nil && !errors.Is(err, ErrInfeasibleConstraints) {
		t.Fatalf("Schedule() error: %v", err)
	}
	second, _ := Schedule(candidates, players, testOptions(pairing.TypeDoubles, 3, 42))

	if len(first.Matches) != len(second.Matches) {
		t.Fatalf("match counts differ: %d vs %d", len(first.Matches), len(second.Matches))
	}
	for i := range first.Matches {
		a, b := first.Matches[i], second.Matches[i]
		if a.Team1 != b.Team1 || a.Team2 != b.Team2 || a.Court != b.Court || !a.Time.Equal(b.Time) {
			t.Fatalf("match %d differs: %s vs %s", i, a.Label(), b.Label())
		}
	}
}

func TestScheduleInfeasible(t *testing.T) {
	players := names("P", 3)
	candidates := GenerateCandidates(singlesTeams(players))

	// With K=2 nobody may play twice in a row, but every pair of singles
	// matches among three players shares someone.
	opts := testOptions(pairing.TypeSingles, 2, 1)
	opts.MaxConsecutive = 2

	result, err := Schedule(candidates, players, opts)
	if !errors.Is(err, ErrInfeasibleConstraints) {
		t.Fatalf("error = %v, want ErrInfeasibleConstraints", err)
	}
	if result == nil {
		t.Fatal("expected a partial result")
	}
	if len(result.Matches) != 1 {
		t.Errorf("matches = %d, want 1", len(result.Matches))
	}
	if result.Coverage.Complete() {
		t.Error("coverage should be incomplete")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected coverage warnings")
	}
	assertNoLongStreaks(t, result.Matches, players, 2)
}

func TestScheduleRepeats(t *testing.T) {
	players := names("P", 3)
	candidates := GenerateCandidates(singlesTeams(players))

	t.Run("strict mode stops when matchups run out", func(t *testing.T) {
		opts := testOptions(pairing.TypeSingles, 3, 9)
		opts.StrictNoRepeats = true
		result, err := Schedule(candidates, players, opts)
		if !errors.Is(err, ErrInfeasibleConstraints) {
			t.Fatalf("error = %v, want ErrInfeasibleConstraints", err)
		}
		if len(result.Matches) != 3 {
			t.Errorf("matches = %d, want 3", len(result.Matches))
		}
		for _, n := range result.Repeats {
			if n > 1 {
				t.Errorf("matchup repeated %d times in strict mode", n)
			}
		}
	})

	t.Run("refilled pool allows bounded repeats", func(t *testing.T) {
		result, err := Schedule(candidates, players, testOptions(pairing.TypeSingles, 3, 9))
		if err != nil {
			t.Fatalf("Schedule() error: %v", err)
		}
		for key, n := range result.Repeats {
			if n > DefaultMaxRepeats {
				t.Errorf("matchup %v scheduled %d times, max %d", key, n, DefaultMaxRepeats)
			}
		}
		assertNoLongStreaks(t, result.Matches, players, DefaultMaxConsecutive)
	})
}

func TestScheduleNoCandidates(t *testing.T) {
	result, err := Schedule(nil, []string{"A", "B"}, testOptions(pairing.TypeSingles, 1, 1))
	if !errors.Is(err, ErrInfeasibleConstraints) {
		t.Fatalf("error = %v, want ErrInfeasibleConstraints", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("matches = %d, want 0", len(result.Matches))
	}
	if len(result.Coverage.Under) != 2 {
		t.Errorf("under = %v, want both players", result.Coverage.Under)
	}
}

func TestScheduleRejectsBadOptions(t *testing.T) {
	candidates := GenerateCandidates(singlesTeams(names("P", 4)))
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero games per player", func(o *Options) { o.GamesPerPlayer = 0 }},
		{"max consecutive of one", func(o *Options) { o.MaxConsecutive = 1 }},
		{"no courts", func(o *Options) { o.Slots.Courts = 0 }},
		{"negative slot", func(o *Options) { o.Slots.SlotDuration = -time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(pairing.TypeSingles, 2, 1)
			tt.mutate(&opts)
			if _, err := Schedule(candidates, names("P", 4), opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// assertNoLongStreaks checks that nobody appears in more than k-1
// consecutive matches.
func assertNoLongStreaks(t *testing.T, matches []ScheduledMatch, players []string, k int) {
	t.Helper()
	for _, p := range players {
		streak := 0
		for _, m := range matches {
			if m.Involves(p) {
				streak++
				if streak > k-1 {
					t.Errorf("%s plays %d in a row ending at %s", p, streak, m.Label())
				}
			} else {
				streak = 0
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
