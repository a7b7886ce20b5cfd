package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/rally/internal/config"
	"github.com/derekprior/rally/internal/excel"
	"github.com/derekprior/rally/internal/ledger"
	"github.com/derekprior/rally/internal/pairing"
	"github.com/derekprior/rally/internal/roster"
	"github.com/derekprior/rally/internal/schedule"
)

// Violation represents a rule break found in an exported schedule.
type Violation struct {
	Row     int
	Type    string // "error" or "warning"
	Message string
}

// Validate reads a schedule workbook and checks it against the config and
// its roster. Hand edits are the usual source of errors.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	r, err := cfg.LoadRoster()
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	rows, err := excel.ReadMatches(f)
	if err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return check(cfg, r, rows), nil
}

func check(cfg *config.Config, r *roster.Roster, rows []excel.Row) []Violation {
	var violations []Violation

	// Hard rules
	violations = append(violations, checkSides(cfg, rows)...)
	violations = append(violations, checkUnknownPlayers(r, rows)...)
	violations = append(violations, checkConsecutive(cfg, rows)...)
	violations = append(violations, checkSlots(cfg, rows)...)

	// Soft rules
	violations = append(violations, checkCoverage(cfg, r, rows)...)
	violations = append(violations, checkRepeats(cfg, rows)...)
	violations = append(violations, checkScores(rows)...)

	return violations
}

func checkSides(cfg *config.Config, rows []excel.Row) []Violation {
	size := cfg.MatchType().TeamSize()
	var violations []Violation
	for _, row := range rows {
		m := row.Match
		if m.Team1.Overlaps(m.Team2) {
			violations = append(violations, Violation{
				Row:     row.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s puts the same player on both sides: %s vs %s", m.Label(), m.Team1, m.Team2),
			})
		}
		for _, t := range []pairing.Team{m.Team1, m.Team2} {
			if len(t.Members()) != size {
				violations = append(violations, Violation{
					Row:     row.Row,
					Type:    "error",
					Message: fmt.Sprintf("%s: %s has %d players, %s needs %d", m.Label(), t, len(t.Members()), cfg.MatchType(), size),
				})
			}
		}
	}
	return violations
}

func checkUnknownPlayers(r *roster.Roster, rows []excel.Row) []Violation {
	var violations []Violation
	for _, row := range rows {
		for _, p := range row.Match.Players() {
			if _, ok := r.Get(p); ok {
				continue
			}
			msg := fmt.Sprintf("%s: %s is not on the roster", row.Match.Label(), p)
			if guess, err := r.Find(p); err == nil {
				msg += fmt.Sprintf(" (did you mean %s?)", guess.Name)
			}
			violations = append(violations, Violation{Row: row.Row, Type: "error", Message: msg})
		}
	}
	return violations
}

func maxConsecutive(cfg *config.Config) int {
	if cfg.Format.MaxConsecutive > 0 {
		return cfg.Format.MaxConsecutive
	}
	return schedule.DefaultMaxConsecutive
}

// checkConsecutive reports anyone playing K or more matches in a row. Each
// streak is reported once, at the row where it crosses the limit.
func checkConsecutive(cfg *config.Config, rows []excel.Row) []Violation {
	k := maxConsecutive(cfg)
	streaks := make(map[string]int)
	var violations []Violation
	for _, row := range rows {
		for _, p := range row.Match.Players() {
			streaks[p]++
			if streaks[p] == k {
				violations = append(violations, Violation{
					Row:  row.Row,
					Type: "error",
					Message: fmt.Sprintf("%s plays %d matches in a row ending %s (max %d)",
						p, k, row.Match.Label(), k-1),
				})
			}
		}
		for p := range streaks {
			if !row.Match.Involves(p) {
				streaks[p] = 0
			}
		}
	}
	return violations
}

// checkSlots verifies courts cycle through 1..courts and start times step
// by one slot per match.
func checkSlots(cfg *config.Config, rows []excel.Row) []Violation {
	if len(rows) == 0 {
		return nil
	}
	slot := time.Duration(cfg.Event.SlotMinutes) * time.Minute
	first := rows[0].Match.Time

	var violations []Violation
	for i, row := range rows {
		m := row.Match
		if want := i%cfg.Event.Courts + 1; m.Court != want {
			violations = append(violations, Violation{
				Row:     row.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s is on court %d, expected court %d", m.Label(), m.Court, want),
			})
		}
		if want := first.Add(time.Duration(i) * slot); !m.Time.Equal(want) {
			violations = append(violations, Violation{
				Row:  row.Row,
				Type: "error",
				Message: fmt.Sprintf("%s starts at %s, expected %s", m.Label(),
					m.Time.Format(excel.TimeLayout), want.Format(excel.TimeLayout)),
			})
		}
	}
	return violations
}

func checkCoverage(cfg *config.Config, r *roster.Roster, rows []excel.Row) []Violation {
	if cfg.Format.Mode == config.ModeTournament {
		return nil
	}
	counts := make(map[string]int)
	for _, row := range rows {
		for _, p := range row.Match.Players() {
			counts[p]++
		}
	}

	var violations []Violation
	for _, name := range r.Names() {
		if n := counts[name]; n < cfg.Format.GamesPerPlayer {
			violations = append(violations, Violation{
				Type:    "warning",
				Message: fmt.Sprintf("%s plays %d of %d matches", name, n, cfg.Format.GamesPerPlayer),
			})
		}
	}
	return violations
}

func checkRepeats(cfg *config.Config, rows []excel.Row) []Violation {
	limit := cfg.Format.MaxRepeats
	if limit == 0 {
		limit = schedule.DefaultMaxRepeats
	}
	if cfg.Format.StrictNoRepeats {
		limit = 1
	}

	type seen struct {
		label string
		rows  []int
	}
	matchups := make(map[schedule.CandidateKey]*seen)
	var order []schedule.CandidateKey
	for _, row := range rows {
		c := schedule.Candidate{Team1: row.Match.Team1, Team2: row.Match.Team2}
		key := c.Key()
		if matchups[key] == nil {
			matchups[key] = &seen{label: c.String()}
			order = append(order, key)
		}
		matchups[key].rows = append(matchups[key].rows, row.Row)
	}

	var violations []Violation
	for _, key := range order {
		s := matchups[key]
		if len(s.rows) <= limit {
			continue
		}
		rowList := make([]string, len(s.rows))
		for i, r := range s.rows {
			rowList[i] = fmt.Sprint(r)
		}
		violations = append(violations, Violation{
			Row:  s.rows[limit],
			Type: "warning",
			Message: fmt.Sprintf("%s is scheduled %d times (max %d), rows %s",
				s.label, len(s.rows), limit, strings.Join(rowList, ", ")),
		})
	}
	return violations
}

func checkScores(rows []excel.Row) []Violation {
	var violations []Violation
	for _, row := range rows {
		if row.Score1 == "" && row.Score2 == "" {
			continue
		}
		if _, _, err := ledger.ParseScorePair(row.Score1, row.Score2); err != nil {
			violations = append(violations, Violation{
				Row:     row.Row,
				Type:    "warning",
				Message: fmt.Sprintf("%s score skipped: %v", row.Match.Label(), err),
			})
		}
	}
	return violations
}
