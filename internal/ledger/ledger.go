// Package ledger turns recorded match scores into per-participant records
// and standings.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/derekprior/rally/internal/schedule"
)

// ErrMalformedScore is returned for a score that is not a pair of
// non-negative integers.
var ErrMalformedScore = errors.New("malformed score")

var scorePattern = regexp.MustCompile(`^\s*(\d+)\s*[:\- ]\s*(\d+)\s*$`)

// ParseScore reads a score entry such as "3:1", "3-1" or "3 1".
func ParseScore(raw string) (int, int, error) {
	m := scorePattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedScore, raw)
	}
	return ParseScorePair(m[1], m[2])
}

// ParseScorePair reads two separately entered scores.
func ParseScorePair(s1, s2 string) (int, int, error) {
	a, err := parseGames(s1)
	if err != nil {
		return 0, 0, err
	}
	b, err := parseGames(s2)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func parseGames(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", ErrMalformedScore, s)
	}
	return n, nil
}

// Record is one participant's results.
type Record struct {
	Name          string
	Played        int
	Wins          int
	Losses        int
	Draws         int
	PointsFor     int
	PointsAgainst int
}

// WinRate is wins over decided matches. Draws are left out, so a record
// of only draws has a rate of zero.
func (r Record) WinRate() float64 {
	decided := r.Wins + r.Losses
	if decided == 0 {
		return 0
	}
	return float64(r.Wins) / float64(decided)
}

// PointDiff is points for minus points against.
func (r Record) PointDiff() int {
	return r.PointsFor - r.PointsAgainst
}

// Ledger holds a record for everyone who appears in the schedule.
type Ledger struct {
	records map[string]*Record
	order   []string
	scored  int
}

// Build recomputes every record from the matches that carry both scores.
// Building twice from the same matches gives the same ledger.
func Build(matches []schedule.ScheduledMatch) *Ledger {
	l := &Ledger{records: make(map[string]*Record)}
	for _, m := range matches {
		for _, p := range m.Players() {
			l.record(p)
		}
		if !m.HasScore() {
			continue
		}
		l.scored++
		s1, s2 := *m.Score1, *m.Score2
		l.apply(m.Team1.Members(), s1, s2)
		l.apply(m.Team2.Members(), s2, s1)
	}
	return l
}

func (l *Ledger) record(name string) *Record {
	r, ok := l.records[name]
	if !ok {
		r = &Record{Name: name}
		l.records[name] = r
		l.order = append(l.order, name)
	}
	return r
}

func (l *Ledger) apply(side []string, own, other int) {
	for _, p := range side {
		r := l.record(p)
		r.Played++
		r.PointsFor += own
		r.PointsAgainst += other
		switch {
		case own > other:
			r.Wins++
		case own < other:
			r.Losses++
		default:
			r.Draws++
		}
	}
}

// Get returns a participant's record.
func (l *Ledger) Get(name string) (Record, bool) {
	r, ok := l.records[name]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Scored is the number of matches with a recorded score.
func (l *Ledger) Scored() int {
	return l.scored
}

// Standings ranks every participant by wins, then points for, then name.
func (l *Ledger) Standings() []Record {
	out := make([]Record, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, *l.records[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return a.Name < b.Name
	})
	return out
}

// MVP returns the top n participants who have played at least once.
func (l *Ledger) MVP(n int) []Record {
	played := pie.Filter(l.Standings(), func(r Record) bool { return r.Played > 0 })
	if n < len(played) {
		played = played[:n]
	}
	return played
}

// ScoreWarning reports a score entry that was skipped.
type ScoreWarning struct {
	Index int
	Raw   string
	Err   error
}

func (w ScoreWarning) String() string {
	return fmt.Sprintf("match %d: %v", w.Index+1, w.Err)
}

// Submit parses score entries keyed by match index and writes them onto the
// matches. A bad entry leaves its match untouched and produces a warning;
// every other entry still applies. An empty entry clears the score.
func Submit(matches []schedule.ScheduledMatch, entries map[int]string) []ScoreWarning {
	indices := make([]int, 0, len(entries))
	for i := range entries {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var warnings []ScoreWarning
	for _, i := range indices {
		raw := entries[i]
		if i < 0 || i >= len(matches) {
			warnings = append(warnings, ScoreWarning{Index: i, Raw: raw,
				Err: fmt.Errorf("no match at index %d", i)})
			continue
		}
		if strings.TrimSpace(raw) == "" {
			matches[i].ClearScore()
			continue
		}
		s1, s2, err := ParseScore(raw)
		if err != nil {
			logrus.WithFields(logrus.Fields{"match": matches[i].Label(), "entry": raw}).Warn("skipping score")
			warnings = append(warnings, ScoreWarning{Index: i, Raw: raw, Err: err})
			continue
		}
		matches[i].SetScore(s1, s2)
	}
	return warnings
}
