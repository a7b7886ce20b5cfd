// Package session holds one event's state between engine calls: the roster,
// the generated pairing and schedule, and the scores entered against it.
// The engine packages themselves keep no state.
package session

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/derekprior/rally/internal/config"
	"github.com/derekprior/rally/internal/ledger"
	"github.com/derekprior/rally/internal/pairing"
	"github.com/derekprior/rally/internal/roster"
	"github.com/derekprior/rally/internal/schedule"
)

// ErrNotGenerated is returned by operations that need a schedule first.
var ErrNotGenerated = errors.New("no schedule generated")

// Report summarizes how well a generated schedule met the format.
type Report struct {
	Coverage schedule.Coverage
	Byes     []pairing.Team
	SitOut   []string
	Repeats  map[schedule.CandidateKey]int
	Warnings []string
}

// Session is owned by the caller and passed to every operation.
type Session struct {
	Config  *config.Config
	Roster  *roster.Roster
	Pairing *pairing.Result
	Matches []schedule.ScheduledMatch
	Report  *Report
	Ledger  *ledger.Ledger
}

// New starts a session for a config and roster.
func New(cfg *config.Config, r *roster.Roster) *Session {
	return &Session{Config: cfg, Roster: r}
}

// Generate pairs the roster and schedules the event, replacing any earlier
// schedule and scores. An insufficient roster stops before scheduling.
// Infeasible constraints still store the partial schedule and return an
// error wrapping schedule.ErrInfeasibleConstraints. A nil rng uses the
// config's seed.
func (s *Session) Generate(rng *rand.Rand) error {
	s.Reset()
	if rng == nil {
		rng = s.Config.Rand()
	}

	snap, err := s.Roster.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshotting roster: %w", err)
	}
	policy, err := s.Config.Policy()
	if err != nil {
		return err
	}
	mt := s.Config.MatchType()

	res, err := pairing.GeneratePairs(snap, mt, policy, rng)
	s.Pairing = res
	if err != nil {
		if res != nil {
			s.Report = &Report{Warnings: res.Warnings}
		}
		return err
	}

	var schedErr error
	if s.Config.Format.Mode == config.ModeTournament {
		schedErr = s.generateBracket(snap, res)
	} else {
		schedErr = s.generateLeague(snap, res, rng)
	}
	if schedErr != nil && !errors.Is(schedErr, schedule.ErrInfeasibleConstraints) {
		return schedErr
	}

	s.Ledger = ledger.Build(s.Matches)
	logrus.WithFields(logrus.Fields{
		"mode":     s.Config.Format.Mode,
		"type":     mt,
		"policy":   policy.Name(),
		"teams":    len(res.Teams),
		"matches":  len(s.Matches),
		"warnings": len(s.Report.Warnings),
	}).Info("schedule generated")
	return schedErr
}

func (s *Session) generateLeague(r *roster.Roster, res *pairing.Result, rng *rand.Rand) error {
	candidates := schedule.GenerateCandidates(res.Teams)
	players := playing(r, res.Teams)
	result, err := schedule.Schedule(candidates, players, s.Config.ScheduleOptions(rng))
	if result == nil {
		return err
	}
	s.Matches = result.Matches
	s.Report = &Report{
		Coverage: result.Coverage,
		Repeats:  result.Repeats,
		SitOut:   sittingOut(r, res.Teams),
		Warnings: append(append([]string{}, res.Warnings...), result.Warnings...),
	}
	return err
}

// generateBracket needs teams that share no players, so rotating
// partnerships and partners of convenience are reduced to a fixed set first.
func (s *Session) generateBracket(r *roster.Roster, res *pairing.Result) error {
	teams := fixedTeams(res)
	round, err := schedule.Knockout(teams)
	if err != nil {
		return err
	}
	matches, err := schedule.AssignSlots(round.Matches, res.MatchType, s.Config.SlotOptions())
	if err != nil {
		return err
	}
	s.Matches = matches
	s.Report = &Report{
		Byes:     round.Byes,
		SitOut:   sittingOut(r, teams),
		Warnings: append([]string{}, res.Warnings...),
	}
	for _, t := range round.Byes {
		s.Report.Warnings = append(s.Report.Warnings, fmt.Sprintf("%s gets a bye", t))
	}
	for _, name := range s.Report.SitOut {
		s.Report.Warnings = append(s.Report.Warnings, fmt.Sprintf("%s has no fixed team and sits out the bracket", name))
	}
	return nil
}

// fixedTeams drops partner-of-convenience teams and keeps the first team
// seen for each player.
func fixedTeams(res *pairing.Result) []pairing.Team {
	convenience := make(map[string]bool)
	for _, l := range res.Leftovers {
		if l.PairedWith != "" {
			convenience[l.Name] = true
		}
	}
	var teams []pairing.Team
	for _, t := range res.Teams {
		if pie.Any(t.Members(), func(m string) bool { return convenience[m] }) {
			continue
		}
		if pie.Any(teams, t.Overlaps) {
			continue
		}
		teams = append(teams, t)
	}
	return teams
}

// playing lists roster members on at least one team, in roster order.
func playing(r *roster.Roster, teams []pairing.Team) []string {
	return pie.Filter(r.Names(), func(name string) bool { return onTeam(name, teams) })
}

func sittingOut(r *roster.Roster, teams []pairing.Team) []string {
	return pie.Filter(r.Names(), func(name string) bool { return !onTeam(name, teams) })
}

func onTeam(name string, teams []pairing.Team) bool {
	return pie.Any(teams, func(t pairing.Team) bool { return t.Contains(name) })
}

// Load replaces the schedule with matches read back from an export.
func (s *Session) Load(matches []schedule.ScheduledMatch) {
	s.Matches = matches
	s.Ledger = ledger.Build(matches)
}

// SubmitScores applies score entries keyed by zero-based match index and
// rebuilds the ledger. Malformed entries are skipped and reported.
func (s *Session) SubmitScores(entries map[int]string) ([]ledger.ScoreWarning, error) {
	if s.Matches == nil {
		return nil, ErrNotGenerated
	}
	warnings := ledger.Submit(s.Matches, entries)
	s.Ledger = ledger.Build(s.Matches)
	return warnings, nil
}

// Standings ranks participants from the recorded scores.
func (s *Session) Standings() ([]ledger.Record, error) {
	if s.Ledger == nil {
		return nil, ErrNotGenerated
	}
	return s.Ledger.Standings(), nil
}

// Reset discards the pairing, schedule and scores. The config and roster
// are kept.
func (s *Session) Reset() {
	s.Pairing = nil
	s.Matches = nil
	s.Report = nil
	s.Ledger = nil
}
