package schedule

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/derekprior/rally/internal/pairing"
)

// ErrInfeasibleConstraints means some participant could not reach the
// target match count. It is returned alongside a usable partial Result.
var ErrInfeasibleConstraints = errors.New("infeasible constraints")

// Defaults applied to zero-valued Options fields.
const (
	DefaultMaxConsecutive = 3
	DefaultMaxRepeats     = 2
	DefaultMaxPasses      = 10
	DefaultAttempts       = 20
)

// Options controls the constraint scheduler.
type Options struct {
	MatchType      pairing.MatchType
	GamesPerPlayer int

	// MaxConsecutive is K: nobody plays more than K-1 matches in a row.
	MaxConsecutive int

	// MaxRepeats caps how many times the same matchup may be scheduled once
	// the pool has been replenished.
	MaxRepeats      int
	StrictNoRepeats bool

	// MaxPasses caps pool replenishments within one attempt.
	MaxPasses int

	// Attempts is the number of independent shuffles tried; the best wins.
	Attempts int

	// Rand drives every shuffle. Nil means a time-seeded source.
	Rand *rand.Rand

	Slots SlotOptions
}

func (o Options) withDefaults() Options {
	if o.MaxConsecutive == 0 {
		o.MaxConsecutive = DefaultMaxConsecutive
	}
	if o.MaxRepeats == 0 {
		o.MaxRepeats = DefaultMaxRepeats
	}
	if o.MaxPasses == 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	if o.Attempts == 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

func (o Options) validate() error {
	if o.GamesPerPlayer < 1 {
		return fmt.Errorf("games per player must be at least 1, got %d", o.GamesPerPlayer)
	}
	if o.MaxConsecutive < 2 {
		return fmt.Errorf("max consecutive must be at least 2, got %d", o.MaxConsecutive)
	}
	if o.MaxRepeats < 1 {
		return fmt.Errorf("max repeats must be at least 1, got %d", o.MaxRepeats)
	}
	if o.MaxPasses < 0 || o.Attempts < 1 {
		return fmt.Errorf("max passes and attempts must not be negative")
	}
	return o.Slots.validate()
}

// Coverage compares each participant's match count with the target.
type Coverage struct {
	Target int
	Counts map[string]int
	// Under lists participants below target, in roster order.
	Under []string
	// Fraction of participants that reached the target.
	Fraction float64
}

// Complete reports whether everyone reached the target.
func (c Coverage) Complete() bool {
	return len(c.Under) == 0
}

// Result is the output of the scheduling process.
type Result struct {
	Matches  []ScheduledMatch
	Coverage Coverage
	Warnings []string
	Repeats  map[CandidateKey]int
}

// Schedule orders candidates into a match list that respects the
// consecutive-appearance rule and tries to give every participant at least
// GamesPerPlayer matches, then assigns courts and start times.
// When coverage is incomplete it returns the partial Result together with
// an error wrapping ErrInfeasibleConstraints.
func Schedule(candidates []Candidate, participants []string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var best *scheduler
	bound := lowerBound(candidates, participants, opts.GamesPerPlayer)
	for attempt := range opts.Attempts {
		s := newScheduler(candidates, participants, opts, rand.New(rand.NewSource(opts.Rand.Int63())))
		s.run()
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"matches": len(s.order),
			"under":   len(s.under()),
			"passes":  s.passes,
			"fillers": s.fillers,
		}).Debug("schedule attempt finished")

		if best == nil || s.betterThan(best) {
			best = s
		}
		if len(best.under()) == 0 && len(best.order) <= bound {
			break
		}
	}

	matches, err := AssignSlots(best.order, opts.MatchType, opts.Slots)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Matches:  matches,
		Coverage: best.coverage(),
		Repeats:  best.repeats,
	}
	result.Warnings = best.buildWarnings()

	if !result.Coverage.Complete() {
		return result, fmt.Errorf("%w: %d of %d participants below %d matches: %s",
			ErrInfeasibleConstraints, len(result.Coverage.Under), len(participants),
			opts.GamesPerPlayer, strings.Join(result.Coverage.Under, ", "))
	}
	return result, nil
}

// lowerBound is the fewest matches that could cover every participant.
func lowerBound(candidates []Candidate, participants []string, target int) int {
	if len(candidates) == 0 {
		return 0
	}
	perMatch := len(candidates[0].Members())
	return (len(participants)*target + perMatch - 1) / perMatch
}

type scheduler struct {
	opts     Options
	rng      *rand.Rand
	universe []Candidate
	players  []string // participants with a target
	everyone []string // players plus anyone else appearing in a candidate
	target   map[string]bool

	pool    []Candidate
	order   []Candidate
	counts  map[string]int
	windows map[string][]bool
	repeats map[CandidateKey]int

	// diagnostics
	passes    int
	fillers   int
	exhausted bool
}

func newScheduler(candidates []Candidate, participants []string, opts Options, rng *rand.Rand) *scheduler {
	s := &scheduler{
		opts:     opts,
		rng:      rng,
		universe: candidates,
		players:  participants,
		target:   make(map[string]bool),
		counts:   make(map[string]int),
		windows:  make(map[string][]bool),
		repeats:  make(map[CandidateKey]int),
	}
	for _, p := range participants {
		s.target[p] = true
	}
	s.everyone = append(s.everyone, participants...)
	for _, c := range candidates {
		for _, m := range c.Members() {
			if !pie.Contains(s.everyone, m) {
				s.everyone = append(s.everyone, m)
			}
		}
	}
	return s
}

func (s *scheduler) run() {
	s.pool = s.shuffled(s.universe)

	for len(s.under()) > 0 {
		if i := s.pick(); i >= 0 {
			s.commit(i)
			continue
		}

		// Everyone still short is resting; a match among the others lets
		// their streaks reset.
		if s.hasDeferred() {
			if i := s.pickFiller(); i >= 0 {
				s.fillers++
				logrus.WithField("match", s.pool[i].String()).Debug("scheduling filler match")
				s.commit(i)
				continue
			}
		}

		if !s.replenish() {
			s.exhausted = true
			break
		}
	}
}

// pick returns the pool index of the committable candidate with the largest
// total deficit, or -1. Ties go to the earlier pool position.
func (s *scheduler) pick() int {
	best, bestDeficit := -1, 0
	for i, c := range s.pool {
		d := s.deficit(c)
		if d <= bestDeficit || !s.committable(c) {
			continue
		}
		best, bestDeficit = i, d
	}
	return best
}

// pickFiller returns the first committable candidate in the pool, or -1.
func (s *scheduler) pickFiller() int {
	for i, c := range s.pool {
		if s.committable(c) {
			return i
		}
	}
	return -1
}

// hasDeferred reports whether the pool still holds a useful candidate that
// is waiting on the consecutive-appearance rule.
func (s *scheduler) hasDeferred() bool {
	return pie.Any(s.pool, func(c Candidate) bool { return s.deficit(c) > 0 })
}

func (s *scheduler) deficit(c Candidate) int {
	total := 0
	for _, m := range c.Members() {
		if s.target[m] && s.counts[m] < s.opts.GamesPerPlayer {
			total += s.opts.GamesPerPlayer - s.counts[m]
		}
	}
	return total
}

// committable checks the consecutive-appearance rule for every member.
func (s *scheduler) committable(c Candidate) bool {
	for _, m := range c.Members() {
		if s.resting(m) {
			return false
		}
	}
	return true
}

// resting reports whether name appeared in each of the last K-1 matches.
func (s *scheduler) resting(name string) bool {
	w := s.windows[name]
	if len(w) < s.opts.MaxConsecutive-1 {
		return false
	}
	for _, played := range w {
		if !played {
			return false
		}
	}
	return true
}

func (s *scheduler) commit(i int) {
	c := s.pool[i]
	s.pool = append(s.pool[:i:i], s.pool[i+1:]...)
	s.order = append(s.order, c)
	s.repeats[c.Key()]++

	for _, m := range c.Members() {
		s.counts[m]++
	}
	for _, p := range s.everyone {
		s.push(p, c.Involves(p))
	}
}

func (s *scheduler) push(name string, played bool) {
	w := append(s.windows[name], played)
	if n := s.opts.MaxConsecutive - 1; len(w) > n {
		w = w[len(w)-n:]
	}
	s.windows[name] = w
}

// replenish refills the pool from the full candidate universe, allowing
// repeats up to MaxRepeats. It reports false when no refill is allowed or
// none would help.
func (s *scheduler) replenish() bool {
	if s.opts.StrictNoRepeats || s.passes >= s.opts.MaxPasses {
		return false
	}
	eligible := pie.Filter(s.universe, func(c Candidate) bool {
		return s.repeats[c.Key()] < s.opts.MaxRepeats && s.deficit(c) > 0
	})
	if len(eligible) == 0 {
		return false
	}
	s.passes++
	logrus.WithFields(logrus.Fields{
		"pass":       s.passes,
		"candidates": len(eligible),
	}).Debug("replenishing candidate pool")
	s.pool = s.shuffled(eligible)
	return true
}

func (s *scheduler) shuffled(cs []Candidate) []Candidate {
	out := make([]Candidate, len(cs))
	copy(out, cs)
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func (s *scheduler) under() []string {
	return pie.Filter(s.players, func(p string) bool { return s.counts[p] < s.opts.GamesPerPlayer })
}

// spread is the gap between the busiest and least busy participant.
func (s *scheduler) spread() int {
	if len(s.players) == 0 {
		return 0
	}
	lo, hi := s.counts[s.players[0]], s.counts[s.players[0]]
	for _, p := range s.players {
		lo = min(lo, s.counts[p])
		hi = max(hi, s.counts[p])
	}
	return hi - lo
}

// betterThan prefers fuller coverage, then shorter schedules, then more
// even participation.
func (s *scheduler) betterThan(o *scheduler) bool {
	if a, b := len(s.under()), len(o.under()); a != b {
		return a < b
	}
	if a, b := len(s.order), len(o.order); a != b {
		return a < b
	}
	return s.spread() < o.spread()
}

func (s *scheduler) coverage() Coverage {
	c := Coverage{
		Target: s.opts.GamesPerPlayer,
		Counts: make(map[string]int, len(s.players)),
		Under:  s.under(),
	}
	for _, p := range s.players {
		c.Counts[p] = s.counts[p]
	}
	c.Fraction = 1
	if len(s.players) > 0 {
		c.Fraction = float64(len(s.players)-len(c.Under)) / float64(len(s.players))
	}
	return c
}

func (s *scheduler) buildWarnings() []string {
	var warnings []string
	if len(s.universe) == 0 {
		warnings = append(warnings, "no matches can be formed from these teams")
	}
	for _, p := range s.under() {
		warnings = append(warnings, fmt.Sprintf("%s plays %d of %d matches", p, s.counts[p], s.opts.GamesPerPlayer))
	}
	if s.exhausted && len(s.under()) > 0 {
		switch {
		case s.opts.StrictNoRepeats:
			warnings = append(warnings, "every matchup was used once and repeats are disabled")
		case s.passes >= s.opts.MaxPasses:
			warnings = append(warnings, fmt.Sprintf("stopped after %d pool refills", s.passes))
		}
	}
	reported := make(map[CandidateKey]bool)
	for _, c := range s.order {
		if n := s.repeats[c.Key()]; n > 1 && !reported[c.Key()] {
			reported[c.Key()] = true
			warnings = append(warnings, fmt.Sprintf("%s is scheduled %d times", c, n))
		}
	}
	return warnings
}
