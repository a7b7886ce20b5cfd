package pairing

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/elliotchance/pie/v2"

	"github.com/derekprior/rally/internal/roster"
)

// ExperienceBalanced forms fixed partnerships with the smallest possible
// experience gap, then orders teams by mean experience so neighbouring
// teams are evenly matched.
type ExperienceBalanced struct{}

func (p *ExperienceBalanced) Name() string {
	return PolicyExperienceBalanced
}

func (p *ExperienceBalanced) Pair(r *roster.Roster, mt MatchType, _ *rand.Rand) (*Result, error) {
	res := &Result{}
	if !r.TracksExperience() {
		res.Warnings = append(res.Warnings, "experience is not tracked for every participant; untracked players count as 0")
	}

	sorted := slices.Clone(r.Participants)
	slices.SortStableFunc(sorted, func(a, b roster.Participant) int {
		return a.Experience - b.Experience
	})

	switch mt {
	case TypeSingles:
		for _, p := range sorted {
			res.Teams = append(res.Teams, Singles(p.Name))
		}
		return res, nil

	case TypeDoubles:
		balancedTeams(res, sorted, func(a, b roster.Participant) bool { return true })

	case TypeMixed:
		balancedTeams(res, sorted, func(a, b roster.Participant) bool { return a.Sex != b.Sex })

	default:
		return nil, fmt.Errorf("unknown match type: %q", mt)
	}

	exp := make(map[string]int, r.Len())
	for _, p := range r.Participants {
		exp[p.Name] = p.Experience
	}
	res.Teams = pie.SortStableUsing(res.Teams, func(a, b Team) bool {
		return meanExperience(a, exp) < meanExperience(b, exp)
	})
	return res, nil
}

// balancedTeams pairs the lowest-experience unpaired participant with the
// compatible unpaired participant of smallest gap until nobody is left.
// Participants that end up alone are paired with the closest compatible
// player who already has a partner.
func balancedTeams(res *Result, sorted []roster.Participant, compatible func(a, b roster.Participant) bool) {
	used := make([]bool, len(sorted))
	var leftovers []int

	for i := range sorted {
		if used[i] {
			continue
		}
		used[i] = true
		j := closest(sorted, i, compatible, func(k int) bool { return !used[k] })
		if j < 0 {
			leftovers = append(leftovers, i)
			continue
		}
		used[j] = true
		res.Teams = append(res.Teams, orderedTeam(sorted[i], sorted[j]))
	}

	paired := make(map[int]bool)
	for i := range sorted {
		paired[i] = !slices.Contains(leftovers, i)
	}
	for _, i := range leftovers {
		j := closest(sorted, i, compatible, func(k int) bool { return paired[k] })
		if j < 0 {
			res.addLeftover(sorted[i].Name, "")
			continue
		}
		res.Teams = append(res.Teams, orderedTeam(sorted[i], sorted[j]))
		res.addLeftover(sorted[i].Name, sorted[j].Name)
	}
}

// closest returns the index of the eligible, compatible participant whose
// experience is nearest to sorted[i]. Ties go to the earlier index.
func closest(sorted []roster.Participant, i int, compatible func(a, b roster.Participant) bool, eligible func(k int) bool) int {
	best, bestGap := -1, 0
	for k := range sorted {
		if k == i || !eligible(k) || !compatible(sorted[i], sorted[k]) {
			continue
		}
		gap := abs(sorted[i].Experience - sorted[k].Experience)
		if best < 0 || gap < bestGap {
			best, bestGap = k, gap
		}
	}
	return best
}

// orderedTeam lists the man first in mixed teams so exports read the same
// way everywhere.
func orderedTeam(a, b roster.Participant) Team {
	if a.Sex == roster.Female && b.Sex == roster.Male {
		return Doubles(b.Name, a.Name)
	}
	return Doubles(a.Name, b.Name)
}

func meanExperience(t Team, exp map[string]int) float64 {
	members := t.Members()
	total := 0
	for _, m := range members {
		total += exp[m]
	}
	return float64(total) / float64(len(members))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
