package pairing

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/derekprior/rally/internal/roster"
)

// Randomized forms teams without looking at experience. Doubles rotate
// through every possible partnership; mixed doubles are fixed one-to-one
// pairs drawn at random unless Rotate is set, in which case every man is
// teamed with every woman.
type Randomized struct {
	Rotate bool
}

func (p *Randomized) Name() string {
	return PolicyRandomized
}

func (p *Randomized) Pair(r *roster.Roster, mt MatchType, rng *rand.Rand) (*Result, error) {
	res := &Result{}
	names := r.Names()

	switch mt {
	case TypeSingles:
		shuffle(rng, names)
		for _, n := range names {
			res.Teams = append(res.Teams, Singles(n))
		}

	case TypeDoubles:
		for _, c := range combin.Combinations(len(names), 2) {
			res.Teams = append(res.Teams, Doubles(names[c[0]], names[c[1]]))
		}
		shuffle(rng, res.Teams)

	case TypeMixed:
		males := namesOf(r.Males())
		females := namesOf(r.Females())
		if p.Rotate {
			if len(males) == 0 || len(females) == 0 {
				for _, n := range append(males, females...) {
					res.addLeftover(n, "")
				}
				break
			}
			for _, c := range combin.Cartesian([]int{len(males), len(females)}) {
				res.Teams = append(res.Teams, Doubles(males[c[0]], females[c[1]]))
			}
			shuffle(rng, res.Teams)
			break
		}

		shuffle(rng, males)
		shuffle(rng, females)

		n := min(len(males), len(females))
		for i := range n {
			res.Teams = append(res.Teams, Doubles(males[i], females[i]))
		}
		// Leftovers of the larger group borrow a random partner of the other sex.
		for _, m := range males[n:] {
			if len(females) == 0 {
				res.addLeftover(m, "")
				continue
			}
			partner := females[rng.Intn(len(females))]
			res.Teams = append(res.Teams, Doubles(m, partner))
			res.addLeftover(m, partner)
		}
		for _, f := range females[n:] {
			if len(males) == 0 {
				res.addLeftover(f, "")
				continue
			}
			partner := males[rng.Intn(len(males))]
			res.Teams = append(res.Teams, Doubles(partner, f))
			res.addLeftover(f, partner)
		}

	default:
		return nil, fmt.Errorf("unknown match type: %q", mt)
	}

	return res, nil
}

func shuffle[T any](rng *rand.Rand, s []T) {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

func namesOf(ps []roster.Participant) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}
