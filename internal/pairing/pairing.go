package pairing

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/derekprior/rally/internal/roster"
)

// ErrInsufficientParticipants means the roster is too small for the match type.
var ErrInsufficientParticipants = errors.New("insufficient participants")

// MatchType is the format of every match in an event.
type MatchType string

const (
	TypeSingles MatchType = "singles"
	TypeDoubles MatchType = "doubles"
	TypeMixed   MatchType = "mixed"
)

// ParseMatchType validates a configured match type.
func ParseMatchType(s string) (MatchType, error) {
	switch mt := MatchType(s); mt {
	case TypeSingles, TypeDoubles, TypeMixed:
		return mt, nil
	default:
		return "", fmt.Errorf("unknown match type: %q", s)
	}
}

// TeamSize is the number of players per side.
func (mt MatchType) TeamSize() int {
	if mt == TypeSingles {
		return 1
	}
	return 2
}

// MinParticipants is the smallest roster that can produce one match.
func (mt MatchType) MinParticipants() int {
	return 2 * mt.TeamSize()
}

// Leftover records a participant the policy could not pair one-to-one.
// PairedWith is the partner of convenience, or empty when nobody eligible
// exists.
type Leftover struct {
	Name       string
	PairedWith string
}

// Result is the output of pair generation.
type Result struct {
	MatchType MatchType
	Policy    string
	Teams     []Team
	Leftovers []Leftover
	Warnings  []string
}

// Policy forms teams from a roster.
type Policy interface {
	Name() string
	Pair(r *roster.Roster, mt MatchType, rng *rand.Rand) (*Result, error)
}

const (
	PolicyRandomized         = "randomized"
	PolicyExperienceBalanced = "experience_balanced"
)

// Get returns a Policy by name.
func Get(name string) (Policy, error) {
	switch name {
	case PolicyRandomized:
		return &Randomized{}, nil
	case PolicyExperienceBalanced:
		return &ExperienceBalanced{}, nil
	default:
		return nil, fmt.Errorf("unknown pairing policy: %q", name)
	}
}

// CheckRoster returns ErrInsufficientParticipants when r cannot field two
// sides of the given match type.
func CheckRoster(r *roster.Roster, mt MatchType) error {
	if mt == TypeMixed {
		males, females := len(r.Males()), len(r.Females())
		if males < 2 || females < 2 {
			return fmt.Errorf("%w: mixed doubles needs at least 2 men and 2 women, have %d and %d",
				ErrInsufficientParticipants, males, females)
		}
		return nil
	}
	if r.Len() < mt.MinParticipants() {
		return fmt.Errorf("%w: %s needs at least %d players, have %d",
			ErrInsufficientParticipants, mt, mt.MinParticipants(), r.Len())
	}
	return nil
}

// GeneratePairs builds the candidate teams for a roster. When the roster is
// too small it returns ErrInsufficientParticipants together with a result
// that lists every participant as an unpaired leftover.
func GeneratePairs(r *roster.Roster, mt MatchType, p Policy, rng *rand.Rand) (*Result, error) {
	if err := CheckRoster(r, mt); err != nil {
		res := &Result{MatchType: mt, Policy: p.Name()}
		for _, name := range r.Names() {
			res.Leftovers = append(res.Leftovers, Leftover{Name: name})
		}
		res.Warnings = append(res.Warnings, err.Error())
		return res, err
	}
	res, err := p.Pair(r, mt, rng)
	if err != nil {
		return nil, err
	}
	res.MatchType = mt
	res.Policy = p.Name()
	return res, nil
}

func (r *Result) addLeftover(name, partner string) {
	r.Leftovers = append(r.Leftovers, Leftover{Name: name, PairedWith: partner})
	if partner == "" {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s has no eligible partner and sits out", name))
		return
	}
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s has no partner; paired with %s, who also plays on another team", name, partner))
}
