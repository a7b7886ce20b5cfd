package roster

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mitchellh/copystructure"
	"gopkg.in/yaml.v3"
)

// ErrUnknownParticipant is returned when a name lookup finds nobody.
var ErrUnknownParticipant = errors.New("unknown participant")

// MaxExperience is the top of the experience scale. Zero means not tracked.
const MaxExperience = 10

// Sex is M or F.
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// ParseSex accepts M/F or male/female in any case.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return Male, nil
	case "f", "female":
		return Female, nil
	default:
		return "", fmt.Errorf("invalid sex %q (want M or F)", s)
	}
}

func (s *Sex) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseSex(value.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Participant is a registered player.
type Participant struct {
	Name       string `yaml:"name"`
	Sex        Sex    `yaml:"sex"`
	Experience int    `yaml:"experience"`
}

// Roster is the list of registered participants, in registration order.
type Roster struct {
	Participants []Participant
}

// New builds a roster and validates it.
func New(participants ...Participant) (*Roster, error) {
	r := &Roster{Participants: participants}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks names, sex and experience for every participant.
func (r *Roster) Validate() error {
	// Keyed case-insensitively: Find and workbook sheet names both fold case.
	seen := make(map[string]string)
	for i, p := range r.Participants {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("participant %d has no name", i+1)
		}
		if name != p.Name {
			return fmt.Errorf("participant %q has leading or trailing spaces", p.Name)
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			if prev == name {
				return fmt.Errorf("participant %q is registered twice", name)
			}
			return fmt.Errorf("participant %q is registered twice (as %q)", name, prev)
		}
		seen[key] = name

		if p.Sex != Male && p.Sex != Female {
			return fmt.Errorf("participant %q: invalid sex %q", name, p.Sex)
		}
		if p.Experience < 0 || p.Experience > MaxExperience {
			return fmt.Errorf("participant %q: experience %d out of range 0..%d", name, p.Experience, MaxExperience)
		}
	}
	return nil
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	return len(r.Participants)
}

// Names returns all participant names in registration order.
func (r *Roster) Names() []string {
	return pie.Map(r.Participants, func(p Participant) string { return p.Name })
}

// Males returns male participants in registration order.
func (r *Roster) Males() []Participant {
	return r.bySex(Male)
}

// Females returns female participants in registration order.
func (r *Roster) Females() []Participant {
	return r.bySex(Female)
}

func (r *Roster) bySex(sex Sex) []Participant {
	return pie.Filter(r.Participants, func(p Participant) bool { return p.Sex == sex })
}

// Get returns the participant with exactly this name.
func (r *Roster) Get(name string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.Name == name {
			return p, true
		}
	}
	return Participant{}, false
}

// TracksExperience reports whether every participant has an experience level.
func (r *Roster) TracksExperience() bool {
	if len(r.Participants) == 0 {
		return false
	}
	return pie.All(r.Participants, func(p Participant) bool { return p.Experience > 0 })
}

// Find resolves a loosely typed name to a participant. A case-insensitive
// exact match wins; otherwise the closest fuzzy match is returned.
func (r *Roster) Find(query string) (Participant, error) {
	query = strings.TrimSpace(query)
	names := r.Names()
	for i, n := range names {
		if strings.EqualFold(n, query) {
			return r.Participants[i], nil
		}
	}

	ranks := fuzzy.RankFindFold(query, names)
	if len(ranks) == 0 {
		return Participant{}, fmt.Errorf("%w: %q", ErrUnknownParticipant, query)
	}
	sort.Sort(ranks)
	return r.Participants[ranks[0].OriginalIndex], nil
}

// Snapshot returns a deep copy that later edits to r cannot reach.
func (r *Roster) Snapshot() (*Roster, error) {
	c, err := copystructure.Copy(r)
	if err != nil {
		return nil, fmt.Errorf("copying roster: %w", err)
	}
	return c.(*Roster), nil
}
