package pairing

import (
	"fmt"
	"strings"
)

// Kind distinguishes singles sides from doubles sides.
type Kind int

const (
	KindSingles Kind = iota
	KindDoubles
)

// Team is one side of a match: a single player or a partnership. Members
// are fixed at construction; use Singles or Doubles to build one.
type Team struct {
	kind Kind
	a, b string
}

// Singles returns a one-player team.
func Singles(name string) Team {
	return Team{kind: KindSingles, a: name}
}

// Doubles returns a two-player team. Member order is kept for display but
// does not affect identity.
func Doubles(a, b string) Team {
	return Team{kind: KindDoubles, a: a, b: b}
}

// TeamKey identifies a team regardless of member order.
type TeamKey struct {
	a, b string
}

func (t Team) Kind() Kind {
	return t.kind
}

// Members returns one or two names.
func (t Team) Members() []string {
	if t.kind == KindSingles {
		return []string{t.a}
	}
	return []string{t.a, t.b}
}

// Contains reports whether name plays on this team.
func (t Team) Contains(name string) bool {
	return t.a == name || (t.kind == KindDoubles && t.b == name)
}

// Overlaps reports whether the two teams share a player.
func (t Team) Overlaps(other Team) bool {
	for _, m := range other.Members() {
		if t.Contains(m) {
			return true
		}
	}
	return false
}

func (t Team) Key() TeamKey {
	if t.kind == KindDoubles && t.b < t.a {
		return TeamKey{t.b, t.a}
	}
	return TeamKey{t.a, t.b}
}

// Equal compares membership, ignoring order.
func (t Team) Equal(other Team) bool {
	return t.kind == other.kind && t.Key() == other.Key()
}

func (t Team) String() string {
	return strings.Join(t.Members(), TeamSeparator)
}

// TeamSeparator joins partner names when a team is displayed or exported.
const TeamSeparator = " + "

// ParseTeam reverses String. It is only meant for reading back exported
// schedules; inside the engine membership is always structural.
func ParseTeam(s string) (Team, error) {
	parts := strings.Split(s, TeamSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Team{}, fmt.Errorf("invalid team %q", s)
		}
	}
	switch len(parts) {
	case 1:
		return Singles(parts[0]), nil
	case 2:
		if parts[0] == parts[1] {
			return Team{}, fmt.Errorf("team %q lists the same player twice", s)
		}
		return Doubles(parts[0], parts[1]), nil
	default:
		return Team{}, fmt.Errorf("team %q has %d players, want 1 or 2", s, len(parts))
	}
}

// Less orders keys by their sorted member names.
func (k TeamKey) String() string {
	if k.b == "" {
		return k.a
	}
	return k.a + TeamSeparator + k.b
}

func (k TeamKey) Less(o TeamKey) bool {
	if k.a != o.a {
		return k.a < o.a
	}
	return k.b < o.b
}
