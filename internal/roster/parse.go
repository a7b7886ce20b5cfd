package roster

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-andiamo/splitter"
)

// ParseLine parses one roster line: name, sex, and an optional experience
// level. Names containing spaces must be double quoted:
//
//	"Kim Min-ji" F 7
//	Lee M
func ParseLine(line string) (Participant, error) {
	sp, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return Participant{}, err
	}
	raw, err := sp.Split(strings.TrimSpace(line))
	if err != nil {
		return Participant{}, fmt.Errorf("splitting %q: %w", line, err)
	}

	var fields []string
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) < 2 || len(fields) > 3 {
		return Participant{}, fmt.Errorf("expected `name sex [experience]`, got %q", line)
	}

	name := strings.TrimSpace(strings.Trim(fields[0], `"“”`))
	sex, err := ParseSex(fields[1])
	if err != nil {
		return Participant{}, err
	}
	p := Participant{Name: name, Sex: sex}
	if len(fields) == 3 {
		exp, err := strconv.Atoi(fields[2])
		if err != nil {
			return Participant{}, fmt.Errorf("invalid experience %q for %s", fields[2], name)
		}
		p.Experience = exp
	}
	return p, nil
}

// ParseText parses a whole roster, one participant per line. Blank lines
// and lines starting with # are ignored.
func ParseText(text string) (*Roster, error) {
	var participants []Participant
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		participants = append(participants, p)
	}
	return New(participants...)
}

// LoadFromFile reads a text roster file.
func LoadFromFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}
	return ParseText(string(data))
}
