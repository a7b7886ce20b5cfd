package config

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/derekprior/rally/internal/pairing"
	"github.com/derekprior/rally/internal/roster"
	"github.com/derekprior/rally/internal/schedule"
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

// ClockTime is a wall-clock time written as "HH:MM".
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c *ClockTime) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseClockTime(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Mode selects between a round-robin league night and a knockout bracket.
type Mode string

const (
	ModeLeague     Mode = "league"
	ModeTournament Mode = "tournament"
)

type Event struct {
	Name        string    `yaml:"name"`
	Date        *Date     `yaml:"date"`
	StartTime   ClockTime `yaml:"start_time"`
	Courts      int       `yaml:"courts"`
	SlotMinutes int       `yaml:"slot_minutes"`
}

type Format struct {
	Mode            Mode   `yaml:"mode"`
	MatchType       string `yaml:"match_type"`
	Pairing         string `yaml:"pairing"`
	RotatePartners  bool   `yaml:"rotate_partners"`
	GamesPerPlayer  int    `yaml:"games_per_player"`
	MaxConsecutive  int    `yaml:"max_consecutive"`
	MaxRepeats      int    `yaml:"max_repeats"`
	StrictNoRepeats bool   `yaml:"strict_no_repeats"`
	MaxPasses       int    `yaml:"max_passes"`
	Attempts        int    `yaml:"attempts"`
	Seed            *int64 `yaml:"seed"`
}

type Config struct {
	Event      Event                `yaml:"event"`
	Format     Format               `yaml:"format"`
	Roster     []roster.Participant `yaml:"roster"`
	RosterFile string               `yaml:"roster_file"`

	// dir is the directory of the config file; roster_file is relative to it.
	dir string
}

// Env holds overrides read from the environment.
type Env struct {
	Seed     int    `env:"RALLY_SEED"`
	Courts   int    `env:"RALLY_COURTS"`
	LogLevel string `env:"RALLY_LOG_LEVEL" envDefault:"info"`
}

// LoadEnv reads RALLY_* overrides from the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

// Apply copies any set override onto the config. A zero value means unset.
func (e Env) Apply(c *Config) {
	if e.Seed != 0 {
		seed := int64(e.Seed)
		c.Format.Seed = &seed
	}
	if e.Courts != 0 {
		c.Event.Courts = e.Courts
	}
}

// Level parses the configured log level, falling back to info.
func (e Env) Level() logrus.Level {
	level, err := logrus.ParseLevel(e.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Format.Mode == "" {
		c.Format.Mode = ModeLeague
	}
	if c.Format.Pairing == "" {
		c.Format.Pairing = pairing.PolicyRandomized
	}
	if c.Format.GamesPerPlayer == 0 {
		c.Format.GamesPerPlayer = 3
	}
	if c.Event.SlotMinutes == 0 {
		c.Event.SlotMinutes = int(c.defaultSlot() / time.Minute)
	}
}

func (c *Config) defaultSlot() time.Duration {
	if c.Format.Mode == ModeTournament {
		return schedule.TournamentSlot
	}
	return schedule.LeagueSlot
}

// Validate checks the config after defaults and overrides are applied.
func (c *Config) Validate() error {
	if c.Event.Courts <= 0 {
		return fmt.Errorf("event courts must be positive, got %d", c.Event.Courts)
	}
	if c.Event.SlotMinutes <= 0 {
		return fmt.Errorf("event slot_minutes must be positive, got %d", c.Event.SlotMinutes)
	}

	switch c.Format.Mode {
	case ModeLeague, ModeTournament:
	default:
		return fmt.Errorf("unknown mode %q: want %q or %q", c.Format.Mode, ModeLeague, ModeTournament)
	}
	if _, err := pairing.ParseMatchType(c.Format.MatchType); err != nil {
		return err
	}
	if _, err := pairing.Get(c.Format.Pairing); err != nil {
		return err
	}
	if c.Format.RotatePartners && c.Format.Pairing != pairing.PolicyRandomized {
		return fmt.Errorf("rotate_partners needs pairing %q, got %q", pairing.PolicyRandomized, c.Format.Pairing)
	}

	if c.Format.GamesPerPlayer < 1 {
		return fmt.Errorf("games_per_player must be at least 1, got %d", c.Format.GamesPerPlayer)
	}
	if c.Format.MaxConsecutive != 0 && c.Format.MaxConsecutive < 2 {
		return fmt.Errorf("max_consecutive must be at least 2, got %d", c.Format.MaxConsecutive)
	}
	if c.Format.MaxRepeats < 0 || c.Format.MaxPasses < 0 || c.Format.Attempts < 0 {
		return fmt.Errorf("max_repeats, max_passes and attempts must not be negative")
	}

	if len(c.Roster) > 0 {
		if _, err := roster.New(c.Roster...); err != nil {
			return fmt.Errorf("roster: %w", err)
		}
	}
	return nil
}

// MatchType returns the validated match type.
func (c *Config) MatchType() pairing.MatchType {
	mt, _ := pairing.ParseMatchType(c.Format.MatchType)
	return mt
}

// Policy returns the configured pairing policy.
func (c *Config) Policy() (pairing.Policy, error) {
	p, err := pairing.Get(c.Format.Pairing)
	if err != nil {
		return nil, err
	}
	if r, ok := p.(*pairing.Randomized); ok {
		r.Rotate = c.Format.RotatePartners
	}
	return p, nil
}

// Start is the first match's start time, on the event date if one is set.
func (c *Config) Start() time.Time {
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.Local)
	if c.Event.Date != nil {
		day = c.Event.Date.Time
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Event.StartTime.Hour, c.Event.StartTime.Minute, 0, 0, time.Local)
}

// SlotOptions describes the event's courts and clock.
func (c *Config) SlotOptions() schedule.SlotOptions {
	return schedule.SlotOptions{
		Courts:       c.Event.Courts,
		Start:        c.Start(),
		SlotDuration: time.Duration(c.Event.SlotMinutes) * time.Minute,
	}
}

// Rand returns a source seeded from the config, or from the clock when no
// seed is set.
func (c *Config) Rand() *rand.Rand {
	seed := time.Now().UnixNano()
	if c.Format.Seed != nil {
		seed = *c.Format.Seed
	}
	return rand.New(rand.NewSource(seed))
}

// ScheduleOptions builds scheduler options from the format section.
func (c *Config) ScheduleOptions(rng *rand.Rand) schedule.Options {
	return schedule.Options{
		MatchType:       c.MatchType(),
		GamesPerPlayer:  c.Format.GamesPerPlayer,
		MaxConsecutive:  c.Format.MaxConsecutive,
		MaxRepeats:      c.Format.MaxRepeats,
		StrictNoRepeats: c.Format.StrictNoRepeats,
		MaxPasses:       c.Format.MaxPasses,
		Attempts:        c.Format.Attempts,
		Rand:            rng,
		Slots:           c.SlotOptions(),
	}
}

// LoadRoster merges the inline roster with roster_file, if set.
func (c *Config) LoadRoster() (*roster.Roster, error) {
	participants := append([]roster.Participant(nil), c.Roster...)
	if c.RosterFile != "" {
		path := c.RosterFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.dir, path)
		}
		fromFile, err := roster.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		participants = append(participants, fromFile.Participants...)
	}
	return roster.New(participants...)
}
