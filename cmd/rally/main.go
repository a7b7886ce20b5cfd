package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/rally/internal/config"
	"github.com/derekprior/rally/internal/excel"
	"github.com/derekprior/rally/internal/ledger"
	"github.com/derekprior/rally/internal/pairing"
	"github.com/derekprior/rally/internal/schedule"
	"github.com/derekprior/rally/internal/session"
	"github.com/derekprior/rally/internal/validator"
)

const defaultConfigFile = "rally.yaml"

func resolveConfigPath(configFlag string) (string, error) {
	if configFlag != "" {
		return configFlag, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("no config file found. Either create %s in the current directory or pass --config", defaultConfigFile)
}

var overrides config.Env

func setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	e, err := config.LoadEnv()
	if err != nil {
		return err
	}
	overrides = e
	logrus.SetLevel(overrides.Level())
	return nil
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig(configFlag string) (*config.Config, error) {
	path, err := resolveConfigPath(configFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	overrides.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config after environment overrides: %w", err)
	}
	return cfg, nil
}

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "rally",
		Short: "Racquet-sport match pairing and court scheduling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: rally.yaml in current directory)")

	var initOutputPath string
	initCmd := &cobra.Command{
		Use:          "init",
		Short:        "Create a starter rally.yaml in the current directory",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(initOutputPath)
		},
	}
	initCmd.Flags().StringVarP(&initOutputPath, "output", "o", defaultConfigFile, "Output path for the config file")

	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect the roster",
	}
	rosterCheckCmd := &cobra.Command{
		Use:          "check",
		Short:        "Check the roster against the configured match type",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRosterCheck(configFile)
		},
	}
	rosterCmd.AddCommand(rosterCheckCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate and validate schedules",
	}

	var outputFile string
	generateCmd := &cobra.Command{
		Use:          "generate",
		Short:        "Pair the roster and generate a schedule",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(configFile, outputFile)
		},
	}
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "schedule.xlsx", "Output Excel file path")

	validateCmd := &cobra.Command{
		Use:          "validate <schedule.xlsx>",
		Short:        "Validate a schedule against the config rules",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(configFile, args[0])
		},
	}
	scheduleCmd.AddCommand(generateCmd, validateCmd)

	scoresCmd := &cobra.Command{
		Use:   "scores",
		Short: "Record match scores",
	}
	applyCmd := &cobra.Command{
		Use:          "apply <schedule.xlsx>",
		Short:        "Read the score columns and write standings into the workbook",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScoresApply(args[0])
		},
	}
	scoresCmd.AddCommand(applyCmd)

	var player string
	var top int
	standingsCmd := &cobra.Command{
		Use:          "standings <schedule.xlsx>",
		Short:        "Print standings from a scored schedule",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStandings(configFile, args[0], player, top)
		},
	}
	standingsCmd.Flags().StringVarP(&player, "player", "p", "", "Show one participant's record (fuzzy match)")
	standingsCmd.Flags().IntVar(&top, "top", 0, "Only show the top N (MVP list)")

	rootCmd.AddCommand(initCmd, rosterCmd, scheduleCmd, scoresCmd, standingsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

func runRosterCheck(configFlag string) error {
	cfg, err := loadConfig(configFlag)
	if err != nil {
		return err
	}
	r, err := cfg.LoadRoster()
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	fmt.Printf("%d participants: %d men, %d women\n", r.Len(), len(r.Males()), len(r.Females()))
	if !r.TracksExperience() && cfg.Format.Pairing == pairing.PolicyExperienceBalanced {
		fmt.Println("⚠ Some participants have no experience level; balanced pairing treats them as 0")
	}
	if err := pairing.CheckRoster(r, cfg.MatchType()); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %s\n", err)
		return err
	}
	fmt.Printf("✓ Roster can play %s\n", cfg.MatchType())
	return nil
}

func runGenerate(configFlag, outputPath string) error {
	cfg, err := loadConfig(configFlag)
	if err != nil {
		return err
	}
	r, err := cfg.LoadRoster()
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	fmt.Printf("Pairing %d participants for %s %s (%s)...\n", r.Len(), cfg.Format.Mode, cfg.MatchType(), cfg.Format.Pairing)

	s := session.New(cfg, r)
	genErr := s.Generate(cfg.Rand())
	if errors.Is(genErr, pairing.ErrInsufficientParticipants) {
		fmt.Fprintf(os.Stderr, "✗ %s\n", genErr)
		return genErr
	}
	if genErr != nil && !errors.Is(genErr, schedule.ErrInfeasibleConstraints) {
		return genErr
	}

	if genErr != nil {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", genErr)
		fmt.Fprintf(os.Stderr, "\nGenerating partial schedule...\n")
	} else {
		fmt.Printf("✓ %d matches scheduled on %d courts\n", len(s.Matches), cfg.Event.Courts)
	}

	if cfg.Format.Mode == config.ModeLeague {
		fmt.Println("\nPer Participant Matches:")
		fmt.Printf("  %-20s %7s\n", "Participant", "Matches")
		for _, name := range r.Names() {
			fmt.Printf("  %-20s %7d\n", name, s.Report.Coverage.Counts[name])
		}
	}

	if len(s.Report.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(s.Report.Warnings))
		for _, w := range s.Report.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	} else {
		fmt.Println("\n✓ No warnings")
	}

	f, err := excel.Generate(s)
	if err != nil {
		return fmt.Errorf("generating Excel: %w", err)
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}

	fmt.Printf("\n✓ Schedule saved to %s\n", outputPath)
	if genErr != nil {
		return fmt.Errorf("schedule is incomplete: %d participants below %d matches",
			len(s.Report.Coverage.Under), cfg.Format.GamesPerPlayer)
	}
	return nil
}

func runValidate(configFlag, schedulePath string) error {
	cfg, err := loadConfig(configFlag)
	if err != nil {
		return err
	}

	violations, err := validator.Validate(cfg, schedulePath)
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}

	errs := 0
	warnings := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errs++
			fmt.Printf("✗ Row %d: %s\n", v.Row, v.Message)
		case "warning":
			warnings++
			fmt.Printf("⚠ %s\n", v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d warnings\n", errs, warnings)
	if errs > 0 {
		return fmt.Errorf("%d rule violations found", errs)
	}
	return nil
}

// readSchedule loads the matches and score cells from a workbook.
func readSchedule(path string) (*excelize.File, []excel.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	rows, err := excel.ReadMatches(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("reading matches: %w", err)
	}
	return f, rows, nil
}

func runScoresApply(schedulePath string) error {
	f, rows, err := readSchedule(schedulePath)
	if err != nil {
		return err
	}
	defer f.Close()

	s := &session.Session{}
	s.Load(excel.Matches(rows))
	warnings, err := s.SubmitScores(excel.Entries(rows))
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Printf("⚠ %s\n", w)
	}

	excel.WriteScores(f, rows, s.Matches)
	if err := excel.WriteStandings(f, s.Ledger.Standings()); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("saving file: %w", err)
	}

	fmt.Printf("✓ %d of %d matches scored, standings updated in %s\n", s.Ledger.Scored(), len(s.Matches), schedulePath)
	return nil
}

func runStandings(configFlag, schedulePath, player string, top int) error {
	f, rows, err := readSchedule(schedulePath)
	if err != nil {
		return err
	}
	defer f.Close()

	matches := excel.Matches(rows)
	if warnings := ledger.Submit(matches, excel.Entries(rows)); len(warnings) > 0 {
		logrus.WithField("skipped", len(warnings)).Warn("some scores could not be read")
	}
	l := ledger.Build(matches)

	if player != "" {
		return printPlayer(configFlag, l, player)
	}

	records := l.Standings()
	if top > 0 {
		records = l.MVP(top)
	}
	fmt.Printf("  %4s %-20s %3s %3s %3s %3s %5s %5s\n", "Rank", "Participant", "P", "W", "L", "D", "PF", "PA")
	for i, r := range records {
		fmt.Printf("  %4d %-20s %3d %3d %3d %3d %5d %5d\n", i+1, r.Name, r.Played, r.Wins, r.Losses, r.Draws, r.PointsFor, r.PointsAgainst)
	}
	return nil
}

// printPlayer resolves a partial name against the roster when a config is
// available, otherwise against the names in the schedule.
func printPlayer(configFlag string, l *ledger.Ledger, query string) error {
	name := query
	if cfg, err := loadConfig(configFlag); err == nil {
		if r, err := cfg.LoadRoster(); err == nil {
			p, err := r.Find(query)
			if err != nil {
				return err
			}
			name = p.Name
		}
	}

	rec, ok := l.Get(name)
	if !ok {
		return fmt.Errorf("%s has no matches in this schedule", name)
	}
	fmt.Printf("%s\n", name)
	fmt.Printf("  Played %d: %d W, %d L, %d D\n", rec.Played, rec.Wins, rec.Losses, rec.Draws)
	fmt.Printf("  Points %d for, %d against (%+d)\n", rec.PointsFor, rec.PointsAgainst, rec.PointDiff())
	fmt.Printf("  Win rate %.0f%%\n", rec.WinRate()*100)
	return nil
}
