package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	scouterrors "scout/internal/errors"
	"scout/internal/frontier"
)

var (
	frontierRunID       int64
	frontierMaxNew      int
	frontierLanguages   string
	frontierSeedTerms   []string
	frontierDryRun      bool
	frontierProfilePath string
	profileInitForce    bool
)

var frontierCmd = &cobra.Command{
	Use:   "frontier",
	Short: "Search GitHub for repositories adjacent to the corpus",
	Long: `Run one frontier step: derive rare terms from stored READMEs (or use
--seed-term), search GitHub per term and language, and admit matching
repositories until --max-new is reached. Each admission is stored,
scored into the run's registry and explained in the research log.

Domain keywords and languages come from the profile file
(.scout/frontier.toml by default; see 'scout frontier profile init').

Examples:
  scout frontier --run-id 1
  scout frontier --run-id 1 --seed-term "earley parser" --languages Rust --max-new 5
  scout frontier --dry-run --seed-term agents`,
	Args: cobra.NoArgs,
	RunE: runFrontier,
}

var frontierProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the frontier profile",
}

var frontierProfileInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default profile so it can be edited",
	Args:  cobra.NoArgs,
	RunE:  runFrontierProfileInit,
}

func init() {
	frontierCmd.PersistentFlags().StringVar(&frontierProfilePath, "profile", "", "Profile file (default from config: .scout/frontier.toml)")

	f := frontierCmd.Flags()
	f.Int64Var(&frontierRunID, "run-id", 0, "Run to record discoveries in (required unless --dry-run)")
	f.IntVar(&frontierMaxNew, "max-new", 0, "Maximum admissions for this step (default from config: 3)")
	f.StringVar(&frontierLanguages, "languages", "", "Comma-separated languages to search (default from profile)")
	f.StringArrayVar(&frontierSeedTerms, "seed-term", nil, "Search term to use instead of corpus terms (repeatable)")
	f.BoolVar(&frontierDryRun, "dry-run", false, "Report what would be admitted without writing")

	frontierProfileInitCmd.Flags().BoolVar(&profileInitForce, "force", false, "Overwrite an existing profile")

	frontierProfileCmd.AddCommand(frontierProfileInitCmd)
	frontierCmd.AddCommand(frontierProfileCmd)
	rootCmd.AddCommand(frontierCmd)
}

func splitLanguages(raw string) []string {
	var out []string
	for _, l := range strings.Split(raw, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func runFrontier(cmd *cobra.Command, args []string) error {
	if !frontierDryRun && frontierRunID <= 0 {
		return scouterrors.New(scouterrors.ValidationError, "--run-id is required unless --dry-run is set")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	path := frontierProfilePath
	if path == "" {
		path = a.cfg.Frontier.ProfilePath
	}
	profile, err := frontier.LoadProfile(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) && len(a.cfg.Frontier.Languages) > 0 {
		profile.Languages = a.cfg.Frontier.Languages
	}

	ctx, cancel := newContext()
	defer cancel()

	gh, err := a.github()
	if err != nil {
		return err
	}
	embedder, err := a.embedder()
	if err != nil {
		return err
	}

	maxNew := a.cfg.Frontier.MaxNew
	if cmd.Flags().Changed("max-new") {
		maxNew = frontierMaxNew
	}

	loop := frontier.NewLoop(a.db, gh, embedder, profile, a.cfg.CooldownDuration(), a.component("frontier"))
	res, err := loop.Step(ctx, frontier.Options{
		RunID:         frontierRunID,
		MaxNew:        maxNew,
		Languages:     splitLanguages(frontierLanguages),
		SeedTerms:     frontierSeedTerms,
		PerPage:       a.cfg.Frontier.PerPage,
		TopTerms:      a.cfg.Frontier.TopTerms,
		MinTermLength: a.cfg.Frontier.MinTermLength,
		DryRun:        frontierDryRun,
	})
	if err != nil {
		return err
	}
	return printResponse(&FrontierResponse{Status: "OK", StepResult: res})
}

func runFrontierProfileInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := frontierProfilePath
	if path == "" {
		path = cfg.Frontier.ProfilePath
	}
	if _, err := os.Stat(path); err == nil && !profileInitForce {
		return scouterrors.Newf(scouterrors.ValidationError, "profile %s already exists (use --force to overwrite)", path)
	}
	if err := frontier.DefaultProfile().Save(path); err != nil {
		return err
	}
	return printResponse(map[string]string{"status": "CREATED", "profile": path})
}
