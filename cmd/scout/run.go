package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	scouterrors "scout/internal/errors"
	"scout/internal/export"
	"scout/internal/payload"
	"scout/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Manage research runs and their artifacts",
	Long: `A run scopes one research session. Research log entries, registry
items, scorecard items, reports, topic graphs, cluster points and
portfolio updates are all attached to a run and exported together.

Examples:
  scout run start --mode CORE
  scout run log --run-id 1 --entry "Looked at PEG parsers"
  scout run scorecard --run-id 1 --idea "Agent grammar" --weighted-score 7.5 --rubric '{"impact":4}'
  scout run export --run-id 1 --archive`,
}

// Flags shared by the artifact subcommands
var (
	runIDFlag    int64
	runFromFile  string
	runListLimit int
)

var (
	runStartMode string
	runStartDate string

	runLogEntry     string
	runLogTimestamp string

	registryRepoURL    string
	registryName       string
	registryLink       string
	registryPrimitives string
	registryNovelty    float64
	registryMaturity   float64
	registryWeirdness  float64
	registryNotes      string
	registryMeta       string

	scorecardIdea   string
	scorecardScore  float64
	scorecardRubric string
	scorecardMode   string

	reportTitle   string
	reportKind    string
	reportContent string

	portfolioSummary string

	exportOut     string
	exportArchive bool
)

var runStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Create a new run",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var runLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Append a research log entry to a run",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

var runRegistryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Record a scored candidate repository in a run",
	Args:  cobra.NoArgs,
	RunE:  runRegistry,
}

var runScorecardCmd = &cobra.Command{
	Use:   "scorecard",
	Short: "Record a rubric-scored idea in a run",
	Args:  cobra.NoArgs,
	RunE:  runScorecard,
}

var runReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Attach a Markdown report to a run",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var runPortfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Attach a portfolio summary to a run",
	Args:  cobra.NoArgs,
	RunE:  runPortfolio,
}

var runExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a run's artifacts to a folder",
	Long: `Write the run's artifacts to <out>/run_<id>_<date>: registry.csv,
scorecard.csv, research_log.md, and when present report.md,
topic_graph.json, clusters.csv and portfolio.md, plus README.md and
manifest.yaml. --archive also writes a .tar.gz of the folder.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	runStartCmd.Flags().StringVar(&runStartMode, "mode", "", "Run mode (CORE or FUN)")
	runStartCmd.Flags().StringVar(&runStartDate, "date", "", "Run date as DDMMYYYY (default: today)")
	_ = runStartCmd.MarkFlagRequired("mode")

	runListCmd.Flags().IntVar(&runListLimit, "limit", 20, "Maximum runs to list")

	for _, c := range []*cobra.Command{runLogCmd, runRegistryCmd, runScorecardCmd, runReportCmd, runPortfolioCmd, runExportCmd} {
		c.Flags().Int64Var(&runIDFlag, "run-id", 0, "Run ID (required)")
		_ = c.MarkFlagRequired("run-id")
	}

	runLogCmd.Flags().StringVar(&runLogEntry, "entry", "", "Log entry text (required)")
	runLogCmd.Flags().StringVar(&runLogTimestamp, "timestamp", "", "Entry timestamp (default: now)")
	_ = runLogCmd.MarkFlagRequired("entry")

	rf := runRegistryCmd.Flags()
	rf.StringVar(&registryRepoURL, "repo-url", "", "Repository URL")
	rf.StringVar(&registryName, "name", "", "Display name")
	rf.StringVar(&registryLink, "link", "", "Link")
	rf.StringVar(&registryPrimitives, "inferred-primitives", "", "Inferred primitives")
	rf.Float64Var(&registryNovelty, "novelty", 0, "Novelty score")
	rf.Float64Var(&registryMaturity, "maturity", 0, "Maturity score")
	rf.Float64Var(&registryWeirdness, "weirdness", 0, "Weirdness score")
	rf.StringVar(&registryNotes, "notes", "", "Notes")
	rf.StringVar(&registryMeta, "meta", "", "JSON object of extra attributes")

	runScorecardCmd.Flags().StringVar(&scorecardIdea, "idea", "", "Idea (required)")
	runScorecardCmd.Flags().Float64Var(&scorecardScore, "weighted-score", 0, "Weighted score (required)")
	runScorecardCmd.Flags().StringVar(&scorecardRubric, "rubric", "", "JSON object of rubric fields (required)")
	runScorecardCmd.Flags().StringVar(&scorecardMode, "mode", "", "Mode")
	_ = runScorecardCmd.MarkFlagRequired("idea")
	_ = runScorecardCmd.MarkFlagRequired("weighted-score")
	_ = runScorecardCmd.MarkFlagRequired("rubric")

	runReportCmd.Flags().StringVar(&reportTitle, "title", "", "Report title (required)")
	runReportCmd.Flags().StringVar(&reportKind, "kind", storage.DefaultReportKind, "Report kind")
	runReportCmd.Flags().StringVar(&reportContent, "content", "", "Markdown content")
	runReportCmd.Flags().StringVar(&runFromFile, "from-file", "", "Read content from a file")
	_ = runReportCmd.MarkFlagRequired("title")
	runReportCmd.MarkFlagsMutuallyExclusive("content", "from-file")
	runReportCmd.MarkFlagsOneRequired("content", "from-file")

	runPortfolioCmd.Flags().StringVar(&portfolioSummary, "summary", "", "Summary text")
	runPortfolioCmd.Flags().StringVar(&runFromFile, "from-file", "", "Read the summary from a file")
	runPortfolioCmd.MarkFlagsMutuallyExclusive("summary", "from-file")
	runPortfolioCmd.MarkFlagsOneRequired("summary", "from-file")

	runExportCmd.Flags().StringVar(&exportOut, "out", "", "Parent folder for the bundle (default from config: exports)")
	runExportCmd.Flags().BoolVar(&exportArchive, "archive", false, "Also write a .tar.gz of the bundle")

	runCmd.AddCommand(runStartCmd, runListCmd, runLogCmd, runRegistryCmd, runScorecardCmd,
		runReportCmd, runPortfolioCmd, runExportCmd)
	rootCmd.AddCommand(runCmd)
}

// textFromFlags returns the inline text, or the file's content when path is set.
func textFromFlags(inline, path string) (string, error) {
	if path == "" {
		return inline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runStart(cmd *cobra.Command, args []string) error {
	if runStartMode != "CORE" && runStartMode != "FUN" {
		return scouterrors.Newf(scouterrors.ValidationError, "--mode must be CORE or FUN, got %q", runStartMode)
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := storage.NewRunStore(a.db).Create(runStartMode, runStartDate)
	if err != nil {
		return err
	}
	a.logger.Info("Run started", "run_id", id, "mode", runStartMode)
	return printResponse(&AckResponse{Status: "CREATED", Key: "run_id", ID: id})
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := storage.NewRunStore(a.db).List(runListLimit)
	if err != nil {
		return err
	}
	resp := &RunListResponse{Runs: make([]RunSummary, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, RunSummary{ID: r.ID, RunDate: r.RunDate, Mode: r.Mode, CreatedAt: r.CreatedAt})
	}
	return printResponse(resp)
}

func runLog(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := storage.NewRunStore(a.db).AppendResearchLog(runIDFlag, runLogEntry, runLogTimestamp)
	if err != nil {
		return err
	}
	return printResponse(&AckResponse{Status: "APPENDED", Key: "log_id", ID: id})
}

// optionalFloat returns a pointer to v when the flag was set.
func optionalFloat(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func runRegistry(cmd *cobra.Command, args []string) error {
	meta, err := payload.Parse(registryMeta)
	if err != nil {
		return err
	}
	item := storage.RegistryItem{
		RepoURL:            registryRepoURL,
		Name:               registryName,
		Link:               registryLink,
		InferredPrimitives: registryPrimitives,
		Novelty:            optionalFloat(cmd, "novelty", registryNovelty),
		Maturity:           optionalFloat(cmd, "maturity", registryMaturity),
		Weirdness:          optionalFloat(cmd, "weirdness", registryWeirdness),
		Notes:              registryNotes,
		Meta:               meta,
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := storage.NewRunStore(a.db).AddRegistryItem(runIDFlag, item)
	if err != nil {
		return err
	}
	return printResponse(&AckResponse{Status: "CREATED", Key: "registry_item_id", ID: id})
}

func runScorecard(cmd *cobra.Command, args []string) error {
	rubric, err := payload.Parse(scorecardRubric)
	if err != nil {
		return err
	}
	if rubric == nil {
		return scouterrors.New(scouterrors.ValidationError, "--rubric must be a JSON object")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := storage.NewRunStore(a.db).AddScorecardItem(runIDFlag, scorecardIdea, scorecardScore, rubric, scorecardMode)
	if err != nil {
		return err
	}
	return printResponse(&AckResponse{Status: "CREATED", Key: "scorecard_item_id", ID: id})
}

func runReport(cmd *cobra.Command, args []string) error {
	content, err := textFromFlags(reportContent, runFromFile)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := storage.NewRunStore(a.db).SaveReport(runIDFlag, reportTitle, content, reportKind)
	if err != nil {
		return err
	}
	return printResponse(&AckResponse{Status: "CREATED", Key: "report_id", ID: id})
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	summary, err := textFromFlags(portfolioSummary, runFromFile)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := storage.NewRunStore(a.db).SavePortfolioUpdate(runIDFlag, summary)
	if err != nil {
		return err
	}
	return printResponse(&AckResponse{Status: "CREATED", Key: "portfolio_update_id", ID: id})
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := exportOut
	if out == "" {
		out = a.cfg.Export.OutDir
	}
	res, err := export.NewExporter(a.db, a.component("export")).Export(runIDFlag, export.Options{OutDir: out, Archive: exportArchive})
	if err != nil {
		return err
	}
	return printResponse(&ExportResponse{Status: "EXPORTED", Result: res})
}
