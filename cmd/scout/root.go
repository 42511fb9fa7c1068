package main

import (
	"github.com/spf13/cobra"

	"scout/internal/version"
)

var (
	dbFlag       string
	logLevelFlag string
	verboseFlag  int
	quietFlag    bool
	formatFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Repository discovery and research knowledge store",
	Long: `scout records repositories, ideas and research runs in a local SQLite
knowledge store, embeds repository text for analysis, and expands the
corpus by searching GitHub for repositories near what it already knows.

Configuration is read from .scout/config.json in the working directory;
environment variables such as SCOUT_DB_PATH and GITHUB_TOKEN override it,
and the global flags below override both.`,
	Version:       version.Current().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbFlag, "db", "", "Path to the knowledge store (default from config: data/scout.db)")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	pf.CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logging")
	pf.StringVar(&formatFlag, "format", string(FormatJSON), "Output format (json, human)")
}
