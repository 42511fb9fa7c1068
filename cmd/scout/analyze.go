package main

import (
	"github.com/spf13/cobra"

	"scout/internal/analysis"
	scouterrors "scout/internal/errors"
)

var (
	analyzeOut     string
	analyzeRunID   int64
	analyzePersist bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Cluster stored repositories and build the topic graph",
	Long: `Backfill missing embeddings, project every repository onto two
dimensions, cluster them, and build a term co-occurrence graph from
READMEs and descriptions.

Writes clusters_<date>.csv, topic_graph_<date>.json and
visual_report_<date>.html to the output folder. With --persist the graph
and cluster points are also attached to --run-id in a single transaction.

Examples:
  scout analyze
  scout analyze --out reports --run-id 3 --persist`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "Output folder (default from config: reports)")
	analyzeCmd.Flags().Int64Var(&analyzeRunID, "run-id", 0, "Run to attach results to")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "Persist the topic graph and cluster points under --run-id")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzePersist && analyzeRunID <= 0 {
		return scouterrors.New(scouterrors.ValidationError, "--persist requires --run-id")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := newContext()
	defer cancel()

	embedder, err := a.embedder()
	if err != nil {
		return err
	}

	out := analyzeOut
	if out == "" {
		out = a.cfg.Analysis.OutDir
	}
	res, err := analysis.NewPipeline(a.db, embedder, a.component("analysis")).Run(ctx, analysis.Options{
		OutDir:  out,
		RunID:   analyzeRunID,
		Persist: analyzePersist,
	})
	if err != nil {
		return err
	}
	return printResponse(&AnalyzeResponse{Status: "OK", Result: res})
}
