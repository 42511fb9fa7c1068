package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON emits one compact line so output can be piped to other tools.
func formatJSON(resp interface{}) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *AckResponse:
		return formatAckHuman(v), nil
	case *RepoSaveResponse:
		return formatRepoSaveHuman(v), nil
	case *RepoListResponse:
		return formatRepoListHuman(v)
	case *RepoShowResponse:
		return formatRepoShowHuman(v)
	case *IdeaShowResponse:
		return formatIdeaShowHuman(v), nil
	case *RunListResponse:
		return formatRunListHuman(v)
	case *AnalyzeResponse:
		return formatAnalyzeHuman(v)
	case *FrontierResponse:
		return formatFrontierHuman(v)
	case *ExportResponse:
		return formatExportHuman(v), nil
	case *ConfigEnvResponse:
		return formatConfigEnvHuman(v)
	case *VersionResponse:
		return v.String(), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func statusColor(status string) string {
	switch status {
	case "CREATED", "APPENDED", "OK", "EXPORTED":
		return green(status)
	case "SKIPPED":
		return yellow(status)
	default:
		return cyan(status)
	}
}

func formatAckHuman(a *AckResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s=%d", statusColor(a.Status), a.Key, a.ID))
	keys := make([]string, 0, len(a.Extra))
	for k := range a.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, a.Extra[k]))
	}
	return b.String()
}

func formatRepoSaveHuman(r *RepoSaveResponse) string {
	if r.Status == "SKIPPED" {
		return fmt.Sprintf("%s %s (%s)", statusColor(r.Status), r.URL, r.Reason)
	}
	line := fmt.Sprintf("%s #%d %s", statusColor(r.Status), r.RepoID, r.URL)
	if r.EmbeddingDim > 0 {
		line += gray(fmt.Sprintf(" [embedded %dd]", r.EmbeddingDim))
	}
	return line
}

// relTime renders t relative to now, or "never" for the zero time.
func relTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func yesNo(ok bool) string {
	if ok {
		return green("yes")
	}
	return yellow("no")
}

func formatRepoListHuman(r *RepoListResponse) (string, error) {
	var b strings.Builder
	if len(r.Repositories) == 0 {
		return "No repositories stored.", nil
	}
	table := tablewriter.NewWriter(&b)
	table.Header("ID", "Repository", "Last Visited", "Embedded", "Visitable")
	for _, repo := range r.Repositories {
		if err := table.Append([]string{
			fmt.Sprint(repo.ID),
			repo.Owner + "/" + repo.Name,
			relTime(repo.LastVisited),
			yesNo(repo.HasEmbedding),
			yesNo(repo.Visitable),
		}); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	b.WriteString(fmt.Sprintf("%d of %d repositories", len(r.Repositories), r.Total))
	return b.String(), nil
}

func formatRepoShowHuman(r *RepoShowResponse) (string, error) {
	var b strings.Builder
	b.WriteString(cyan(r.Owner+"/"+r.Name) + "\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("URL:          %s\n", r.URL))
	if r.Description != "" {
		b.WriteString(fmt.Sprintf("Description:  %s\n", r.Description))
	}
	if r.AgentNotes != "" {
		b.WriteString(fmt.Sprintf("Notes:        %s\n", r.AgentNotes))
	}
	if len(r.Tags) > 0 {
		b.WriteString(fmt.Sprintf("Tags:         %s\n", strings.Join(r.Tags, ", ")))
	}
	b.WriteString(fmt.Sprintf("Discovered:   %s\n", relTime(r.DiscoveredAt)))
	b.WriteString(fmt.Sprintf("Last visited: %s (visitable: %s)\n", relTime(r.LastVisited), yesNo(r.Visitable)))
	if r.EmbeddingDim > 0 {
		b.WriteString(fmt.Sprintf("Embedding:    %d dimensions\n", r.EmbeddingDim))
	} else {
		b.WriteString("Embedding:    none\n")
	}
	b.WriteString(fmt.Sprintf("README:       %s\n", humanize.Bytes(uint64(r.ReadmeBytes))))

	if len(r.Visits) == 0 {
		return b.String(), nil
	}
	b.WriteString("\nVisits:\n")
	table := tablewriter.NewWriter(&b)
	table.Header("When", "Source", "Reason")
	for _, v := range r.Visits {
		if err := table.Append([]string{relTime(v.VisitedAt), v.Source, v.Reason}); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatIdeaShowHuman(r *IdeaShowResponse) string {
	var b strings.Builder
	b.WriteString(cyan(fmt.Sprintf("#%d %s", r.IdeaID, r.Title)) + "\n")
	if r.Description != "" {
		b.WriteString(r.Description + "\n")
	}
	if r.Score != nil {
		b.WriteString(fmt.Sprintf("Score:    %g\n", *r.Score))
	}
	for _, k := range r.Attrs.Keys() {
		b.WriteString(fmt.Sprintf("%-9s %s\n", k+":", r.Attrs.String(k)))
	}
	b.WriteString(fmt.Sprintf("Created:  %s\n", relTime(r.CreatedAt)))
	if len(r.Repos) == 0 {
		b.WriteString("Linked:   none")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Linked:   %d repositories\n", len(r.Repos)))
	for _, u := range r.Repos {
		b.WriteString("  - " + u + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatConfigEnvHuman(r *ConfigEnvResponse) (string, error) {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.Header("Variable", "Set")
	for _, v := range r.Variables {
		if err := table.Append([]string{v.Name, yesNo(v.Set)}); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatRunListHuman(r *RunListResponse) (string, error) {
	if len(r.Runs) == 0 {
		return "No runs yet. Start one with: scout run start --mode CORE", nil
	}
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.Header("ID", "Date", "Mode", "Created")
	for _, run := range r.Runs {
		if err := table.Append([]string{fmt.Sprint(run.ID), run.RunDate, run.Mode, relTime(run.CreatedAt)}); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatAnalyzeHuman(r *AnalyzeResponse) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s analyzed %d repositories", statusColor(r.Status), len(r.Rows)))
	if r.Backfilled > 0 {
		b.WriteString(fmt.Sprintf(" (%d embeddings backfilled)", r.Backfilled))
	}
	b.WriteString("\n")

	sizes := make(map[int]int)
	for _, row := range r.Rows {
		sizes[row.Cluster]++
	}
	labels := make([]int, 0, len(sizes))
	for l := range sizes {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	if len(labels) > 0 {
		table := tablewriter.NewWriter(&b)
		table.Header("Cluster", "Repositories")
		for _, l := range labels {
			if err := table.Append([]string{fmt.Sprint(l), fmt.Sprint(sizes[l])}); err != nil {
				return "", err
			}
		}
		if err := table.Render(); err != nil {
			return "", err
		}
	}
	if r.Graph != nil {
		b.WriteString(fmt.Sprintf("Topic graph: %d terms, %d edges\n", len(r.Graph.Nodes), len(r.Graph.Edges)))
	}
	if len(r.CentralTerms) > 0 {
		names := make([]string, len(r.CentralTerms))
		for i, c := range r.CentralTerms {
			names[i] = c.ID
		}
		b.WriteString("Central terms: " + strings.Join(names, ", ") + "\n")
	}
	if r.Persisted > 0 {
		b.WriteString(fmt.Sprintf("Persisted %d cluster points\n", r.Persisted))
	}
	b.WriteString(fmt.Sprintf("Report: %s\n", r.Files.HTML))
	b.WriteString(gray(fmt.Sprintf("        %s\n        %s", r.Files.ClustersCSV, r.Files.TopicGraph)))
	return b.String(), nil
}

func formatFrontierHuman(r *FrontierResponse) (string, error) {
	var b strings.Builder
	header := fmt.Sprintf("%s step %s: %d terms, %d admitted", statusColor(r.Status), r.StepID, len(r.Terms), len(r.Discoveries))
	if r.DryRun {
		header += yellow(" (dry run)")
	}
	b.WriteString(header + "\n")
	if len(r.Discoveries) == 0 {
		return strings.TrimRight(b.String(), "\n"), nil
	}
	table := tablewriter.NewWriter(&b)
	table.Header("Repository", "Term", "Lang", "Stars", "N/M/W")
	for _, d := range r.Discoveries {
		scores := fmt.Sprintf("%d/%d/%d", d.Scores.Novelty, d.Scores.Maturity, d.Scores.Weirdness)
		if err := table.Append([]string{d.URL, d.Term, d.Language, humanize.Comma(int64(d.Stars)), scores}); err != nil {
			return "", err
		}
	}
	if err := table.Render(); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatExportHuman(r *ExportResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s run %d to %s\n", statusColor(r.Status), r.Manifest.RunID, r.Dir))
	for _, f := range r.Manifest.Files {
		b.WriteString("  " + f + "\n")
	}
	if r.Archive != "" {
		b.WriteString(fmt.Sprintf("Archive: %s", r.Archive))
	}
	return strings.TrimRight(b.String(), "\n")
}
