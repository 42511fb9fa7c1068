package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scout/internal/graph"
)

const reportDateLayout = "20060102"

// writeReport writes the clusters CSV, topic graph JSON and HTML scatter
// for one invocation into dir.
func writeReport(dir string, now time.Time, rows []Row, topics *TopicGraph, central []graph.Ranked) (Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("failed to create report directory: %w", err)
	}
	stamp := now.Format(reportDateLayout)
	files := Files{
		ClustersCSV: filepath.Join(dir, "clusters_"+stamp+".csv"),
		TopicGraph:  filepath.Join(dir, "topic_graph_"+stamp+".json"),
		HTML:        filepath.Join(dir, "visual_report_"+stamp+".html"),
	}

	if err := writeClustersCSV(files.ClustersCSV, rows); err != nil {
		return Files{}, err
	}
	data, err := json.Marshal(topics)
	if err != nil {
		return Files{}, fmt.Errorf("failed to encode topic graph: %w", err)
	}
	if err := os.WriteFile(files.TopicGraph, data, 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write topic graph: %w", err)
	}
	if err := writeHTML(files.HTML, rows, central); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeClustersCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create clusters file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"url", "owner", "name", "x", "y", "cluster"})
	for _, r := range rows {
		_ = w.Write([]string{
			r.URL, r.Owner, r.Name,
			strconv.FormatFloat(r.X, 'g', -1, 64),
			strconv.FormatFloat(r.Y, 'g', -1, 64),
			strconv.Itoa(r.Cluster),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write clusters file: %w", err)
	}
	return f.Close()
}

const (
	plotWidth  = 960
	plotHeight = 640
	plotMargin = 40
)

var clusterColors = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728",
	"#9467bd", "#8c564b", "#e377c2", "#17becf",
}

type plotPoint struct {
	CX, CY float64
	Color  string
	Label  string
}

type plotData struct {
	Title   string
	Width   int
	Height  int
	Points  []plotPoint
	Count   int
	Central []graph.Ranked
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
circle { stroke: #333; stroke-width: 0.5; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Count}} repositories</p>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<rect width="100%" height="100%" fill="#fafafa"/>
{{- range .Points}}
<circle cx="{{printf "%.2f" .CX}}" cy="{{printf "%.2f" .CY}}" r="6" fill="{{.Color}}"><title>{{.Label}}</title></circle>
{{- end}}
</svg>
{{- if .Central}}
<h2>Central terms</h2>
<ol>
{{- range .Central}}
<li>{{.ID}} <small>({{printf "%.3f" .Score}})</small></li>
{{- end}}
</ol>
{{- end}}
</body>
</html>
`))

// writeHTML renders a self-contained SVG scatter coloured by cluster.
func writeHTML(path string, rows []Row, central []graph.Ranked) error {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, r := range rows {
		minX, maxX = math.Min(minX, r.X), math.Max(maxX, r.X)
		minY, maxY = math.Min(minY, r.Y), math.Max(maxY, r.Y)
	}
	scale := func(v, lo, hi float64, span int) float64 {
		inner := float64(span - 2*plotMargin)
		if hi <= lo {
			return float64(span) / 2
		}
		return plotMargin + (v-lo)/(hi-lo)*inner
	}

	data := plotData{
		Title:   "Repository Embedding Map",
		Width:   plotWidth,
		Height:  plotHeight,
		Count:   len(rows),
		Central: central,
	}
	for _, r := range rows {
		data.Points = append(data.Points, plotPoint{
			CX:    scale(r.X, minX, maxX, plotWidth),
			CY:    plotHeight - scale(r.Y, minY, maxY, plotHeight),
			Color: clusterColors[r.Cluster%len(clusterColors)],
			Label: fmt.Sprintf("%s/%s (cluster %d)", r.Owner, r.Name, r.Cluster),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create html report: %w", err)
	}
	defer f.Close()
	if err := reportTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return f.Close()
}
