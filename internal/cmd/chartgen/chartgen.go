// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command chartgen turns the output of the mark package's BenchmarkMark into
// bar charts of marking throughput and yield frequency by gang size, written
// as SVG files to the "charts" directory.
//
//	go test ./mark -run '^$' -bench Mark -count 10 > bench.txt
//	cd internal/cmd/chartgen && go run . ../../../bench.txt
package main

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/perf/benchfmt"
	"golang.org/x/perf/benchmath"
	"golang.org/x/perf/benchproc"
	"golang.org/x/perf/benchunit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type chart struct {
	Title           string
	YAxisLabel      string
	XAxisLabel      string
	XTickLabels     []string
	SeriesLabels    []string
	SeriesValues    []plotter.Values
	YAxisGrowFactor float64
	FileBasename    string
}

func setupPlot(c *chart) *plot.Plot {
	p := plot.New()

	p.Title.Text = c.Title
	p.X.Label.Text = c.XAxisLabel
	p.Y.Label.Text = c.YAxisLabel

	p.Title.TextStyle.Color = color.Gray{128}
	p.X.Color = color.Gray{128}
	p.Y.Color = color.Gray{128}
	p.X.Label.TextStyle.Color = color.Gray{128}
	p.Y.Label.TextStyle.Color = color.Gray{128}
	p.X.Tick.Color = color.Gray{128}
	p.Y.Tick.Color = color.Gray{128}
	p.X.Tick.Label.Color = color.Gray{128}
	p.Y.Tick.Label.Color = color.Gray{128}
	p.Legend.TextStyle.Color = color.Gray{128}

	p.NominalX(c.XTickLabels...)

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent

	return p
}

func plotBars(c *chart) error {
	p := setupPlot(c)

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", max(3, len(c.SeriesLabels)))
	if err != nil {
		return err
	}
	colors := palette.Colors()

	barSpacing := vg.Points(3)
	barWidth := vg.Points(24)

	// Calculate the total width of the bar group, center to center.
	groupWidth := (barWidth + barSpacing) * vg.Length(len(c.SeriesValues)-1)

	for i, label := range c.SeriesLabels {
		bc, err := plotter.NewBarChart(c.SeriesValues[i], barWidth)
		if err != nil {
			return err
		}
		bc.Offset = (barWidth+barSpacing)*vg.Length(i) - groupWidth/2
		bc.Color = colors[i]
		bc.LineStyle.Width = 0

		p.Add(bc)
		p.Legend.Add(label, bc)
	}

	return savePlot(c, p)
}

func savePlot(c *chart, p *plot.Plot) error {
	p.Y.Max *= c.YAxisGrowFactor

	// Create directory if it doesn't exist
	if err := os.MkdirAll("charts", 0755); err != nil {
		return err
	}

	// Save the plot
	if err := p.Save(9*vg.Inch, 6*vg.Inch, "charts/"+c.FileBasename+".svg"); err != nil {
		return err
	}

	return nil
}

type GraphKey struct{ benchproc.Key }
type WorkersKey struct{ benchproc.Key }

type Data struct {
	Sample  benchmath.Sample
	Summary benchmath.Summary
}

func main() {
	var pp benchproc.ProjectionParser
	graphP, err := pp.Parse("/graph", nil)
	if err != nil {
		log.Fatal(err)
	}
	workersP, err := pp.Parse("/workers", nil)
	if err != nil {
		log.Fatal(err)
	}
	residueP := pp.Residue()

	dataByGraphWorkersUnit := make(map[GraphKey]map[WorkersKey]map[string]*Data)
	graphKeySet := make(map[GraphKey]struct{})
	workersKeySet := make(map[WorkersKey]struct{})
	var residues []benchproc.Key

	// Read the benchmark results.
	benchFiles := &benchfmt.Files{
		Paths:       os.Args[1:],
		AllowStdin:  true,
		AllowLabels: true,
	}
	for benchFiles.Scan() {
		var res *benchfmt.Result
		switch rec := benchFiles.Result(); rec := rec.(type) {
		case *benchfmt.Result:
			res = rec
		case *benchfmt.SyntaxError:
			// Report a non-fatal parse error.
			log.Print(rec)
			continue
		default:
			// Unknown record type. Ignore.
			continue
		}

		graphKey := GraphKey{graphP.Project(res)}
		dataByWorkersUnit, ok := dataByGraphWorkersUnit[graphKey]
		if !ok {
			dataByWorkersUnit = make(map[WorkersKey]map[string]*Data)
			dataByGraphWorkersUnit[graphKey] = dataByWorkersUnit
			graphKeySet[graphKey] = struct{}{}
		}

		workersKey := WorkersKey{workersP.Project(res)}
		dataByUnit, ok := dataByWorkersUnit[workersKey]
		if !ok {
			dataByUnit = make(map[string]*Data)
			dataByWorkersUnit[workersKey] = dataByUnit
			workersKeySet[workersKey] = struct{}{}
		}

		for _, v := range res.Values {
			data := dataByUnit[v.Unit]
			if data == nil {
				data = &Data{}
				dataByUnit[v.Unit] = data
			}
			data.Sample.Values = append(data.Sample.Values, v.Value)
		}

		residues = append(residues, residueP.Project(res))
	}
	if err := benchFiles.Err(); err != nil {
		log.Fatalf("Error reading benchmark files: %v", err)
	}

	nonsingular := benchproc.NonSingularFields(residues)
	if len(nonsingular) > 0 {
		fmt.Printf("warning: results vary in %s\n", nonsingular)
	}

	graphKeys := make([]GraphKey, 0, len(graphKeySet))
	for graphKey := range graphKeySet {
		graphKeys = append(graphKeys, graphKey)
	}
	graphName := func(k GraphKey) string {
		return k.Get(graphP.Fields()[0])
	}
	slices.SortFunc(graphKeys, func(a, b GraphKey) int {
		return strings.Compare(graphName(a), graphName(b))
	})

	workersKeys := make([]WorkersKey, 0, len(workersKeySet))
	workerCounts := make(map[WorkersKey]int)
	for workersKey := range workersKeySet {
		workersKeys = append(workersKeys, workersKey)
		s := workersKey.Get(workersP.Fields()[0])
		n, err := strconv.Atoi(s)
		if err != nil {
			log.Fatalf("Error parsing worker count %q: %v\n", s, err)
		}
		workerCounts[workersKey] = n
	}
	slices.SortFunc(workersKeys, func(a, b WorkersKey) int {
		return workerCounts[a] - workerCounts[b]
	})

	// Do the math over the samples
	confidence := 0.95
	thresholds := benchmath.DefaultThresholds
	for _, dataByWorkersUnit := range dataByGraphWorkersUnit {
		for _, dataByUnit := range dataByWorkersUnit {
			for _, data := range dataByUnit {
				data.Sample = *benchmath.NewSample(data.Sample.Values, &thresholds)
				data.Summary = benchmath.AssumeNothing.Summary(&data.Sample, confidence)
				for _, w := range data.Summary.Warnings {
					if w.Error() != "all samples are equal" {
						log.Printf("summary warning: %v", w)
					}
				}
			}
		}
	}

	xTickLabels := make([]string, len(workersKeys))
	for i, workersKey := range workersKeys {
		xTickLabels[i] = strconv.Itoa(workerCounts[workersKey])
	}
	seriesLabels := make([]string, len(graphKeys))
	for i, graphKey := range graphKeys {
		seriesLabels[i] = graphName(graphKey)
	}

	newChart := func(unit, title, yAxisLabel, basename string) *chart {
		c := &chart{
			Title:           title,
			XAxisLabel:      "Gang Size",
			YAxisLabel:      yAxisLabel,
			XTickLabels:     xTickLabels,
			SeriesLabels:    seriesLabels,
			SeriesValues:    make([]plotter.Values, len(graphKeys)),
			YAxisGrowFactor: 1.2,
			FileBasename:    basename,
		}
		for i, graphKey := range graphKeys {
			values := make(plotter.Values, len(workersKeys))
			for j, workersKey := range workersKeys {
				data := dataByGraphWorkersUnit[graphKey][workersKey][unit]
				if data == nil {
					continue
				}
				values[j] = data.Summary.Center
				fmt.Printf("%s graph=%s workers=%d: %s\n", unit, seriesLabels[i], workerCounts[workersKey],
					formatSummary(&data.Summary, benchunit.Decimal))
			}
			c.SeriesValues[i] = values
		}
		return c
	}

	charts := []*chart{
		newChart("marked/s", "Marking Throughput", "Nodes Marked / Second", "mark_throughput"),
		newChart("yields/op", "Gang Yields Per Marking", "Yields / Marking", "mark_yields"),
		newChart("sec/op", "Marking Latency", "Seconds / Marking", "mark_latency"),
	}
	for _, c := range charts {
		if err := plotBars(c); err != nil {
			log.Fatalf("Error creating chart: %v", err)
		}
	}

	fmt.Println("Charts generated successfully in the 'charts' directory.")
}

func formatRatio(n, d float64) string {
	switch {
	case d == 0:
		if n == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.2g", n)
	case math.Abs(n/d) < 1:
		return fmt.Sprintf("%.2g%%", math.Round(100*n/d))
	default:
		return fmt.Sprintf("%.2gx", n/d)
	}
}

func formatSummary(s *benchmath.Summary, class benchunit.Class) string {
	var center string
	switch {
	case math.Abs(s.Center) > 0.0001 && math.Abs(s.Center) < 1:
		center = fmt.Sprintf("%.3f", s.Center)
	case math.Abs(s.Center) >= 1000 && math.Abs(s.Center) < 10000:
		center = fmt.Sprintf("%.0f", s.Center)
	default:
		center = benchunit.Scale(s.Center, class)
	}
	plus := formatRatio(s.Hi-s.Center, s.Center)
	minus := formatRatio(s.Center-s.Lo, s.Center)
	switch plus {
	case minus:
		return fmt.Sprintf("%s +/- %s", center, plus)
	default:
		return fmt.Sprintf("%s +%s -%s", center, plus, minus)
	}
}
