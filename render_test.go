package main

import (
	"os"
	"strings"
	"testing"
)

func sampleModel() *ReportModel {
	return &ReportModel{
		Title:          "Open Claims Portfolio Review",
		Subtitle:       "Snapshot of August 1, 2026",
		Classification: "Internal",
		Summary: ExecutiveSummary{
			Metrics: []Metric{
				{Label: "Open Claims", Value: "3", Delta: "+1 (+50.0%)", Direction: DirectionNegative},
				{Label: "Total Reserves", Value: "$1,200.00", Direction: DirectionNeutral},
			},
			Insights: []Insight{
				{Priority: PriorityCritical, Text: "Aged reserves dominate."},
			},
			BottomLine: "The portfolio holds 3 open claims.",
		},
		Tables: []ReportTable{
			{
				Name:    "Aging Risk",
				Columns: []string{"Age Bucket", "Claims"},
				Rows: []TableRow{
					{Cells: []string{"Under 60 Days", "1"}},
					{Cells: []string{"365+ Days", "2"}, Highlight: "variance"},
				},
			},
		},
		Appendices: []Appendix{
			{Title: "Method Notes", Body: "Counts are exact sums."},
		},
	}
}

func TestMarkdownRendererWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	renderer := &MarkdownRenderer{OutputDir: dir}

	result, err := renderer.Render(sampleModel())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !result.Success || result.PageCount < 1 {
		t.Fatalf("unexpected render result: %+v", result)
	}

	content, err := os.ReadFile(result.ArtifactRef)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	text := string(content)

	for _, want := range []string{
		"# Open Claims Portfolio Review",
		"## Executive Summary",
		"**Open Claims**: 3 (+1 (+50.0%)) [negative]",
		"**[CRITICAL]** Aged reserves dominate.",
		"**Bottom line:** The portfolio holds 3 open claims.",
		"## Aging Risk",
		"| Age Bucket | Claims |",
		"## Appendix: Method Notes",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("rendered markdown missing %q:\n%s", want, text)
		}
	}

	// Highlighted rows are visually tagged.
	if !strings.Contains(text, "**365+ Days**") {
		t.Fatalf("highlighted row not emphasized:\n%s", text)
	}
	if strings.Contains(text, "**Under 60 Days**") {
		t.Fatalf("plain row should not be emphasized:\n%s", text)
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := sanitizeFilename("Q3: Claims/Review *Draft*")
	if strings.ContainsAny(got, "/:* ") {
		t.Fatalf("unsafe characters survived: %q", got)
	}
}
