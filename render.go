package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Renderer turns a ReportModel into a concrete document. The format is
// opaque to the pipeline; it only needs the artifact reference and a
// rough page count back.
type Renderer interface {
	Render(model *ReportModel) (RenderResult, error)
}

const linesPerPage = 54

// MarkdownRenderer writes the report as a Markdown document into the
// report output directory.
type MarkdownRenderer struct {
	OutputDir string
}

func (r *MarkdownRenderer) Render(model *ReportModel) (RenderResult, error) {
	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return RenderResult{}, err
	}
	content := renderMarkdown(model)
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(model.Title), time.Now().Format("20060102_150405"))
	path := filepath.Join(r.OutputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return RenderResult{}, err
	}
	pages := (strings.Count(content, "\n") + linesPerPage - 1) / linesPerPage
	if pages < 1 {
		pages = 1
	}
	return RenderResult{Success: true, ArtifactRef: path, PageCount: pages}, nil
}

func renderMarkdown(model *ReportModel) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", model.Title)
	if model.Subtitle != "" {
		fmt.Fprintf(&b, "_%s_\n\n", model.Subtitle)
	}
	if model.Classification != "" {
		fmt.Fprintf(&b, "Classification: **%s**\n\n", model.Classification)
	}

	b.WriteString("## Executive Summary\n\n")
	for _, metric := range model.Summary.Metrics {
		line := fmt.Sprintf("- **%s**: %s", metric.Label, metric.Value)
		if metric.Delta != "" {
			line += fmt.Sprintf(" (%s)", metric.Delta)
		}
		if metric.Direction != DirectionNeutral {
			line += fmt.Sprintf(" [%s]", metric.Direction)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if len(model.Summary.Insights) > 0 {
		b.WriteString("### Key Findings\n\n")
		for _, insight := range model.Summary.Insights {
			fmt.Fprintf(&b, "- **[%s]** %s\n", strings.ToUpper(string(insight.Priority)), insight.Text)
		}
		b.WriteString("\n")
	}
	if model.Summary.BottomLine != "" {
		fmt.Fprintf(&b, "**Bottom line:** %s\n\n", model.Summary.BottomLine)
	}

	for _, table := range model.Tables {
		writeTable(&b, "## "+table.Name, table)
	}

	for _, appendix := range model.Appendices {
		fmt.Fprintf(&b, "## Appendix: %s\n\n", appendix.Title)
		if appendix.Body != "" {
			b.WriteString(appendix.Body + "\n\n")
		}
		if appendix.Table != nil {
			writeTable(&b, "### "+appendix.Table.Name, *appendix.Table)
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, heading string, table ReportTable) {
	b.WriteString(heading + "\n\n")
	b.WriteString("| " + strings.Join(table.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(table.Columns)) + "\n")
	for _, row := range table.Rows {
		cells := make([]string, len(row.Cells))
		copy(cells, row.Cells)
		if row.Highlight != "" && len(cells) > 0 {
			cells[0] = fmt.Sprintf("**%s** ⚠", cells[0])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(s)
}
