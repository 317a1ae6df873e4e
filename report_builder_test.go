package main

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		ReportTitle:          "Open Claims Portfolio Review",
		ReportClassification: "Internal",
		VarianceThresholdPct: 10.0,
		MinReportMetrics:     3,
		CoverageTypes:        []string{"Bodily Injury", "Collision"},
		Queues:               []string{"Standard", "Litigation"},
	}
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	records := []ClaimRecord{
		{ClaimID: "A", AgeDays: 10, Coverage: "Bodily Injury", Queue: "Standard", Reserve: 10000},
		{ClaimID: "B", AgeDays: 400, Coverage: "Bodily Injury", Queue: "Litigation", Reserve: 90000, Eval: evalPtr(50000, 70000), Tendered: true},
		{ClaimID: "C", AgeDays: 70, Coverage: "Collision", Queue: "Standard", Reserve: 20000, Eval: evalPtr(10000, 15000)},
	}
	cfg := testConfig()
	snap := BuildSnapshot(records, cfg.CoverageTypes, cfg.Queues, time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC))
	if err := snap.Validate(); err != nil {
		t.Fatalf("test snapshot invalid: %v", err)
	}
	return snap
}

func TestCompileReportMetricsAndDirections(t *testing.T) {
	cfg := testConfig()
	snap := testSnapshot(t)
	prev := snapshotWithTotals(2, 80000, time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC))
	delta := ComputeDelta(snap, prev)

	run := CompileReport(cfg, snap, delta, nil)
	if !run.Quality.Passed {
		t.Fatalf("quality gate failed unexpectedly: %v", run.Quality.Issues)
	}

	metrics := run.Model.Summary.Metrics
	if len(metrics) < cfg.MinReportMetrics {
		t.Fatalf("got %d metrics, want at least %d", len(metrics), cfg.MinReportMetrics)
	}

	byLabel := make(map[string]Metric)
	for _, m := range metrics {
		byLabel[m.Label] = m
	}
	open := byLabel["Open Claims"]
	if open.Value != "3" {
		t.Fatalf("open claims value = %q", open.Value)
	}
	// Count grew 2 -> 3: unfavorable.
	if open.Direction != DirectionNegative {
		t.Fatalf("rising open claims should be negative, got %s", open.Direction)
	}
	if open.Delta == "" || !strings.Contains(open.Delta, "+1") {
		t.Fatalf("open claims delta = %q", open.Delta)
	}
	reserves := byLabel["Total Reserves"]
	if reserves.Direction != DirectionNegative {
		t.Fatalf("rising reserves should be negative, got %s", reserves.Direction)
	}
	if byLabel["CP1 Tender Rate"].Value != "33.3%" {
		t.Fatalf("CP1 metric = %q", byLabel["CP1 Tender Rate"].Value)
	}
}

func TestCompileReportShrinkingPortfolioIsPositive(t *testing.T) {
	cfg := testConfig()
	snap := testSnapshot(t)
	prev := snapshotWithTotals(10, 500000, time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC))
	run := CompileReport(cfg, snap, ComputeDelta(snap, prev), nil)

	for _, m := range run.Model.Summary.Metrics {
		if m.Label == "Open Claims" && m.Direction != DirectionPositive {
			t.Fatalf("falling open claims should be positive, got %s", m.Direction)
		}
		if m.Label == "Total Reserves" && m.Direction != DirectionPositive {
			t.Fatalf("falling reserves should be positive, got %s", m.Direction)
		}
	}
}

func TestInsightsRankedByPriority(t *testing.T) {
	insights := rankInsights([]Insight{
		{Priority: PriorityInfo, Text: "i"},
		{Priority: PriorityCritical, Text: "c"},
		{Priority: PriorityMedium, Text: "m1"},
		{Priority: PriorityHigh, Text: "h"},
		{Priority: PriorityMedium, Text: "m2"},
	})

	want := []string{"c", "h", "m1", "m2", "i"}
	for i, text := range want {
		if insights[i].Text != text {
			t.Fatalf("insight order at %d = %q, want %q (full: %+v)", i, insights[i].Text, text, insights)
		}
	}
}

func TestCompileReportGeneratesRankedInsights(t *testing.T) {
	cfg := testConfig()
	snap := testSnapshot(t)
	prev := snapshotWithTotals(2, 80000, time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC))
	run := CompileReport(cfg, snap, ComputeDelta(snap, prev), nil)

	insights := run.Model.Summary.Insights
	if len(insights) == 0 {
		t.Fatalf("expected insights for an aged, growing portfolio")
	}
	for i := 1; i < len(insights); i++ {
		if priorityRank[insights[i-1].Priority] > priorityRank[insights[i].Priority] {
			t.Fatalf("insights out of priority order: %+v", insights)
		}
	}
	// 75% of reserves sit in the 365+ bucket: that is the critical one.
	if insights[0].Priority != PriorityCritical {
		t.Fatalf("first insight priority = %s, want critical", insights[0].Priority)
	}
}

func TestVarianceHighlighting(t *testing.T) {
	snap := testSnapshot(t)
	table := partitionTable("Aging Risk", "Age Bucket", snap.BucketAggregates(), snap.Total, 10.0)

	// 365+ holds 1/3 of claims but 75% of reserves: well past the threshold.
	var overRow *TableRow
	for i := range table.Rows {
		if table.Rows[i].Cells[0] == string(BucketOver365) {
			overRow = &table.Rows[i]
		}
	}
	if overRow == nil {
		t.Fatalf("365+ row missing from table")
	}
	if overRow.Highlight != "variance" {
		t.Fatalf("365+ row should carry a variance highlight: %+v", overRow)
	}

	// Empty buckets have zero shares on both sides: no highlight.
	for _, row := range table.Rows {
		if row.Cells[0] == string(Bucket181To365) && row.Highlight != "" {
			t.Fatalf("empty bucket should not be highlighted: %+v", row)
		}
	}
}

func TestAuditReportFlagsEmptyTableButStillRenders(t *testing.T) {
	model := &ReportModel{
		Title: "Audit Case",
		Summary: ExecutiveSummary{
			Metrics: []Metric{
				{Label: "a", Value: "1"}, {Label: "b", Value: "2"}, {Label: "c", Value: "3"},
			},
			BottomLine: "Fine.",
		},
		Tables: []ReportTable{
			{Name: "Populated", Columns: []string{"k"}, Rows: []TableRow{{Cells: []string{"v"}}}},
			{Name: "Empty Breakdown", Columns: []string{"k"}},
		},
	}

	quality := AuditReport(model, 3)
	if quality.Passed {
		t.Fatalf("gate should fail on an empty table")
	}
	found := false
	for _, issue := range quality.Issues {
		if strings.Contains(issue, "Empty Breakdown") {
			found = true
		}
	}
	if !found {
		t.Fatalf("issues should name the empty table: %v", quality.Issues)
	}

	// A failed gate never blocks rendering.
	renderer := &MarkdownRenderer{OutputDir: t.TempDir()}
	result, err := renderer.Render(model)
	if err != nil || !result.Success {
		t.Fatalf("render after failed gate: %v / %+v", err, result)
	}
}

func TestAuditReportMissingBottomLineAndMetrics(t *testing.T) {
	model := &ReportModel{
		Summary: ExecutiveSummary{Metrics: []Metric{{Label: "only", Value: "1"}}},
		Tables:  []ReportTable{{Name: "T", Rows: []TableRow{{Cells: []string{"x"}}}}},
	}
	quality := AuditReport(model, 3)
	if quality.Passed || len(quality.Issues) != 2 {
		t.Fatalf("expected bottom-line and metric-count issues, got %+v", quality)
	}
}

func TestCompileReportBaselineMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.BaselineOpenClaims = 2
	snap := testSnapshot(t) // 3 open claims

	run := CompileReport(cfg, snap, nil, nil)
	var found *Metric
	for i := range run.Model.Summary.Metrics {
		if run.Model.Summary.Metrics[i].Label == "Open Claims vs Plan" {
			found = &run.Model.Summary.Metrics[i]
		}
	}
	if found == nil {
		t.Fatalf("baseline metric missing when baseline configured")
	}
	if found.Value != "+50.0%" || found.Direction != DirectionNegative {
		t.Fatalf("baseline variance = %+v", found)
	}
}

func TestCompileReportIncludesReviewAppendix(t *testing.T) {
	cfg := testConfig()
	snap := testSnapshot(t)
	review := &ReviewSummary{
		ByStatus:     map[ReviewStatus]int{ReviewAssigned: 2, ReviewInReview: 1},
		TotalItems:   3,
		TotalReserve: 500,
		OpenReserve:  500,
	}

	run := CompileReport(cfg, snap, nil, review)
	if len(run.Model.Appendices) == 0 || run.Model.Appendices[0].Table == nil {
		t.Fatalf("review appendix missing: %+v", run.Model.Appendices)
	}
}
