package main

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
)

// ReportRun is the outcome of one compile: the model plus the quality
// gate verdict. A failed gate never blocks rendering; it is attached here
// so the caller can decide.
type ReportRun struct {
	Model   *ReportModel
	Quality QualityReport
}

// CompileReport builds the executive report model from the current
// snapshot, the period-over-period delta (nil on first run), and the live
// review summary, then runs the quality gate over the result.
func CompileReport(cfg Config, snap *Snapshot, delta *Delta, review *ReviewSummary) ReportRun {
	model := buildReportModel(cfg, snap, delta, review)
	quality := AuditReport(model, cfg.MinReportMetrics)
	if !quality.Passed {
		log.Printf("report quality gate failed: %s", strings.Join(quality.Issues, "; "))
	}
	return ReportRun{Model: model, Quality: quality}
}

func buildReportModel(cfg Config, snap *Snapshot, delta *Delta, review *ReviewSummary) *ReportModel {
	model := &ReportModel{
		Title:          cfg.ReportTitle,
		Subtitle:       fmt.Sprintf("Snapshot of %s", snap.TakenAt.Format("January 2, 2006")),
		Classification: cfg.ReportClassification,
	}

	model.Summary.Metrics = buildMetrics(cfg, snap, delta)
	model.Summary.Insights = rankInsights(buildInsights(cfg, snap, delta))
	model.Summary.BottomLine = bottomLine(snap, delta)

	model.Tables = []ReportTable{
		partitionTable("Aging Risk", "Age Bucket", snap.BucketAggregates(), snap.Total, cfg.VarianceThresholdPct),
		partitionTable("Coverage Breakdown", "Coverage", snap.CoverageAggregates(), snap.Total, cfg.VarianceThresholdPct),
		partitionTable("Queue Breakdown", "Queue", snap.QueueAggregates(), snap.Total, cfg.VarianceThresholdPct),
		cp1Table(snap, cfg.VarianceThresholdPct),
	}

	if review != nil {
		model.Appendices = append(model.Appendices, reviewAppendix(review))
	}
	model.Appendices = append(model.Appendices, Appendix{
		Title: "Method Notes",
		Body: "Counts and reserves are exact sums over the normalized record set. " +
			"Claims without an evaluation contribute to counts and reserves but are excluded from low/high evaluation sums. " +
			"CP1 rates are computed from integer tender counts per partition.",
	})
	return model
}

func buildMetrics(cfg Config, snap *Snapshot, delta *Delta) []Metric {
	metrics := []Metric{
		{
			Label:     "Open Claims",
			Value:     fmt.Sprintf("%d", snap.Total.Count),
			Delta:     countDeltaText(delta),
			Direction: growthDirection(delta, deltaCount),
		},
		{
			Label:     "Total Reserves",
			Value:     snap.Total.Reserve.Dollars(),
			Delta:     reserveDeltaText(delta),
			Direction: growthDirection(delta, deltaReserve),
		},
		{
			Label:     "Claims Without Evaluation",
			Value:     fmt.Sprintf("%d", snap.NoEvalCount),
			Direction: DirectionNeutral,
		},
		{
			Label:     "CP1 Tender Rate",
			Value:     snap.Total.CP1Rate() + "%",
			Direction: DirectionNeutral,
		},
	}
	if cfg.BaselineOpenClaims > 0 {
		variance := float64(snap.Total.Count-cfg.BaselineOpenClaims) / float64(cfg.BaselineOpenClaims) * 100
		dir := DirectionNeutral
		if variance > 0 {
			dir = DirectionNegative
		} else if variance < 0 {
			dir = DirectionPositive
		}
		metrics = append(metrics, Metric{
			Label:     "Open Claims vs Plan",
			Value:     fmt.Sprintf("%+.1f%%", variance),
			Direction: dir,
		})
	}
	if cfg.BaselineTotalReserveCents > 0 {
		variance := float64(int64(snap.Total.Reserve)-cfg.BaselineTotalReserveCents) / float64(cfg.BaselineTotalReserveCents) * 100
		dir := DirectionNeutral
		if variance > 0 {
			dir = DirectionNegative
		} else if variance < 0 {
			dir = DirectionPositive
		}
		metrics = append(metrics, Metric{
			Label:     "Reserves vs Plan",
			Value:     fmt.Sprintf("%+.1f%%", variance),
			Direction: dir,
		})
	}
	return metrics
}

type deltaField int

const (
	deltaCount deltaField = iota
	deltaReserve
)

// growthDirection maps a period-over-period change onto favorability.
// Open-claim and reserve growth is unfavorable; shrinkage is favorable.
func growthDirection(delta *Delta, field deltaField) Direction {
	if delta == nil {
		return DirectionNeutral
	}
	var change int64
	switch field {
	case deltaCount:
		change = int64(delta.CountChange)
	case deltaReserve:
		change = int64(delta.ReserveChange)
	}
	switch {
	case change > 0:
		return DirectionNegative
	case change < 0:
		return DirectionPositive
	default:
		return DirectionNeutral
	}
}

func countDeltaText(delta *Delta) string {
	if delta == nil {
		return ""
	}
	return fmt.Sprintf("%+d (%s)", delta.CountChange, FormatPct(delta.CountPct))
}

func reserveDeltaText(delta *Delta) string {
	if delta == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", delta.ReserveChange.Dollars(), FormatPct(delta.ReservePct))
}

func buildInsights(cfg Config, snap *Snapshot, delta *Delta) []Insight {
	var insights []Insight

	if snap.Total.Count > 0 {
		if aged := snap.ByBucket[BucketOver365]; aged != nil {
			if share := float64(aged.Reserve) / float64(nonZero(int64(snap.Total.Reserve))) * 100; share > 40 {
				insights = append(insights, Insight{
					Priority: PriorityCritical,
					Text:     fmt.Sprintf("%.0f%% of total reserves sit in claims older than a year (%d claims, %s).", share, aged.Count, aged.Reserve.Dollars()),
				})
			}
		}
		if noEvalShare := float64(snap.NoEvalCount) / float64(snap.Total.Count) * 100; noEvalShare > 20 {
			insights = append(insights, Insight{
				Priority: PriorityMedium,
				Text:     fmt.Sprintf("%.0f%% of open claims have no settlement evaluation on file.", noEvalShare),
			})
		}
	}

	if delta != nil && delta.CountPct != nil && *delta.CountPct > cfg.VarianceThresholdPct {
		insights = append(insights, Insight{
			Priority: PriorityHigh,
			Text:     fmt.Sprintf("Open claim count grew %s since the prior snapshot.", FormatPct(delta.CountPct)),
		})
	}
	if delta != nil && delta.ReservePct != nil && *delta.ReservePct > cfg.VarianceThresholdPct {
		insights = append(insights, Insight{
			Priority: PriorityHigh,
			Text:     fmt.Sprintf("Total reserves grew %s since the prior snapshot.", FormatPct(delta.ReservePct)),
		})
	}

	if top := largestByReserve(snap.CoverageAggregates()); top != nil && top.Count > 0 {
		insights = append(insights, Insight{
			Priority: PriorityInfo,
			Text:     fmt.Sprintf("%s carries the largest reserve position at %s across %d claims.", top.Key, top.Reserve.Dollars(), top.Count),
		})
	}
	return insights
}

// rankInsights orders insights critical > high > medium > info, keeping
// the build order within each priority.
func rankInsights(insights []Insight) []Insight {
	sort.SliceStable(insights, func(i, j int) bool {
		return priorityRank[insights[i].Priority] < priorityRank[insights[j].Priority]
	})
	return insights
}

func largestByReserve(aggs []*Aggregate) *Aggregate {
	var top *Aggregate
	for _, a := range aggs {
		if top == nil || a.Reserve > top.Reserve {
			top = a
		}
	}
	return top
}

func bottomLine(snap *Snapshot, delta *Delta) string {
	trend := "holding steady against the prior period"
	if delta != nil {
		switch {
		case delta.ReserveChange > 0:
			trend = fmt.Sprintf("up %s in reserves since the prior snapshot", delta.ReserveChange.Dollars())
		case delta.ReserveChange < 0:
			trend = fmt.Sprintf("down %s in reserves since the prior snapshot", (-delta.ReserveChange).Dollars())
		}
	}
	return fmt.Sprintf("The portfolio holds %d open claims with %s in reserves, %s.",
		snap.Total.Count, snap.Total.Reserve.Dollars(), trend)
}

// partitionTable renders one rollup dimension. A row is tagged "variance"
// when its share of reserves is out of line with its share of claim
// counts by more than the configured threshold, which flags partitions
// whose money concentration does not match their volume.
func partitionTable(name, keyColumn string, aggs []*Aggregate, total Aggregate, thresholdPct float64) ReportTable {
	table := ReportTable{
		Name:    name,
		Columns: []string{keyColumn, "Claims", "Reserves", "Low Eval", "High Eval", "No Eval", "CP1 Rate %"},
	}
	for _, a := range aggs {
		row := TableRow{Cells: []string{
			a.Key,
			fmt.Sprintf("%d", a.Count),
			a.Reserve.Dollars(),
			a.LowEval.Dollars(),
			a.HighEval.Dollars(),
			fmt.Sprintf("%d", a.NoEvalCount),
			a.CP1Rate(),
		}}
		if total.Count > 0 && total.Reserve != 0 {
			countShare := float64(a.Count) / float64(total.Count) * 100
			reserveShare := float64(a.Reserve) / float64(total.Reserve) * 100
			if math.Abs(reserveShare-countShare) > thresholdPct {
				row.Highlight = "variance"
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// cp1Table is the tender-rate view per coverage; rows breaching the
// threshold rate are tagged for attention.
func cp1Table(snap *Snapshot, thresholdPct float64) ReportTable {
	table := ReportTable{
		Name:    "Policy-Limit Tenders by Coverage",
		Columns: []string{"Coverage", "Tendered", "Claims", "CP1 Rate %"},
	}
	for _, a := range snap.CoverageAggregates() {
		row := TableRow{Cells: []string{
			a.Key,
			fmt.Sprintf("%d", a.TenderedCount),
			fmt.Sprintf("%d", a.Count),
			a.CP1Rate(),
		}}
		if a.Count > 0 && float64(a.TenderedCount)*100/float64(a.Count) > thresholdPct {
			row.Highlight = "cp1"
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func reviewAppendix(review *ReviewSummary) Appendix {
	table := ReportTable{
		Name:    "Review Queue",
		Columns: []string{"Status", "Items"},
	}
	for _, status := range []ReviewStatus{ReviewAssigned, ReviewInReview, ReviewCompleted, ReviewFlagged} {
		table.Rows = append(table.Rows, TableRow{Cells: []string{
			string(status), fmt.Sprintf("%d", review.ByStatus[status]),
		}})
	}
	return Appendix{
		Title: "Claim Review Workflow",
		Body: fmt.Sprintf("%d claims are in the review workflow, %s of reserves still open for review.",
			review.TotalItems, review.OpenReserve.Dollars()),
		Table: &table,
	}
}

// AuditReport runs the quality gate over a built model. Failures are
// informational: the model still renders, the issues just travel with it.
func AuditReport(model *ReportModel, minMetrics int) QualityReport {
	var issues []string
	if strings.TrimSpace(model.Summary.BottomLine) == "" {
		issues = append(issues, "executive summary is missing a bottom-line sentence")
	}
	if len(model.Summary.Metrics) < minMetrics {
		issues = append(issues, fmt.Sprintf("executive summary has %d metrics, minimum is %d", len(model.Summary.Metrics), minMetrics))
	}
	for _, table := range model.Tables {
		if len(table.Rows) == 0 {
			issues = append(issues, fmt.Sprintf("table %q is empty", table.Name))
		}
	}
	return QualityReport{Passed: len(issues) == 0, Issues: issues}
}

func nonZero(v int64) int64 {
	if v == 0 {
		return 1
	}
	return v
}
