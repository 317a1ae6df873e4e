package main

import (
	"fmt"
	"time"
)

// Cents is an exact monetary amount. All sums stay in integer cents;
// rounding happens only at presentation.
type Cents int64

func (c Cents) Dollars() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(v/100), v%100)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

// Evaluation is a low/high settlement evaluation pair. A nil *Evaluation
// on a record means "no evaluation", which is distinct from a zero one.
type Evaluation struct {
	Low  Cents `json:"low"`
	High Cents `json:"high"`
}

type ClaimRecord struct {
	ClaimID    string
	Claimant   string
	AgeDays    int
	Coverage   string
	Queue      string
	Reserve    Cents
	Eval       *Evaluation
	Litigation bool
	Tendered   bool // policy-limit tender (CP1)
	Severity   string
	Venue      string
}

type AgeBucket string

const (
	BucketUnder60  AgeBucket = "Under 60 Days"
	Bucket61To180  AgeBucket = "61-180 Days"
	Bucket181To365 AgeBucket = "181-365 Days"
	BucketOver365  AgeBucket = "365+ Days"
)

// AgeBuckets is the fixed presentation order for aging rollups.
var AgeBuckets = []AgeBucket{BucketUnder60, Bucket61To180, Bucket181To365, BucketOver365}

// BucketForAge maps age-in-days onto the fixed bucket set. Ages below 60
// land in "Under 60 Days"; 60-180 inclusive in "61-180 Days"; 181-365
// inclusive in "181-365 Days"; everything older in "365+ Days".
func BucketForAge(days int) AgeBucket {
	switch {
	case days < 60:
		return BucketUnder60
	case days <= 180:
		return Bucket61To180
	case days <= 365:
		return Bucket181To365
	default:
		return BucketOver365
	}
}

// Aggregate is one rollup row: a partition key with running counts and
// exact monetary sums. NoEvalCount tracks records that carried no
// evaluation; they count toward Count and Reserve but are excluded from
// LowEval/HighEval.
type Aggregate struct {
	Key           string `json:"key"`
	Count         int    `json:"count"`
	Reserve       Cents  `json:"reserve"`
	LowEval       Cents  `json:"low_eval"`
	HighEval      Cents  `json:"high_eval"`
	NoEvalCount   int    `json:"no_eval_count"`
	TenderedCount int    `json:"tendered_count"`
}

func (a Aggregate) EvaluatedCount() int {
	return a.Count - a.NoEvalCount
}

// CP1Rate renders the policy-limit-tender rate as a percentage with one
// decimal, computed from the integer counters. An empty partition reports
// "0.0" rather than dividing by zero.
func (a Aggregate) CP1Rate() string {
	if a.Count == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(a.TenderedCount)*100/float64(a.Count))
}

// Snapshot is the immutable aggregation result of one ingestion run.
// CoverageKeys and QueueKeys carry the partition key order (declared keys
// first, then observed extras) so rendering stays deterministic.
type Snapshot struct {
	ID           int64                    `json:"-"`
	TakenAt      time.Time                `json:"taken_at"`
	RecordCount  int                      `json:"record_count"`
	NoEvalCount  int                      `json:"no_eval_count"`
	Total        Aggregate                `json:"total"`
	ByBucket     map[AgeBucket]*Aggregate `json:"by_bucket"`
	ByCoverage   map[string]*Aggregate    `json:"by_coverage"`
	ByQueue      map[string]*Aggregate    `json:"by_queue"`
	CoverageKeys []string                 `json:"coverage_keys"`
	QueueKeys    []string                 `json:"queue_keys"`
}

// Delta is the period-over-period comparison between two snapshots.
// Percentages are nil when the previous value was zero ("n/a"), never
// infinity.
type Delta struct {
	CurrentTakenAt  time.Time
	PreviousTakenAt time.Time
	CountChange     int
	CountPct        *float64
	ReserveChange   Cents
	ReservePct      *float64
}

// FormatPct renders a delta percentage, "n/a" when undefined.
func FormatPct(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *p)
}

type ReviewStatus string

const (
	ReviewAssigned  ReviewStatus = "assigned"
	ReviewInReview  ReviewStatus = "in_review"
	ReviewCompleted ReviewStatus = "completed"
	ReviewFlagged   ReviewStatus = "flagged"
)

// ReviewItem is a claim queued for human evaluation. Rev is the
// store-assigned revision used for last-write-wins merging across
// concurrent feed observers.
type ReviewItem struct {
	ID          string
	ClaimID     string
	Area        string
	LossDesc    string
	Reserve     Cents
	LowEval     Cents
	HighEval    Cents
	AgeBucket   AgeBucket
	Status      ReviewStatus
	Assignee    string
	AssignedAt  time.Time
	CompletedAt *time.Time
	Notes       string
	Rev         int64
}

type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

type InsightPriority string

const (
	PriorityCritical InsightPriority = "critical"
	PriorityHigh     InsightPriority = "high"
	PriorityMedium   InsightPriority = "medium"
	PriorityInfo     InsightPriority = "info"
)

var priorityRank = map[InsightPriority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityInfo:     3,
}

type Metric struct {
	Label     string    `json:"label"`
	Value     string    `json:"value"`
	Delta     string    `json:"delta,omitempty"`
	Direction Direction `json:"direction"`
}

type Insight struct {
	Priority InsightPriority `json:"priority"`
	Text     string          `json:"text"`
}

type TableRow struct {
	Cells     []string `json:"cells"`
	Highlight string   `json:"highlight,omitempty"`
}

type ReportTable struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

type Appendix struct {
	Title string       `json:"title"`
	Body  string       `json:"body"`
	Table *ReportTable `json:"table,omitempty"`
}

type ExecutiveSummary struct {
	Metrics    []Metric  `json:"metrics"`
	Insights   []Insight `json:"insights"`
	BottomLine string    `json:"bottom_line"`
}

// ReportModel is the renderer-agnostic description of one executive
// report. Built fresh per export request; never persisted.
type ReportModel struct {
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle"`
	Classification string           `json:"classification"`
	Summary        ExecutiveSummary `json:"summary"`
	Tables         []ReportTable    `json:"tables"`
	Appendices     []Appendix       `json:"appendices"`
}

// QualityReport is the outcome of the report quality gate. A failed gate
// is informational; it never blocks rendering.
type QualityReport struct {
	Passed bool
	Issues []string
}

// RenderResult is what a renderer hands back; the document format itself
// is opaque to the core.
type RenderResult struct {
	Success     bool
	ArtifactRef string
	PageCount   int
}
