package main

import (
	"fmt"
	"sort"
	"time"
)

// InvariantError marks a programming-contract violation in the pipeline
// (a partition that does not reconcile with its parent). These fail loudly;
// they are never coerced.
type InvariantError struct {
	Partition string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation in partition %s: %s", e.Partition, e.Detail)
}

// BuildSnapshot rolls the record set up by age bucket, coverage, queue,
// and policy-limit tender in a single pass. Declared coverage and queue
// keys are pre-seeded so every declared partition appears in the output
// even when empty; observed keys outside the declared set are kept too.
func BuildSnapshot(records []ClaimRecord, declaredCoverages, declaredQueues []string, takenAt time.Time) *Snapshot {
	snap := &Snapshot{
		TakenAt:    takenAt,
		Total:      Aggregate{Key: "total"},
		ByBucket:   make(map[AgeBucket]*Aggregate, len(AgeBuckets)),
		ByCoverage: make(map[string]*Aggregate, len(declaredCoverages)),
		ByQueue:    make(map[string]*Aggregate, len(declaredQueues)),
	}
	for _, b := range AgeBuckets {
		snap.ByBucket[b] = &Aggregate{Key: string(b)}
	}
	for _, c := range declaredCoverages {
		snap.ByCoverage[c] = &Aggregate{Key: c}
		snap.CoverageKeys = append(snap.CoverageKeys, c)
	}
	for _, q := range declaredQueues {
		snap.ByQueue[q] = &Aggregate{Key: q}
		snap.QueueKeys = append(snap.QueueKeys, q)
	}

	var extraCoverages, extraQueues []string
	for i := range records {
		rec := &records[i]

		cov := rec.Coverage
		if cov == "" {
			cov = "Unspecified"
		}
		if _, ok := snap.ByCoverage[cov]; !ok {
			snap.ByCoverage[cov] = &Aggregate{Key: cov}
			extraCoverages = append(extraCoverages, cov)
		}
		queue := rec.Queue
		if queue == "" {
			queue = "Unspecified"
		}
		if _, ok := snap.ByQueue[queue]; !ok {
			snap.ByQueue[queue] = &Aggregate{Key: queue}
			extraQueues = append(extraQueues, queue)
		}

		accumulate(&snap.Total, rec)
		accumulate(snap.ByBucket[BucketForAge(rec.AgeDays)], rec)
		accumulate(snap.ByCoverage[cov], rec)
		accumulate(snap.ByQueue[queue], rec)
	}

	sort.Strings(extraCoverages)
	sort.Strings(extraQueues)
	snap.CoverageKeys = append(snap.CoverageKeys, extraCoverages...)
	snap.QueueKeys = append(snap.QueueKeys, extraQueues...)

	snap.RecordCount = snap.Total.Count
	snap.NoEvalCount = snap.Total.NoEvalCount
	return snap
}

func accumulate(agg *Aggregate, rec *ClaimRecord) {
	agg.Count++
	agg.Reserve += rec.Reserve
	if rec.Eval == nil {
		agg.NoEvalCount++
	} else {
		agg.LowEval += rec.Eval.Low
		agg.HighEval += rec.Eval.High
	}
	if rec.Tendered {
		agg.TenderedCount++
	}
}

// Validate reconciles every partition against the grand total. A mismatch
// means the pipeline itself is broken, so it returns an explicit error
// instead of patching the numbers.
func (s *Snapshot) Validate() error {
	check := func(name string, aggs map[string]*Aggregate) error {
		var count, noEval int
		var reserve Cents
		for _, a := range aggs {
			count += a.Count
			noEval += a.NoEvalCount
			reserve += a.Reserve
			if a.NoEvalCount > a.Count {
				return &InvariantError{
					Partition: fmt.Sprintf("%s/%s", name, a.Key),
					Detail:    fmt.Sprintf("noEval count %d exceeds record count %d", a.NoEvalCount, a.Count),
				}
			}
		}
		if count != s.Total.Count {
			return &InvariantError{
				Partition: name,
				Detail:    fmt.Sprintf("child counts sum to %d, total is %d", count, s.Total.Count),
			}
		}
		if reserve != s.Total.Reserve {
			return &InvariantError{
				Partition: name,
				Detail:    fmt.Sprintf("child reserves sum to %d, total is %d", reserve, s.Total.Reserve),
			}
		}
		if noEval != s.Total.NoEvalCount {
			return &InvariantError{
				Partition: name,
				Detail:    fmt.Sprintf("child noEval counts sum to %d, total is %d", noEval, s.Total.NoEvalCount),
			}
		}
		return nil
	}

	byBucket := make(map[string]*Aggregate, len(s.ByBucket))
	for b, a := range s.ByBucket {
		byBucket[string(b)] = a
	}
	if err := check("bucket", byBucket); err != nil {
		return err
	}
	if err := check("coverage", s.ByCoverage); err != nil {
		return err
	}
	return check("queue", s.ByQueue)
}

// BucketAggregates returns the aging rollup in fixed bucket order.
func (s *Snapshot) BucketAggregates() []*Aggregate {
	out := make([]*Aggregate, 0, len(AgeBuckets))
	for _, b := range AgeBuckets {
		out = append(out, s.ByBucket[b])
	}
	return out
}

// CoverageAggregates returns per-coverage rollups in key order.
func (s *Snapshot) CoverageAggregates() []*Aggregate {
	out := make([]*Aggregate, 0, len(s.CoverageKeys))
	for _, k := range s.CoverageKeys {
		out = append(out, s.ByCoverage[k])
	}
	return out
}

// QueueAggregates returns per-queue rollups in key order.
func (s *Snapshot) QueueAggregates() []*Aggregate {
	out := make([]*Aggregate, 0, len(s.QueueKeys))
	for _, k := range s.QueueKeys {
		out = append(out, s.ByQueue[k])
	}
	return out
}
