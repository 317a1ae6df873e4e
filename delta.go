package main

// ComputeDelta diffs the current snapshot against the immediately prior
// one. It is pure and idempotent; a nil previous snapshot (first run)
// yields a nil delta. Percentage change against a zero previous value is
// nil, which renders as "n/a" rather than infinity.
func ComputeDelta(current, previous *Snapshot) *Delta {
	if current == nil || previous == nil {
		return nil
	}
	d := &Delta{
		CurrentTakenAt:  current.TakenAt,
		PreviousTakenAt: previous.TakenAt,
		CountChange:     current.Total.Count - previous.Total.Count,
		ReserveChange:   current.Total.Reserve - previous.Total.Reserve,
	}
	d.CountPct = pctChange(float64(current.Total.Count), float64(previous.Total.Count))
	d.ReservePct = pctChange(float64(current.Total.Reserve), float64(previous.Total.Reserve))
	return d
}

func pctChange(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	pct := (current - previous) / previous * 100
	return &pct
}
