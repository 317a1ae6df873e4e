package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRow is one already-parsed export row: column name to string, number,
// bool, or nil.
type RawRow map[string]any

// RowWarning is a non-fatal normalization finding tied to the offending
// row so the caller can report it without losing the rest of the batch.
type RowWarning struct {
	RowIndex int
	ClaimID  string
	Field    string
	Message  string
	Rejected bool
}

func (w RowWarning) String() string {
	state := "coerced"
	if w.Rejected {
		state = "rejected"
	}
	return fmt.Sprintf("row %d (claim %q) field %s: %s [%s]", w.RowIndex, w.ClaimID, w.Field, w.Message, state)
}

// NormalizeRows converts raw export rows into canonical claim records.
// Rows missing a claim identifier are rejected and surfaced in the warning
// list, never silently dropped. Unparsable numerics are coerced to zero
// with a warning; a missing evaluation stays "no evaluation" rather than
// becoming zero, so aggregation can keep the two apart.
func NormalizeRows(rows []RawRow) ([]ClaimRecord, []RowWarning) {
	var records []ClaimRecord
	var warnings []RowWarning

	for i, row := range rows {
		claimID := strings.TrimSpace(stringField(row, "claim_id"))
		if claimID == "" {
			warnings = append(warnings, RowWarning{
				RowIndex: i,
				Field:    "claim_id",
				Message:  "missing required claim identifier",
				Rejected: true,
			})
			continue
		}

		warn := func(field, msg string) {
			warnings = append(warnings, RowWarning{RowIndex: i, ClaimID: claimID, Field: field, Message: msg})
		}

		rec := ClaimRecord{
			ClaimID:  claimID,
			Claimant: strings.TrimSpace(stringField(row, "claimant")),
			Coverage: strings.TrimSpace(stringField(row, "coverage")),
			Queue:    strings.TrimSpace(stringField(row, "queue")),
			Severity: strings.TrimSpace(stringField(row, "severity")),
			Venue:    strings.TrimSpace(stringField(row, "venue")),
		}

		age, err := intField(row, "age_days")
		if err != nil {
			warn("age_days", err.Error())
		}
		rec.AgeDays = age

		reserve, present, err := moneyField(row, "reserve")
		if err != nil {
			warn("reserve", err.Error())
		} else if !present {
			warn("reserve", "missing reserve amount, treated as zero")
		}
		rec.Reserve = reserve

		low, lowPresent, err := moneyField(row, "eval_low")
		if err != nil {
			warn("eval_low", err.Error())
			lowPresent = true // unparsable is "present but bad", coerced to zero
		}
		high, highPresent, err := moneyField(row, "eval_high")
		if err != nil {
			warn("eval_high", err.Error())
			highPresent = true
		}
		switch {
		case lowPresent && highPresent:
			rec.Eval = &Evaluation{Low: low, High: high}
		case lowPresent != highPresent:
			// Half an evaluation pair still counts as evaluated; the
			// absent side is coerced with a warning.
			if lowPresent {
				warn("eval_high", "missing high evaluation for evaluated claim, treated as zero")
			} else {
				warn("eval_low", "missing low evaluation for evaluated claim, treated as zero")
			}
			rec.Eval = &Evaluation{Low: low, High: high}
		}

		lit, known := boolField(row, "litigation")
		if !known && row["litigation"] != nil {
			warn("litigation", fmt.Sprintf("unrecognized litigation flag %v, treated as false", row["litigation"]))
		}
		rec.Litigation = lit

		tendered, known := boolField(row, "cp1_tendered")
		if !known && row["cp1_tendered"] != nil {
			warn("cp1_tendered", fmt.Sprintf("unrecognized tender flag %v, treated as false", row["cp1_tendered"]))
		}
		rec.Tendered = tendered

		records = append(records, rec)
	}

	return records, warnings
}

func stringField(row RawRow, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intField(row RawRow, key string) (int, error) {
	switch v := row[key].(type) {
	case nil:
		return 0, fmt.Errorf("missing %s, treated as zero", key)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("unparsable %s %q, treated as zero", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unparsable %s %v, treated as zero", key, v)
	}
}

// moneyField returns the parsed amount, whether the field was present at
// all, and a parse error. Absent is not an error: the caller decides
// whether absence means "no evaluation" or "zero with warning".
func moneyField(row RawRow, key string) (Cents, bool, error) {
	switch v := row[key].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return Cents(math.Round(v * 100)), true, nil
	case int:
		return Cents(int64(v) * 100), true, nil
	case int64:
		return Cents(v * 100), true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, nil
		}
		c, err := ParseMoney(s)
		if err != nil {
			return 0, true, fmt.Errorf("unparsable %s %q, treated as zero", key, v)
		}
		return c, true, nil
	default:
		return 0, true, fmt.Errorf("unparsable %s %v, treated as zero", key, v)
	}
}

// ParseMoney parses a currency-like string ("$1,250.00", "1250", "(300)")
// into integer cents. Thousands separators and currency symbols are
// stripped; parentheses denote a negative amount; sub-cent precision
// rounds half up instead of being dropped.
func ParseMoney(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", s)
	}
	cents := int64(0)
	if frac != "" {
		for i := 0; i < len(frac); i++ {
			if frac[i] < '0' || frac[i] > '9' {
				return 0, fmt.Errorf("bad amount %q", s)
			}
		}
		roundUp := len(frac) > 2 && frac[2] >= '5'
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad amount %q", s)
		}
		if roundUp {
			cents++
		}
	}
	total := dollars*100 + cents
	if neg {
		total = -total
	}
	return Cents(total), nil
}

func boolField(row RawRow, key string) (value, known bool) {
	switch v := row[key].(type) {
	case bool:
		return v, true
	case int:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case int64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "true", "1":
			return true, true
		case "no", "n", "false", "0", "":
			return false, true
		}
	}
	return false, false
}
