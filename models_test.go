package main

import "testing"

func TestBucketForAgeBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want AgeBucket
	}{
		{0, BucketUnder60},
		{59, BucketUnder60},
		{60, Bucket61To180},
		{180, Bucket61To180},
		{181, Bucket181To365},
		{365, Bucket181To365},
		{366, BucketOver365},
		{4000, BucketOver365},
	}
	for _, c := range cases {
		if got := BucketForAge(c.days); got != c.want {
			t.Fatalf("BucketForAge(%d) = %q, want %q", c.days, got, c.want)
		}
	}
}

func TestCentsDollars(t *testing.T) {
	cases := []struct {
		cents Cents
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1234567, "$12,345.67"},
		{-150000, "-$1,500.00"},
		{100000000, "$1,000,000.00"},
	}
	for _, c := range cases {
		if got := c.cents.Dollars(); got != c.want {
			t.Fatalf("Cents(%d).Dollars() = %q, want %q", c.cents, got, c.want)
		}
	}
}

func TestCP1RateEmptyPartition(t *testing.T) {
	agg := Aggregate{Key: "empty"}
	if got := agg.CP1Rate(); got != "0.0" {
		t.Fatalf("empty partition CP1 rate = %q, want \"0.0\"", got)
	}
}

func TestCP1RateOneDecimal(t *testing.T) {
	agg := Aggregate{Key: "bi", Count: 3, TenderedCount: 1}
	if got := agg.CP1Rate(); got != "33.3" {
		t.Fatalf("CP1 rate = %q, want \"33.3\"", got)
	}
	agg = Aggregate{Key: "pd", Count: 4, TenderedCount: 4}
	if got := agg.CP1Rate(); got != "100.0" {
		t.Fatalf("CP1 rate = %q, want \"100.0\"", got)
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(nil); got != "n/a" {
		t.Fatalf("FormatPct(nil) = %q, want \"n/a\"", got)
	}
	v := -10.0
	if got := FormatPct(&v); got != "-10.0%" {
		t.Fatalf("FormatPct(-10) = %q, want \"-10.0%%\"", got)
	}
	v = 2.5
	if got := FormatPct(&v); got != "+2.5%" {
		t.Fatalf("FormatPct(2.5) = %q, want \"+2.5%%\"", got)
	}
}
