package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleExport = `claim_id,claimant,age_days,coverage,queue,reserve,eval_low,eval_high,litigation,cp1_tendered,severity,venue
CLM-001,R. Alvarez,10,Bodily Injury,Standard,"$1,000.00",,,no,no,Minor,TX
CLM-002,S. Chen,400,Bodily Injury,Litigation,"$9,000.00",5000,7000,yes,yes,Major,CA
CLM-003,,70,Collision,Fast Track,$200.00,100,150,no,no,Minor,TX
,D. Okafor,30,Collision,Standard,$500.00,,,no,no,Minor,NV
`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claims_export.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func TestLoadTableExport(t *testing.T) {
	rows, err := LoadTableExport(writeExport(t, sampleExport))
	if err != nil {
		t.Fatalf("LoadTableExport failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("loaded %d rows, want 4", len(rows))
	}
	if rows[0]["claim_id"] != "CLM-001" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	// Empty cells are missing values, not empty strings.
	if rows[0]["eval_low"] != nil {
		t.Fatalf("empty cell should be nil, got %v", rows[0]["eval_low"])
	}
	if rows[3]["claim_id"] != nil {
		t.Fatalf("missing claim id should be nil, got %v", rows[3]["claim_id"])
	}
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := testConfig()
	cfg.ReportOutputDir = t.TempDir()
	db := newTestDB(t)
	exports := NewExportService(&MarkdownRenderer{OutputDir: cfg.ReportOutputDir}, nil, "")
	return NewPipeline(cfg, db, nil, exports)
}

func TestRunIngestionEndToEnd(t *testing.T) {
	p := testPipeline(t)
	path := writeExport(t, sampleExport)

	result, err := p.RunIngestion(context.Background(), path)
	if err != nil {
		t.Fatalf("RunIngestion failed: %v", err)
	}

	// CLM-003's claimant is merely empty; only the row with no claim_id
	// is rejected.
	if result.RecordCount != 3 {
		t.Fatalf("record count = %d, want 3", result.RecordCount)
	}
	rejected := 0
	for _, w := range result.Warnings {
		if w.Rejected {
			rejected++
		}
	}
	if rejected != 1 {
		t.Fatalf("expected exactly 1 rejected row, warnings: %v", result.Warnings)
	}
	if result.SnapshotID == 0 {
		t.Fatalf("snapshot was not persisted")
	}
	if result.Delta != nil {
		t.Fatalf("first run must not produce a delta, got %+v", result.Delta)
	}
	if !result.Quality.Passed {
		t.Fatalf("quality gate failed: %v", result.Quality.Issues)
	}
	if !result.Render.Success || result.Render.ArtifactRef == "" {
		t.Fatalf("report was not rendered: %+v", result.Render)
	}
	if _, err := os.Stat(result.Render.ArtifactRef); err != nil {
		t.Fatalf("artifact missing on disk: %v", err)
	}
}

func TestRunIngestionSecondRunProducesDelta(t *testing.T) {
	p := testPipeline(t)
	path := writeExport(t, sampleExport)

	if _, err := p.RunIngestion(context.Background(), path); err != nil {
		t.Fatalf("first run: %v", err)
	}

	shrunk := `claim_id,age_days,coverage,queue,reserve
CLM-001,10,Bodily Injury,Standard,"$1,000.00"
CLM-002,400,Bodily Injury,Litigation,"$9,000.00"
`
	second, err := p.RunIngestion(context.Background(), writeExport(t, shrunk))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Delta == nil {
		t.Fatalf("second run must diff against the stored snapshot")
	}
	if second.Delta.CountChange != -1 {
		t.Fatalf("count change = %d, want -1", second.Delta.CountChange)
	}
}

func TestRunIngestionMissingFile(t *testing.T) {
	p := testPipeline(t)
	if _, err := p.RunIngestion(context.Background(), filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatalf("expected error for missing export file")
	}
}
