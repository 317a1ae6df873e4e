package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// LoadTableExport reads an already-exported claims table (CSV with a
// header row) into raw rows for the normalizer. Empty cells become nil so
// "missing" stays distinct from "empty string".
func LoadTableExport(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row %d: %v", len(rows)+2, err)
		}
		row := make(RawRow, len(header))
		for i, col := range header {
			if i >= len(record) || strings.TrimSpace(record[i]) == "" {
				row[col] = nil
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// IngestResult summarizes one pipeline run for the caller and the logs.
type IngestResult struct {
	SnapshotID  int64
	RecordCount int
	Warnings    []RowWarning
	Delta       *Delta
	Quality     QualityReport
	Render      RenderResult
}

// Pipeline wires the full run: normalize, aggregate, persist the
// snapshot, diff against the prior one, compile the report, export.
type Pipeline struct {
	cfg     Config
	db      *sql.DB
	reviews *ReviewManager
	exports *ExportService
}

func NewPipeline(cfg Config, db *sql.DB, reviews *ReviewManager, exports *ExportService) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, reviews: reviews, exports: exports}
}

// RunIngestion processes one table export end to end. Normalization
// warnings are logged and carried in the result, never fatal; an
// aggregation invariant failure or a store error aborts the run.
func (p *Pipeline) RunIngestion(ctx context.Context, exportPath string) (IngestResult, error) {
	var result IngestResult

	rows, err := LoadTableExport(exportPath)
	if err != nil {
		return result, fmt.Errorf("load export %s: %v", exportPath, err)
	}

	records, warnings := NormalizeRows(rows)
	result.Warnings = warnings
	result.RecordCount = len(records)
	for _, w := range warnings {
		log.Printf("normalize warning: %s", w)
	}
	log.Printf("ingest %s: %d rows, %d records, %d warnings", exportPath, len(rows), len(records), len(warnings))

	previous, err := LatestSnapshot(p.db)
	if err != nil {
		return result, fmt.Errorf("load prior snapshot: %v", err)
	}

	snap := BuildSnapshot(records, p.cfg.CoverageTypes, p.cfg.Queues, time.Now())
	if err := snap.Validate(); err != nil {
		return result, err
	}

	id, err := SaveSnapshot(p.db, snap)
	if err != nil {
		return result, fmt.Errorf("persist snapshot: %v", err)
	}
	snap.ID = id
	result.SnapshotID = id

	result.Delta = ComputeDelta(snap, previous)

	var review *ReviewSummary
	if p.reviews != nil {
		summary := p.reviews.Summary()
		review = &summary
	}
	run := CompileReport(p.cfg, snap, result.Delta, review)
	run.Model.Summary.BottomLine = RedraftBottomLine(ctx, p.cfg, run.Model)
	result.Quality = run.Quality

	if p.exports != nil {
		render, err := p.exports.Export(ctx, run)
		result.Render = render
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// StartIngestScheduler triggers ingestion on a standard 5-field cron
// expression. Examples: "0 6 * * *" (daily 6am), "0 6 * * 1" (Mondays).
func StartIngestScheduler(ctx context.Context, cfg Config, pipeline *Pipeline) {
	schedule := strings.TrimSpace(cfg.IngestSchedule)
	if schedule == "" {
		log.Println("Scheduled ingestion disabled (ingest_schedule not set)")
		return
	}
	if cfg.IngestPath == "" {
		log.Println("Scheduled ingestion disabled: ingest_path not set")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid ingest_schedule '%s': %v, scheduled ingestion disabled", schedule, err)
		return
	}
	log.Printf("Ingestion scheduled (cron: %s) from %s", schedule, cfg.IngestPath)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next ingestion at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			result, err := pipeline.RunIngestion(ctx, cfg.IngestPath)
			if err != nil {
				log.Printf("Scheduled ingestion error: %v", err)
				continue
			}
			log.Printf("Scheduled ingestion complete: snapshot %d, %d records, %d warnings, quality passed=%t",
				result.SnapshotID, result.RecordCount, len(result.Warnings), result.Quality.Passed)
		}
	}()
}
