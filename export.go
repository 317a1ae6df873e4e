package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/goccy/go-json"
)

// ExportOutcome is the awaitable result of one export request.
type ExportOutcome struct {
	Render RenderResult
	Err    error
}

// ExportService renders a report model and pushes the artifact to the
// delivery channel. Exports may run concurrently: each one works on its
// own deep copy of the model, so an in-flight export never observes
// another caller's half-built state.
type ExportService struct {
	renderer    Renderer
	deliverer   *Deliverer
	destination string
}

func NewExportService(renderer Renderer, deliverer *Deliverer, destination string) *ExportService {
	return &ExportService{renderer: renderer, deliverer: deliverer, destination: destination}
}

// Export renders and delivers synchronously; the context cancels delivery
// mid-retry. Delivery is skipped when no deliverer is configured.
func (s *ExportService) Export(ctx context.Context, run ReportRun) (RenderResult, error) {
	model, err := cloneReportModel(run.Model)
	if err != nil {
		return RenderResult{}, fmt.Errorf("copy report model: %v", err)
	}

	result, err := s.renderer.Render(model)
	if err != nil {
		return RenderResult{}, fmt.Errorf("render report: %v", err)
	}
	log.Printf("rendered %s (%d pages)", result.ArtifactRef, result.PageCount)

	if s.deliverer == nil || s.destination == "" {
		return result, nil
	}
	comment := model.Summary.BottomLine
	if !run.Quality.Passed {
		comment += fmt.Sprintf("\nQuality gate: FAILED (%s)", strings.Join(run.Quality.Issues, "; "))
	}
	if err := s.deliverer.Deliver(ctx, s.destination, result.ArtifactRef, comment); err != nil {
		return result, err
	}
	return result, nil
}

// ExportAsync starts the export on its own goroutine and returns a
// channel the caller can await or abandon.
func (s *ExportService) ExportAsync(ctx context.Context, run ReportRun) <-chan ExportOutcome {
	out := make(chan ExportOutcome, 1)
	go func() {
		result, err := s.Export(ctx, run)
		out <- ExportOutcome{Render: result, Err: err}
		close(out)
	}()
	return out
}

// cloneReportModel deep-copies a model through its JSON form. Cheap at
// report sizes and guarantees no shared slices or nested pointers.
func cloneReportModel(model *ReportModel) (*ReportModel, error) {
	blob, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}
	var out ReportModel
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
