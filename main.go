package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	os.MkdirAll(cfg.ReportOutputDir, 0755)

	feed := NewFeedHub()
	store := NewReviewStore(db, feed)

	reviews := NewReviewManager(store, feed, cfg)
	if err := reviews.Start(); err != nil {
		log.Fatalf("Failed to start review manager: %v", err)
	}
	defer reviews.Stop()

	var deliverer *Deliverer
	if cfg.SlackConfigured() {
		api := slack.New(cfg.SlackBotToken)
		deliverer = NewDeliverer(NewSlackSender(api), cfg)
	} else {
		log.Println("Slack delivery disabled (slack_bot_token not set); reports render locally only")
	}
	exports := NewExportService(&MarkdownRenderer{OutputDir: cfg.ReportOutputDir}, deliverer, cfg.ReportChannelID)

	pipeline := NewPipeline(cfg, db, reviews, exports)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	StartIngestScheduler(ctx, cfg, pipeline)

	if cfg.IngestPath != "" {
		if _, err := os.Stat(cfg.IngestPath); err == nil {
			log.Println("Running initial ingestion...")
			result, err := pipeline.RunIngestion(ctx, cfg.IngestPath)
			if err != nil {
				log.Printf("Initial ingestion error: %v", err)
			} else {
				log.Printf("Initial ingestion complete: snapshot %d, %d records, quality passed=%t",
					result.SnapshotID, result.RecordCount, result.Quality.Passed)
			}
		}
	}

	log.Println("Claims pipeline running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("Shutting down.")
}
