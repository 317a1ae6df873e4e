package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/slack-go/slack"
)

// DeliveryError is the typed failure handed back once delivery retries
// are exhausted.
type DeliveryError struct {
	Destination string
	Attempts    int
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed after %d attempts: %v", e.Destination, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Sender pushes one rendered artifact to a destination channel. Network
// details live behind this interface; the pipeline only owns the
// retry/timeout contract around it.
type Sender interface {
	Send(ctx context.Context, destination, artifactPath, comment string) error
}

// SlackSender uploads the artifact into a Slack channel.
type SlackSender struct {
	api *slack.Client
}

func NewSlackSender(api *slack.Client) *SlackSender {
	return &SlackSender{api: api}
}

func (s *SlackSender) Send(ctx context.Context, destination, artifactPath, comment string) error {
	fi, err := os.Stat(artifactPath)
	if err != nil {
		return fmt.Errorf("stat artifact: %v", err)
	}
	_, err = s.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:           artifactPath,
		FileSize:       int(fi.Size()),
		Filename:       filepath.Base(artifactPath),
		Channel:        destination,
		InitialComment: comment,
	})
	return err
}

// Deliverer wraps a Sender with bounded retries, backoff between
// attempts, and a per-attempt timeout.
type Deliverer struct {
	sender  Sender
	retries int
	backoff time.Duration
	timeout time.Duration
}

func NewDeliverer(sender Sender, cfg Config) *Deliverer {
	return &Deliverer{
		sender:  sender,
		retries: cfg.DeliveryRetries,
		backoff: cfg.DeliveryBackoff(),
		timeout: cfg.DeliveryTimeout(),
	}
}

// Deliver pushes the artifact, retrying transient failures with backoff.
// Context cancellation stops retrying immediately; exhaustion surfaces a
// *DeliveryError rather than swallowing the cause.
func (d *Deliverer) Deliver(ctx context.Context, destination, artifactPath, comment string) error {
	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.sender.Send(attemptCtx, destination, artifactPath, comment)
		cancel()
		if err == nil {
			if attempt > 1 {
				log.Printf("delivery to %s succeeded on attempt %d", destination, attempt)
			}
			return nil
		}
		lastErr = err
		log.Printf("delivery to %s attempt %d/%d failed: %v", destination, attempt, d.retries, err)

		if attempt == d.retries {
			break
		}
		select {
		case <-ctx.Done():
			return &DeliveryError{Destination: destination, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	return &DeliveryError{Destination: destination, Attempts: d.retries, Err: lastErr}
}
