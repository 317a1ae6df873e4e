package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultNarrativeModel = "claude-sonnet-4-5-20250929"

const narrativeSystemPrompt = "You are an insurance portfolio analyst. " +
	"Rewrite the provided bottom-line sentence for an executive audience. " +
	"Use only the figures given, keep it to one sentence, and return the sentence alone."

// RedraftBottomLine asks the configured model to polish the deterministic
// bottom-line sentence using the report's own metrics. Any failure falls
// back to the deterministic sentence; narrative is garnish, never a
// dependency of report generation.
func RedraftBottomLine(ctx context.Context, cfg Config, model *ReportModel) string {
	original := model.Summary.BottomLine
	if !cfg.NarrativeConfigured() {
		return original
	}

	modelName := cfg.NarrativeModel
	if modelName == "" {
		modelName = defaultNarrativeModel
	}

	var facts strings.Builder
	for _, metric := range model.Summary.Metrics {
		fmt.Fprintf(&facts, "- %s: %s", metric.Label, metric.Value)
		if metric.Delta != "" {
			fmt.Fprintf(&facts, " (change: %s)", metric.Delta)
		}
		facts.WriteString("\n")
	}
	userPrompt := fmt.Sprintf("Metrics:\n%s\nCurrent bottom line: %s", facts.String(), original)

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: narrativeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("narrative redraft error, keeping deterministic bottom line: %v", err)
		return original
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			redrafted := strings.TrimSpace(block.Text)
			if redrafted != "" {
				return redrafted
			}
		}
	}
	return original
}
