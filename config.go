package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath          string `yaml:"db_path"`
	IngestPath      string `yaml:"ingest_path"`
	IngestSchedule  string `yaml:"ingest_schedule"`
	ReportOutputDir string `yaml:"report_output_dir"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	NarrativeModel  string `yaml:"narrative_model"`

	ReportTitle          string `yaml:"report_title"`
	ReportClassification string `yaml:"report_classification"`

	DefaultAssignee string `yaml:"default_assignee"`
	ReviewBatchCap  int    `yaml:"review_batch_cap"`

	CoverageTypes []string `yaml:"coverage_types"`
	Queues        []string `yaml:"queues"`

	VarianceThresholdPct float64 `yaml:"variance_threshold_pct"`
	MinReportMetrics     int     `yaml:"min_report_metrics"`

	DeliveryRetries        int `yaml:"delivery_retries"`
	DeliveryBackoffSeconds int `yaml:"delivery_backoff_seconds"`
	DeliveryTimeoutSeconds int `yaml:"delivery_timeout_seconds"`

	// Optional hand-maintained plan baselines; when zero the "vs plan"
	// metric is omitted from reports.
	BaselineOpenClaims        int   `yaml:"baseline_open_claims"`
	BaselineTotalReserveCents int64 `yaml:"baseline_total_reserve_cents"`

	Timezone string `yaml:"timezone"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.IngestPath, "INGEST_PATH")
	envOverride(&cfg.IngestSchedule, "INGEST_SCHEDULE")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.NarrativeModel, "NARRATIVE_MODEL")
	envOverride(&cfg.ReportTitle, "REPORT_TITLE")
	envOverride(&cfg.ReportClassification, "REPORT_CLASSIFICATION")
	envOverride(&cfg.DefaultAssignee, "DEFAULT_ASSIGNEE")
	envOverrideInt(&cfg.ReviewBatchCap, "REVIEW_BATCH_CAP")
	envOverrideFloat(&cfg.VarianceThresholdPct, "VARIANCE_THRESHOLD_PCT")
	envOverrideInt(&cfg.MinReportMetrics, "MIN_REPORT_METRICS")
	envOverrideInt(&cfg.DeliveryRetries, "DELIVERY_RETRIES")
	envOverrideInt(&cfg.DeliveryBackoffSeconds, "DELIVERY_BACKOFF_SECONDS")
	envOverrideInt(&cfg.DeliveryTimeoutSeconds, "DELIVERY_TIMEOUT_SECONDS")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if names := os.Getenv("COVERAGE_TYPES"); names != "" {
		cfg.CoverageTypes = splitCSVList(names)
	}
	if names := os.Getenv("QUEUES"); names != "" {
		cfg.Queues = splitCSVList(names)
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./claimspipe.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ReportTitle == "" {
		cfg.ReportTitle = "Open Claims Portfolio Review"
	}
	if cfg.ReportClassification == "" {
		cfg.ReportClassification = "Internal"
	}
	if cfg.DefaultAssignee == "" {
		cfg.DefaultAssignee = "unassigned"
	}
	if cfg.ReviewBatchCap == 0 {
		cfg.ReviewBatchCap = 25
	}
	if len(cfg.CoverageTypes) == 0 {
		cfg.CoverageTypes = []string{"Bodily Injury", "Property Damage", "UM/UIM", "Comprehensive", "Collision"}
	}
	if len(cfg.Queues) == 0 {
		cfg.Queues = []string{"Fast Track", "Standard", "Complex", "Litigation"}
	}
	if cfg.VarianceThresholdPct == 0 {
		cfg.VarianceThresholdPct = 10.0
	}
	if cfg.MinReportMetrics == 0 {
		cfg.MinReportMetrics = 3
	}
	if cfg.DeliveryRetries == 0 {
		cfg.DeliveryRetries = 3
	}
	if cfg.DeliveryBackoffSeconds == 0 {
		cfg.DeliveryBackoffSeconds = 2
	}
	if cfg.DeliveryTimeoutSeconds == 0 {
		cfg.DeliveryTimeoutSeconds = 30
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate
	if cfg.ReviewBatchCap < 1 {
		log.Fatalf("invalid review_batch_cap '%d': must be >= 1", cfg.ReviewBatchCap)
	}
	if cfg.VarianceThresholdPct < 0 {
		log.Fatalf("invalid variance_threshold_pct '%f': must be >= 0", cfg.VarianceThresholdPct)
	}
	if cfg.MinReportMetrics < 1 {
		log.Fatalf("invalid min_report_metrics '%d': must be >= 1", cfg.MinReportMetrics)
	}
	if cfg.DeliveryRetries < 1 {
		log.Fatalf("invalid delivery_retries '%d': must be >= 1", cfg.DeliveryRetries)
	}
	if cfg.SlackBotToken != "" && cfg.ReportChannelID == "" {
		log.Fatalf("report_channel_id is required when slack_bot_token is set")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Timezone = time.Local.String()
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		time.Local = loc
	}

	return cfg
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.ReportChannelID != ""
}

func (c Config) NarrativeConfigured() bool {
	return c.AnthropicAPIKey != ""
}

func (c Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSeconds) * time.Second
}

func (c Config) DeliveryBackoff() time.Duration {
	return time.Duration(c.DeliveryBackoffSeconds) * time.Second
}

func splitCSVList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
