package config

import (
	"fmt"
	"time"

	"macrotrack/internal/daykey"

	"github.com/kelseyhightower/envconfig"
)

// Notifier backends accepted by NOTIFIER_BACKEND.
const (
	NotifierNone   = "none"
	NotifierHTTP   = "http"
	NotifierQueue  = "queue"
	NotifierPubSub = "pubsub"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`

	// Empty DATABASE_URL runs the API against the in-memory store.
	DBConnectionString string `envconfig:"DATABASE_URL"`

	// Shared secret (HS*) or PEM public key (RS*, ES*) for the auth
	// provider's tokens. Only the API needs it. Tokens signed with any
	// algorithm other than JWT_ALG are rejected.
	JWTSecret  string `envconfig:"JWT_SECRET"`
	JWTAlg     string `envconfig:"JWT_ALG" default:"HS256"`
	UpgradeURL string `envconfig:"UPGRADE_URL" default:""`

	// Day boundaries for quota, history, streak and chart.
	DayKeyTimezone         string `envconfig:"DAY_KEY_TIMEZONE" default:"UTC"`
	FreeDailyAnalysisLimit int    `envconfig:"FREE_DAILY_ANALYSIS_LIMIT" default:"3"`

	// Gemini settings
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`
	GeminiAPIKeySecret string `envconfig:"GEMINI_API_KEY_SECRET"`
	GeminiModel        string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiBaseURL      string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiTimeoutSec   int    `envconfig:"GEMINI_TIMEOUT_SEC" default:"60"`

	// GCP settings
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	GCPCredentialsFile string `envconfig:"GCP_CREDENTIALS_FILE"`

	// S3 settings; an empty bucket disables photo storage.
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Webhook notifier settings
	NotifierBackend          string `envconfig:"NOTIFIER_BACKEND" default:"none"`
	WebhookDefaultURL        string `envconfig:"WEBHOOK_DEFAULT_URL"`
	WebhookTimeoutSec        int    `envconfig:"WEBHOOK_TIMEOUT_SEC" default:"10"`
	WebhookTopic             string `envconfig:"WEBHOOK_TOPIC" default:"entry-saved"`
	WebhookQueueName         string `envconfig:"WEBHOOK_QUEUE_NAME" default:"webhook_queue"`
	WebhookPollTimeoutSec    int    `envconfig:"WEBHOOK_POLL_TIMEOUT_SEC" default:"30"`
	WebhookPollMaxMsg        int    `envconfig:"WEBHOOK_POLL_MAX_MSG" default:"10"`
	WebhookMaxRetries        int    `envconfig:"WEBHOOK_MAX_RETRIES" default:"5"`
	WebhookBackoffInitialSec int    `envconfig:"WEBHOOK_BACKOFF_INITIAL_SEC" default:"1"`
	WebhookBackoffMaxSec     int    `envconfig:"WEBHOOK_BACKOFF_MAX_SEC" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.DayKeyConvention(); err != nil {
		return nil, err
	}
	switch cfg.NotifierBackend {
	case NotifierNone, NotifierHTTP, NotifierQueue, NotifierPubSub:
	default:
		return nil, fmt.Errorf("unsupported NOTIFIER_BACKEND %q", cfg.NotifierBackend)
	}
	return &cfg, nil
}

// DayKeyConvention resolves DAY_KEY_TIMEZONE into the convention every
// component shares.
func (c *Config) DayKeyConvention() (daykey.Convention, error) {
	loc, err := time.LoadLocation(c.DayKeyTimezone)
	if err != nil {
		return daykey.Convention{}, fmt.Errorf("loading DAY_KEY_TIMEZONE %q: %w", c.DayKeyTimezone, err)
	}
	return daykey.New(loc), nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
