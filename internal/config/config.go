package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	BaseURL     string `envconfig:"BASE_URL" default:"http://localhost:3000"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_UPLOADS_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Presigned upload/download URLs expire after this many seconds.
	PresignExpirySec int `envconfig:"PRESIGN_EXPIRY_SEC" default:"300"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`

	// Price IDs for the configured credit packs.
	StripePriceStarter string `envconfig:"STRIPE_PRICE_STARTER"`
	StripePriceValue   string `envconfig:"STRIPE_PRICE_VALUE"`
	StripePricePlus    string `envconfig:"STRIPE_PRICE_PLUS"`
	StripePriceMax     string `envconfig:"STRIPE_PRICE_MAX"`

	// Credits granted to a freshly provisioned user.
	SignupCreditGrant int `envconfig:"SIGNUP_CREDIT_GRANT" default:"3"`

	// File job queue settings
	JobQueueName           string `envconfig:"JOB_QUEUE_NAME" default:"file_jobs"`
	JobDeadLetterQueueName string `envconfig:"JOB_DEAD_LETTER_QUEUE_NAME" default:"file_jobs_dlq"`
	JobPollTimeoutSec      int    `envconfig:"JOB_POLL_TIMEOUT_SEC" default:"30"`
	// How long a read message stays invisible to other consumers. Must
	// outlast a full fixer run or the job gets redelivered mid-processing.
	JobVisibilityTimeoutSec int `envconfig:"JOB_VISIBILITY_TIMEOUT_SEC" default:"180"`
	JobPollMaxMsg          int    `envconfig:"JOB_POLL_MAX_MSG" default:"1"`
	JobMaxReadCount        int    `envconfig:"JOB_MAX_READ_COUNT" default:"5"`

	// External fixer binary
	FixerPath       string `envconfig:"FIXER_PATH" default:"/usr/local/bin/pdf_annotation_fix"`
	FixerTimeoutSec int    `envconfig:"FIXER_TIMEOUT_SEC" default:"120"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
