// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the file-sharing service.
type Config struct {
	Addr    string `env:"ADDR,default=:5000"`
	DBDSN   string `env:"DB_DSN,required"`
	BaseURL string `env:"PUBLIC_BASE_URL,required"`

	S3Endpoint       string `env:"S3_ENDPOINT,required"`
	S3AccessKey      string `env:"S3_ACCESS_KEY,required"`
	S3SecretKey      string `env:"S3_SECRET_KEY,required"`
	S3Region         string `env:"S3_REGION,default=us-east-1"`
	S3Bucket         string `env:"S3_BUCKET,required"`
	S3DisableTLS     bool   `env:"S3_DISABLE_TLS,default=false"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE,default=true"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
	MailFrom     string `env:"MAIL_FROM"`

	NATSURL      string `env:"NATS_URL"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AdminToken   string `env:"ADMIN_TOKEN"`

	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS,default=*"`
	AttemptRetention time.Duration `env:"ATTEMPT_RETENTION,default=720h"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
