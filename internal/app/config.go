package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	PolicyFactsURL    string `envconfig:"POLICY_FACTS_URL" default:"https://api.permit.io/v2/facts"`
	PolicyPDPURL      string `envconfig:"POLICY_PDP_URL" default:"https://cloudpdp.api.permit.io"`
	PolicyAPIKey      string `envconfig:"POLICY_API_KEY" required:"true"`
	PolicyProject     string `envconfig:"POLICY_PROJECT" required:"true"`
	PolicyEnvironment string `envconfig:"POLICY_ENVIRONMENT" required:"true"`

	CollabAPIURL string `envconfig:"COLLAB_API_URL" default:"https://api.liveblocks.io/v2"`
	CollabAPIKey string `envconfig:"COLLAB_API_KEY" required:"true"`

	DirectoryAPIURL string `envconfig:"DIRECTORY_API_URL" default:"https://api.clerk.com/v1"`
	DirectoryAPIKey string `envconfig:"DIRECTORY_API_KEY" required:"true"`

	// AccessSettleDelay bounds the wait after creating a principal in the
	// policy engine before the new role is trusted to be visible.
	AccessSettleDelay time.Duration `envconfig:"ACCESS_SETTLE_DELAY" default:"3s"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.PolicyAPIKey == "" {
		return nil, errors.New("policy api key must be provided")
	}
	if cfg.CollabAPIKey == "" {
		return nil, errors.New("collaboration api key must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
