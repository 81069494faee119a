package config

import (
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	OpenRouterKey         string        `env:"OPENROUTER_API_KEY"`
	OpenRouterModel       string        `env:"OPENROUTER_MODEL"`
	OpenRouterBaseUrl     string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	SiteUrl               string        `env:"SITE_URL" envDefault:"http://localhost:3000"`
	AppTitle              string        `env:"APP_TITLE" envDefault:"Viability Chat MVP"`
	MaxTokens             int           `env:"MAX_TOKENS" envDefault:"512"`
	Port                  string        `env:"PORT" envDefault:"8080"`
	ProxyTimeout          time.Duration `env:"PROXY_TIMEOUT" envDefault:"180s"`
	PrivacyMode           string        `env:"PRIVACY_MODE"`
	TelemetryProvider     string        `env:"TELEMETRY_PROVIDER"`
	StatsAddress          string        `env:"STATS_ADDRESS" envDefault:"127.0.0.1:8125"`
	OpenTelemetryEnabled  bool          `env:"OTEL_ENABLED" envDefault:"false"`
	OpenTelemetryEndpoint string        `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
}

// ParseEnvVariables loads an optional .env file and then reads the process
// environment. Variables already set in the environment win over the file.
func ParseEnvVariables(dotenvPaths ...string) (*Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load(dotenvPaths...)

	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsPrivate() bool {
	return c.PrivacyMode == "strict"
}
