package ai

import "time"

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	APIKey      string        `envconfig:"API_KEY"`
	Model       string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" default:"400"`
	Temperature float64       `envconfig:"TEMPERATURE" default:"0.8"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// Enabled без ключа провайдер не вызывается, поздравления собираются по шаблону
func (c *Config) Enabled() bool {
	return c.APIKey != ""
}
