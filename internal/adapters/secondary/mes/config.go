package mes

import "time"

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"https://school.mos.ru"`
	AuthBaseURL string        `envconfig:"AUTH_BASE_URL" default:"https://login.mos.ru"`
	APIKey      string        `envconfig:"API_KEY"` // необязательный ключ, уходит в x-mes-api-key
	Subsystem   string        `envconfig:"SUBSYSTEM" default:"familymp"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"15s"`

	// QR вход
	QRClientID     string        `envconfig:"QR_CLIENT_ID" default:"dnevnik.mos.ru"`
	QRRedirectURI  string        `envconfig:"QR_REDIRECT_URI" default:"https://school.mos.ru/v3/auth/sudir/callback"`
	QRScopes       string        `envconfig:"QR_SCOPES" default:"openid profile birthday contacts snils blitz_user_rights blitz_change_password"`
	QRPollInterval time.Duration `envconfig:"QR_POLL_INTERVAL" default:"5s"`
	QRTimeout      time.Duration `envconfig:"QR_TIMEOUT" default:"300s"`

	// circuit breaker
	BreakerFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}
