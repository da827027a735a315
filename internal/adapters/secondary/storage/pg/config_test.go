package pg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_PgxConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantHost    string
		wantDB      string
		wantTimeout string
		wantApp     string
	}{
		{
			name: "parts",
			cfg: Config{
				Host: "db", Port: "5433", Username: "bot", Password: "secret",
				Database: "learnify", SSLMode: "disable", StatementTimeout: 30 * time.Second,
			},
			wantHost:    "db",
			wantDB:      "learnify",
			wantTimeout: "30000",
			wantApp:     applicationName,
		},
		{
			name:        "dsn overrides parts",
			cfg:         Config{DSN: "postgres://u:p@pg:5432/other?sslmode=disable&application_name=custom", Host: "ignored"},
			wantHost:    "pg",
			wantDB:      "other",
			wantTimeout: "60000",
			wantApp:     "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.pgxConfig()
			require.NoError(t, err)

			assert.Equal(t, tt.wantHost, got.Host)
			assert.Equal(t, tt.wantDB, got.Database)
			assert.Equal(t, tt.wantTimeout, got.RuntimeParams["statement_timeout"])
			assert.Equal(t, tt.wantApp, got.RuntimeParams["application_name"])
			assert.Equal(t, "UTC", got.RuntimeParams["timezone"])
		})
	}
}

func TestConfig_PgxConfigInvalid(t *testing.T) {
	cfg := Config{DSN: "postgres://%zz"}
	_, err := cfg.pgxConfig()
	assert.Error(t, err)
}
