package pg

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	defaultStatementTimeout = time.Minute
	pingTimeout             = 5 * time.Second
	applicationName         = "learnify_bot"
)

type Config struct {
	// DSN полная строка подключения, перекрывает HOST/PORT/...
	DSN      string `envconfig:"DSN"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5432"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	Database string `envconfig:"DATABASE"`
	SSLMode  string `envconfig:"SSL_MODE" default:"disable"`

	StatementTimeout time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"60s"`

	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" default:"1m"`
}

func (c *Config) connString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Database, c.Password, c.SSLMode)
}

// pgxConfig runtime параметры применяются к каждому соединению пула
func (c *Config) pgxConfig() (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(c.connString())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	timeout := c.StatementTimeout
	if timeout <= 0 {
		timeout = defaultStatementTimeout
	}
	connConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(timeout.Milliseconds(), 10)
	connConfig.RuntimeParams["timezone"] = "UTC"
	if connConfig.RuntimeParams["application_name"] == "" {
		connConfig.RuntimeParams["application_name"] = applicationName
	}
	return connConfig, nil
}

// NewConnection пул sqlx поверх драйвера pgx stdlib
func (c *Config) NewConnection() (*sqlx.DB, error) {
	connConfig, err := c.pgxConfig()
	if err != nil {
		return nil, err
	}

	db := sqlx.NewDb(stdlib.OpenDB(*connConfig), "pgx")
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db %s:%d: %w", connConfig.Host, connConfig.Port, err)
	}

	return db, nil
}
