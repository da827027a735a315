package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type Config struct {
	Encoding      string `envconfig:"ENCODING"`
	Level         string `envconfig:"LEVEL"`
	LogstashHost  string `envconfig:"LOGSTASH_HOST"`
	LogstashPort  string `envconfig:"LOGSTASH_PORT"`
	DisableSource bool   `envconfig:"DISABLE_SOURCE" default:"false"`
}

// New создаёт логгер приложения. При заданном LOGSTASH_HOST записи дублируются в logstash
func New(app string, cfg *Config) *slog.Logger {
	return newWithWriter(app, cfg, os.Stdout, os.Stderr)
}

func newWithWriter(app string, cfg *Config, stdout, stderr io.Writer) *slog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}

	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: !cfg.DisableSource,
	}

	var handler slog.Handler

	switch strings.ToLower(cfg.Encoding) {
	case "json":
		handler = slog.NewJSONHandler(stdout, opts)
	case "", "console":
		handler = slog.NewTextHandler(stderr, opts)
	default:
		panic(fmt.Errorf("invalid logger config: encoding %s is not supported", cfg.Encoding))
	}

	if cfg.LogstashHost != "" {
		port := cfg.LogstashPort
		if port == "" {
			port = "5000"
		}
		sink := NewLogstashWriter(cfg.LogstashHost + ":" + port)
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(handler).With("app", app)
}

// parseLevel парсит строковый уровень в slog.Level, пустая строка = info
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Errorf("invalid logger config: level %s is not supported", level))
	}
}

// Err атрибут ошибки для slog
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Discard логгер для тестов и опциональных компонентов
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
