package app

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	server "github.com/admin/tg-bots/learnify-bot/internal/adapters/primary/http"
	aiAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/ai"
	alerterAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/kafka"
	mesAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/mes"
	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/redis"
	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/storage/s3"
	"github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/logger"
	"github.com/admin/tg-bots/learnify-bot/internal/services/ttl"
	"github.com/admin/tg-bots/learnify-bot/internal/usecases/tokens"
)

type Config struct {
	Postgres *pg.Config                `envconfig:"POSTGRES"`
	Redis    *redisAdapter.Config      `envconfig:"REDIS"`
	S3       *s3.Config                `envconfig:"S3"`
	Log      *logger.Config            `envconfig:"LOG"`
	Server   *server.Config            `envconfig:"APISERVER"`
	Telegram *telegram.Config          `envconfig:"TELEGRAM"`
	Mes      *mesAdapter.Config        `envconfig:"MES"`
	AI       *aiAdapter.Config         `envconfig:"AI"`
	Alerter  *alerterAdapter.Config    `envconfig:"ALERTER"`
	Kafka    kafkaAdapter.KafkaConfigs `envconfig:"KAFKA"`
	Cache    *ttl.Config               `envconfig:"CACHE"`
	Tokens   *tokens.Config            `envconfig:"TOKENS"`
	Bot      *BotConfig                `envconfig:"BOT"`
}

// BotConfig доступ к боту и фоновые задачи
type BotConfig struct {
	AdminIDs    []int64 `envconfig:"ADMIN_IDS"`  // LEARNIFY_BOT_BOT_ADMIN_IDS=1,2
	ChannelID   string  `envconfig:"CHANNEL_ID"` // @channel или -100..., пусто - без обязательной подписки
	CatalogPath string  `envconfig:"CATALOG_PATH" default:"configs/catalog.json"`
	AdminToken  string  `envconfig:"ADMIN_TOKEN"` // X-Admin-Token для /admin, пусто - admin api закрыт

	UseMigrations bool `envconfig:"USE_MIGRATIONS" default:"true"`

	// EventsRetentionDays 0 - события не чистятся
	EventsRetentionDays int `envconfig:"EVENTS_RETENTION_DAYS" default:"0"`
	// BookLinkTTL время жизни ссылки на скачивание учебника
	BookLinkTTL time.Duration `envconfig:"BOOK_LINK_TTL" default:"1h"`
	// InvalidationQueueSize ёмкость локальной очереди сброса кэша
	InvalidationQueueSize int `envconfig:"INVALIDATION_QUEUE_SIZE" default:"1024"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	// Kafka загружается вручную: envconfig не умеет определять размер слайса
	if err := cfg.Kafka.Load(envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load kafka config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate обязательные секции, без которых бот не стартует
func (c *Config) Validate() error {
	if c.Postgres == nil {
		return fmt.Errorf("postgres config is required")
	}
	if c.Telegram == nil || c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if c.Telegram.UseWebhook && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("webhook_url is required when use_webhook is true")
	}
	if c.Redis == nil {
		return fmt.Errorf("redis config is required")
	}
	if c.Bot == nil {
		c.Bot = &BotConfig{CatalogPath: "configs/catalog.json", UseMigrations: true}
	}
	if c.Bot.EventsRetentionDays < 0 {
		return fmt.Errorf("events retention must not be negative: %d", c.Bot.EventsRetentionDays)
	}
	return nil
}
