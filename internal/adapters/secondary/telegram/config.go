package telegram

type Config struct {
	BotToken       string `envconfig:"BOT_TOKEN" required:"true"`
	UseWebhook     bool   `envconfig:"USE_WEBHOOK" default:"false"`
	WebhookURL     string `envconfig:"WEBHOOK_URL"`
	WebhookSecret  string `envconfig:"WEBHOOK_SECRET"`
	PollingTimeout int    `envconfig:"POLLING_TIMEOUT" default:"30"` // в секундах
	APIBaseURL     string `envconfig:"API_BASE_URL" default:"https://api.telegram.org"`
	// SendRate сообщений в секунду при рассылке уведомлений
	SendRate float64 `envconfig:"SEND_RATE" default:"25"`
}
