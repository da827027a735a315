package alerter

type Config struct {
	// ChatID чат для алертов, 0 - алерты только в лог
	ChatID int64 `envconfig:"CHAT_ID"`
}
