package service

import "context"

// IAIProvider однократная генерация текста
type IAIProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
