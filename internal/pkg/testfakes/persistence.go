// Package testfakes in-memory реализации портов для тестов usecase и сервисов
package testfakes

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// Tx пустая транзакция: фейковые репозитории пишут сразу в память
type Tx struct{}

func (Tx) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return nil
}

func (Tx) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return nil
}

func (Tx) Exec(ctx context.Context, query string, args ...interface{}) error { return nil }

func (Tx) ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return 0, nil
}

func (Tx) NamedExec(ctx context.Context, query string, arg interface{}) error { return nil }

func (Tx) QueryRow(ctx context.Context, query string, args ...interface{}) *sqlx.Row { return nil }

func (Tx) Commit() error   { return nil }
func (Tx) Rollback() error { return nil }

func withTx(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return fn(ctx, Tx{})
}
