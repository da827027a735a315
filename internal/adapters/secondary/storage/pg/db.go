package pg

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/admin/tg-bots/learnify-bot/internal/ports/persistence"
)

// DB пул соединений, реализует persistence.Persistence
type DB struct {
	querier
	db *sqlx.DB
}

func NewDB(db *sqlx.DB) *DB {
	return &DB{querier: querier{ext: db}, db: db}
}

// BeginTx начинает новую транзакцию
func (d *DB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{querier: querier{ext: tx}, tx: tx}, nil
}

// WithTransaction commit при nil от fn, иначе rollback. Паника внутри fn
// откатывает транзакцию и пробрасывается дальше
func (d *DB) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) (err error) {
	tx, err := d.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}
