package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
)

// querier общая реализация persistence.Querier для пула и транзакции
type querier struct {
	ext sqlx.ExtContext
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result = "no_rows"
	case err != nil:
		result = "error"
	}
	metrics.DBQueryDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (q querier) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := sqlx.GetContext(ctx, q.ext, dest, query, args...)
	observe("get", start, err)
	return err
}

func (q querier) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := sqlx.SelectContext(ctx, q.ext, dest, query, args...)
	observe("select", start, err)
	return err
}

func (q querier) Exec(ctx context.Context, query string, args ...interface{}) error {
	_, err := q.ExecWithResult(ctx, query, args...)
	return err
}

// ExecWithResult выполняет запрос и возвращает количество затронутых строк
func (q querier) ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error) {
	start := time.Now()
	result, err := q.ext.ExecContext(ctx, query, args...)
	observe("exec", start, err)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// NamedExec выполняет именованный запрос (использует struct tags)
func (q querier) NamedExec(ctx context.Context, query string, arg interface{}) error {
	start := time.Now()
	_, err := sqlx.NamedExecContext(ctx, q.ext, query, arg)
	observe("named_exec", start, err)
	return err
}

// QueryRow ошибка строки доступна только после Scan, поэтому время не пишется
func (q querier) QueryRow(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return q.ext.QueryRowxContext(ctx, query, args...)
}

// Tx транзакция, реализует persistence.Transaction
type Tx struct {
	querier
	tx *sqlx.Tx
}

func (t *Tx) Commit() error {
	start := time.Now()
	err := t.tx.Commit()
	observe("commit", start, err)
	return err
}

func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
