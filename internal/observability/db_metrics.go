package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times one repo operation. Misses (pgx.ErrNoRows) count as ok so
// 404 traffic does not show up as storage errors. A nil receiver just runs fn.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	began := time.Now()
	err := fn()
	elapsed := time.Since(began).Seconds()

	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		p.DbQueryDuration.WithLabelValues(op, "ok").Observe(elapsed)
		return err
	}

	p.DbErrorsTotal.WithLabelValues(op, ClassifyDBErr(err)).Inc()
	p.DbQueryDuration.WithLabelValues(op, "error").Observe(elapsed)
	return err
}

var pgErrClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"23514": "check_violation",
	"22P02": "invalid_text_representation",
	"22007": "invalid_datetime",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"55P03": "lock_not_available",
	"57014": "query_canceled",
}

// ClassifyDBErr buckets an error into a low-cardinality label.
func ClassifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgErrClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "no_rows"
	case errors.Is(err, pgx.ErrTxClosed):
		return "tx_closed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return "timeout"
	}
	if strings.Contains(msg, "connection") || strings.Contains(msg, "connect:") {
		return "connection"
	}
	return "unknown"
}
