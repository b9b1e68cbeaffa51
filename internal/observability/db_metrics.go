package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times one logical repository operation. Not-found results are
// not failures and count as ok.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		class := classifyDBErr(err)
		if class != "no_rows" {
			status = "error"
			p.DbErrorsTotal.WithLabelValues(op, class).Inc()
		}
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

var pgClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"22P02": "invalid_text",
	"40001": "serialization_failure",
	"40P01": "deadlock",
	"57014": "query_canceled",
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no rows"):
		return "no_rows"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "connect:"):
		return "connection"
	default:
		return "unknown"
	}
}
