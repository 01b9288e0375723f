package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
)

// MetricsTracer implements pgx.QueryTracer to collect database metrics.
type MetricsTracer struct {
	m *metrics.DBMetrics
}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

func NewMetricsTracer(m *metrics.DBMetrics) *MetricsTracer {
	return &MetricsTracer{m: m}
}

type queryContextKey struct{}

type queryContext struct {
	startTime time.Time
	statement string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		startTime: time.Now(),
		statement: statementKind(data.SQL),
	})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	t.m.QueryDuration.WithLabelValues(qctx.statement).Observe(time.Since(qctx.startTime).Seconds())
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		t.m.Errors.WithLabelValues(qctx.statement).Inc()
	}
}

// statementKind reduces SQL to its leading keyword to keep label cardinality low.
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	kind := strings.ToUpper(fields[0])
	switch kind {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return kind
	default:
		return "OTHER"
	}
}
