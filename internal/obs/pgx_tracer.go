package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

// DBTracer is a pgx.QueryTracer that opens one client span per statement.
type DBTracer struct{}

func (DBTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := "QUERY"
	if fields := strings.Fields(data.SQL); len(fields) > 0 {
		op = strings.ToUpper(fields[0])
	}
	ctx, _ = otel.Tracer("github.com/noah-isme/kasir-api/db").Start(ctx, "postgres "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", statement(data.SQL)),
			attribute.Int("db.args", len(data.Args)),
		),
	)
	return ctx
}

// TraceQueryEnd closes the span opened by TraceQueryStart; ctx is the context
// that call returned.
func (DBTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()
}

func statement(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxStatementLen {
		return sql[:maxStatementLen] + "..."
	}
	return sql
}
