package telemetry

import (
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// GORMTracingPlugin emits a client span per gorm operation, carrying the
// table, the (truncated) statement and rows affected. Registered once at
// database init.
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{
		tracer: otel.Tracer("gorm"),
	}
}

type tracingPlugin struct {
	tracer trace.Tracer
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Query().Before("gorm:query").Register("telemetry:before_query", p.before("SELECT")); err != nil {
		return fmt.Errorf("failed to register before_query callback: %w", err)
	}
	if err := cb.Create().Before("gorm:create").Register("telemetry:before_create", p.before("INSERT")); err != nil {
		return fmt.Errorf("failed to register before_create callback: %w", err)
	}
	if err := cb.Update().Before("gorm:update").Register("telemetry:before_update", p.before("UPDATE")); err != nil {
		return fmt.Errorf("failed to register before_update callback: %w", err)
	}
	if err := cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", p.before("DELETE")); err != nil {
		return fmt.Errorf("failed to register before_delete callback: %w", err)
	}

	if err := cb.Query().After("gorm:query").Register("telemetry:after_query", p.finishSpan); err != nil {
		return fmt.Errorf("failed to register after_query callback: %w", err)
	}
	if err := cb.Create().After("gorm:create").Register("telemetry:after_create", p.finishSpan); err != nil {
		return fmt.Errorf("failed to register after_create callback: %w", err)
	}
	if err := cb.Update().After("gorm:update").Register("telemetry:after_update", p.finishSpan); err != nil {
		return fmt.Errorf("failed to register after_update callback: %w", err)
	}
	if err := cb.Delete().After("gorm:delete").Register("telemetry:after_delete", p.finishSpan); err != nil {
		return fmt.Errorf("failed to register after_delete callback: %w", err)
	}

	return nil
}

func (p *tracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		p.startSpan(db, operation)
	}
}

func (p *tracingPlugin) startSpan(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.table", table),
			attribute.String("db.operation", operation),
		),
	)

	db.InstanceSet("otel:span", span)
	db.InstanceSet("otel:startTime", time.Now())
}

func (p *tracingPlugin) finishSpan(db *gorm.DB) {
	spanRaw, exists := db.InstanceGet("otel:span")
	if !exists {
		return
	}
	span, ok := spanRaw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if startRaw, ok := db.InstanceGet("otel:startTime"); ok {
		if start, ok := startRaw.(time.Time); ok {
			span.SetAttributes(attribute.Int64("db.duration_ms", time.Since(start).Milliseconds()))
		}
	}

	// Long statements would explode attribute cardinality
	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > 500 {
			sql = sql[:500] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}

	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}

	if db.Error != nil {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error, trace.WithStackTrace(true))
	}
}
