package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// #region metrics
// ScopeName is the instrumentation scope for every sentinel instrument.
const ScopeName = "github.com/danielpatrickdp/safety-sentinel/go-controller"

// Metrics records brief and risk outcomes through the global meter provider.
// With no provider installed the instruments are no-ops.
type Metrics struct {
	briefs    metric.Int64Counter
	toolCalls metric.Int64Counter
	chars     metric.Int64Counter
	duration  metric.Float64Histogram
	overall   metric.Int64Histogram
	hijack    metric.Int64Histogram
}

// NewMetrics creates the instruments on meter, or on the global provider
// when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(ScopeName)
	}
	var m Metrics
	var err error
	if m.briefs, err = meter.Int64Counter("sentinel.briefs",
		metric.WithDescription("Brief runs by outcome and trigger")); err != nil {
		return nil, fmt.Errorf("briefs counter: %w", err)
	}
	if m.toolCalls, err = meter.Int64Counter("sentinel.brief.tool_calls",
		metric.WithDescription("Tool invocations observed in brief streams")); err != nil {
		return nil, fmt.Errorf("tool calls counter: %w", err)
	}
	if m.chars, err = meter.Int64Counter("sentinel.brief.chars",
		metric.WithDescription("Characters of brief text received"), metric.WithUnit("{char}")); err != nil {
		return nil, fmt.Errorf("chars counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("sentinel.brief.duration",
		metric.WithDescription("Wall time of a brief run"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	if m.overall, err = meter.Int64Histogram("sentinel.threat.overall",
		metric.WithDescription("Overall threat score per assessment")); err != nil {
		return nil, fmt.Errorf("overall histogram: %w", err)
	}
	if m.hijack, err = meter.Int64Histogram("sentinel.risk.hijacking",
		metric.WithDescription("Hijacking risk per evaluation")); err != nil {
		return nil, fmt.Errorf("hijack histogram: %w", err)
	}
	return &m, nil
}

// BriefRun is what RecordBrief needs from one run.
type BriefRun struct {
	Trigger         string
	Outcome         string
	ToolInvocations int
	Chars           int
	Duration        time.Duration
}

func (m *Metrics) RecordBrief(ctx context.Context, r BriefRun) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("trigger", r.Trigger),
		attribute.String("outcome", r.Outcome),
	)
	m.briefs.Add(ctx, 1, attrs)
	m.toolCalls.Add(ctx, int64(r.ToolInvocations), attrs)
	m.chars.Add(ctx, int64(r.Chars), attrs)
	m.duration.Record(ctx, r.Duration.Seconds(), attrs)
}

func (m *Metrics) RecordAssessment(ctx context.Context, country, tier string, overall int) {
	if m == nil {
		return
	}
	m.overall.Record(ctx, int64(overall), metric.WithAttributes(
		attribute.String("country", country),
		attribute.String("tier", tier),
	))
}

func (m *Metrics) RecordRisk(ctx context.Context, level string, score int) {
	if m == nil {
		return
	}
	m.hijack.Record(ctx, int64(score), metric.WithAttributes(attribute.String("level", level)))
}

// #endregion metrics
