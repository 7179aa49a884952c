package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// #region helpers
func newRecorded(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	m, err := NewMetrics(provider.Meter(ScopeName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func attr(set attribute.Set, key string) string {
	v, ok := set.Value(attribute.Key(key))
	if !ok {
		return ""
	}
	return v.AsString()
}

// #endregion helpers

func TestMetrics_RecordBrief(t *testing.T) {
	m, reader := newRecorded(t)
	ctx := context.Background()

	m.RecordBrief(ctx, BriefRun{Trigger: "manual", Outcome: "complete", ToolInvocations: 3, Chars: 4200, Duration: 90 * time.Second})
	m.RecordBrief(ctx, BriefRun{Trigger: "scheduled", Outcome: "failed", Duration: 2 * time.Second})

	data := collect(t, reader)

	briefs, ok := data["sentinel.briefs"].(metricdata.Sum[int64])
	require.True(t, ok, "briefs counter missing")
	require.Len(t, briefs.DataPoints, 2)
	byOutcome := map[string]int64{}
	for _, dp := range briefs.DataPoints {
		byOutcome[attr(dp.Attributes, "outcome")+"/"+attr(dp.Attributes, "trigger")] = dp.Value
	}
	assert.Equal(t, map[string]int64{"complete/manual": 1, "failed/scheduled": 1}, byOutcome)

	tools, ok := data["sentinel.brief.tool_calls"].(metricdata.Sum[int64])
	require.True(t, ok)
	chars, ok := data["sentinel.brief.chars"].(metricdata.Sum[int64])
	require.True(t, ok)
	var toolTotal, charTotal int64
	for _, dp := range tools.DataPoints {
		toolTotal += dp.Value
	}
	for _, dp := range chars.DataPoints {
		charTotal += dp.Value
	}
	assert.Equal(t, int64(3), toolTotal)
	assert.Equal(t, int64(4200), charTotal)

	dur, ok := data["sentinel.brief.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	var sum float64
	for _, dp := range dur.DataPoints {
		count += dp.Count
		sum += dp.Sum
	}
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 92.0, sum, 1e-9)
}

func TestMetrics_RecordAssessmentAndRisk(t *testing.T) {
	m, reader := newRecorded(t)
	ctx := context.Background()

	m.RecordAssessment(ctx, "ZA", "RED", 81)
	m.RecordRisk(ctx, "HIGH", 62)
	m.RecordRisk(ctx, "HIGH", 58)

	data := collect(t, reader)

	overall, ok := data["sentinel.threat.overall"].(metricdata.Histogram[int64])
	require.True(t, ok, "overall histogram missing")
	require.Len(t, overall.DataPoints, 1)
	dp := overall.DataPoints[0]
	assert.Equal(t, uint64(1), dp.Count)
	assert.Equal(t, int64(81), dp.Sum)
	assert.Equal(t, "ZA", attr(dp.Attributes, "country"))
	assert.Equal(t, "RED", attr(dp.Attributes, "tier"))

	hijack, ok := data["sentinel.risk.hijacking"].(metricdata.Histogram[int64])
	require.True(t, ok, "hijacking histogram missing")
	require.Len(t, hijack.DataPoints, 1)
	hp := hijack.DataPoints[0]
	assert.Equal(t, uint64(2), hp.Count)
	assert.Equal(t, int64(120), hp.Sum)
	assert.Equal(t, "HIGH", attr(hp.Attributes, "level"))
	maxV, defined := hp.Max.Value()
	assert.True(t, defined)
	assert.Equal(t, int64(62), maxV)
}

func TestMetrics_NoopProvider(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordBrief(ctx, BriefRun{Trigger: "manual", Outcome: "complete", ToolInvocations: 3, Chars: 4200, Duration: 90 * time.Second})
		m.RecordAssessment(ctx, "ZA", "RED", 81)
		m.RecordRisk(ctx, "HIGH", 62)
	})
}

func TestMetrics_GlobalAndNil(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	require.NotNil(t, m)

	var none *Metrics
	assert.NotPanics(t, func() {
		none.RecordBrief(context.Background(), BriefRun{})
		none.RecordRisk(context.Background(), "LOW", 0)
	})
}
