package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/expr"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/tape"
	"github.com/born-ml/adtape/internal/telemetry"
)

type F = numeric.Float

func setup(t *testing.T) (*tracetest.SpanRecorder, *tape.Tape[F], *telemetry.Listener) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	reg := events.NewRegistry()
	l := telemetry.New(t.Context(), tp)
	l.Attach(reg)

	opts := tape.DefaultOptions()
	opts.Events = reg
	return sr, tape.New[F](opts), l
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestListener_Workflow(t *testing.T) {
	sr, tp, _ := setup(t)

	var f expr.Ops[F]
	var a, b, y tape.Active[F]
	a.SetValue(1)
	b.SetValue(2)

	tp.SetActive()
	tp.RegisterInput(&a)
	tp.RegisterInput(&b)
	tp.Store(&y, f.Mul(&a, &b))
	tp.RegisterOutput(&y)
	tp.SetPassive()

	tp.SetGradient(y.Identifier(), 1)
	tp.Evaluate(tp.Position(), tp.ZeroPosition())
	tp.Reset(false)

	spans := sr.Ended()
	require.Len(t, spans, 3)

	record := spans[0]
	assert.Equal(t, telemetry.SpanRecord, record.Name())
	got := attrs(record)
	assert.Equal(t, int64(2), got["tape.inputs"].AsInt64())
	assert.Equal(t, int64(1), got["tape.outputs"].AsInt64())
	assert.Equal(t, int64(y.Identifier()), got["tape.largest_identifier"].AsInt64())

	eval := spans[1]
	assert.Equal(t, telemetry.SpanEvaluate, eval.Name())
	assert.Equal(t, "reverse", attrs(eval)["tape.direction"].AsString())
	assert.False(t, eval.Parent().IsValid(), "evaluation after recording is a root span")

	reset := spans[2]
	assert.Equal(t, telemetry.SpanReset, reset.Name())
	assert.False(t, attrs(reset)["tape.clear_adjoints"].AsBool())
}

func TestListener_NestedEvaluation(t *testing.T) {
	sr, tp, l := setup(t)

	var a tape.Active[F]
	a.SetValue(3)
	tp.SetActive()
	tp.RegisterInput(&a)
	tp.EvaluateForward(tp.ZeroPosition(), tp.Position())

	require.Len(t, sr.Ended(), 1, "recording span is still open")
	l.Close()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	eval, record := spans[0], spans[1]
	assert.Equal(t, telemetry.SpanEvaluate, eval.Name())
	assert.Equal(t, "forward", attrs(eval)["tape.direction"].AsString())
	assert.Equal(t, record.SpanContext().SpanID(), eval.Parent().SpanID())
}

func TestListener_IgnoresIdentifierEvents(t *testing.T) {
	reg := events.NewRegistry()
	l := telemetry.New(t.Context(), nil)
	handles := l.Attach(reg)

	assert.Len(t, handles, len(events.Kinds())-2)
	assert.False(t, reg.Enabled(events.IndexAssign))
	assert.True(t, reg.Enabled(events.Evaluate))
}
