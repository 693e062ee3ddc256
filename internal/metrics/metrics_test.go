package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/expr"
	"github.com/born-ml/adtape/internal/metrics"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/tape"
)

type F = numeric.Float

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	bus := events.NewRegistry()
	m.Attach(bus)

	opts := tape.DefaultOptions()
	opts.Events = bus
	tp := tape.New[F](opts)

	var f expr.Ops[F]
	x := make([]tape.Active[F], 3)
	var y tape.Active[F]
	tp.SetActive()
	for i := range x {
		x[i].SetValue(F(i + 1))
		tp.RegisterInput(&x[i])
	}
	tp.Store(&y, f.Sum(&x[0], &x[1], &x[2]))
	tp.RegisterOutput(&y)
	tp.SetPassive()

	tp.SetGradient(y.Identifier(), 1)
	tp.Evaluate(tp.Position(), tp.ZeroPosition())
	tp.EvaluateForward(tp.ZeroPosition(), tp.Position())
	tp.Evaluate(tp.Position(), tp.ZeroPosition())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Events.WithLabelValues("register_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("register_output")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("reverse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("forward")))
	assert.Equal(t, float64(tp.LargestIdentifier()), testutil.ToFloat64(m.Largest))
	assert.Positive(t, testutil.ToFloat64(m.MemoryUsed))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.MemoryAlloc), testutil.ToFloat64(m.MemoryUsed))

	n, err := testutil.GatherAndCount(reg, "adtape_events_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
