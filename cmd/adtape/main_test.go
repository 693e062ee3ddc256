package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/tape"
)

func runArgs(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, out, _ := runArgs(t)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "ADTAPE_")
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runArgs(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "adtape "+version+"\n", out)
}

func TestRun_Unknown(t *testing.T) {
	code, _, errOut := runArgs(t, "train")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "train"`)
}

func TestRun_BadEnv(t *testing.T) {
	t.Setenv("ADTAPE_INDEX_POLICY", "none")
	code, _, errOut := runArgs(t, "version")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "invalid configuration")
}

func TestRun_Stats(t *testing.T) {
	for _, p := range []string{"linear", "reuse"} {
		t.Run(p, func(t *testing.T) {
			t.Setenv("ADTAPE_INDEX_POLICY", p)
			code, out, errOut := runArgs(t, "stats", "-n", "20", "-metrics")
			require.Equal(t, 0, code, errOut)
			assert.Contains(t, out, "Jacobian tape ("+p+" index policy)")
			assert.Contains(t, out, "adtape_evaluations_total{direction=reverse} 1")
		})
	}
}

func TestRun_StatsNegative(t *testing.T) {
	code, _, errOut := runArgs(t, "stats", "-n", "-1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "negative statement count")
}

func TestRun_Check(t *testing.T) {
	code, out, errOut := runArgs(t, "check")
	require.Equal(t, 0, code, errOut)
	for name := range checks {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "FAIL")
}

func TestRun_CheckUnknown(t *testing.T) {
	code, _, errOut := runArgs(t, "check", "-func", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown function")
}

func TestRun_CheckTolerance(t *testing.T) {
	// A zero tolerance cannot be met by finite differences.
	code, out, _ := runArgs(t, "check", "-func", "polar", "-rtol", "0", "-atol", "0")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAIL")
}

func TestWorkload(t *testing.T) {
	for _, p := range []index.Policy{index.PolicyLinear, index.PolicyReuse} {
		opts := tape.DefaultOptions()
		opts.Policy = p
		tp := tape.New[F](opts)

		// y_n = x0 x1^n + sin(x0) (1 + x1 + ... + x1^(n-1))
		const n = 3
		y, grad := workload(tp, n)

		x0, x1 := 0.5, 0.9
		geo := 1 + x1 + x1*x1
		want := x0*math.Pow(x1, n) + math.Sin(x0)*geo
		assert.InDelta(t, want, float64(y), 1e-14)
		assert.InDelta(t, math.Pow(x1, n)+math.Cos(x0)*geo, grad[0], 1e-14)
		assert.InDelta(t, n*x0*x1*x1+math.Sin(x0)*(1+2*x1), grad[1], 1e-14)
	}
}
