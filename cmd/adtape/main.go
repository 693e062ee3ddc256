// Package main provides the adtape CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/born-ml/adtape/internal/config"
	"github.com/born-ml/adtape/internal/expr"
	"github.com/born-ml/adtape/internal/fdcheck"
	"github.com/born-ml/adtape/internal/logs"
	"github.com/born-ml/adtape/internal/metrics"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/tape"
	"github.com/born-ml/adtape/internal/telemetry"
)

const version = "v0.0.1-dev"

type F = numeric.Float

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 0
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "adtape: %v\n", err)
		return 2
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "adtape %s\n", version)
		return 0
	case "stats":
		err = runStats(cfg, args[1:], stdout, stderr)
	case "check":
		err = runCheck(cfg, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "adtape: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "adtape %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "adtape - tape-based algorithmic differentiation")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  stats      Record a sample workload and print tape statistics")
	fmt.Fprintln(w, "  check      Compare tape Jacobians with finite differences")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Tape options are read from %s* environment variables.\n", config.Prefix)
}

// instrument wires logging, tracing and metrics to the events of a tape
// configured by cfg.
func instrument(cfg config.Config, stderr io.Writer) (tape.Options, *prometheus.Registry, func()) {
	reg := cfg.Registry()
	logger := logs.New(logs.Options{Level: cfg.LogLevel, JSON: cfg.LogFormat == config.FormatJSON}, stderr)
	logs.Attach(reg, logger)

	tracer := telemetry.New(context.Background(), nil)
	tracer.Attach(reg)

	prom := prometheus.NewRegistry()
	metrics.New(prom).Attach(reg)

	return cfg.TapeOptions(reg), prom, tracer.Close
}

func runStats(cfg config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	n := fs.Int("n", 1000, "number of statements to record")
	showMetrics := fs.Bool("metrics", false, "print the collected metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 0 {
		return fmt.Errorf("negative statement count %d", *n)
	}

	opts, prom, done := instrument(cfg, stderr)
	defer done()
	tp := tape.New[F](opts)

	y, grad := workload(tp, *n)
	fmt.Fprintf(stdout, "y = %g\n", float64(y))
	fmt.Fprintf(stdout, "gradient = %v\n", grad)
	fmt.Fprintln(stdout)
	if err := tp.Stats().Format(stdout); err != nil {
		return err
	}

	if *showMetrics {
		done()
		return writeMetrics(stdout, prom)
	}
	return nil
}

// workload records y = x0, then n times y = y·x1 + sin(x0), and returns y
// and its gradient with respect to (x0, x1).
func workload(tp *tape.Tape[F], n int) (F, []float64) {
	var f expr.Ops[F]
	x := make([]tape.Active[F], 2)
	x[0].SetValue(0.5)
	x[1].SetValue(0.9)

	var y tape.Active[F]
	tp.SetActive()
	for i := range x {
		tp.RegisterInput(&x[i])
	}
	tp.StoreCopy(&y, &x[0])
	for range n {
		tp.Store(&y, f.Add(f.Mul(&y, &x[1]), f.Sin(&x[0])))
	}
	tp.RegisterOutput(&y)
	tp.SetPassive()

	tp.SetGradient(y.Identifier(), 1)
	tp.Evaluate(tp.Position(), tp.ZeroPosition())
	grad := lo.Map(x, func(v tape.Active[F], _ int) float64 {
		return float64(tp.GetGradient(v.Identifier())[0])
	})
	tp.ClearAdjoints()
	return y.Value(), grad
}

func writeMetrics(w io.Writer, prom *prometheus.Registry) error {
	families, err := prom.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetGauge().GetValue()
			if c := m.GetCounter(); c != nil {
				value = c.GetValue()
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}

type checkCase struct {
	fn      fdcheck.Taped
	x       []float64
	outputs int
}

var checks = map[string]checkCase{
	"rosenbrock": {
		fn: func(t *tape.Tape[F], x, y []tape.Active[F]) {
			var f expr.Ops[F]
			a := f.Square(f.Sub(f.Const(1), &x[0]))
			b := f.Scale(100, f.Square(f.Sub(&x[1], f.Square(&x[0]))))
			t.Store(&y[0], f.Add(a, b))
		},
		x:       []float64{-1.2, 1},
		outputs: 1,
	},
	"polar": {
		fn: func(t *tape.Tape[F], x, y []tape.Active[F]) {
			var f expr.Ops[F]
			t.Store(&y[0], f.Mul(&x[0], f.Cos(&x[1])))
			t.Store(&y[1], f.Mul(&x[0], f.Sin(&x[1])))
		},
		x:       []float64{2, 0.7},
		outputs: 2,
	},
	"softplus": {
		fn: func(t *tape.Tape[F], x, y []tape.Active[F]) {
			var f expr.Ops[F]
			var s tape.Active[F]
			t.Store(&s, f.Sum(&x[0], &x[1], &x[2]))
			t.Store(&y[0], f.Log(f.Add(f.Const(1), f.Exp(&s))))
			t.Store(&y[1], f.Div(f.Sqrt(f.Square(&x[0])), f.Add(f.Const(2), f.Square(&x[2]))))
		},
		x:       []float64{0.3, -1.1, 2.4},
		outputs: 2,
	},
}

func runCheck(cfg config.Config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	only := fs.String("func", "", "check only this function")
	opts := fdcheck.DefaultOptions()
	fs.Float64Var(&opts.Step, "step", opts.Step, "relative finite-difference step")
	fs.Float64Var(&opts.RTol, "rtol", opts.RTol, "relative tolerance")
	fs.Float64Var(&opts.ATol, "atol", opts.ATol, "absolute tolerance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	names := lo.Keys(checks)
	slices.Sort(names)
	if *only != "" {
		if _, ok := checks[*only]; !ok {
			return fmt.Errorf("unknown function %q, want one of %s", *only, strings.Join(names, ", "))
		}
		names = []string{*only}
	}

	topts, _, done := instrument(cfg, stderr)
	defer done()

	failed := 0
	for _, name := range names {
		c := checks[name]
		r := fdcheck.Check(topts, c.fn, c.x, c.outputs, opts)
		if r.OK() {
			fmt.Fprintf(stdout, "%-12s ok   max error %.3g\n", name, r.MaxError)
			continue
		}
		failed++
		fmt.Fprintf(stdout, "%-12s FAIL max error %.3g\n", name, r.MaxError)
		for _, m := range r.Mismatches {
			fmt.Fprintf(stdout, "    %s\n", m)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d functions disagree with finite differences", failed, len(names))
	}
	return nil
}
