// Package telemetry traces tape workflows with OpenTelemetry.
//
// A recording becomes a "tape.record" span from StartRecording to
// StopRecording, annotated with its input and output counts. Every
// evaluation and reset is a short span of its own, parented to the open
// recording span if there is one.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/born-ml/adtape/internal/events"
)

const tracerName = "github.com/born-ml/adtape"

// Span names.
const (
	SpanRecord   = "tape.record"
	SpanEvaluate = "tape.evaluate"
	SpanReset    = "tape.reset"
)

// Listener turns tape events into spans.
type Listener struct {
	tracer trace.Tracer
	ctx    context.Context

	record    trace.Span
	recordCtx context.Context
	inputs    int
	outputs   int
}

// New creates a listener whose spans are children of the span in ctx. A nil
// provider means the global one.
func New(ctx context.Context, tp trace.TracerProvider) *Listener {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Listener{tracer: tp.Tracer(tracerName), ctx: ctx}
}

// Attach registers l for the workflow events of reg.
func (l *Listener) Attach(reg *events.Registry) []events.Handle {
	var handles []events.Handle
	for _, k := range events.Kinds() {
		if k.LowLevel() {
			continue
		}
		handles = append(handles, reg.Listen(k, l.Handle))
	}
	return handles
}

// Handle processes one event.
func (l *Listener) Handle(e *events.Event) {
	switch e.Kind {
	case events.StartRecording:
		l.end()
		l.recordCtx, l.record = l.tracer.Start(l.ctx, SpanRecord)
		l.inputs, l.outputs = 0, 0
		if e.Tape != nil {
			l.record.SetAttributes(attribute.String("tape.start", e.Tape.Position().String()))
		}
	case events.StopRecording:
		if l.record != nil && e.Tape != nil {
			l.record.SetAttributes(
				attribute.String("tape.end", e.Tape.Position().String()),
				attribute.Int("tape.largest_identifier", int(e.Tape.LargestIdentifier())),
			)
		}
		l.end()
	case events.RegisterInput:
		l.inputs++
	case events.RegisterOutput:
		l.outputs++
	case events.Evaluate:
		direction := "reverse"
		if e.Forward {
			direction = "forward"
		}
		_, span := l.tracer.Start(l.parent(), SpanEvaluate, trace.WithAttributes(
			attribute.String("tape.direction", direction),
			attribute.String("tape.start", e.Start.String()),
			attribute.String("tape.end", e.End.String()),
		))
		span.End()
	case events.Reset:
		_, span := l.tracer.Start(l.parent(), SpanReset, trace.WithAttributes(
			attribute.String("tape.position", e.Start.String()),
			attribute.Bool("tape.clear_adjoints", e.ClearAdjoints),
		))
		span.End()
	}
}

// Close ends an unfinished recording span.
func (l *Listener) Close() {
	l.end()
}

func (l *Listener) parent() context.Context {
	if l.record != nil {
		return l.recordCtx
	}
	return l.ctx
}

func (l *Listener) end() {
	if l.record == nil {
		return
	}
	l.record.SetAttributes(
		attribute.Int("tape.inputs", l.inputs),
		attribute.Int("tape.outputs", l.outputs),
	)
	l.record.End()
	l.record, l.recordCtx = nil, nil
}
