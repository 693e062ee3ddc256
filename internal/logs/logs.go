// Package logs builds the process logger and turns tape events into log
// records.
package logs

import (
	"context"
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"

	"github.com/born-ml/adtape/internal/events"
)

// LevelTrace is the level of identifier events. It sits below debug so that
// a debug logger does not print one line per assignment.
const LevelTrace = slog.LevelDebug - 4

// Options configures New.
type Options struct {
	Level slog.Leveler
	// JSON selects the JSON handler instead of the text handler.
	JSON bool
}

// New returns a logger that writes every record to each of writers.
func New(opts Options, writers ...io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level, ReplaceAttr: replaceLevel}
	handlers := make([]slog.Handler, 0, len(writers))
	for _, w := range writers {
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(w, hopts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, hopts))
		}
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Attach logs every event of reg to logger: workflow events at debug level
// and identifier events at LevelTrace. The returned handles detach it.
func Attach(reg *events.Registry, logger *slog.Logger) []events.Handle {
	return reg.ListenAll(func(e *events.Event) {
		level := slog.LevelDebug
		if e.Kind.LowLevel() {
			level = LevelTrace
		}
		ctx := context.Background()
		if !logger.Enabled(ctx, level) {
			return
		}
		logger.LogAttrs(ctx, level, "tape "+e.Kind.String(), Attrs(e)...)
	})
}

// Attrs returns the fields of e that apply to its kind.
func Attrs(e *events.Event) []slog.Attr {
	attrs := []slog.Attr{slog.String("kind", e.Kind.String())}
	switch e.Kind {
	case events.RegisterInput, events.RegisterOutput:
		attrs = append(attrs, slog.Int("identifier", int(e.Identifier)), slog.Float64("value", e.Value))
	case events.IndexAssign, events.IndexFree:
		attrs = append(attrs, slog.Int("identifier", int(e.Identifier)))
	case events.Evaluate:
		direction := "reverse"
		if e.Forward {
			direction = "forward"
		}
		attrs = append(attrs,
			slog.String("direction", direction),
			slog.String("start", e.Start.String()),
			slog.String("end", e.End.String()),
		)
	case events.Reset:
		attrs = append(attrs, slog.String("position", e.Start.String()), slog.Bool("clear_adjoints", e.ClearAdjoints))
	}
	if e.Tape != nil {
		attrs = append(attrs, slog.Int("largest_identifier", int(e.Tape.LargestIdentifier())))
	}
	return attrs
}
