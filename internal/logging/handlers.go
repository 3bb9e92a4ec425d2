package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout delivers every record to each sink that accepts its level.
type fanout []slog.Handler

func newFanout(sinks ...slog.Handler) fanout {
	out := make(fanout, 0, len(sinks))
	for _, h := range sinks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going when a sink fails and reports all failures together.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// StateFunc reports attributes describing the journal at the time a record is written.
type StateFunc func() []slog.Attr

// stateHandler appends the current journal state to each record as a "journal" group.
type stateHandler struct {
	next  slog.Handler
	state StateFunc
}

func newStateHandler(next slog.Handler, state StateFunc) *stateHandler {
	return &stateHandler{next: next, state: state}
}

func (h *stateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *stateHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.state != nil {
		if attrs := h.state(); len(attrs) > 0 {
			r.AddAttrs(slog.Attr{Key: "journal", Value: slog.GroupValue(attrs...)})
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *stateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stateHandler{next: h.next.WithAttrs(attrs), state: h.state}
}

func (h *stateHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &stateHandler{next: h.next.WithGroup(name), state: h.state}
}
