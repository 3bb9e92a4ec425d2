package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/littleexplorer/atlas/internal/dispatcher"
	"github.com/littleexplorer/atlas/internal/globe"
)

// controlQueueSize bounds the control events waiting for the frame loop
const controlQueueSize = 64

// registerControls wires the live globe commands read while rendering.
// Camera input is queued and may be dropped when the loop falls behind; journal edits block instead.
func registerControls(ctx context.Context, d *dispatcher.Dispatcher, a *app, gctx *globe.Context, stop context.CancelFunc) {
	d.Register("select", func(e dispatcher.Event) (any, error) {
		id, err := exactlyOne(e.Args, "memory id")
		if err != nil {
			return nil, err
		}
		if err := a.journal.Select(id); err != nil {
			return nil, err
		}
		gctx.Select(id)
		return id, nil
	}, dispatcher.Buffered(controlQueueSize), dispatcher.Blocking(), dispatcher.Logged())

	d.Register("clear", func(e dispatcher.Event) (any, error) {
		a.journal.ClearSelection()
		return nil, nil
	}, dispatcher.Logged())

	d.Register("delete", func(e dispatcher.Event) (any, error) {
		id, err := exactlyOne(e.Args, "memory id")
		if err != nil {
			return nil, err
		}
		return id, a.journal.Delete(ctx, id)
	}, dispatcher.Buffered(controlQueueSize), dispatcher.Blocking(), dispatcher.Logged())

	d.Register("drag", func(e dispatcher.Event) (any, error) {
		v, err := floats(e.Args, 2)
		if err != nil {
			return nil, err
		}
		gctx.Drag(v[0], v[1])
		return nil, nil
	}, dispatcher.Buffered(controlQueueSize))

	d.Register("zoom", func(e dispatcher.Event) (any, error) {
		v, err := floats(e.Args, 1)
		if err != nil {
			return nil, err
		}
		if v[0] <= 0 {
			return nil, fmt.Errorf("%w: zoom factor must be positive", errUsage)
		}
		gctx.Zoom(v[0])
		return nil, nil
	}, dispatcher.Buffered(controlQueueSize))

	d.Register("resize", func(e dispatcher.Event) (any, error) {
		v, err := floats(e.Args, 2)
		if err != nil {
			return nil, err
		}
		gctx.Resize(v[0], v[1])
		return nil, nil
	}, dispatcher.Buffered(controlQueueSize), dispatcher.Logged())

	d.Register("quit", func(e dispatcher.Event) (any, error) {
		stop()
		return nil, nil
	}, dispatcher.Logged())
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: expected %d numbers, got %d", errUsage, n, len(args))
	}
	out := make([]float64, n)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", errUsage, arg)
		}
		out[i] = v
	}
	return out, nil
}

// readControls dispatches one command per line until r is exhausted or ctx is done.
// Blank lines and lines starting with # are skipped. Bad commands are logged and skipped.
func readControls(ctx context.Context, r io.Reader, d *dispatcher.Dispatcher) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if _, err := d.Dispatch(dispatcher.Event{Command: fields[0], Args: fields[1:]}); err != nil {
			Logger.Warn("Control command rejected", "line", text, "error", err)
		}
	}
	return sc.Err()
}
