package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/littleexplorer/atlas/internal/config"
	"github.com/littleexplorer/atlas/internal/dispatcher"
	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/internal/globe"
	"github.com/littleexplorer/atlas/internal/util"
	"github.com/littleexplorer/atlas/pkg/core"

	"github.com/spf13/pflag"
)

type commandFunc func(ctx context.Context, a *app, args []string, out io.Writer) error

var commands = map[string]commandFunc{
	"list":   runList,
	"show":   runShow,
	"enrich": runEnrich,
	"add":    runAdd,
	"delete": runDelete,
	"paths":  runPaths,
	"export": runExport,
	"render": runRender,
	"backup": runBackup,
}

var errUsage = errors.New("bad arguments")

// registerCommands routes every top-level command through d so each run is logged and counted.
func registerCommands(ctx context.Context, d *dispatcher.Dispatcher, a *app, out io.Writer) {
	for name, fn := range commands {
		d.Register(name, func(e dispatcher.Event) (any, error) {
			return nil, fn(ctx, a, e.Args, out)
		}, dispatcher.Logged())
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func exactlyOne(args []string, what string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: expected one %s", errUsage, what)
	}
	return args[0], nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runList(_ context.Context, a *app, _ []string, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, m := range a.journal.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			m.Date.String(), m.LocationName, strings.Join(m.Companions, ", "), m.ID)
	}
	return tw.Flush()
}

func runShow(_ context.Context, a *app, args []string, out io.Writer) error {
	id, err := exactlyOne(args, "memory id")
	if err != nil {
		return err
	}
	m, ok := a.journal.Get(id)
	if !ok {
		return fmt.Errorf("memory %s not found", id)
	}
	return writeJSON(out, m)
}

func runEnrich(ctx context.Context, a *app, args []string, out io.Writer) error {
	client, err := a.enricher()
	if err != nil {
		return err
	}
	data, err := client.Enrich(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return writeJSON(out, data)
}

func runAdd(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := newFlagSet("add")
	photos := fs.StringArray("photo", nil, "image file to attach")
	date := fs.String("date", "", "visit date, YYYY-MM-DD")
	with := fs.StringSlice("with", nil, "companions")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	// attachments are checked before the network round trip
	var refs []string
	for _, path := range *photos {
		ref, err := a.attacher.File(path)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	var override *core.Date
	if *date != "" {
		d, err := core.ParseDate(*date)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		override = &d
	}

	client, err := a.enricher()
	if err != nil {
		return err
	}
	draft, err := client.Enrich(ctx, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	if override != nil {
		draft.Date = override
	}
	if fs.Changed("with") {
		draft.Companions = util.CompactStrings(*with)
	}

	m, err := a.journal.Add(ctx, draft, refs)
	if err != nil {
		return err
	}
	return writeJSON(out, m)
}

func runDelete(ctx context.Context, a *app, args []string, out io.Writer) error {
	id, err := exactlyOne(args, "memory id")
	if err != nil {
		return err
	}
	if err := a.journal.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s\n", id)
	return nil
}

func arcGenerator(cfg config.GlobeConfig) globe.ArcGenerator {
	return globe.ArcGenerator{
		Radius:   cfg.Radius,
		Segments: cfg.ArcSegments,
		Lift:     cfg.ArcLift,
	}
}

func runPaths(_ context.Context, a *app, _ []string, out io.Writer) error {
	paths := arcGenerator(config.GetGlobeConfig()).Generate(a.journal.Memories())
	if paths == nil {
		paths = []core.FlightPath{}
	}
	return writeJSON(out, paths)
}

func runExport(_ context.Context, a *app, _ []string, out io.Writer) error {
	memories := a.journal.Memories()
	paths := arcGenerator(config.GetGlobeConfig()).Generate(memories)
	data, err := geo.MarshalFeatureCollection(memories, paths)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

// backuper is implemented by SQLite-backed journals
type backuper interface {
	Backup(path string) error
}

func runBackup(_ context.Context, a *app, args []string, out io.Writer) error {
	path, err := exactlyOne(args, "output file")
	if err != nil {
		return err
	}
	b, ok := a.backend.(backuper)
	if !ok {
		return fmt.Errorf("backup is not supported by %s storage", a.storageType)
	}
	if err := b.Backup(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "backed up to %s\n", path)
	return nil
}
