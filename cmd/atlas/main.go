// Command atlas keeps a travel journal and drives the memory globe headlessly.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/littleexplorer/atlas/internal/dispatcher"
	"github.com/littleexplorer/atlas/internal/logging"
	intOtel "github.com/littleexplorer/atlas/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "atlas"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

const usage = `usage: atlas [--config dir] [--log-level level] <command> [args]

commands:
  list                      memories, newest first
  show <id>                 one memory as JSON
  enrich <text>             structure a story without saving it
  add <text>                enrich, review and save a memory
        --photo file        attach an image (repeatable)
        --date YYYY-MM-DD   override the visit date
        --with a,b          override the companions
  delete <id>               remove a memory
  paths                     flight paths between consecutive visits, as JSON
  export                    memories and flight paths as GeoJSON
  render                    run the globe frame loop and print JSON lines
        --frames n          stop after n frames (0 runs until interrupted)
        --select id         fly to a memory first
        --interactive       read control commands from stdin:
                            select <id>, clear, delete <id>, drag <az> <polar>,
                            zoom <factor>, resize <w> <h>, quit
  backup <file>             copy a SQLite journal to file
  version                   print the version
`

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	configDir, rest, err := parseGlobalFlags(args)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n\n%s", err, usage)
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprint(errOut, usage)
		return 2
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return 0
	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return 0
	}

	if _, ok := commands[command]; !ok {
		fmt.Fprintf(errOut, "Error: unknown command %q\n\n%s", command, usage)
		return 2
	}

	app, err := newApp(ctx, configDir, in, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	defer app.Close()

	d, err := dispatcher.New(Logger)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	defer d.Close()
	registerCommands(ctx, d, app, out)

	if _, err := d.Dispatch(dispatcher.Event{Command: command, Args: cmdArgs}); err != nil {
		Logger.Error("Command failed", "command", command, "error", err)
		fmt.Fprintf(errOut, "Error: %s\n", userMessage(err))
		return 1
	}
	return 0
}
