// Command podliner is the terminal podcast client daemon: it resolves its
// config/state directories, wires up every backend component via
// internal/runtime, and drives a foreground read-dispatch loop over
// colon-commands from stdin until a :quit/:quit!/:wq is dispatched or the
// process receives an interrupt.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/podliner/podliner/internal/command"
	"github.com/podliner/podliner/internal/paths"
	"github.com/podliner/podliner/internal/runtime"
)

func main() {
	var (
		cfgDir     = flag.String("config-dir", "", "config directory (default: platform-native XDG/APPDATA location)")
		debug      = flag.Bool("debug", false, "enable debug logging")
		logFormat  = flag.String("log-format", "text", "log output format: text or json")
		logToFile  = flag.Bool("log-file", true, "write logs to the daily log file instead of stderr")
		mockEngine = flag.Bool("mock-engine", false, "use a simulated audio engine (no vlc/mpv/ffplay required)")
		offline    = flag.Bool("offline", false, "start with connectivity forced offline")
	)
	flag.Parse()

	dirs, err := paths.Resolve(*cfgDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "podliner: resolve directories:", err)
		os.Exit(1)
	}
	if err := dirs.EnsureAll(); err != nil {
		fmt.Fprintln(os.Stderr, "podliner: create directories:", err)
		os.Exit(1)
	}

	logCloser := configureLogging(dirs, *debug, *logFormat, *logToFile)
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := runtime.New(dirs, runtime.Options{MockEngine: *mockEngine, ForceOffline: *offline})
	if err != nil {
		slog.Error("podliner: startup failed", "err", err)
		os.Exit(1)
	}

	go app.Run(ctx)

	go runInputLoop(ctx, cancel, app)

	<-ctx.Done()
	slog.Info("podliner: shutting down")
	app.Shutdown()
	slog.Info("podliner: shutdown complete")
}

// runInputLoop reads one colon-command per line from stdin and dispatches
// it, logging failures rather than exiting on them — a bad command should
// not bring the process down. It cancels ctx once a quit command has been
// dispatched, or on EOF (stdin closed, e.g. piped input exhausted).
func runInputLoop(ctx context.Context, cancel context.CancelFunc, app *runtime.App) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if err := app.Dispatcher.Dispatch(line); err != nil {
			if _, ok := err.(*command.ErrUnknownCommand); ok {
				slog.Warn("podliner: unknown command", "input", line)
			} else {
				slog.Warn("podliner: command failed", "input", line, "err", err)
			}
		}
		if requested, _ := app.QuitRequested(); requested {
			cancel()
			return
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		slog.Warn("podliner: input loop", "err", err)
	}
	cancel()
}

// configureLogging sets the default slog logger per the --debug/--log-format/
// --log-file flags with one slog.SetDefault call at startup. The returned
// io.Closer (nil if logging to stderr) must be closed on shutdown to flush
// the log file.
func configureLogging(dirs paths.Dirs, debug bool, format string, toFile bool) io.Closer {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if toFile {
		date := time.Now().Format("20060102")
		path := dirs.LogFile(date)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
				w, closer = f, f
			} else {
				fmt.Fprintln(os.Stderr, "podliner: open log file, falling back to stderr:", err)
			}
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closer
}
