package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/layerstage/internal/app"
	"github.com/specialistvlad/layerstage/internal/cli"
)

// main is the entrypoint for the layerstage application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		stop()
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitFailed)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Reports go to outW, logs and usage errors to errW.
func run(ctx context.Context, outW, errW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Recover here to provide a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = &cli.ExitError{Code: cli.ExitFailed, Message: fmt.Sprintf("application panicked | %v", r)}
		}
	}()

	layerApp, err := app.NewApp(outW, errW, appConfig)
	if err != nil {
		return &cli.ExitError{Code: cli.ExitInvalid, Message: err.Error()}
	}

	report, err := layerApp.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &cli.ExitError{Code: cli.ExitFailed, Message: err.Error()}
	case err != nil:
		return &cli.ExitError{Code: cli.ExitInvalid, Message: err.Error()}
	case !report.OK:
		return &cli.ExitError{Code: cli.ExitFailed, Message: fmt.Sprintf("layer verification failed with %d problem(s)", len(report.Failures()))}
	}
	return nil
}
