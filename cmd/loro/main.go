package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "loro",
		Short: "Loro: WhatsApp event classification, routing, and rule-matching pipeline",
		Long: "Loro consumes chat events from the pre-process queue, labels them, fans " +
			"them out over a topic exchange, and runs hot-reloadable rules that decide " +
			"whether and how to reply. Each subcommand is one worker process.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "loro.json5", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(sorterCmd())
	root.AddCommand(rulesCmd())
	root.AddCommand(promptCmd())
	root.AddCommand(transcribeCmd())
	root.AddCommand(archiveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger; --verbose raises level to debug.
func newLogger(component string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h).With(slog.String("component", component))
}

// signalContext cancels on SIGINT/SIGTERM so workers drain and close.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
