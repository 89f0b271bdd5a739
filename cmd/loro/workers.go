package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelpaiva/loro/pkg/archive"
	"github.com/raphaelpaiva/loro/pkg/broker"
	"github.com/raphaelpaiva/loro/pkg/classify"
	"github.com/raphaelpaiva/loro/pkg/config"
	"github.com/raphaelpaiva/loro/pkg/dispatch"
	"github.com/raphaelpaiva/loro/pkg/event"
	"github.com/raphaelpaiva/loro/pkg/prompt"
	"github.com/raphaelpaiva/loro/pkg/rules"
	"github.com/raphaelpaiva/loro/pkg/sorter"
	"github.com/raphaelpaiva/loro/pkg/transcribe"
	"github.com/raphaelpaiva/loro/pkg/wol"
	"github.com/raphaelpaiva/loro/pkg/worker"
)

func sorterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sorter",
		Short: "Classify raw events and route them over the topic exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger("sorter")
			client := broker.NewClient(broker.Options{URL: cfg.BrokerURL, Logger: log})
			defer client.Close()

			s := sorter.New(client, classify.New(cfg.WakeWord), cfg.Exchange, cfg.Binds, log)

			ctx, cancel := signalContext()
			defer cancel()
			return worker.New(client, worker.Spec{
				Name:   "sorter",
				Queue:  cfg.InputQueue,
				Setup:  s.Bind,
				Handle: s.Route,
			}, log).Run(ctx)
		},
	}
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Run the rule engine over all labeled events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger("rules")
			client := broker.NewClient(broker.Options{URL: cfg.BrokerURL, Logger: log})
			defer client.Close()

			dispatcher := dispatch.New(client, cfg.SendQueue, log)
			loader := &rules.Loader{Registry: computedRegistry(cfg), Logger: log}
			snap, err := loader.Load(cfg.RulesFile)
			if err != nil {
				return fmt.Errorf("initial rules load: %w", err)
			}
			engine := rules.NewEngine(snap, rules.EngineOptions{
				ValidGroups:   cfg.ValidGroups,
				DisabledChats: cfg.DisabledChats,
				Logger:        log,
			})
			processor := rules.NewProcessor(engine, dispatcher, log)

			ctx, cancel := signalContext()
			defer cancel()

			go func() {
				if err := rules.NewWatcher(cfg.RulesFile, loader, engine, log).Run(ctx); err != nil {
					log.Error("rules watcher stopped", "error", err)
				}
			}()

			return worker.New(client, worker.Spec{
				Name:  "rules",
				Queue: cfg.RulesQueue,
				Setup: func(c *broker.Client) error {
					if err := c.DeclareExchange(cfg.Exchange); err != nil {
						return err
					}
					if err := c.BindQueue(cfg.RulesQueue, cfg.RulesPattern, cfg.Exchange); err != nil {
						return err
					}
					return dispatcher.Declare(c)
				},
				Handle: worker.JSONHandler(processor.Handle),
			}, log).Run(ctx)
		},
	}
}

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Answer bot-addressed messages with random wisdom",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger("prompt")
			client := broker.NewClient(broker.Options{URL: cfg.BrokerURL, Logger: log})
			defer client.Close()

			dispatcher := dispatch.New(client, cfg.SendQueue, log)
			engine := rules.NewEngine(
				&rules.Snapshot{Rules: []*rules.Rule{prompt.Rule(cfg.WakeWord)}},
				rules.EngineOptions{
					ValidGroups:   cfg.ValidGroups,
					DisabledChats: cfg.DisabledChats,
					Logger:        log,
				},
			)
			processor := rules.NewProcessor(engine, dispatcher, log)

			ctx, cancel := signalContext()
			defer cancel()
			return worker.New(client, worker.Spec{
				Name:   "prompt",
				Queue:  cfg.PromptQueue,
				Setup:  dispatcher.Declare,
				Handle: worker.JSONHandler(processor.Handle),
			}, log).Run(ctx)
		},
	}
}

// computedRegistry wires the builtin computed responses to the config.
func computedRegistry(cfg *config.Config) rules.Registry {
	reg := rules.Registry{"echo": rules.Echo}
	if cfg.WOL.MACAddress != "" {
		mac, bcast := cfg.WOL.MACAddress, cfg.WOL.Broadcast
		if bcast == "" {
			bcast = "255.255.255.255:9"
		}
		reg["wake"] = func(_ context.Context, _ []string, _ *event.Event) (string, error) {
			if err := wol.Wake(mac, bcast); err != nil {
				return "", err
			}
			return "Acordando o computador...", nil
		}
	}
	return reg
}

func transcribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe voice notes through the speech-to-text backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger("transcribe")
			client := broker.NewClient(broker.Options{URL: cfg.BrokerURL, Logger: log})
			defer client.Close()

			dispatcher := dispatch.New(client, cfg.SendQueue, log)
			t := transcribe.New(cfg.WhisperURL, dispatcher, log)

			ctx, cancel := signalContext()
			defer cancel()
			return worker.New(client, worker.Spec{
				Name:   "transcribe",
				Queue:  "transcribe",
				Setup:  dispatcher.Declare,
				Handle: worker.JSONHandler(t.Handle),
			}, log).Run(ctx)
		},
	}
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Passive consumers: message log and media store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Append every event to the message log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger("archive-log")
			client := broker.NewClient(broker.Options{URL: cfg.BrokerURL, Logger: log})
			defer client.Close()

			logger, err := archive.NewLogger(cfg.LogDir, log)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return worker.New(client, worker.Spec{
				Name:   "archive-log",
				Queue:  "log",
				Handle: logger.Handle,
			}, log).Run(ctx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "media",
		Short: "Store media payloads on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			log := newLogger("archive-media")
			client := broker.NewClient(broker.Options{URL: cfg.BrokerURL, Logger: log})
			defer client.Close()

			store, err := archive.NewMediaStore(cfg.MediaDir, log)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return worker.New(client, worker.Spec{
				Name:   "archive-media",
				Queue:  "download",
				Handle: worker.JSONHandler(store.Handle),
			}, log).Run(ctx)
		},
	})

	return cmd
}
