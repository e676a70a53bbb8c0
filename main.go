package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/ngmod/internal/api"
	"github.com/iamwavecut/ngmod/internal/config"
	"github.com/iamwavecut/ngmod/internal/db"
	"github.com/iamwavecut/ngmod/internal/db/sqlite"
	"github.com/iamwavecut/ngmod/internal/infra"
	"github.com/iamwavecut/ngmod/internal/lifecycle"
	"github.com/iamwavecut/ngmod/internal/moderation"
	"github.com/iamwavecut/ngmod/internal/observability"
)

const storeProbeInterval = 30 * time.Second

func main() {
	if err := run(os.Args); err != nil {
		log.WithError(err).Error("exiting")
		os.Exit(1)
	}
}

func run(args []string) error {
	app := &cli.App{
		Name:  "ngmod",
		Usage: "moderation state engine for group chats",
		Before: func(cctx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log.SetFormatter(&config.NbFormatter{})
			log.SetOutput(os.Stderr)
			log.SetLevel(log.Level(cfg.LogLevel))
			return nil
		},
		Commands: []*cli.Command{
			serveCmd,
			targetCmd(moderation.CommandWarn, "warn a member, banning at the threshold", false),
			targetCmd(moderation.CommandRemoveWarn, "take one warning back", false),
			targetCmd(moderation.CommandResetWarns, "reset warnings of a member", false),
			targetCmd(moderation.CommandWarns, "show warnings of a member", false),
			targetCmd(moderation.CommandMute, "mute a member (30m, 2h, 1d, 1w, permanent)", true),
			targetCmd(moderation.CommandUnmute, "lift a mute", false),
			targetCmd(moderation.CommandBan, "ban a member, permanently unless a duration is given", true),
			targetCmd(moderation.CommandUnban, "lift a ban", false),
			reportsCmd,
			resolveCmd,
			welcomeCmd,
		},
	}
	return app.Run(args)
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP intent endpoint",
	Action: func(cctx *cli.Context) error {
		cfg := config.Get()
		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := sqlite.NewSQLiteClient(ctx, cfg.DotPath, cfg.DBFile)
		if err != nil {
			return err
		}
		metrics := observability.NewMetrics()
		engine := moderation.New(client, client, moderation.ConfigFrom(cfg), moderation.WithMetrics(metrics))
		server := api.New(engine, client, metrics.Handler(), cfg.API.Listen)

		runtime := lifecycle.NewRuntime(cfg.API.ShutdownTimeout,
			lifecycle.Hooks{Name: "store", OnStop: func(context.Context) error { return client.Close() }},
			observability.NewTracing(nil),
			server,
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return infra.SafeRun("runtime", func() error { return runtime.Run(gctx) })
		})
		g.Go(func() error {
			return infra.SafeRun("store_probe", func() error { return probeStore(gctx, client) })
		})
		return g.Wait()
	},
}

// probeStore logs storage outages until ctx is done.
func probeStore(ctx context.Context, client db.Client) error {
	ticker := time.NewTicker(storeProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := client.Ping(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("store ping failed")
			}
		}
	}
}

func chatFlag() cli.Flag {
	return &cli.Int64Flag{Name: "chat", Usage: "chat id", Required: true}
}

func targetCmd(command moderation.Command, usage string, timed bool) *cli.Command {
	flags := []cli.Flag{
		chatFlag(),
		&cli.Int64Flag{Name: "user", Usage: "target user id", Required: true},
		&cli.StringFlag{Name: "username", Usage: "target username, without @"},
		&cli.Int64Flag{Name: "actor", Usage: "acting admin id"},
	}
	if timed {
		flags = append(flags, &cli.StringFlag{Name: "duration", Aliases: []string{"d"}, Usage: "duration token"})
	}
	return &cli.Command{
		Name:  string(command),
		Usage: usage,
		Flags: flags,
		Action: func(cctx *cli.Context) error {
			return execute(cctx, moderation.Intent{
				Command: command,
				ActorID: cctx.Int64("actor"),
				ChatID:  cctx.Int64("chat"),
				Target:  moderation.Target{ID: cctx.Int64("user"), UserName: cctx.String("username")},
				Params:  cctx.String("duration"),
			})
		},
	}
}

var reportsCmd = &cli.Command{
	Name:  string(moderation.CommandReports),
	Usage: "list pending reports, oldest first",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "chat", Usage: "chat id, 0 for every chat"},
	},
	Action: func(cctx *cli.Context) error {
		return execute(cctx, moderation.Intent{Command: moderation.CommandReports, ChatID: cctx.Int64("chat")})
	},
}

var resolveCmd = &cli.Command{
	Name:      string(moderation.CommandResolve),
	Usage:     "resolve a pending report",
	ArgsUsage: "<report id>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return cli.Exit("exactly one report id expected", 2)
		}
		return execute(cctx, moderation.Intent{Command: moderation.CommandResolve, Params: cctx.Args().First()})
	},
}

var welcomeCmd = &cli.Command{
	Name:  string(moderation.CommandWelcome),
	Usage: "toggle greeting of new members",
	Flags: []cli.Flag{chatFlag()},
	Action: func(cctx *cli.Context) error {
		return execute(cctx, moderation.Intent{Command: moderation.CommandWelcome, ChatID: cctx.Int64("chat")})
	},
}

// execute runs a single intent against the local store and prints the decision.
func execute(cctx *cli.Context, intent moderation.Intent) error {
	cfg := config.Get()
	client, err := sqlite.NewSQLiteClient(cctx.Context, cfg.DotPath, cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("cant close store")
		}
	}()

	engine := moderation.New(client, client, moderation.ConfigFrom(cfg))
	decision, err := engine.Execute(cctx.Context, intent)
	if err != nil {
		decision = moderation.Failed(intent.Command, err)
	}
	encoder := json.NewEncoder(cctx.App.Writer)
	encoder.SetIndent("", "  ")
	if encErr := encoder.Encode(decision); encErr != nil {
		return fmt.Errorf("encode decision: %w", encErr)
	}
	return err
}
