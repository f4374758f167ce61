/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"newsroom/db"
	"newsroom/ingest"
	"newsroom/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveFlags() []cli.Flag {
	flags := []cli.Flag{
		databaseFlag(),
		sourcesFlag(),
		workersFlag(),
		&cli.StringFlag{
			Name:    "hostname",
			Aliases: []string{"n"},
			Value:   "0.0.0.0",
			Usage:   "Address the HTTP server listens on",
			EnvVars: []string{"NEWSROOM_HOSTNAME"},
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   3000,
			Usage:   "Port the HTTP server listens on",
			EnvVars: []string{"NEWSROOM_PORT"},
		},
		&cli.StringFlag{
			Name:    "scheduler",
			Value:   "true",
			Usage:   "Fetch sources on a recurring timer, any value other than true disables it",
			EnvVars: []string{"NEWSROOM_SCHEDULER", "ENABLE_SCHEDULER"},
		},
		&cli.Float64Flag{
			Name:    "interval-hours",
			Value:   ingest.DefaultInterval.Hours(),
			Usage:   "Hours between ingestion passes, fractions allowed, at least 1",
			EnvVars: []string{"NEWSROOM_INTERVAL_HOURS", "NEWS_FETCH_INTERVAL_HOURS"},
		},
		&cli.DurationFlag{
			Name:    "pass-timeout",
			Value:   ingest.DefaultPassTimeout,
			Usage:   "Upper bound for a single ingestion pass",
			EnvVars: []string{"NEWSROOM_PASS_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "cors-origins",
			Value:   "*",
			Usage:   "Comma separated list of origins allowed to call the API",
			EnvVars: []string{"NEWSROOM_CORS_ORIGINS"},
		},
	}
	return append(flags, fetchFlags()...)
}

// schedulerConfig reads the scheduler flags. The interval is clamped by the
// scheduler itself.
func schedulerConfig(ctx *cli.Context) ingest.SchedulerConfig {
	return ingest.SchedulerConfig{
		Enabled:     schedulerEnabled(ctx.String("scheduler")),
		Interval:    time.Duration(ctx.Float64("interval-hours") * float64(time.Hour)),
		PassTimeout: ctx.Duration("pass-timeout"),
	}
}

// schedulerEnabled accepts only "true", in any case
func schedulerEnabled(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the news API and collect news in the background",
		Description: `Starts the news HTTP API and the ingestion scheduler.

The scheduler runs one ingestion pass right away and then one pass per
interval. Every enabled source is fetched, its entries are normalized and
new links are stored in the SQLite database.`,
		Flags: serveFlags(),
		Action: func(ctx *cli.Context) error {
			store, err := db.Open(ctx.String("database"))
			if err != nil {
				return err
			}
			defer store.Close()

			registry := newRegistry(ctx)
			collector := ingest.NewCollector(registry, newFetcher(ctx), store, ctx.Int("workers"))
			scheduler := ingest.NewScheduler(collector, schedulerConfig(ctx))

			app := server.Server(&server.ServerConfig{
				Store:       store,
				Sources:     registry,
				Scheduler:   scheduler,
				CorsOrigins: ctx.String("cors-origins"),
			})

			scheduler.Activate()

			// Graceful shutdown
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigs)

			listenErr := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf("%s:%d", ctx.String("hostname"), ctx.Int("port"))
				log.WithField("address", addr).Info("Starting server")
				listenErr <- app.Listen(addr)
			}()

			select {
			case sig := <-sigs:
				log.WithField("signal", sig.String()).Info("Gracefully shutting down")
			case err = <-listenErr:
				log.WithError(err).Error("Server stopped")
			}

			if shutdownErr := app.ShutdownWithTimeout(60 * time.Second); shutdownErr != nil {
				log.WithError(shutdownErr).Warn("Error shutting down server")
			}
			scheduler.Shutdown()

			log.Info("Done")
			return err
		},
	}
}
