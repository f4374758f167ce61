/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"newsroom/config"
	"newsroom/fetcher"
	"newsroom/ingest"

	"github.com/urfave/cli/v2"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Value:   "data/news.db",
		Usage:   "SQLite database file location",
		EnvVars: []string{"NEWSROOM_DATABASE", "DB_PATH"},
	}
}

func sourcesFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "sources",
		Aliases: []string{"s"},
		Usage:   "JSON or TOML source list, falls back to ./sources.json and then the built-in sources",
		EnvVars: []string{"NEWSROOM_SOURCES", "SOURCES_FILE"},
	}
}

func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "user-agent",
			Value:   fetcher.DefaultUserAgent,
			Usage:   "User-Agent header sent to feeds",
			EnvVars: []string{"NEWSROOM_USER_AGENT", "NEWS_USER_AGENT"},
		},
		&cli.DurationFlag{
			Name:    "fetch-timeout",
			Value:   fetcher.DefaultTimeout,
			Usage:   "Timeout for a single feed request",
			EnvVars: []string{"NEWSROOM_FETCH_TIMEOUT"},
		},
		&cli.Uint64Flag{
			Name:    "fetch-retries",
			Value:   fetcher.DefaultRetries,
			Usage:   "How many times a transient feed error is retried",
			EnvVars: []string{"NEWSROOM_FETCH_RETRIES"},
		},
	}
}

func workersFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "workers",
		Value:   ingest.DefaultWorkers,
		Usage:   "Number of sources fetched concurrently",
		EnvVars: []string{"NEWSROOM_WORKERS"},
	}
}

func newFetcher(ctx *cli.Context) *fetcher.Fetcher {
	cfg := fetcher.DefaultConfig()
	cfg.UserAgent = ctx.String("user-agent")
	cfg.Timeout = ctx.Duration("fetch-timeout")
	cfg.Retries = ctx.Uint64("fetch-retries")
	return fetcher.New(cfg)
}

func newRegistry(ctx *cli.Context) *config.Registry {
	return config.NewRegistry(ctx.String("sources"))
}
