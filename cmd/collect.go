/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"newsroom/db"
	"newsroom/ingest"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func collectCmd() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Run a single ingestion pass",
		Description: `Fetches every enabled source once, stores new items in the
database and prints a summary of the pass as JSON.

Can be run from cron instead of the built-in scheduler.

Prints all log messages to stderr.`,
		Flags: append([]cli.Flag{databaseFlag(), sourcesFlag(), workersFlag()}, fetchFlags()...),
		Action: func(ctx *cli.Context) error {
			log.SetOutput(os.Stderr)

			store, err := db.Open(ctx.String("database"))
			if err != nil {
				return err
			}
			defer store.Close()

			collector := ingest.NewCollector(newRegistry(ctx), newFetcher(ctx), store, ctx.Int("workers"))
			result, err := collector.CollectOnce(ctx.Context)

			summary, marshalErr := json.Marshal(result)
			if marshalErr == nil {
				fmt.Println(string(summary))
			}
			return err
		},
	}
}
