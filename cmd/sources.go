/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"newsroom/config"
	"newsroom/fetcher"
	"newsroom/ingest"
	"newsroom/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type sourceCheck struct {
	Source models.Source        `json:"source"`
	Result *fetcher.CheckResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func sourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "Inspect the configured sources",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the source list used by the next ingestion pass",
				Description: `Prints each source as a JSON object on a single line. When the
sources file is missing or invalid the built-in sources are printed.`,
				Flags: []cli.Flag{sourcesFlag()},
				Action: func(ctx *cli.Context) error {
					for _, source := range newRegistry(ctx).Sources() {
						printStdout(source)
					}
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "Fetch every enabled source and report what it returns",
				Description: `Validates the sources file and fetches each enabled source
without storing anything. Prints one JSON line per source and exits non-zero
when any source fails.

Prints all log messages to stderr.`,
				Flags: append([]cli.Flag{sourcesFlag(), workersFlag()}, fetchFlags()...),
				Action: func(ctx *cli.Context) error {
					log.SetOutput(os.Stderr)

					if path, err := config.ResolveSourcesPath(ctx.String("sources")); err == nil {
						if _, err := config.LoadSources(path); err != nil {
							return cli.Exit(fmt.Sprintf("invalid sources file %s: %v", path, err), 1)
						}
					}

					sources := config.Enabled(newRegistry(ctx).Sources())
					checks := checkSources(ctx, newFetcher(ctx), sources)

					for _, check := range checks {
						printStdout(check)
					}

					failed := lo.CountBy(checks, func(c sourceCheck) bool { return c.Error != "" })
					if failed > 0 {
						return cli.Exit(fmt.Sprintf("%d of %d sources failed", failed, len(checks)), 1)
					}
					return nil
				},
			},
		},
	}
}

func checkSources(ctx *cli.Context, f *fetcher.Fetcher, sources []models.Source) []sourceCheck {
	checks := make([]sourceCheck, len(sources))

	workers := ctx.Int("workers")
	if workers <= 0 {
		workers = ingest.DefaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx.Context)
	g.SetLimit(workers)

	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			check := sourceCheck{Source: source}
			result, err := f.Check(gctx, source)
			if err != nil {
				check.Error = err.Error()
			} else {
				check.Result = &result
			}

			checks[i] = check
			return nil
		})
	}
	g.Wait()

	return checks
}
