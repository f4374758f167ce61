/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"newsroom/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Print the normalized items of a single feed",
		ArgsUsage: "<url>",
		Description: `Fetches one RSS or Atom feed and prints its normalized items
without storing them.

Returns each item as a JSON object on a single line. Use a tool like jq to process
the output.

Prints all other log messages to stderr.`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Source name put on every item, defaults to the feed host",
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Language tag put on every item",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Category put on every item",
			},
		}, fetchFlags()...),
		Action: func(ctx *cli.Context) error {
			// Keep stdout for items only
			log.SetOutput(os.Stderr)

			if ctx.NArg() != 1 {
				return cli.Exit("fetch expects exactly one feed url", 1)
			}
			feedUrl := ctx.Args().First()

			u, err := url.Parse(feedUrl)
			if err != nil || u.Host == "" {
				return cli.Exit(fmt.Sprintf("invalid feed url %q", feedUrl), 1)
			}

			source := models.Source{
				Name:     ctx.String("name"),
				Url:      feedUrl,
				Language: ctx.String("language"),
				Category: ctx.String("category"),
				Enabled:  true,
			}
			if source.Name == "" {
				source.Name = u.Host
			}

			items, err := newFetcher(ctx).Fetch(ctx.Context, source)
			if err != nil {
				return err
			}

			for i := range items {
				printStdout(&items[i])
			}
			return nil
		},
	}
}

func printStdout(v interface{}) {
	// Print as single JSON string on a single line
	line, err := json.Marshal(v)
	if err == nil {
		fmt.Println(string(line))
	}
}
