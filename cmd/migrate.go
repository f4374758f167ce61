/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"newsroom/db"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Will create the database if it does not exist.`,
		Flags:       []cli.Flag{databaseFlag()},
		Action: func(ctx *cli.Context) error {
			log.WithField("database", ctx.String("database")).Info("Database configured")
			return db.Migrate(ctx.String("database"))
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Rollback database migration",
		Description: `Rolls back the last database migration.

Rolling back the first migration drops the news table and every stored item,
so the command asks for confirmation unless --yes is given.`,
		Flags: []cli.Flag{
			databaseFlag(),
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Roll back without asking for confirmation",
				EnvVars: []string{"NEWSROOM_YES"},
			},
		},
		Action: func(ctx *cli.Context) error {
			database := ctx.String("database")
			log.WithField("database", database).Info("Database configured")

			if !ctx.Bool("yes") {
				confirmed, err := confirmRollback(database)
				if err != nil {
					return err
				}
				if !confirmed {
					log.Info("Rollback aborted")
					return nil
				}
			}

			return db.Rollback(database)
		},
	}
}

func confirmRollback(database string) (bool, error) {
	answer, err := prompt.New().
		Ask(fmt.Sprintf("Rollback may delete all news stored in %s. Type yes to continue:", database)).
		Input("")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "yes"), nil
}
