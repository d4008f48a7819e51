package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/studytrack/storage/database"
)

var migrateFunc = database.RunMigrations // mockable

func (cli *commandLine) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run a goose migration command (up, down, status, version, redo, reset, up-to, down-to...)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cli.openDB()
			if err != nil {
				return errors.Wrap(err, "opening database")
			}
			defer db.Close()
			return migrateFunc(db, args[0], args[1:]...)
		},
	}
}
