package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/studytrack/apps/shared"
	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/storage/database"
)

func main() {
	conf := core.NewConfig()
	ctx := context.Background()
	logger := shared.NewLogger("ADMIN", conf)

	// set up storage
	store, err := shared.OpenStore(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	// set up services
	dispatcher, err := shared.NewNotifier(ctx, conf, store, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up notifications: %v", err), err)
	}
	svcs, err := shared.NewServices(store, dispatcher, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}
	validate, translator := shared.NewValidator()

	// start CLI
	cli := commandLine{
		svcs:       svcs,
		validate:   validate,
		translator: translator,
		openDB: func() (*sqlx.DB, error) {
			return database.Open(conf.Database)
		},
	}
	err = cli.run(os.Args[1:], os.Stdout)

	// notifications are sent in the background
	dispatcher.Wait()
	if cerr := store.Close(); cerr != nil {
		logger.Error("closing store", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
