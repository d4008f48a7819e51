package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	echoapi "github.com/trezcool/studytrack/apps/api/echo"
	"github.com/trezcool/studytrack/apps/shared"
	"github.com/trezcool/studytrack/core"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := shared.NewLogger("API", conf)
	storeLogger := shared.NewLogger("STORE", conf)
	notifyLogger := shared.NewLogger("NOTIFY", conf)

	// set up storage
	store, err := shared.OpenStore(ctx, conf, storeLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			storeLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	dispatcher, err := shared.NewNotifier(ctx, conf, store, notifyLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up notifications: %v", err), err)
	}
	svcs, err := shared.NewServices(store, dispatcher, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up services: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage.Driver)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			StudentSvc:     svcs.Students,
			LoginRecorder:  svcs.Logins,
			SessionTracker: svcs.Sessions,
			ProgressSvc:    svcs.Progress,
			Notifications:  svcs.Notifications,
			Validate:       validate,
			Translator:     translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}

	// let in-flight guardian notifications settle before the store is closed
	dispatcher.Wait()
}
