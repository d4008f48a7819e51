// Package shared wires the dependencies common to the api and admin apps.
package shared

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/apps"
	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/login"
	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/progress"
	"github.com/trezcool/studytrack/core/session"
	"github.com/trezcool/studytrack/core/student"
	logsvc "github.com/trezcool/studytrack/services/logger"
	notifysvc "github.com/trezcool/studytrack/services/notify"
	"github.com/trezcool/studytrack/storage/database"
	"github.com/trezcool/studytrack/storage/jsonfile"
	"github.com/trezcool/studytrack/storage/repos"
)

// Storage drivers
const (
	StorageJSONFile = "jsonfile"
	StorageDatabase = "database"
)

type Services struct {
	Students      *student.Service
	Logins        *login.Recorder
	Sessions      *session.Tracker
	Progress      *progress.Service
	Notifications notification.Log
	StudentRepo   student.Repository
}

// NewLogger returns a rollbar logger printing to stdout. Rollbar is disabled in debug mode.
func NewLogger(prefix string, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.RegisterValidators(validate, translator)
	return validate, translator
}

// OpenStore opens the configured store. The database schema is migrated up first.
func OpenStore(ctx context.Context, conf *core.Config, logger core.Logger) (core.Store, error) {
	switch conf.Storage.Driver {
	case StorageJSONFile, "":
		store, err := jsonfile.Open(conf.Storage.DataDir, logger)
		if err != nil {
			return nil, err
		}
		return store, nil

	case StorageDatabase:
		db, err := database.Open(conf.Database)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrating database")
		}
		store, err := database.NewStore(ctx, db, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, apps.NewConfigError("storage.driver", conf.Storage.Driver)
	}
}

// NewNotifier builds the guardian notification dispatcher over the configured providers.
func NewNotifier(ctx context.Context, conf *core.Config, store core.Store, logger core.Logger) (*notification.Dispatcher, error) {
	transports, err := notifysvc.NewTransports(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up notification transports")
	}
	return notifysvc.NewDispatcher(conf, transports, repos.NewNotificationLog(store), logger)
}

func NewServices(store core.Store, notifier login.Notifier, logger core.Logger) (*Services, error) {
	svcs := &Services{
		StudentRepo:   repos.NewStudentRepository(store),
		Notifications: repos.NewNotificationLog(store),
	}

	var err error
	if svcs.Sessions, err = session.NewTracker(repos.NewSessionRepository(store), svcs.StudentRepo, logger); err != nil {
		return nil, errors.Wrap(err, "creating session tracker")
	}
	if svcs.Students, err = student.NewService(svcs.StudentRepo, repos.NewTypingRepository(store), svcs.Sessions, logger); err != nil {
		return nil, errors.Wrap(err, "creating student service")
	}
	if svcs.Logins, err = login.NewRecorder(repos.NewLoginRepository(store), svcs.StudentRepo, notifier, logger); err != nil {
		return nil, errors.Wrap(err, "creating login recorder")
	}
	if svcs.Progress, err = progress.NewService(svcs.StudentRepo, svcs.Logins, svcs.Sessions, svcs.Students, notifier, logger); err != nil {
		return nil, errors.Wrap(err, "creating progress service")
	}
	return svcs, nil
}
