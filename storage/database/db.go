package database

import (
	"database/sql"
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/studytrack/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Engines
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// Open connects to the configured database and waits for it to be ready.
func Open(conf core.DatabaseConfig) (*sqlx.DB, error) {
	var driver string
	switch conf.Engine {
	case EnginePostgres:
		driver = "postgres"
	case EngineSQLite:
		driver = "sqlite"
	default:
		return nil, errors.Wrapf(ErrUnknownEngine, "%q", conf.Engine)
	}

	db, err := sqlx.Open(driver, conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Engine == EngineSQLite {
		// one writer at a time; also keeps `:memory:` databases on a single connection
		db.SetMaxOpenConns(1)
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func gooseDialect(db *sqlx.DB) string {
	if db.DriverName() == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// RunMigrations runs a goose command (up, down, status, version, redo, reset, up-to, down-to...)
// against the embedded migrations.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(gooseDialect(db)); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Run(command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrate %s", command)
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}
