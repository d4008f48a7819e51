package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studytrack/apps/shared"
	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/student"
	"github.com/trezcool/studytrack/storage/database"
	inmemdb "github.com/trezcool/studytrack/storage/inmem"
	"github.com/trezcool/studytrack/tests"
)

type fixture struct {
	cli      *commandLine
	notifier *testutil.Notifier
}

func setup(t *testing.T) fixture {
	notifier := &testutil.Notifier{}
	svcs, err := shared.NewServices(inmemdb.NewStore(), notifier, testutil.DiscardLogger)
	require.NoError(t, err)
	validate, translator := shared.NewValidator()

	return fixture{
		notifier: notifier,
		cli: &commandLine{
			svcs:       svcs,
			validate:   validate,
			translator: translator,
			openDB: func() (*sqlx.DB, error) {
				return database.Open(core.DatabaseConfig{Engine: database.EngineSQLite, DSN: ":memory:"})
			},
		},
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := cli.run(tt.args, &out)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	original := migrateFunc
	t.Cleanup(func() { migrateFunc = original })
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCliTests(t, f.cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	})
}

func Test_commandLine_migrateSQLite(t *testing.T) {
	f := setup(t)
	runCliTests(t, f.cli, []cliTest{
		{name: "up", args: []string{"migrate", "up"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
}

func Test_commandLine_addStudent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	original := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = original })
	var typed string
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(typed), nil }

	runCliTests(t, f.cli, []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
		{name: "missing flags", args: []string{"addstudent"}, wantErrStr: `required flag(s) "email", "name" not set`},
		{
			name:       "invalid email",
			args:       []string{"addstudent", "--name", "Ada", "--email", "nope"},
			wantErrStr: "email: email must be a valid email address",
		},
		{
			name:    "register",
			args:    []string{"addstudent", "--name", "Ada", "--email", "Ada@Test.com", "--parent-email", "parent@test.com"},
			wantOut: "registered Ada <ada@test.com>",
		},
		{
			name:       "duplicate",
			args:       []string{"addstudent", "--name", "Ada", "--email", "ada@test.com"},
			wantErrStr: "email: " + student.ErrEmailExists.Error(),
		},
		{
			name:    "empty password",
			args:    []string{"addstudent", "--name", "Bob", "--email", "bob@test.com", "--password"},
			wantErr: errEmptyPassword,
		},
	})

	typed = "c0mpl3x-enough"
	var out bytes.Buffer
	require.NoError(t, f.cli.run([]string{"addstudent", "--name", "Bob", "--email", "bob@test.com", "--password"}, &out))

	students, err := f.cli.svcs.Students.Query(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "parent@test.com", students[0].ContactInfo.ParentEmail)
	assert.Empty(t, students[0].PasswordHash)
	assert.NoError(t, students[1].CheckPassword(typed))
}

func Test_commandLine_reports(t *testing.T) {
	f := setup(t)
	ada := testutil.CreateStudent(t, f.cli.svcs.StudentRepo, "Ada", "ada@test.com", "parent@test.com", "+15550001111")
	bob := testutil.CreateStudent(t, f.cli.svcs.StudentRepo, "Bob", "bob@test.com", "", "")

	runCliTests(t, f.cli, []cliTest{
		{name: "weekly report without student", args: []string{"weeklyreport"}, wantErr: errNoStudent},
		{name: "weekly report of unknown student", args: []string{"weeklyreport", "--student", "nope"}, wantErrStr: "weekly report of nope: student not found"},
		{
			name:    "weekly report",
			args:    []string{"weeklyreport", "--student", ada.ID},
			wantOut: ada.ID + ": lessons=0 time=0h 0m average=0 top=None improvement=+0",
		},
		{name: "weekly reports of everyone", args: []string{"weeklyreport", "--all"}, wantOut: bob.ID},
		{name: "test notification without student", args: []string{"notify-test"}, wantErr: errNoStudent},
		{name: "test notification", args: []string{"notify-test", "--student", ada.ID}, wantOut: `(email: "parent@test.com", phone: "+15550001111")`},
		{name: "test notification without contact", args: []string{"notify-test", "--student", bob.ID}, wantOut: "nothing sent"},
	})

	var reports, samples int
	for _, n := range f.notifier.Sent() {
		switch n.Event.Kind() {
		case notification.EventWeeklyReport:
			reports++
		case notification.EventLogout:
			samples++
		}
	}
	assert.Equal(t, 3, reports)
	assert.Equal(t, 2, samples)
}
