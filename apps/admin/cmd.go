package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/studytrack/apps/shared"
	"github.com/trezcool/studytrack/core"
)

var readPasswordFunc = term.ReadPassword // mockable

type commandLine struct {
	svcs       *shared.Services
	validate   *validator.Validate
	translator ut.Translator
	openDB     func() (*sqlx.DB, error)
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "StudyTrack administration",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cli.newAddStudentCmd())
	rootCmd.AddCommand(cli.newWeeklyReportCmd())
	rootCmd.AddCommand(cli.newNotifyTestCmd())
	rootCmd.AddCommand(cli.newMigrateCmd())

	return rootCmd
}

func (cli *commandLine) run(args []string, out io.Writer) error {
	rootCmd := cli.newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	return rootCmd.Execute()
}

// describeErr renders validation errors one field per line.
func (cli *commandLine) describeErr(err error) error {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make([]string, 0, len(origErr))
		for _, vErr := range origErr {
			msgs = append(msgs, fmt.Sprintf("%s: %s", vErr.Field(), vErr.Translate(cli.translator)))
		}
		sort.Strings(msgs)
		return errors.New(strings.Join(msgs, "\n"))
	case *core.ValidationError:
		msgs := make([]string, 0, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fErr.Field, fErr.Error))
		}
		if len(msgs) == 0 {
			return origErr
		}
		return errors.New(strings.Join(msgs, "\n"))
	}
	return err
}
