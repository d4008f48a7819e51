package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/studytrack/core/progress"
)

var errNoStudent = errors.New("either --student or --all is required")

func (cli *commandLine) newWeeklyReportCmd() *cobra.Command {
	var (
		studentID string
		all       bool
	)
	cmd := &cobra.Command{
		Use:   "weeklyreport",
		Short: "Build weekly reports and send them to guardians",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := cli.studentIDs(cmd, studentID, all)
			if err != nil {
				return err
			}
			for _, id := range ids {
				rep, err := cli.svcs.Progress.WeeklyReport(cmd.Context(), id)
				if err != nil {
					return errors.Wrapf(err, "weekly report of %s", id)
				}
				cmd.Println(formatReport(id, rep))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id")
	cmd.Flags().BoolVar(&all, "all", false, "report on every student")
	return cmd
}

func (cli *commandLine) newNotifyTestCmd() *cobra.Command {
	var studentID string
	cmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a sample session summary to a student's guardian",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if studentID == "" {
				return errNoStudent
			}
			st, err := cli.svcs.Progress.TestNotification(cmd.Context(), studentID)
			if err != nil {
				return err
			}
			rcpt := st.Guardian()
			if !rcpt.HasContact() {
				cmd.Printf("%s has no guardian contact: nothing sent\n", st.Name)
				return nil
			}
			cmd.Printf("test notification queued for the guardian of %s (email: %q, phone: %q)\n", st.Name, rcpt.Email, rcpt.Phone)
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id")
	return cmd
}

func (cli *commandLine) studentIDs(cmd *cobra.Command, studentID string, all bool) ([]string, error) {
	if !all {
		if studentID == "" {
			return nil, errNoStudent
		}
		return []string{studentID}, nil
	}
	students, err := cli.svcs.Students.Query(cmd.Context())
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids, nil
}

func formatReport(studentID string, rep progress.WeeklyReport) string {
	return fmt.Sprintf("%s: lessons=%d time=%s average=%d top=%s improvement=%+d",
		studentID, rep.LessonsCompleted, rep.TotalTimeText, rep.AverageScore, rep.TopSubject, rep.Improvement)
}
