package main

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/studytrack/core/student"
)

var errEmptyPassword = errors.New("password cannot be empty")

func (cli *commandLine) newAddStudentCmd() *cobra.Command {
	var (
		ns          student.NewStudent
		setPassword bool
	)
	cmd := &cobra.Command{
		Use:   "addstudent",
		Short: "Register a new student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if setPassword {
				cmd.Print("Enter password:")
				pwd, err := readPasswordFunc(int(syscall.Stdin))
				cmd.Println()
				if err != nil {
					return err
				}
				if len(pwd) == 0 {
					return errEmptyPassword
				}
				ns.Password = string(pwd)
			}
			return cli.addStudent(cmd, ns)
		},
	}

	cmd.Flags().StringVar(&ns.Name, "name", "", "student's full name")
	cmd.Flags().StringVar(&ns.Email, "email", "", "student's email")
	cmd.Flags().StringVar(&ns.Username, "username", "", "optional username")
	cmd.Flags().StringVar(&ns.Grade, "grade", "", "school grade")
	cmd.Flags().StringVar(&ns.ParentName, "parent-name", "", "guardian's name")
	cmd.Flags().StringVar(&ns.ParentEmail, "parent-email", "", "guardian's email, notified by email")
	cmd.Flags().StringVar(&ns.ParentPhone, "parent-phone", "", "guardian's phone, notified by SMS and WhatsApp")
	cmd.Flags().BoolVar(&setPassword, "password", false, "prompt for a password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (cli *commandLine) addStudent(cmd *cobra.Command, ns student.NewStudent) error {
	if err := ns.Validate(cli.validate); err != nil {
		return cli.describeErr(err)
	}
	st, err := cli.svcs.Students.Register(cmd.Context(), ns)
	if err != nil {
		return cli.describeErr(err)
	}
	cmd.Printf("registered %s <%s>: %s\n", st.Name, st.Email, st.ID)
	return nil
}
