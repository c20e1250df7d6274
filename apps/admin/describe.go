package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/course"
	"github.com/trezcool/kamusi/core/editable"
)

func (cli *commandLine) describeLessonCmd() *cobra.Command {
	var lessonID, ownerID, file string
	cmd := &cobra.Command{
		Use:   "describe-lesson",
		Short: "Replace the description of a lesson with the content of an HTML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "lesson", "owner", "file"); err != nil {
				return err
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "reading description")
			}
			return cli.describeLesson(cmd.Context(), lessonID, ownerID, string(content))
		},
	}
	cmd.Flags().StringVarP(&lessonID, "lesson", "l", "", "ID of the lesson")
	cmd.Flags().StringVar(&ownerID, "owner", "", "user ID of the course owner")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path of the HTML description")
	return cmd
}

func (cli *commandLine) describeLesson(ctx context.Context, lessonID, ownerID, content string) error {
	l, err := cli.courseSvc.GetLesson(ctx, lessonID)
	if err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	c, err := cli.courseSvc.GetCourseByID(ctx, l.CourseID)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	perms, err := cli.courseSvc.Permissions(ctx, ownerID, c)
	if err != nil {
		return err
	}

	desc := editable.New(l.Description, editable.Options{
		CanEdit:    perms.AtLeast(course.RoleOwner),
		Discipline: editable.ManualCommit,
		Saver: editable.SaverFunc(func(ctx context.Context, value string) (string, error) {
			saved, err := cli.courseSvc.UpdateLessonDescription(ctx, ownerID, lessonID, value)
			if err != nil {
				return "", err
			}
			return saved.Description, nil
		}),
	})
	if !desc.Click() {
		return core.ErrPermissionDenied
	}
	if err = desc.Change(content); err != nil {
		return err
	}
	if err = desc.Save(ctx); err != nil {
		return err
	}

	if desc.JustSaved() {
		_, _ = fmt.Fprintln(cli.out, "Saved!")
	}
	_, _ = fmt.Fprintln(cli.out, desc.Committed())
	return nil
}
