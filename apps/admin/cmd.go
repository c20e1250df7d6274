package main

import (
	"context"
	"errors"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf      *core.Config
	logger    core.Logger
	db        *sqlx.DB
	courseSvc *course.Service
	cardSvc   *card.Service
	out       io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.importCardsCmd(),
		cli.exportCardsCmd(),
		cli.describeLessonCmd(),
		cli.tokenCmd(),
	)
	return root
}

// run executes the command line args (program name included).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// requireFlags returns errHelp (after printing the usage) if any of the flags is not set.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			_ = cmd.Usage()
			return errHelp
		}
	}
	return nil
}
