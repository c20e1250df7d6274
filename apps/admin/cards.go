package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/cardlist"
	"github.com/trezcool/kamusi/core/course"
	"github.com/trezcool/kamusi/services/export"
	"github.com/trezcool/kamusi/services/sheets"
)

func (cli *commandLine) importCardsCmd() *cobra.Command {
	var (
		lessonID, file, sheet string
		header, replace, dry  bool
	)
	cmd := &cobra.Command{
		Use:   "import-cards",
		Short: "Import term/translation pairs from an .xlsx workbook into a lesson",
		Long: `Import term/translation pairs from the first two columns of an .xlsx sheet.

Cards whose term matches a pair (case-insensitive) get the pair's translation,
other pairs are appended. With --replace, cards missing from the sheet are deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "lesson", "file"); err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return errors.Wrap(err, "opening workbook")
			}
			defer func() { _ = f.Close() }()

			pairs, err := sheets.ReadPairs(f, sheets.Options{Sheet: sheet, Header: header})
			if err != nil {
				return err
			}
			return cli.importCards(cmd, lessonID, pairs, replace, dry)
		},
	}
	cmd.Flags().StringVarP(&lessonID, "lesson", "l", "", "ID of the lesson")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path of the .xlsx workbook")
	cmd.Flags().StringVar(&sheet, "sheet", "", "name of the sheet (default: the first one)")
	cmd.Flags().BoolVar(&header, "header", false, "skip the first row")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete the cards missing from the sheet")
	cmd.Flags().BoolVar(&dry, "dry-run", false, "print the changes as a diff without saving them")
	return cmd
}

func (cli *commandLine) importCards(cmd *cobra.Command, lessonID string, pairs []sheets.Pair, replace, dry bool) error {
	ctx := cmd.Context()
	if _, err := cli.courseSvc.GetLesson(ctx, lessonID); err != nil {
		return errors.Wrap(err, "getting lesson")
	}
	cards, err := cli.cardSvc.ListByLesson(ctx, lessonID)
	if err != nil {
		return errors.Wrap(err, "listing cards")
	}

	list := cardlist.New(lessonID, cards, cli.cardSvc)
	byTerm := make(map[string]cardlist.RowID, len(cards))
	for _, row := range list.Rows() {
		byTerm[strings.ToLower(row.Term)] = row.ID
	}

	seen := make(map[cardlist.RowID]bool, len(pairs))
	for _, p := range pairs {
		key := strings.ToLower(p.Term)
		id, ok := byTerm[key]
		if !ok || p.Term == "" {
			id = list.AddRow().ID
			if p.Term != "" {
				byTerm[key] = id
			}
		}
		if _, err = list.UpdateRow(ctx, id, p.Term, p.Translation); err != nil {
			return err
		}
		seen[id] = true
	}
	if replace {
		for _, row := range list.Rows() {
			if !seen[row.ID] {
				if err = list.RemoveRow(ctx, row.ID); err != nil {
					return err
				}
			}
		}
	}

	if dry {
		return printDiff(cli.out, cards, list.Rows())
	}

	deleted := len(list.PendingDeletes())
	if err = list.SaveAll(ctx); err != nil {
		return errors.Wrap(err, "saving cards")
	}
	_, _ = fmt.Fprintf(cli.out, "%d cards saved, %d deleted\n", len(list.Rows()), deleted)
	return nil
}

func cardLine(term, translation string) string {
	return term + " = " + translation + "\n"
}

func printDiff(w io.Writer, before []card.Card, after []cardlist.Row) error {
	var a, b strings.Builder
	for _, c := range before {
		a.WriteString(cardLine(c.Term, c.Translation))
	}
	for _, row := range after {
		if !row.IsBlank() {
			b.WriteString(cardLine(row.Term, row.Translation))
		}
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: "lesson",
		ToFile:   "import",
		Context:  3,
	})
	if err != nil {
		return errors.Wrap(err, "diffing cards")
	}
	if diff == "" {
		diff = "no changes\n"
	}
	_, err = io.WriteString(w, diff)
	return err
}

func (cli *commandLine) exportCardsCmd() *cobra.Command {
	var lessonID, format, out string
	cmd := &cobra.Command{
		Use:   "export-cards",
		Short: "Export the cards of a lesson as YAML or .xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err = requireFlags(cmd, "lesson"); err != nil {
				return err
			}
			write, ok := exporters[format]
			if !ok {
				return fmt.Errorf("unknown format %q (want yaml or xlsx)", format)
			}
			ctx := cmd.Context()
			lesson, err := cli.courseSvc.GetLesson(ctx, lessonID)
			if err != nil {
				return errors.Wrap(err, "getting lesson")
			}
			cards, err := cli.cardSvc.ListByLesson(ctx, lessonID)
			if err != nil {
				return errors.Wrap(err, "listing cards")
			}

			if out == "" {
				return write(cli.out, lesson, cards)
			}
			f, err := os.Create(out)
			if err != nil {
				return errors.Wrap(err, "creating output file")
			}
			defer closeOutput(f, &err)
			return write(f, lesson, cards)
		},
	}
	cmd.Flags().StringVarP(&lessonID, "lesson", "l", "", "ID of the lesson")
	cmd.Flags().StringVar(&format, "format", "yaml", "yaml or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

var exporters = map[string]func(io.Writer, course.Lesson, []card.Card) error{
	"yaml": export.WriteLessonYAML,
	"xlsx": export.WriteLessonXLSX,
}

// closeOutput closes a written file, reporting its error through err unless err is already set.
func closeOutput(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = errors.Wrap(cerr, "closing output file")
	}
}
