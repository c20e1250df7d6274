// Package sheets reads and writes term/translation pairs from and to .xlsx workbooks.
// The term is in the first column, the translation in the second one.
package sheets

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var ErrSheetNotFound = errors.New("sheet not found")

type Pair struct {
	Term        string `yaml:"term"`
	Translation string `yaml:"translation"`
}

type Options struct {
	Sheet  string // defaults to the first sheet of the workbook
	Header bool   // skip the first row
}

// ReadPairs returns the pairs of the workbook, in row order. Rows with both cells blank are skipped.
func ReadPairs(r io.Reader, opts Options) ([]Pair, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	sheetList := f.GetSheetList()
	if sheet == "" {
		if len(sheetList) == 0 {
			return nil, ErrSheetNotFound
		}
		sheet = sheetList[0]
	} else if !contains(sheetList, sheet) {
		return nil, errors.Wrap(ErrSheetNotFound, sheet)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}
	defer func() { _ = rows.Close() }()

	pairs := make([]Pair, 0)
	first := true
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, errors.Wrapf(err, "reading sheet %s", sheet)
		}
		if first {
			first = false
			if opts.Header {
				continue
			}
		}

		var p Pair
		if len(cols) > 0 {
			p.Term = strings.TrimSpace(cols[0])
		}
		if len(cols) > 1 {
			p.Translation = strings.TrimSpace(cols[1])
		}
		if p.Term == "" && p.Translation == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// WritePairs writes a workbook with a single sheet holding a header row and the pairs.
func WritePairs(w io.Writer, sheet string, pairs []Pair) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = "Cards"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	rows := make([][2]string, 0, len(pairs)+1)
	rows = append(rows, [2]string{"term", "translation"})
	for _, p := range pairs {
		rows = append(rows, [2]string{p.Term, p.Translation})
	}
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err = f.SetCellStr(sheet, cell, val); err != nil {
				return errors.Wrapf(err, "writing %s", cell)
			}
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
