// Package export renders lessons and their cards to portable formats.
package export

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
	"github.com/trezcool/kamusi/services/sheets"
)

type lessonDoc struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description,omitempty"`
	Cards       []sheets.Pair `yaml:"cards"`
}

// WriteLessonYAML writes the lesson with its cards, in the order given.
func WriteLessonYAML(w io.Writer, lesson course.Lesson, cards []card.Card) error {
	doc := lessonDoc{
		ID:          lesson.ID,
		Title:       lesson.Title,
		Description: lesson.Description,
		Cards:       Pairs(cards),
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding lesson")
	}
	return errors.Wrap(enc.Close(), "encoding lesson")
}

// WriteLessonXLSX writes the cards to a workbook whose sheet is named after the lesson.
func WriteLessonXLSX(w io.Writer, lesson course.Lesson, cards []card.Card) error {
	return sheets.WritePairs(w, sheetName(lesson.Title), Pairs(cards))
}

func Pairs(cards []card.Card) []sheets.Pair {
	pairs := make([]sheets.Pair, 0, len(cards))
	for _, c := range cards {
		pairs = append(pairs, sheets.Pair{Term: c.Term, Translation: c.Translation})
	}
	return pairs
}

// sheetName trims the title to the 31 characters allowed for sheet names.
func sheetName(title string) string {
	r := []rune(title)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}
