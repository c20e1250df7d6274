package card

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kamusi/core"
)

type Card struct {
	ID          string    `json:"id"`
	LessonID    string    `json:"lesson_id"`
	Term        string    `json:"term"`
	Translation string    `json:"translation"`
	WordType    string    `json:"word_type"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Draft is a card as edited by its owner: without an ID it is created, otherwise updated.
type Draft struct {
	ID          string `json:"id,omitempty"`
	Term        string `json:"term" validate:"max=255"`
	Translation string `json:"translation" validate:"max=255"`
	WordType    string `json:"word_type,omitempty" validate:"max=32"`
	OrderIndex  int    `json:"order_index" validate:"min=0"`
}

func (d *Draft) Clean() {
	d.Term = core.CleanString(d.Term)
	d.Translation = core.CleanString(d.Translation)
	d.WordType = core.CleanString(d.WordType, true /* lower */)
}

func (d Draft) Validate(validate *validator.Validate) error {
	return validate.Struct(d)
}

// IsBlank reports whether both term and translation are empty.
func (d Draft) IsBlank() bool {
	return core.CleanString(d.Term) == "" && core.CleanString(d.Translation) == ""
}

func (c Card) Draft() Draft {
	return Draft{
		ID:          c.ID,
		Term:        c.Term,
		Translation: c.Translation,
		WordType:    c.WordType,
		OrderIndex:  c.OrderIndex,
	}
}
