package cardlist

import (
	"strconv"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
)

// RowID identifies a row of the working set: either a local sequence number for
// rows not saved yet, or the id assigned by the store.
type RowID struct {
	seq uint64
	id  string
}

func Temporary(seq uint64) RowID { return RowID{seq: seq} }
func Persisted(id string) RowID  { return RowID{id: id} }

func (id RowID) IsTemporary() bool { return id.id == "" }

// Persisted returns the store id of the row, if it has one.
func (id RowID) Persisted() (string, bool) {
	return id.id, id.id != ""
}

func (id RowID) String() string {
	if id.IsTemporary() {
		return "temp_" + strconv.FormatUint(id.seq, 10)
	}
	return id.id
}

type Row struct {
	ID          RowID
	LessonID    string
	Term        string
	Translation string
	WordType    string
	OrderIndex  int
}

// IsNew reports whether the row was never saved.
func (r Row) IsNew() bool { return r.ID.IsTemporary() }

// IsBlank reports whether both term and translation are empty. Blank rows are placeholders:
// SaveAll leaves them out.
func (r Row) IsBlank() bool {
	return core.CleanString(r.Term) == "" && core.CleanString(r.Translation) == ""
}

func (r Row) draft() card.Draft {
	d := card.Draft{
		Term:        r.Term,
		Translation: r.Translation,
		WordType:    r.WordType,
		OrderIndex:  r.OrderIndex,
	}
	d.ID, _ = r.ID.Persisted()
	return d
}

func rowFromCard(c card.Card) Row {
	return Row{
		ID:          Persisted(c.ID),
		LessonID:    c.LessonID,
		Term:        c.Term,
		Translation: c.Translation,
		WordType:    c.WordType,
		OrderIndex:  c.OrderIndex,
	}
}
