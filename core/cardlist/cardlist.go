// Package cardlist keeps the working set of a lesson's cards while its owner edits them,
// and reconciles it with the store on save.
package cardlist

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kamusi/core/card"
)

var ErrRowNotFound = errors.New("row not found")

// Store persists the cards of a lesson.
type Store interface {
	SaveCard(ctx context.Context, lessonID string, draft card.Draft) (card.Card, error)
	SaveCards(ctx context.Context, lessonID string, drafts []card.Draft) ([]card.Card, error)
	DeleteCards(ctx context.Context, lessonID string, ids ...string) error
}

var _ Store = (*card.Service)(nil)

type Option func(*Reconciler)

// WithRowLevel makes UpdateRow save the edited row and RemoveRow delete it right away.
func WithRowLevel() Option {
	return func(r *Reconciler) { r.rowLevel = true }
}

// Reconciler is safe for concurrent use, but it models a single editor: the last writer wins.
type Reconciler struct {
	store    Store
	lessonID string
	rowLevel bool

	mu      sync.Mutex
	rows    []Row
	deleted []string
	seq     uint64
}

func New(lessonID string, cards []card.Card, store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		lessonID: lessonID,
		rows:     make([]Row, 0, len(cards)),
	}
	for _, c := range cards {
		r.rows = append(r.rows, rowFromCard(c))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) LessonID() string { return r.lessonID }

// Rows returns a copy of the working set.
func (r *Reconciler) Rows() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Row(nil), r.rows...)
}

// PendingDeletes returns the ids of persisted rows removed since the last successful SaveAll.
func (r *Reconciler) PendingDeletes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

func (r *Reconciler) indexOf(id RowID) int {
	for i, row := range r.rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// AddRow appends an empty row. Nothing is saved until SaveAll.
func (r *Reconciler) AddRow() Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	row := Row{
		ID:         Temporary(r.seq),
		LessonID:   r.lessonID,
		OrderIndex: len(r.rows),
	}
	r.rows = append(r.rows, row)
	return row
}

// UpdateRow sets the term and translation of a row.
// In row-level mode the row is saved right away (new blank rows excepted) and replaced with its canonical version.
func (r *Reconciler) UpdateRow(ctx context.Context, id RowID, term, translation string) (Row, error) {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return Row{}, errors.Wrap(ErrRowNotFound, id.String())
	}
	r.rows[i].Term = term
	r.rows[i].Translation = translation
	row := r.rows[i]
	r.mu.Unlock()

	if !r.rowLevel || (row.IsNew() && row.IsBlank()) {
		return row, nil
	}

	saved, err := r.store.SaveCard(ctx, r.lessonID, row.draft())
	if err != nil {
		return row, errors.Wrap(err, "saving card")
	}

	canonical := rowFromCard(saved)
	r.mu.Lock()
	if i = r.indexOf(id); i >= 0 {
		r.rows[i] = canonical
	}
	r.mu.Unlock()
	return canonical, nil
}

// RemoveRow drops a row from the working set. A persisted row is deleted on the next SaveAll,
// or right away in row-level mode; a failed immediate delete is retried by the next SaveAll.
func (r *Reconciler) RemoveRow(ctx context.Context, id RowID) error {
	r.mu.Lock()
	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return errors.Wrap(ErrRowNotFound, id.String())
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)

	cardID, persisted := id.Persisted()
	if !persisted {
		r.mu.Unlock()
		return nil
	}
	if !r.rowLevel {
		r.deleted = append(r.deleted, cardID)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.store.DeleteCards(ctx, r.lessonID, cardID); err != nil {
		r.mu.Lock()
		r.deleted = append(r.deleted, cardID)
		r.mu.Unlock()
		return errors.Wrap(err, "deleting card")
	}
	return nil
}

// SaveAll deletes the pending rows and saves every non blank row, concurrently.
// On success each saved row still in the working set is replaced with its canonical version,
// the order index being its position at the time of the call. Rows added or removed while
// the save is pending are left alone (a new row removed meanwhile has its card queued for
// deletion), and a row edited meanwhile only takes its store id.
// On failure the part that failed is kept for a retry.
func (r *Reconciler) SaveAll(ctx context.Context) error {
	r.mu.Lock()
	deleted := append([]string(nil), r.deleted...)

	drafts := make([]card.Draft, 0, len(r.rows))
	sources := make([]Row, 0, len(r.rows))
	for i, row := range r.rows {
		if row.IsBlank() {
			continue
		}
		row.OrderIndex = i
		drafts = append(drafts, row.draft())
		sources = append(sources, row)
	}
	r.mu.Unlock()

	var (
		g       errgroup.Group
		saved   []card.Card
		delErr  error
		saveErr error
	)
	if len(deleted) > 0 {
		g.Go(func() error {
			delErr = r.store.DeleteCards(ctx, r.lessonID, deleted...)
			return delErr
		})
	}
	if len(drafts) > 0 {
		g.Go(func() error {
			saved, saveErr = r.store.SaveCards(ctx, r.lessonID, drafts)
			if saveErr == nil && len(saved) != len(drafts) {
				saveErr = errors.Errorf("store returned %d cards for %d drafts", len(saved), len(drafts))
			}
			return saveErr
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	if delErr == nil && len(deleted) > 0 {
		r.deleted = r.deleted[len(deleted):] // ids removed during the save stay pending
	}
	if saveErr == nil {
		for k, src := range sources {
			r.applySaved(src, saved[k])
		}
	}

	if saveErr != nil {
		return errors.Wrap(saveErr, "saving cards")
	}
	return errors.Wrap(delErr, "deleting cards")
}

// applySaved replaces the row src was taken from with c. The caller holds r.mu.
func (r *Reconciler) applySaved(src Row, c card.Card) {
	i := r.indexOf(src.ID)
	if i < 0 {
		// removed while saving; a persisted row is already pending, a new one was just created
		if src.IsNew() {
			r.deleted = append(r.deleted, c.ID)
		}
		return
	}
	cur := r.rows[i]
	if cur.Term != src.Term || cur.Translation != src.Translation || cur.WordType != src.WordType {
		cur.ID = Persisted(c.ID)
		r.rows[i] = cur
		return
	}
	r.rows[i] = rowFromCard(c)
}
