package card

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
)

var (
	errBlankCard = "a new card needs a term or a translation"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCards(ctx context.Context, cards []Card, exec ...core.DBExecutor) error
		UpdateCards(ctx context.Context, cards []Card, exec ...core.DBExecutor) error
		GetCardsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Card, error)
		QueryCardsByLesson(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]Card, error)
		// DeleteCardsByID deletes the cards of lessonID matching ids; unknown ids are ignored.
		DeleteCardsByID(ctx context.Context, lessonID string, ids []string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
		tx   core.Transactor
	}
)

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

// ListByLesson returns the cards of a lesson ordered by their order index.
func (svc *Service) ListByLesson(ctx context.Context, lessonID string) ([]Card, error) {
	return svc.repo.QueryCardsByLesson(ctx, lessonID)
}

// SaveCards creates drafts without ID and updates the others, in one transaction.
// The canonical cards are returned in the order of drafts.
func (svc *Service) SaveCards(ctx context.Context, lessonID string, drafts []Draft) ([]Card, error) {
	var saved []Card
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		saved, err = svc.saveCards(ctx, exec, lessonID, drafts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveCard creates or updates a single card.
func (svc *Service) SaveCard(ctx context.Context, lessonID string, draft Draft) (Card, error) {
	saved, err := svc.SaveCards(ctx, lessonID, []Draft{draft})
	if err != nil {
		return Card{}, err
	}
	return saved[0], nil
}

// DeleteCards deletes the given cards of a lesson. Unknown ids are ignored.
func (svc *Service) DeleteCards(ctx context.Context, lessonID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return errors.Wrap(svc.repo.DeleteCardsByID(ctx, lessonID, ids), "deleting cards")
}

// ReplaceLessonCards deletes deletedIDs and saves drafts in one transaction.
func (svc *Service) ReplaceLessonCards(ctx context.Context, lessonID string, drafts []Draft, deletedIDs []string) ([]Card, error) {
	var saved []Card
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if len(deletedIDs) > 0 {
			if err := svc.repo.DeleteCardsByID(ctx, lessonID, deletedIDs, exec); err != nil {
				return errors.Wrap(err, "deleting cards")
			}
		}
		var err error
		saved, err = svc.saveCards(ctx, exec, lessonID, drafts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (svc *Service) saveCards(ctx context.Context, exec core.DBExecutor, lessonID string, drafts []Draft) ([]Card, error) {
	if len(drafts) == 0 {
		return []Card{}, nil
	}

	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		if d.ID != "" {
			ids = append(ids, d.ID)
		}
	}
	existing := make(map[string]Card, len(ids))
	if len(ids) > 0 {
		found, err := svc.repo.GetCardsByID(ctx, ids, exec)
		if err != nil {
			return nil, errors.Wrap(err, "getting cards")
		}
		for _, c := range found {
			existing[c.ID] = c
		}
	}

	now := nowFunc().UTC().Truncate(time.Microsecond)
	saved := make([]Card, len(drafts))
	creates := make([]Card, 0, len(drafts))
	updates := make([]Card, 0, len(ids))

	for i, d := range drafts {
		d.Clean()
		if d.ID == "" {
			if d.IsBlank() {
				return nil, core.NewValidationError(nil, core.FieldError{Field: fmt.Sprintf("cards[%d]", i), Error: errBlankCard})
			}
			c := Card{
				ID:          uuid.New().String(),
				LessonID:    lessonID,
				Term:        d.Term,
				Translation: d.Translation,
				WordType:    d.WordType,
				OrderIndex:  d.OrderIndex,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			creates = append(creates, c)
			saved[i] = c
			continue
		}

		c, ok := existing[d.ID]
		if !ok || c.LessonID != lessonID {
			return nil, errors.Wrapf(core.ErrNotFound, "card %s", d.ID)
		}
		c.Term = d.Term
		c.Translation = d.Translation
		c.WordType = d.WordType
		c.OrderIndex = d.OrderIndex
		c.UpdatedAt = now
		updates = append(updates, c)
		saved[i] = c
	}

	if err := svc.repo.CreateCards(ctx, creates, exec); err != nil {
		return nil, errors.Wrap(err, "creating cards")
	}
	if err := svc.repo.UpdateCards(ctx, updates, exec); err != nil {
		return nil, errors.Wrap(err, "updating cards")
	}
	return saved, nil
}
