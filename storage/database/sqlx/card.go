package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
)

const cardCols = "id, lesson_id, term, translation, word_type, order_index, created_at, updated_at"

type cardRow struct {
	ID          string    `db:"id"`
	LessonID    string    `db:"lesson_id"`
	Term        string    `db:"term"`
	Translation string    `db:"translation"`
	WordType    string    `db:"word_type"`
	OrderIndex  int       `db:"order_index"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r cardRow) card() card.Card {
	c := card.Card(r)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}

func cardsFromRows(rows []cardRow) []card.Card {
	cards := make([]card.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.card())
	}
	return cards
}

type cardRepository struct {
	repository
}

var _ card.Repository = (*cardRepository)(nil) // interface compliance check

func NewCardRepository(exec core.DBExecutor) *cardRepository {
	return &cardRepository{repository{exec: exec}}
}

func (repo cardRepository) CreateCards(ctx context.Context, cards []card.Card, exec ...core.DBExecutor) error {
	if len(cards) == 0 {
		return nil
	}
	ex := repo.getExec(exec)
	q := ex.Rebind("INSERT INTO card (" + cardCols + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	for _, c := range cards {
		_, err := ex.ExecContext(
			ctx, q,
			c.ID, c.LessonID, c.Term, c.Translation, c.WordType, c.OrderIndex, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
		)
		if err != nil {
			return errors.Wrapf(err, "inserting card %s", c.ID)
		}
	}
	return nil
}

func (repo cardRepository) UpdateCards(ctx context.Context, cards []card.Card, exec ...core.DBExecutor) error {
	if len(cards) == 0 {
		return nil
	}
	ex := repo.getExec(exec)
	q := ex.Rebind(`UPDATE card SET term = ?, translation = ?, word_type = ?, order_index = ?, updated_at = ?
		WHERE id = ? AND lesson_id = ?`)
	for _, c := range cards {
		res, err := ex.ExecContext(ctx, q, c.Term, c.Translation, c.WordType, c.OrderIndex, c.UpdatedAt.UTC(), c.ID, c.LessonID)
		if err != nil {
			return errors.Wrapf(err, "updating card %s", c.ID)
		}
		if err = checkAffected(res); err != nil {
			return errors.Wrapf(err, "updating card %s", c.ID)
		}
	}
	return nil
}

func (repo cardRepository) GetCardsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]card.Card, error) {
	if len(ids) == 0 {
		return []card.Card{}, nil
	}
	ex := repo.getExec(exec)
	q, args, err := sqlx.In("SELECT "+cardCols+" FROM card WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []cardRow
	if err = sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(q), args...); err != nil {
		return nil, err
	}
	return cardsFromRows(rows), nil
}

func (repo cardRepository) QueryCardsByLesson(ctx context.Context, lessonID string, exec ...core.DBExecutor) ([]card.Card, error) {
	ex := repo.getExec(exec)
	var rows []cardRow
	q := ex.Rebind("SELECT " + cardCols + " FROM card WHERE lesson_id = ? ORDER BY order_index, created_at")
	if err := sqlx.SelectContext(ctx, ex, &rows, q, lessonID); err != nil {
		return nil, err
	}
	return cardsFromRows(rows), nil
}

func (repo cardRepository) DeleteCardsByID(ctx context.Context, lessonID string, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	ex := repo.getExec(exec)
	q, args, err := sqlx.In("DELETE FROM card WHERE lesson_id = ? AND id IN (?)", lessonID, ids)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, ex.Rebind(q), args...)
	return err
}
