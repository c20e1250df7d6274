package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
)

type cardRepository struct {
	db *DB
}

var _ card.Repository = (*cardRepository)(nil) // interface compliance check

func NewCardRepository(db *DB) *cardRepository {
	return &cardRepository{db: db}
}

func (repo *cardRepository) CreateCards(_ context.Context, cards []card.Card, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range cards {
		if _, ok := repo.db.lessons[c.LessonID]; !ok {
			return errors.Wrapf(core.ErrNotFound, "lesson %s", c.LessonID)
		}
	}
	for _, c := range cards {
		repo.db.cards[c.ID] = c
	}
	return nil
}

func (repo *cardRepository) UpdateCards(_ context.Context, cards []card.Card, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range cards {
		if old, ok := repo.db.cards[c.ID]; !ok || old.LessonID != c.LessonID {
			return errors.Wrapf(core.ErrNotFound, "updating card %s", c.ID)
		}
	}
	for _, c := range cards {
		repo.db.cards[c.ID] = c
	}
	return nil
}

func (repo *cardRepository) GetCardsByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]card.Card, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cards := make([]card.Card, 0, len(ids))
	for _, id := range ids {
		if c, ok := repo.db.cards[id]; ok {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

func (repo *cardRepository) QueryCardsByLesson(_ context.Context, lessonID string, _ ...core.DBExecutor) ([]card.Card, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cards := make([]card.Card, 0)
	for _, c := range repo.db.cards {
		if c.LessonID == lessonID {
			cards = append(cards, c)
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].OrderIndex == cards[j].OrderIndex {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].OrderIndex < cards[j].OrderIndex
	})
	return cards, nil
}

func (repo *cardRepository) DeleteCardsByID(_ context.Context, lessonID string, ids []string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if c, ok := repo.db.cards[id]; ok && c.LessonID == lessonID {
			delete(repo.db.cards, id)
		}
	}
	return nil
}
