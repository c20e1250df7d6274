// Package testutil holds helpers shared by the test suites: a migrated test database and fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
	"github.com/trezcool/kamusi/storage/database"
)

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// PrepareDB opens a fresh, migrated in-memory sqlite database. It is closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(db, NopLogger{}); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close(): %v", err)
		}
	})
	return db
}

func now(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC().Truncate(time.Microsecond)
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}

func CreateTopic(t *testing.T, repo course.Repository, name string) course.Topic {
	t.Helper()

	tp := course.Topic{ID: uuid.New().String(), Name: name}
	if err := repo.CreateTopic(context.Background(), tp); err != nil {
		t.Fatalf("CreateTopic(): %v", err)
	}
	return tp
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	owner core.Identity,
	title, slug string,
	topics []course.Topic,
	createdAt ...time.Time,
) course.Course {
	t.Helper()

	tstamp := now(createdAt)
	c := course.Course{
		ID:            uuid.New().String(),
		Title:         title,
		Slug:          slug,
		OwnerID:       owner.UserID,
		OwnerUsername: owner.Username,
		Topics:        topics,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	if c.Topics == nil {
		c.Topics = []course.Topic{}
	}
	if err := repo.CreateCourse(context.Background(), c); err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return c
}

func CreateChapter(t *testing.T, repo course.Repository, courseID, title, slug string, orderIndex int) course.Chapter {
	t.Helper()

	ch := course.Chapter{
		ID:         uuid.New().String(),
		CourseID:   courseID,
		Title:      title,
		Slug:       slug,
		OrderIndex: orderIndex,
	}
	if err := repo.CreateChapter(context.Background(), ch); err != nil {
		t.Fatalf("CreateChapter(): %v", err)
	}
	return ch
}

func CreateLesson(t *testing.T, repo course.Repository, ch course.Chapter, title string, orderIndex int) course.Lesson {
	t.Helper()

	l := course.Lesson{
		ID:         uuid.New().String(),
		ChapterID:  ch.ID,
		CourseID:   ch.CourseID,
		Title:      title,
		OrderIndex: orderIndex,
	}
	if err := repo.CreateLesson(context.Background(), l); err != nil {
		t.Fatalf("CreateLesson(): %v", err)
	}
	return l
}

// CreateCards creates one card per {term, translation} pair, in order.
func CreateCards(t *testing.T, repo card.Repository, lessonID string, pairs ...[2]string) []card.Card {
	t.Helper()

	tstamp := now(nil)
	cards := make([]card.Card, 0, len(pairs))
	for i, p := range pairs {
		cards = append(cards, card.Card{
			ID:          uuid.New().String(),
			LessonID:    lessonID,
			Term:        p[0],
			Translation: p[1],
			OrderIndex:  i,
			CreatedAt:   tstamp,
			UpdatedAt:   tstamp,
		})
	}
	if err := repo.CreateCards(context.Background(), cards); err != nil {
		t.Fatalf("CreateCards(): %v", err)
	}
	return cards
}

// Enroll enrolls usr into the course.
func Enroll(t *testing.T, repo course.Repository, usr core.Identity, courseID string) {
	t.Helper()

	e := course.Enrollment{UserID: usr.UserID, CourseID: courseID, CreatedAt: now(nil)}
	if err := repo.CreateEnrollment(context.Background(), e); err != nil {
		t.Fatalf("Enroll(): %v", err)
	}
}
