package echoapi

import (
	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
)

type (
	CourseDetail struct {
		Course      course.Course      `json:"course"`
		Chapters    []course.Chapter   `json:"chapters"`
		Permissions course.Permissions `json:"permissions"`
	}

	ChapterDetail struct {
		Chapter course.Chapter  `json:"chapter"`
		Lessons []course.Lesson `json:"lessons"`
	}

	LessonDetail struct {
		Lesson      course.Lesson      `json:"lesson"`
		Cards       []card.Card        `json:"cards"`
		Permissions course.Permissions `json:"permissions"`
	}

	// SaveCardsRequest is the body of a bulk save: drafts to upsert and ids of cards to delete.
	SaveCardsRequest struct {
		Cards      []card.Draft `json:"cards" validate:"dive"`
		DeletedIDs []string     `json:"deleted_ids"`
	}
)
