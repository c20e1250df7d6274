package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kamusi/core"
)

type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	OwnerID       string    `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	Description   string    `json:"description"`
	Topics        []Topic   `json:"topics"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type Chapter struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	IsOptional bool   `json:"is_optional"`
	OrderIndex int    `json:"order_index"`
}

type Lesson struct {
	ID          string `json:"id"`
	ChapterID   string `json:"chapter_id"`
	CourseID    string `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description"` // sanitized HTML
	IsOptional  bool   `json:"is_optional"`
	OrderIndex  int    `json:"order_index"`
}

type Enrollment struct {
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewTopic struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

type NewCourse struct {
	Title       string   `json:"title" validate:"required,max=120"`
	Slug        string   `json:"slug" validate:"omitempty,slug,max=120"`
	Description string   `json:"description"`
	TopicIDs    []string `json:"topic_ids"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	return validate.Struct(nc)
}

type NewChapter struct {
	Title      string `json:"title" validate:"required,max=120"`
	Slug       string `json:"slug" validate:"omitempty,slug,max=120"`
	IsOptional bool   `json:"is_optional"`
	OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
}

func (nc *NewChapter) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	return validate.Struct(nc)
}

type NewLesson struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description"`
	IsOptional  bool   `json:"is_optional"`
	OrderIndex  *int   `json:"order_index" validate:"omitempty,min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type UpdateDescription struct {
	Description string `json:"description" validate:"max=20000"`
}

func (ud UpdateDescription) Validate(validate *validator.Validate) error {
	return validate.Struct(ud)
}
