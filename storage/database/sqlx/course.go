package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/course"
)

const (
	courseCols  = "c.id, c.title, c.slug, c.owner_id, c.owner_username, c.description, c.created_at, c.updated_at"
	chapterCols = "id, course_id, title, slug, is_optional, order_index"
	lessonCols  = "l.id, l.chapter_id, ch.course_id, l.title, l.description, l.is_optional, l.order_index"
)

type (
	courseRow struct {
		ID            string      `db:"id"`
		Title         string      `db:"title"`
		Slug          string      `db:"slug"`
		OwnerID       string      `db:"owner_id"`
		OwnerUsername string      `db:"owner_username"`
		Description   null.String `db:"description"`
		CreatedAt     time.Time   `db:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at"`
	}

	courseTopicRow struct {
		CourseID string `db:"course_id"`
		ID       string `db:"id"`
		Name     string `db:"name"`
	}

	chapterRow struct {
		ID         string `db:"id"`
		CourseID   string `db:"course_id"`
		Title      string `db:"title"`
		Slug       string `db:"slug"`
		IsOptional bool   `db:"is_optional"`
		OrderIndex int    `db:"order_index"`
	}

	lessonRow struct {
		ID          string      `db:"id"`
		ChapterID   string      `db:"chapter_id"`
		CourseID    string      `db:"course_id"`
		Title       string      `db:"title"`
		Description null.String `db:"description"`
		IsOptional  bool        `db:"is_optional"`
		OrderIndex  int         `db:"order_index"`
	}

	enrollmentRow struct {
		UserID    string    `db:"user_id"`
		CourseID  string    `db:"course_id"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r courseRow) course() course.Course {
	return course.Course{
		ID:            r.ID,
		Title:         r.Title,
		Slug:          r.Slug,
		OwnerID:       r.OwnerID,
		OwnerUsername: r.OwnerUsername,
		Description:   r.Description.String,
		Topics:        []course.Topic{},
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (r chapterRow) chapter() course.Chapter {
	return course.Chapter(r)
}

func (r lessonRow) lesson() course.Lesson {
	return course.Lesson{
		ID:          r.ID,
		ChapterID:   r.ChapterID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description.String,
		IsOptional:  r.IsOptional,
		OrderIndex:  r.OrderIndex,
	}
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

// Topics

func (repo courseRepository) CreateTopic(ctx context.Context, t course.Topic, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	_, err := ex.ExecContext(ctx, ex.Rebind("INSERT INTO topic (id, name) VALUES (?, ?)"), t.ID, t.Name)
	return err
}

func (repo courseRepository) QueryTopics(ctx context.Context, exec ...core.DBExecutor) ([]course.Topic, error) {
	ex := repo.getExec(exec)
	topics := make([]course.Topic, 0)
	err := sqlx.SelectContext(ctx, ex, &topics, "SELECT id, name FROM topic ORDER BY name")
	return topics, err
}

func (repo courseRepository) GetTopicByName(ctx context.Context, name string, exec ...core.DBExecutor) (course.Topic, error) {
	ex := repo.getExec(exec)
	var t course.Topic
	err := sqlx.GetContext(ctx, ex, &t, ex.Rebind("SELECT id, name FROM topic WHERE LOWER(name) = LOWER(?)"), name)
	return t, trapNoRowsErr(err)
}

func (repo courseRepository) GetTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]course.Topic, error) {
	topics := make([]course.Topic, 0, len(ids))
	if len(ids) == 0 {
		return topics, nil
	}
	ex := repo.getExec(exec)
	q, args, err := sqlx.In("SELECT id, name FROM topic WHERE id IN (?) ORDER BY name", ids)
	if err != nil {
		return nil, err
	}
	err = sqlx.SelectContext(ctx, ex, &topics, ex.Rebind(q), args...)
	return topics, err
}

// Courses

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind(`INSERT INTO course (id, title, slug, owner_id, owner_username, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(
		ctx, q,
		c.ID, c.Title, c.Slug, c.OwnerID, c.OwnerUsername,
		null.NewString(c.Description, c.Description != ""),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "inserting course")
	}

	q = ex.Rebind("INSERT INTO course_topic (course_id, topic_id) VALUES (?, ?)")
	for _, t := range c.Topics {
		if _, err = ex.ExecContext(ctx, q, c.ID, t.ID); err != nil {
			return errors.Wrap(err, "inserting course topic")
		}
	}
	return nil
}

func (repo courseRepository) getCourse(ctx context.Context, ex core.DBExecutor, where string, args ...interface{}) (course.Course, error) {
	var row courseRow
	q := ex.Rebind("SELECT " + courseCols + " FROM course c WHERE " + where)
	if err := sqlx.GetContext(ctx, ex, &row, q, args...); err != nil {
		return course.Course{}, trapNoRowsErr(err)
	}
	courses := []course.Course{row.course()}
	if err := repo.fillTopics(ctx, ex, courses); err != nil {
		return course.Course{}, err
	}
	return courses[0], nil
}

func (repo courseRepository) queryCourses(ctx context.Context, ex core.DBExecutor, q string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(q), args...); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	if err := repo.fillTopics(ctx, ex, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (repo courseRepository) fillTopics(ctx context.Context, ex core.DBExecutor, courses []course.Course) error {
	if len(courses) == 0 {
		return nil
	}
	ids := make([]string, 0, len(courses))
	idx := make(map[string]int, len(courses))
	for i, c := range courses {
		ids = append(ids, c.ID)
		idx[c.ID] = i
	}

	q, args, err := sqlx.In(`SELECT ct.course_id, t.id, t.name
		FROM course_topic ct JOIN topic t ON t.id = ct.topic_id
		WHERE ct.course_id IN (?) ORDER BY t.name`, ids)
	if err != nil {
		return err
	}
	var rows []courseTopicRow
	if err = sqlx.SelectContext(ctx, ex, &rows, ex.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "querying course topics")
	}
	for _, r := range rows {
		i := idx[r.CourseID]
		courses[i].Topics = append(courses[i].Topics, course.Topic{ID: r.ID, Name: r.Name})
	}
	return nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getCourse(ctx, repo.getExec(exec), "c.id = ?", id)
}

func (repo courseRepository) GetCourseBySlug(ctx context.Context, ownerUsername, slug string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getCourse(ctx, repo.getExec(exec), "c.owner_username = ? AND c.slug = ?", ownerUsername, slug)
}

func (repo courseRepository) QueryCoursesByOwner(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]course.Course, error) {
	return repo.queryCourses(
		ctx, repo.getExec(exec),
		"SELECT "+courseCols+" FROM course c WHERE c.owner_id = ? ORDER BY c.created_at DESC, c.title",
		ownerID,
	)
}

func (repo courseRepository) QueryCoursesByEnrollee(ctx context.Context, userID string, exec ...core.DBExecutor) ([]course.Course, error) {
	return repo.queryCourses(
		ctx, repo.getExec(exec),
		"SELECT "+courseCols+" FROM course c JOIN enrollment e ON e.course_id = c.id WHERE e.user_id = ? ORDER BY e.created_at DESC, c.title",
		userID,
	)
}

// Chapters

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind("INSERT INTO chapter (" + chapterCols + ") VALUES (?, ?, ?, ?, ?, ?)")
	_, err := ex.ExecContext(ctx, q, ch.ID, ch.CourseID, ch.Title, ch.Slug, ch.IsOptional, ch.OrderIndex)
	return err
}

func (repo courseRepository) getChapter(ctx context.Context, ex core.DBExecutor, where string, args ...interface{}) (course.Chapter, error) {
	var row chapterRow
	q := ex.Rebind("SELECT " + chapterCols + " FROM chapter WHERE " + where)
	if err := sqlx.GetContext(ctx, ex, &row, q, args...); err != nil {
		return course.Chapter{}, trapNoRowsErr(err)
	}
	return row.chapter(), nil
}

func (repo courseRepository) GetChapterByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Chapter, error) {
	return repo.getChapter(ctx, repo.getExec(exec), "id = ?", id)
}

func (repo courseRepository) GetChapterBySlug(ctx context.Context, courseID, slug string, exec ...core.DBExecutor) (course.Chapter, error) {
	return repo.getChapter(ctx, repo.getExec(exec), "course_id = ? AND slug = ?", courseID, slug)
}

func (repo courseRepository) QueryChapters(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Chapter, error) {
	ex := repo.getExec(exec)
	var rows []chapterRow
	q := ex.Rebind("SELECT " + chapterCols + " FROM chapter WHERE course_id = ? ORDER BY order_index, title")
	if err := sqlx.SelectContext(ctx, ex, &rows, q, courseID); err != nil {
		return nil, err
	}
	chapters := make([]course.Chapter, 0, len(rows))
	for _, r := range rows {
		chapters = append(chapters, r.chapter())
	}
	return chapters, nil
}

// Lessons

func (repo courseRepository) CreateLesson(ctx context.Context, l course.Lesson, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind(`INSERT INTO lesson (id, chapter_id, title, description, is_optional, order_index)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := ex.ExecContext(
		ctx, q,
		l.ID, l.ChapterID, l.Title, null.NewString(l.Description, l.Description != ""), l.IsOptional, l.OrderIndex,
	)
	return err
}

func (repo courseRepository) GetLessonByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Lesson, error) {
	ex := repo.getExec(exec)
	var row lessonRow
	q := ex.Rebind("SELECT " + lessonCols + " FROM lesson l JOIN chapter ch ON ch.id = l.chapter_id WHERE l.id = ?")
	if err := sqlx.GetContext(ctx, ex, &row, q, id); err != nil {
		return course.Lesson{}, trapNoRowsErr(err)
	}
	return row.lesson(), nil
}

func (repo courseRepository) QueryLessons(ctx context.Context, chapterID string, exec ...core.DBExecutor) ([]course.Lesson, error) {
	ex := repo.getExec(exec)
	var rows []lessonRow
	q := ex.Rebind("SELECT " + lessonCols + " FROM lesson l JOIN chapter ch ON ch.id = l.chapter_id WHERE l.chapter_id = ? ORDER BY l.order_index, l.title")
	if err := sqlx.SelectContext(ctx, ex, &rows, q, chapterID); err != nil {
		return nil, err
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.lesson())
	}
	return lessons, nil
}

func (repo courseRepository) UpdateLessonDescription(ctx context.Context, id, description string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	res, err := ex.ExecContext(
		ctx, ex.Rebind("UPDATE lesson SET description = ? WHERE id = ?"),
		null.NewString(description, description != ""), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// Enrollments

func (repo courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	q := ex.Rebind("INSERT INTO enrollment (user_id, course_id, created_at) VALUES (?, ?, ?)")
	_, err := ex.ExecContext(ctx, q, e.UserID, e.CourseID, e.CreatedAt.UTC())
	return err
}

func (repo courseRepository) GetEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (course.Enrollment, error) {
	ex := repo.getExec(exec)
	var row enrollmentRow
	q := ex.Rebind("SELECT user_id, course_id, created_at FROM enrollment WHERE user_id = ? AND course_id = ?")
	if err := sqlx.GetContext(ctx, ex, &row, q, userID, courseID); err != nil {
		return course.Enrollment{}, trapNoRowsErr(err)
	}
	return course.Enrollment{UserID: row.UserID, CourseID: row.CourseID, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (repo courseRepository) DeleteEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	_, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM enrollment WHERE user_id = ? AND course_id = ?"), userID, courseID)
	return err
}
