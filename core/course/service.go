package course

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/richtext"
)

var (
	ErrSlugExists    = errors.New("this slug is already taken")
	ErrTopicExists   = errors.New("a topic with this name already exists")
	ErrUnknownTopic  = errors.New("unknown topic")
	ErrOwnerEnrolled = errors.New("owners cannot enroll in their own course")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTopic(ctx context.Context, t Topic, exec ...core.DBExecutor) error
		QueryTopics(ctx context.Context, exec ...core.DBExecutor) ([]Topic, error)
		GetTopicByName(ctx context.Context, name string, exec ...core.DBExecutor) (Topic, error)
		GetTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Topic, error)

		// CreateCourse creates the course and links it to its topics.
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) error
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		GetCourseBySlug(ctx context.Context, ownerUsername, slug string, exec ...core.DBExecutor) (Course, error)
		QueryCoursesByOwner(ctx context.Context, ownerID string, exec ...core.DBExecutor) ([]Course, error)
		QueryCoursesByEnrollee(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Course, error)

		CreateChapter(ctx context.Context, ch Chapter, exec ...core.DBExecutor) error
		GetChapterByID(ctx context.Context, id string, exec ...core.DBExecutor) (Chapter, error)
		GetChapterBySlug(ctx context.Context, courseID, slug string, exec ...core.DBExecutor) (Chapter, error)
		QueryChapters(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Chapter, error)

		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) error
		// GetLessonByID also fills Lesson.CourseID.
		GetLessonByID(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		QueryLessons(ctx context.Context, chapterID string, exec ...core.DBExecutor) ([]Lesson, error)
		UpdateLessonDescription(ctx context.Context, id, description string, exec ...core.DBExecutor) error

		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) error
		GetEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		tx      core.Transactor
		mailSvc core.EmailService
		conf    *core.Config
	}

	EnrollmentEmailData struct {
		Username      string
		CourseTitle   string
		CourseSlug    string
		OwnerUsername string
	}
)

func NewService(repo Repository, tx core.Transactor, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func fieldError(field string, err error) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// Topics

func (svc *Service) CreateTopic(ctx context.Context, nt NewTopic) (Topic, error) {
	name := core.CleanString(nt.Name)
	if _, err := svc.repo.GetTopicByName(ctx, name); err == nil {
		return Topic{}, fieldError("name", ErrTopicExists)
	} else if !core.IsNotFound(err) {
		return Topic{}, errors.Wrap(err, "getting topic by name")
	}

	t := Topic{ID: uuid.New().String(), Name: name}
	if err := svc.repo.CreateTopic(ctx, t); err != nil {
		return Topic{}, errors.Wrap(err, "creating topic")
	}
	return t, nil
}

func (svc *Service) QueryTopics(ctx context.Context) ([]Topic, error) {
	return svc.repo.QueryTopics(ctx)
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, owner core.Identity, nc NewCourse) (Course, error) {
	if owner.IsAnonymous() {
		return Course{}, core.ErrPermissionDenied
	}

	slug := nc.Slug
	if slug == "" {
		slug = core.Slugify(nc.Title)
	}
	if _, err := svc.repo.GetCourseBySlug(ctx, owner.Username, slug); err == nil {
		return Course{}, fieldError("slug", ErrSlugExists)
	} else if !core.IsNotFound(err) {
		return Course{}, errors.Wrap(err, "getting course by slug")
	}

	topics, err := svc.getTopics(ctx, nc.TopicIDs)
	if err != nil {
		return Course{}, err
	}

	now := nowFunc().UTC().Truncate(time.Microsecond)
	c := Course{
		ID:            uuid.New().String(),
		Title:         nc.Title,
		Slug:          slug,
		OwnerID:       owner.UserID,
		OwnerUsername: owner.Username,
		Description:   richtext.Sanitize(nc.Description),
		Topics:        topics,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		return svc.repo.CreateCourse(ctx, c, exec)
	})
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (svc *Service) getTopics(ctx context.Context, ids []string) ([]Topic, error) {
	if len(ids) == 0 {
		return []Topic{}, nil
	}
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	topics, err := svc.repo.GetTopicsByID(ctx, uniq)
	if err != nil {
		return nil, errors.Wrap(err, "getting topics")
	}
	if len(topics) != len(uniq) {
		return nil, fieldError("topic_ids", ErrUnknownTopic)
	}
	return topics, nil
}

func (svc *Service) GetCourse(ctx context.Context, ownerUsername, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, core.CleanString(ownerUsername), core.CleanString(slug, true /* lower */))
}

func (svc *Service) GetCourseByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) QueryOwnedCourses(ctx context.Context, userID string) ([]Course, error) {
	return svc.repo.QueryCoursesByOwner(ctx, userID)
}

func (svc *Service) QueryEnrolledCourses(ctx context.Context, userID string) ([]Course, error) {
	return svc.repo.QueryCoursesByEnrollee(ctx, userID)
}

// Chapters & lessons

func (svc *Service) CreateChapter(ctx context.Context, courseID string, nc NewChapter) (Chapter, error) {
	slug := nc.Slug
	if slug == "" {
		slug = core.Slugify(nc.Title)
	}

	var ch Chapter
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetChapterBySlug(ctx, courseID, slug, exec); err == nil {
			return fieldError("slug", ErrSlugExists)
		} else if !core.IsNotFound(err) {
			return errors.Wrap(err, "getting chapter by slug")
		}

		siblings, err := svc.repo.QueryChapters(ctx, courseID, exec)
		if err != nil {
			return errors.Wrap(err, "querying chapters")
		}
		ch = Chapter{
			ID:         uuid.New().String(),
			CourseID:   courseID,
			Title:      nc.Title,
			Slug:       slug,
			IsOptional: nc.IsOptional,
			OrderIndex: len(siblings),
		}
		if nc.OrderIndex != nil {
			ch.OrderIndex = *nc.OrderIndex
		}
		return svc.repo.CreateChapter(ctx, ch, exec)
	})
	if err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

func (svc *Service) GetChapter(ctx context.Context, courseID, slug string) (Chapter, error) {
	return svc.repo.GetChapterBySlug(ctx, courseID, core.CleanString(slug, true /* lower */))
}

func (svc *Service) GetChapterByID(ctx context.Context, id string) (Chapter, error) {
	return svc.repo.GetChapterByID(ctx, id)
}

func (svc *Service) QueryChapters(ctx context.Context, courseID string) ([]Chapter, error) {
	return svc.repo.QueryChapters(ctx, courseID)
}

func (svc *Service) CreateLesson(ctx context.Context, chapterID string, nl NewLesson) (Lesson, error) {
	var l Lesson
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		ch, err := svc.repo.GetChapterByID(ctx, chapterID, exec)
		if err != nil {
			return errors.Wrap(err, "getting chapter")
		}
		siblings, err := svc.repo.QueryLessons(ctx, chapterID, exec)
		if err != nil {
			return errors.Wrap(err, "querying lessons")
		}
		l = Lesson{
			ID:          uuid.New().String(),
			ChapterID:   chapterID,
			CourseID:    ch.CourseID,
			Title:       nl.Title,
			Description: richtext.Sanitize(nl.Description),
			IsOptional:  nl.IsOptional,
			OrderIndex:  len(siblings),
		}
		if nl.OrderIndex != nil {
			l.OrderIndex = *nl.OrderIndex
		}
		return svc.repo.CreateLesson(ctx, l, exec)
	})
	if err != nil {
		return Lesson{}, err
	}
	return l, nil
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) QueryLessons(ctx context.Context, chapterID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, chapterID)
}

// UpdateLessonDescription stores the sanitized description of a lesson. Only the course owner may do it.
func (svc *Service) UpdateLessonDescription(ctx context.Context, userID, lessonID, description string) (Lesson, error) {
	l, err := svc.repo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "getting lesson")
	}
	c, err := svc.repo.GetCourseByID(ctx, l.CourseID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "getting course")
	}
	if !PermissionsFor(c, userID, false).AtLeast(RoleOwner) {
		return Lesson{}, core.ErrPermissionDenied
	}

	l.Description = richtext.Sanitize(description)
	if err = svc.repo.UpdateLessonDescription(ctx, l.ID, l.Description); err != nil {
		return Lesson{}, errors.Wrap(err, "updating lesson description")
	}
	return l, nil
}

// Enrollments

// Enroll enrolls the user in a course and emails them a confirmation. Enrolling twice is a no-op.
func (svc *Service) Enroll(ctx context.Context, usr core.Identity, courseID string) (Enrollment, error) {
	c, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if c.OwnerID == usr.UserID {
		return Enrollment{}, core.NewValidationError(ErrOwnerEnrolled)
	}

	if e, err := svc.repo.GetEnrollment(ctx, usr.UserID, courseID); err == nil {
		return e, nil
	} else if !core.IsNotFound(err) {
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}

	e := Enrollment{
		UserID:    usr.UserID,
		CourseID:  courseID,
		CreatedAt: nowFunc().UTC().Truncate(time.Microsecond),
	}
	if err = svc.repo.CreateEnrollment(ctx, e); err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}

	if usr.Email != "" && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(core.NewEmailMessage(
			svc.conf,
			"Welcome to "+c.Title,
			"enrollment",
			EnrollmentEmailData{
				Username:      usr.Username,
				CourseTitle:   c.Title,
				CourseSlug:    c.Slug,
				OwnerUsername: c.OwnerUsername,
			},
			mail.Address{Name: usr.Username, Address: usr.Email},
		))
	}
	return e, nil
}

func (svc *Service) Unenroll(ctx context.Context, userID, courseID string) error {
	return errors.Wrap(svc.repo.DeleteEnrollment(ctx, userID, courseID), "deleting enrollment")
}

// Permissions returns the permissions of userID on a course.
func (svc *Service) Permissions(ctx context.Context, userID string, c Course) (Permissions, error) {
	if userID == "" {
		return Permissions{}, nil
	}
	if c.OwnerID == userID {
		return PermissionsFor(c, userID, false), nil
	}
	_, err := svc.repo.GetEnrollment(ctx, userID, c.ID)
	if err != nil && !core.IsNotFound(err) {
		return Permissions{}, errors.Wrap(err, "getting enrollment")
	}
	return PermissionsFor(c, userID, err == nil), nil
}
