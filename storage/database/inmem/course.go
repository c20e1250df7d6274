package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// Topics

func (repo *courseRepository) CreateTopic(_ context.Context, t course.Topic, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.topics {
		if strings.EqualFold(other.Name, t.Name) {
			return errors.New("duplicate topic name")
		}
	}
	repo.db.topics[t.ID] = t
	return nil
}

func (repo *courseRepository) QueryTopics(_ context.Context, _ ...core.DBExecutor) ([]course.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	topics := make([]course.Topic, 0, len(repo.db.topics))
	for _, t := range repo.db.topics {
		topics = append(topics, t)
	}
	sortTopics(topics)
	return topics, nil
}

func (repo *courseRepository) GetTopicByName(_ context.Context, name string, _ ...core.DBExecutor) (course.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.db.topics {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return course.Topic{}, core.ErrNotFound
}

func (repo *courseRepository) GetTopicsByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]course.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.topicsByID(ids), nil
}

func (repo *courseRepository) topicsByID(ids []string) []course.Topic {
	topics := make([]course.Topic, 0, len(ids))
	for _, id := range ids {
		if t, ok := repo.db.topics[id]; ok {
			topics = append(topics, t)
		}
	}
	sortTopics(topics)
	return topics
}

func sortTopics(topics []course.Topic) {
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
}

// Courses

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, other := range repo.db.courses {
		if other.OwnerUsername == c.OwnerUsername && other.Slug == c.Slug {
			return errors.New("duplicate course slug")
		}
	}
	topicIDs := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		topicIDs = append(topicIDs, t.ID)
	}
	c.Topics = nil
	repo.db.courses[c.ID] = c
	repo.db.courseTopics[c.ID] = topicIDs
	return nil
}

// withTopics must be called with the mutex held.
func (repo *courseRepository) withTopics(c course.Course) course.Course {
	c.Topics = repo.topicsByID(repo.db.courseTopics[c.ID])
	return c
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return repo.withTopics(c), nil
	}
	return course.Course{}, core.ErrNotFound
}

func (repo *courseRepository) GetCourseBySlug(_ context.Context, ownerUsername, slug string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.courses {
		if c.OwnerUsername == ownerUsername && c.Slug == slug {
			return repo.withTopics(c), nil
		}
	}
	return course.Course{}, core.ErrNotFound
}

func (repo *courseRepository) QueryCoursesByOwner(_ context.Context, ownerID string, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if c.OwnerID == ownerID {
			courses = append(courses, repo.withTopics(c))
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].Title < courses[j].Title
		}
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})
	return courses, nil
}

func (repo *courseRepository) QueryCoursesByEnrollee(_ context.Context, userID string, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for k, e := range repo.db.enrollments {
		if k.userID == userID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].CreatedAt.After(enrollments[j].CreatedAt) })

	courses := make([]course.Course, 0, len(enrollments))
	for _, e := range enrollments {
		if c, ok := repo.db.courses[e.CourseID]; ok {
			courses = append(courses, repo.withTopics(c))
		}
	}
	return courses, nil
}

// Chapters

func (repo *courseRepository) CreateChapter(_ context.Context, ch course.Chapter, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[ch.CourseID]; !ok {
		return errors.Wrap(core.ErrNotFound, "course")
	}
	repo.db.chapters[ch.ID] = ch
	return nil
}

func (repo *courseRepository) GetChapterByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Chapter, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ch, ok := repo.db.chapters[id]; ok {
		return ch, nil
	}
	return course.Chapter{}, core.ErrNotFound
}

func (repo *courseRepository) GetChapterBySlug(_ context.Context, courseID, slug string, _ ...core.DBExecutor) (course.Chapter, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, ch := range repo.db.chapters {
		if ch.CourseID == courseID && ch.Slug == slug {
			return ch, nil
		}
	}
	return course.Chapter{}, core.ErrNotFound
}

func (repo *courseRepository) QueryChapters(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Chapter, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].OrderIndex == chapters[j].OrderIndex {
			return chapters[i].Title < chapters[j].Title
		}
		return chapters[i].OrderIndex < chapters[j].OrderIndex
	})
	return chapters, nil
}

// Lessons

func (repo *courseRepository) CreateLesson(_ context.Context, l course.Lesson, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ch, ok := repo.db.chapters[l.ChapterID]
	if !ok {
		return errors.Wrap(core.ErrNotFound, "chapter")
	}
	l.CourseID = ch.CourseID
	repo.db.lessons[l.ID] = l
	return nil
}

func (repo *courseRepository) GetLessonByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return l, nil
	}
	return course.Lesson{}, core.ErrNotFound
}

func (repo *courseRepository) QueryLessons(_ context.Context, chapterID string, _ ...core.DBExecutor) ([]course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.ChapterID == chapterID {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].OrderIndex == lessons[j].OrderIndex {
			return lessons[i].Title < lessons[j].Title
		}
		return lessons[i].OrderIndex < lessons[j].OrderIndex
	})
	return lessons, nil
}

func (repo *courseRepository) UpdateLessonDescription(_ context.Context, id, description string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	l, ok := repo.db.lessons[id]
	if !ok {
		return core.ErrNotFound
	}
	l.Description = description
	repo.db.lessons[id] = l
	return nil
}

// Enrollments

func (repo *courseRepository) CreateEnrollment(_ context.Context, e course.Enrollment, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := enrollmentKey{userID: e.UserID, courseID: e.CourseID}
	if _, ok := repo.db.enrollments[key]; ok {
		return errors.New("duplicate enrollment")
	}
	repo.db.enrollments[key] = e
	return nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[enrollmentKey{userID: userID, courseID: courseID}]; ok {
		return e, nil
	}
	return course.Enrollment{}, core.ErrNotFound
}

func (repo *courseRepository) DeleteEnrollment(_ context.Context, userID, courseID string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.enrollments, enrollmentKey{userID: userID, courseID: courseID})
	return nil
}
