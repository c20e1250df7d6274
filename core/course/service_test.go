package course_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/course"
	inmemdb "github.com/trezcool/kamusi/storage/database/inmem"
)

var (
	owner   = core.Identity{UserID: "u-owner", Username: "mwalimu", Email: "mwalimu@test.cd"}
	learner = core.Identity{UserID: "u-learner", Username: "mwanafunzi", Email: "mwanafunzi@test.cd"}
)

type mailRecorder struct {
	mu   sync.Mutex
	msgs []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, messages...)
}

func setup() (*course.Service, *mailRecorder) {
	mails := new(mailRecorder)
	db := inmemdb.NewDB()
	return course.NewService(inmemdb.NewCourseRepository(db), inmemdb.Transactor{}, mails, core.NewTestConfig()), mails
}

func fieldErrors(t *testing.T, err error) []core.FieldError {
	t.Helper()

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "want a validation error, got %v", err)
	return verr.Fields
}

func TestService_CreateTopic(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	tp, err := svc.CreateTopic(ctx, course.NewTopic{Name: "  Swahili "})
	require.NoError(t, err)
	assert.Equal(t, "Swahili", tp.Name)
	assert.NotEmpty(t, tp.ID)

	_, err = svc.CreateTopic(ctx, course.NewTopic{Name: "Swahili"})
	assert.Equal(t, []core.FieldError{{Field: "name", Error: course.ErrTopicExists.Error()}}, fieldErrors(t, err))

	_, err = svc.CreateTopic(ctx, course.NewTopic{Name: "Lingala"})
	require.NoError(t, err)
	topics, err := svc.QueryTopics(ctx)
	require.NoError(t, err)
	if assert.Len(t, topics, 2) {
		assert.Equal(t, "Lingala", topics[0].Name)
		assert.Equal(t, "Swahili", topics[1].Name)
	}
}

func TestService_CreateCourse(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()
	tp, err := svc.CreateTopic(ctx, course.NewTopic{Name: "Swahili"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		owner      core.Identity
		nc         course.NewCourse
		wantErr    error
		wantFields []core.FieldError
		wantSlug   string
	}{
		{name: "anonymous", nc: course.NewCourse{Title: "Lol"}, wantErr: core.ErrPermissionDenied},
		{
			name:     "slug from title",
			owner:    owner,
			nc:       course.NewCourse{Title: "Swahili 101", TopicIDs: []string{tp.ID, tp.ID}},
			wantSlug: "swahili-101",
		},
		{
			name:       "slug taken",
			owner:      owner,
			nc:         course.NewCourse{Title: "Swahili 101 bis", Slug: "swahili-101"},
			wantFields: []core.FieldError{{Field: "slug", Error: course.ErrSlugExists.Error()}},
		},
		{name: "same slug, other owner", owner: learner, nc: course.NewCourse{Title: "Swahili 101"}, wantSlug: "swahili-101"},
		{
			name:       "unknown topic",
			owner:      owner,
			nc:         course.NewCourse{Title: "Lingala", TopicIDs: []string{"lol"}},
			wantFields: []core.FieldError{{Field: "topic_ids", Error: course.ErrUnknownTopic.Error()}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.CreateCourse(ctx, tt.owner, tt.nc)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantFields != nil:
				assert.Equal(t, tt.wantFields, fieldErrors(t, err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantSlug, c.Slug)
				assert.Equal(t, tt.owner.UserID, c.OwnerID)

				got, err := svc.GetCourse(ctx, " "+tt.owner.Username, "SWAHILI-101")
				require.NoError(t, err)
				assert.Equal(t, c.ID, got.ID)
			}
		})
	}

	owned, err := svc.QueryOwnedCourses(ctx, owner.UserID)
	require.NoError(t, err)
	if assert.Len(t, owned, 1) {
		assert.Equal(t, []course.Topic{tp}, owned[0].Topics)
	}
}

func TestService_chaptersAndLessons(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, owner, course.NewCourse{Title: "Swahili 101"})
	require.NoError(t, err)

	first, err := svc.CreateChapter(ctx, c.ID, course.NewChapter{Title: "Greetings"})
	require.NoError(t, err)
	assert.Equal(t, "greetings", first.Slug)
	assert.Equal(t, 0, first.OrderIndex)

	second, err := svc.CreateChapter(ctx, c.ID, course.NewChapter{Title: "Numbers"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.OrderIndex)

	zero := 0
	intro, err := svc.CreateChapter(ctx, c.ID, course.NewChapter{Title: "Intro", OrderIndex: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, intro.OrderIndex)

	_, err = svc.CreateChapter(ctx, c.ID, course.NewChapter{Title: "Greetings"})
	assert.Equal(t, []core.FieldError{{Field: "slug", Error: course.ErrSlugExists.Error()}}, fieldErrors(t, err))

	chapters, err := svc.QueryChapters(ctx, c.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		titles = append(titles, ch.Title)
	}
	assert.Equal(t, []string{"Greetings", "Intro", "Numbers"}, titles)

	got, err := svc.GetChapter(ctx, c.ID, "Greetings")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	l, err := svc.CreateLesson(ctx, first.ID, course.NewLesson{Title: "Hello", Description: "<p>Hi</p><script>x</script>"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, l.CourseID)
	assert.Equal(t, "<p>Hi</p>", l.Description)

	_, err = svc.CreateLesson(ctx, "lol", course.NewLesson{Title: "Hello"})
	assert.True(t, core.IsNotFound(err), "got %v", err)

	lessons, err := svc.QueryLessons(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []course.Lesson{l}, lessons)
}

func TestService_UpdateLessonDescription(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, owner, course.NewCourse{Title: "Swahili 101"})
	require.NoError(t, err)
	ch, err := svc.CreateChapter(ctx, c.ID, course.NewChapter{Title: "Greetings"})
	require.NoError(t, err)
	l, err := svc.CreateLesson(ctx, ch.ID, course.NewLesson{Title: "Hello"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		userID   string
		lessonID string
		desc     string
		want     string
		wantErr  func(error) bool
	}{
		{name: "unknown lesson", userID: owner.UserID, lessonID: "lol", wantErr: core.IsNotFound},
		{
			name:     "not the owner",
			userID:   learner.UserID,
			lessonID: l.ID,
			desc:     "<p>lol</p>",
			wantErr:  func(err error) bool { return err == core.ErrPermissionDenied },
		},
		{name: "sanitized", userID: owner.UserID, lessonID: l.ID, desc: `<p onclick="x()">Habari</p><p></p>`, want: "<p>Habari</p><p>\u00a0</p>"},
		{name: "cleared", userID: owner.UserID, lessonID: l.ID, desc: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.UpdateLessonDescription(ctx, tt.userID, tt.lessonID, tt.desc)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, updated.Description)

			got, err := svc.GetLesson(ctx, l.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Description)
		})
	}
}

func TestService_enrollment(t *testing.T) {
	svc, mails := setup()
	ctx := context.Background()
	c, err := svc.CreateCourse(ctx, owner, course.NewCourse{Title: "Swahili 101"})
	require.NoError(t, err)

	perms, err := svc.Permissions(ctx, learner.UserID, c)
	require.NoError(t, err)
	assert.Equal(t, course.Permissions{}, perms)

	_, err = svc.Enroll(ctx, owner, c.ID)
	var verr *core.ValidationError
	if assert.True(t, errors.As(err, &verr)) {
		assert.Equal(t, course.ErrOwnerEnrolled, verr.Err)
	}

	e, err := svc.Enroll(ctx, learner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, learner.UserID, e.UserID)

	again, err := svc.Enroll(ctx, learner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, e, again)

	if assert.Len(t, mails.msgs, 1) {
		msg := mails.msgs[0]
		assert.Equal(t, "Welcome to Swahili 101", msg.Subject)
		assert.Equal(t, "enrollment", msg.TemplateName)
		assert.Equal(t, learner.Email, msg.To[0].Address)
	}

	perms, err = svc.Permissions(ctx, learner.UserID, c)
	require.NoError(t, err)
	assert.Equal(t, course.Permissions{IsEnrolled: true}, perms)

	enrolled, err := svc.QueryEnrolledCourses(ctx, learner.UserID)
	require.NoError(t, err)
	if assert.Len(t, enrolled, 1) {
		assert.Equal(t, c.ID, enrolled[0].ID)
	}

	require.NoError(t, svc.Unenroll(ctx, learner.UserID, c.ID))
	perms, err = svc.Permissions(ctx, learner.UserID, c)
	require.NoError(t, err)
	assert.True(t, perms.IsHidden())

	perms, err = svc.Permissions(ctx, owner.UserID, c)
	require.NoError(t, err)
	assert.Equal(t, course.Permissions{IsOwner: true}, perms)
}
