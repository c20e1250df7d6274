package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
)

type courseApi struct {
	svc      *course.Service
	cardSvc  *card.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, svc *course.Service, cardSvc *card.Service, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		cardSvc:  cardSvc,
		validate: validate,
	}
	gt := gate{svc: svc}

	g.GET("/topics", api.queryTopics)
	g.POST("/topics", api.createTopic)

	cg := g.Group("/courses")
	cg.POST("", api.create)
	cg.GET("/owned", api.queryOwned)
	cg.GET("/enrolled", api.queryEnrolled)
	cg.POST("/:id/enrollment", api.enroll, gt.course(course.CheckAlways))
	cg.DELETE("/:id/enrollment", api.unenroll, gt.course(course.CheckAlways))
	cg.POST("/:id/chapters", api.createChapter, gt.course(course.CheckOwner))
	cg.GET("/:id/chapters/:slug", api.retrieveChapter, gt.course(course.CheckEnrolled))

	g.GET("/users/:username/courses/:slug", api.retrieve)

	g.POST("/chapters/:id/lessons", api.createLesson, gt.chapter(course.CheckOwner))

	g.GET("/lessons/:id", api.retrieveLesson, gt.lesson(course.CheckEnrolled))
	g.PUT("/lessons/:id/description", api.updateLessonDescription, gt.lesson(course.CheckOwner))
}

// Topics

func (api *courseApi) queryTopics(ctx echo.Context) error {
	topics, err := api.svc.QueryTopics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *courseApi) createTopic(ctx echo.Context) error {
	var data course.NewTopic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTopic")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.CreateTopic(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating topic")
	}
	return ctx.JSON(http.StatusCreated, t)
}

// Courses

func (api *courseApi) create(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCourse(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) queryOwned(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryOwnedCourses(ctx.Request().Context(), id.UserID)
	if err != nil {
		return errors.Wrap(err, "querying owned courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) queryEnrolled(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.QueryEnrolledCourses(ctx.Request().Context(), id.UserID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	c, err := api.svc.GetCourse(rctx, ctx.Param("username"), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	perms, err := api.svc.Permissions(rctx, id.UserID, c)
	if err != nil {
		return errors.Wrap(err, "getting permissions")
	}
	chapters, err := api.svc.QueryChapters(rctx, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying chapters")
	}
	return ctx.JSON(http.StatusOK, CourseDetail{Course: c, Chapters: chapters, Permissions: perms})
}

func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	c, _, err := getContextCourse(ctx)
	if err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), id, c.ID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	c, _, err := getContextCourse(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Unenroll(ctx.Request().Context(), id.UserID, c.ID); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Chapters

func (api *courseApi) createChapter(ctx echo.Context) error {
	c, _, err := getContextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.NewChapter
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ch, err := api.svc.CreateChapter(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating chapter")
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *courseApi) retrieveChapter(ctx echo.Context) error {
	c, _, err := getContextCourse(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	ch, err := api.svc.GetChapter(rctx, c.ID, ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "getting chapter")
	}
	lessons, err := api.svc.QueryLessons(rctx, ch.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, ChapterDetail{Chapter: ch, Lessons: lessons})
}

// Lessons

func (api *courseApi) createLesson(ctx echo.Context) error {
	ch, err := getContextChapter(ctx)
	if err != nil {
		return err
	}

	var data course.NewLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.CreateLesson(ctx.Request().Context(), ch.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return err
	}
	_, perms, err := getContextCourse(ctx)
	if err != nil {
		return err
	}

	cards, err := api.cardSvc.ListByLesson(ctx.Request().Context(), l.ID)
	if err != nil {
		return errors.Wrap(err, "listing cards")
	}
	return ctx.JSON(http.StatusOK, LessonDetail{Lesson: l, Cards: cards, Permissions: perms})
}

func (api *courseApi) updateLessonDescription(ctx echo.Context) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	l, err := getContextLesson(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateDescription
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDescription")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	l, err = api.svc.UpdateLessonDescription(ctx.Request().Context(), id.UserID, l.ID, data.Description)
	if err != nil {
		return errors.Wrap(err, "updating lesson description")
	}
	return ctx.JSON(http.StatusOK, l)
}
