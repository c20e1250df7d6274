package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
	"github.com/trezcool/kamusi/core/course"
)

const (
	contextCourseKey  = "course"
	contextPermsKey   = "permissions"
	contextChapterKey = "chapter"
	contextLessonKey  = "lesson"
)

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

// gate loads the object addressed by the `:id` path param, with its course,
// and lets the request through only if the caller's permissions on the course pass the check.
type gate struct {
	svc *course.Service
}

func (g gate) authorize(ctx echo.Context, c course.Course, check course.Check) error {
	id, err := getContextIdentity(ctx)
	if err != nil {
		return err
	}
	perms, err := g.svc.Permissions(ctx.Request().Context(), id.UserID, c)
	if err != nil {
		return errors.Wrap(err, "getting permissions")
	}
	if !perms.Allows(check, false) {
		return core.ErrPermissionDenied
	}
	ctx.Set(contextCourseKey, c)
	ctx.Set(contextPermsKey, perms)
	return nil
}

func (g gate) course(check course.Check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := g.svc.GetCourseByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "getting course")
			}
			if err = g.authorize(ctx, c, check); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func (g gate) chapter(check course.Check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rctx := ctx.Request().Context()
			ch, err := g.svc.GetChapterByID(rctx, ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "getting chapter")
			}
			c, err := g.svc.GetCourseByID(rctx, ch.CourseID)
			if err != nil {
				return errors.Wrap(err, "getting course")
			}
			if err = g.authorize(ctx, c, check); err != nil {
				return err
			}
			ctx.Set(contextChapterKey, ch)
			return next(ctx)
		}
	}
}

func (g gate) lesson(check course.Check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			rctx := ctx.Request().Context()
			l, err := g.svc.GetLesson(rctx, ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "getting lesson")
			}
			c, err := g.svc.GetCourseByID(rctx, l.CourseID)
			if err != nil {
				return errors.Wrap(err, "getting course")
			}
			if err = g.authorize(ctx, c, check); err != nil {
				return err
			}
			ctx.Set(contextLessonKey, l)
			return next(ctx)
		}
	}
}

func getContextCourse(ctx echo.Context) (course.Course, course.Permissions, error) {
	c, ok := ctx.Get(contextCourseKey).(course.Course)
	if !ok {
		return course.Course{}, course.Permissions{}, errors.Wrap(errObjNotFoundInCtx, "course")
	}
	perms, _ := ctx.Get(contextPermsKey).(course.Permissions)
	return c, perms, nil
}

func getContextChapter(ctx echo.Context) (course.Chapter, error) {
	if ch, ok := ctx.Get(contextChapterKey).(course.Chapter); ok {
		return ch, nil
	}
	return course.Chapter{}, errors.Wrap(errObjNotFoundInCtx, "chapter")
}

func getContextLesson(ctx echo.Context) (course.Lesson, error) {
	if l, ok := ctx.Get(contextLessonKey).(course.Lesson); ok {
		return l, nil
	}
	return course.Lesson{}, errors.Wrap(errObjNotFoundInCtx, "lesson")
}
