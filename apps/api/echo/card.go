package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core/card"
	"github.com/trezcool/kamusi/core/course"
)

type cardApi struct {
	svc      *card.Service
	validate *validator.Validate
}

func registerCardAPI(g *echo.Group, svc *card.Service, courseSvc *course.Service, validate *validator.Validate) {
	api := cardApi{
		svc:      svc,
		validate: validate,
	}
	gt := gate{svc: courseSvc}

	lg := g.Group("/lessons/:id/cards")
	lg.GET("", api.list, gt.lesson(course.CheckEnrolled))
	lg.PUT("", api.saveAll, gt.lesson(course.CheckOwner))
	lg.POST("", api.save, gt.lesson(course.CheckOwner))
	lg.DELETE("/:cardID", api.destroy, gt.lesson(course.CheckOwner))
}

func (api *cardApi) list(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return err
	}
	cards, err := api.svc.ListByLesson(ctx.Request().Context(), l.ID)
	if err != nil {
		return errors.Wrap(err, "listing cards")
	}
	return ctx.JSON(http.StatusOK, cards)
}

// saveAll deletes `deleted_ids` and upserts `cards`; the canonical cards are returned in request order.
func (api *cardApi) saveAll(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return err
	}

	var data SaveCardsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveCardsRequest")
	}
	for i := range data.Cards {
		data.Cards[i].Clean()
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	cards, err := api.svc.ReplaceLessonCards(ctx.Request().Context(), l.ID, data.Cards, data.DeletedIDs)
	if err != nil {
		return errors.Wrap(err, "saving cards")
	}
	return ctx.JSON(http.StatusOK, cards)
}

func (api *cardApi) save(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return err
	}

	var data card.Draft
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Draft")
	}
	data.Clean()
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.SaveCard(ctx.Request().Context(), l.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving card")
	}
	code := http.StatusOK
	if data.ID == "" {
		code = http.StatusCreated
	}
	return ctx.JSON(code, c)
}

func (api *cardApi) destroy(ctx echo.Context) error {
	l, err := getContextLesson(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCards(ctx.Request().Context(), l.ID, ctx.Param("cardID")); err != nil {
		return errors.Wrap(err, "deleting card")
	}
	return ctx.NoContent(http.StatusNoContent)
}
