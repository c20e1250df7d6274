package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")

// errorResponse maps err to a status code and a JSON body.
// ok is false for unexpected errors, which are reported as 500s.
func errorResponse(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	var (
		httpErr  *echo.HTTPError
		valErrs  validator.ValidationErrors
		valErr   *core.ValidationError
		errorMsg = func(msg interface{}) interface{} {
			if s, isStr := msg.(string); isStr {
				return echo.Map{"error": s}
			}
			return msg
		}
	)

	switch {
	case errors.As(err, &valErr):
		if flds := valErr.FieldMap(); flds != nil {
			return http.StatusBadRequest, flds, true
		}
		return http.StatusBadRequest, errorMsg(valErr.Error()), true
	case errors.As(err, &valErrs):
		flds := make(map[string]string, len(valErrs))
		for _, fe := range valErrs {
			flds[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, flds, true
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorMsg("not found"), true
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden, errorMsg("permission denied"), true
	case errors.As(err, &httpErr):
		if httpErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, errorMsg(httpErr.Message), true
		}
		if inner, isHTTP := httpErr.Internal.(*echo.HTTPError); isHTTP {
			httpErr = inner
		}
		return httpErr.Code, errorMsg(httpErr.Message), true
	}
	return http.StatusInternalServerError, errorMsg(http.StatusText(http.StatusInternalServerError)), false
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler of the API.
// signalShutdown is called whenever a core.ShutdownError reaches it.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorResponse(err, translator)
		if !ok {
			id, _ := getContextIdentity(ctx)
			logger.Error(ctx.Request().Method+" "+ctx.Path()+": "+err.Error(), err, id)
			if ctx.Echo().Debug {
				body = echo.Map{"error": err.Error()}
			}
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
