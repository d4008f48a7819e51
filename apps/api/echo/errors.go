package echoapi

import (
	"encoding/json"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/login"
	"github.com/trezcool/studytrack/core/session"
	"github.com/trezcool/studytrack/core/student"
)

var (
	errStudentNotInCtx = errors.New("student object not found in echo.Context")

	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "Route not found")
	errHttpInvalidJSON = echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON format")
)

// statusOf maps domain errors to the HTTP status they are reported with.
func statusOf(err error) (int, bool) {
	switch err {
	case student.ErrNotFound, session.ErrNotFound:
		return http.StatusNotFound, true
	case session.ErrEnded:
		return http.StatusConflict, true
	case login.ErrNoActiveLogin:
		return http.StatusBadRequest, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if status, ok := statusOf(cause); ok {
			code = status
			message = capitalize(cause.Error())
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
				if _, ok := origErr.Internal.(*json.SyntaxError); ok {
					message = errHttpInvalidJSON.Message
				}
				if code == http.StatusNotFound && message == http.StatusText(http.StatusNotFound) {
					message = errHttpNotFound.Message
				}
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := "Something went wrong!"
				message = msg

				args := []interface{}{errors.Wrap(err, msg)}
				if st, ok := ctx.Get(contextStudentKey).(student.Student); ok {
					args = append(args, st)
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
