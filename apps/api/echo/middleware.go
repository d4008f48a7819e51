package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core/student"
)

const contextStudentKey = "object"

// ctxStudentMiddleware loads the student named by the `:id` path param into the context.
func ctxStudentMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "getting student")
			}
			ctx.Set(contextStudentKey, st)
			return next(ctx)
		}
	}
}

func getContextStudent(ctx echo.Context) (student.Student, error) {
	st, ok := ctx.Get(contextStudentKey).(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errStudentNotInCtx, "retrieving object from context")
	}
	return st, nil
}
