package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core/student"
)

type typingApi struct {
	svc      *student.Service
	validate *validator.Validate
}

func registerTypingAPI(g *echo.Group, svc *student.Service, validate *validator.Validate) {
	api := typingApi{svc: svc, validate: validate}

	tg := g.Group("/typing")
	tg.POST("/track", api.track)
	tg.GET("/stats/:studentId", api.stats)
}

func (api *typingApi) track(ctx echo.Context) error {
	var data student.NewTypingStat
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTypingStat")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stat, err := api.svc.RecordTyping(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording typing stat")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":       "Typing stats recorded",
		"typingSession": stat,
	})
}

func (api *typingApi) stats(ctx echo.Context) error {
	stats, err := api.svc.TypingStats(ctx.Request().Context(), ctx.Param("studentId"))
	if err != nil {
		return errors.Wrap(err, "querying typing stats")
	}
	if stats == nil {
		stats = []student.TypingStat{}
	}
	return ctx.JSON(http.StatusOK, stats)
}
