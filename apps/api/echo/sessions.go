package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core/session"
)

type sessionApi struct {
	tracker  *session.Tracker
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, tracker *session.Tracker, validate *validator.Validate) {
	api := sessionApi{tracker: tracker, validate: validate}

	sg := g.Group("/sessions")
	sg.POST("/start", api.start)
	sg.POST("/end", api.end)
	sg.POST("/track", api.track)
	sg.GET("/:id", api.retrieve)

	g.GET("/students/:id/sessions", api.queryByStudent)
}

func (api *sessionApi) start(ctx echo.Context) error {
	var data session.StartRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.tracker.Start(ctx.Request().Context(), data.StudentID)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":   "Session started",
		"sessionId": sess.ID,
	})
}

func (api *sessionApi) end(ctx echo.Context) error {
	var data session.EndRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EndRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.tracker.End(ctx.Request().Context(), data.SessionID)
	if err != nil {
		return errors.Wrap(err, "ending session")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":  "Session ended",
		"duration": sess.Duration,
	})
}

func (api *sessionApi) track(ctx echo.Context) error {
	var data session.TrackRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TrackRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	_, err := api.tracker.Track(ctx.Request().Context(), data.SessionID, session.TrackInput{
		Page:     data.Page,
		LessonID: data.LessonID,
	})
	if err != nil {
		return errors.Wrap(err, "tracking session")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Session tracked successfully"})
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.tracker.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) queryByStudent(ctx echo.Context) error {
	sessions, err := api.tracker.QueryByStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}
