package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/progress"
)

type progressApi struct {
	svc      *progress.Service
	validate *validator.Validate
}

type studentIDRequest struct {
	StudentID string `json:"studentId" validate:"required,notblank"`
}

func (r *studentIDRequest) Validate(validate *validator.Validate) error {
	r.StudentID = core.CleanString(r.StudentID)
	return validate.Struct(r)
}

func registerProgressAPI(g *echo.Group, svc *progress.Service, validate *validator.Validate) {
	api := progressApi{svc: svc, validate: validate}

	sg := g.Group("/students")
	sg.POST("/progress", api.record)
	sg.POST("/achievement", api.achievement)
	sg.POST("/weekly-report", api.weeklyReport)
	sg.GET("/:id/details", api.details)
}

func (api *progressApi) record(ctx echo.Context) error {
	var data progress.ProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":  "Progress recorded successfully",
		"progress": entry,
	})
}

func (api *progressApi) achievement(ctx echo.Context) error {
	var data progress.AchievementRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AchievementRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Achievement(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "notifying achievement")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":     "Achievement notification sent",
		"achievement": data.Achievement,
	})
}

func (api *progressApi) weeklyReport(ctx echo.Context) error {
	var data studentIDRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to studentIDRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rep, err := api.svc.WeeklyReport(ctx.Request().Context(), data.StudentID)
	if err != nil {
		return errors.Wrap(err, "building weekly report")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Weekly report generated and sent to parents",
		"report":  rep,
	})
}

func (api *progressApi) details(ctx echo.Context) error {
	details, err := api.svc.Details(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building student details")
	}
	return ctx.JSON(http.StatusOK, details)
}
