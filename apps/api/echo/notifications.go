package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/progress"
)

type notificationApi struct {
	log      notification.Log
	progress *progress.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, log notification.Log, svc *progress.Service, validate *validator.Validate) {
	api := notificationApi{log: log, progress: svc, validate: validate}

	g.GET("/notifications", api.query)
	g.POST("/test/notification", api.test)
}

func (api *notificationApi) query(ctx echo.Context) error {
	recs, err := api.log.QueryNotifications(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if recs == nil {
		recs = []notification.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *notificationApi) test(ctx echo.Context) error {
	var data studentIDRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to studentIDRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.progress.TestNotification(ctx.Request().Context(), data.StudentID)
	if err != nil {
		return errors.Wrap(err, "sending test notification")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":     "Test notification sent to parents",
		"student":     st.Name,
		"parentEmail": st.ContactInfo.ParentEmail,
		"parentPhone": st.ContactInfo.ParentPhone,
	})
}
