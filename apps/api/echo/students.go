package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core/login"
	"github.com/trezcool/studytrack/core/student"
)

type studentApi struct {
	svc      *student.Service
	logins   *login.Recorder
	validate *validator.Validate
}

type (
	studentSummary struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Email         string `json:"email,omitempty"`
		TotalSessions *int   `json:"totalSessions,omitempty"`
	}

	studentDetail struct {
		student.Student
		LoginHistory []login.Record `json:"loginHistory"`
	}
)

func registerStudentAPI(g *echo.Group, svc *student.Service, logins *login.Recorder, validate *validator.Validate) {
	api := studentApi{
		svc:      svc,
		logins:   logins,
		validate: validate,
	}

	g.GET("/login-logs", api.queryLogins)

	sg := g.Group("/students")
	sg.POST("/register", api.register)
	sg.GET("", api.query)
	sg.POST("/login", api.login)
	sg.POST("/logout", api.logout)
	sg.POST("/activity", api.activity)

	// detail endpoints
	dg := sg.Group("/:id", ctxStudentMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.GET("/login-logs", api.studentLogins)
}

// Handlers

func (api *studentApi) register(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}

	return ctx.JSON(http.StatusCreated, echo.Map{
		"message": "Student registered successfully",
		"student": studentSummary{ID: st.ID, Name: st.Name, Email: st.Email},
	})
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	res := make([]student.Student, 0, len(students))
	for _, st := range students {
		res = append(res, st.Public())
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	history, err := api.logins.Query(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying login history")
	}
	return ctx.JSON(http.StatusOK, studentDetail{Student: st.Public(), LoginHistory: nonNilLogins(history)})
}

func (api *studentApi) login(ctx echo.Context) error {
	var data login.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	md := data.Metadata
	if md.IPAddress == "" {
		md.IPAddress = ctx.RealIP()
	}
	if md.UserAgent == "" {
		md.UserAgent = ctx.Request().UserAgent()
	}

	rec, st, err := api.logins.Login(ctx.Request().Context(), data.StudentID, md)
	if err != nil {
		return errors.Wrap(err, "recording login")
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"message":   "Login recorded successfully",
		"loginId":   rec.ID,
		"loginTime": rec.LoginTime,
		"student":   studentSummary{ID: st.ID, Name: st.Name, TotalSessions: &st.TotalSessions},
	})
}

func (api *studentApi) logout(ctx echo.Context) error {
	var data login.LogoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LogoutRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.logins.Logout(ctx.Request().Context(), data.StudentID, login.LogoutInput{
		Reason:  data.Reason,
		LoginID: data.LoginID,
	})
	if errors.Cause(err) == login.ErrNoActiveLogin {
		// nothing to close: reported, not an error
		return ctx.JSON(http.StatusOK, echo.Map{
			"message":         "No active session found",
			"logoutTime":      nil,
			"sessionDuration": 0,
		})
	}
	if err != nil {
		return errors.Wrap(err, "recording logout")
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"message":         "Logout recorded successfully",
		"logoutTime":      rec.LogoutTime,
		"sessionDuration": rec.SessionDuration,
	})
}

func (api *studentApi) activity(ctx echo.Context) error {
	var data login.ActivityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActivityRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	act, err := api.logins.RecordActivity(ctx.Request().Context(), data.StudentID, login.ActivityInput{
		Type:    data.ActivityType,
		Data:    data.Data,
		LoginID: data.LoginID,
	})
	if err != nil {
		return errors.Wrap(err, "recording activity")
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"message":  "Activity recorded successfully",
		"activity": act,
	})
}

func (api *studentApi) queryLogins(ctx echo.Context) error {
	return api.respondLogins(ctx, "")
}

func (api *studentApi) studentLogins(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	return api.respondLogins(ctx, st.ID)
}

func (api *studentApi) respondLogins(ctx echo.Context, studentID string) error {
	recs, err := api.logins.Query(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying login records")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	ordering.SortLogins(recs)
	return ctx.JSON(http.StatusOK, nonNilLogins(recs))
}

func nonNilLogins(recs []login.Record) []login.Record {
	if recs == nil {
		return []login.Record{}
	}
	return recs
}
