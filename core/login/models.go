package login

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/student"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Activity types with side effects on the login record
const (
	ActivityPageVisit       = "page_visit"
	ActivityLessonAccess    = "lesson_access"
	ActivityTypingTest      = "typing_test"
	ActivityLessonCompleted = "lesson_completed"
)

const (
	unknownDevice   = "Unknown Device"
	unknownBrowser  = "Unknown Browser"
	unknownIP       = "Unknown IP"
	unknownLocation = "Unknown Location"
	unknownAgent    = "Unknown User Agent"

	defaultLogoutReason = "User logout"
)

type (
	// Record is one presence window of a student, from login to logout.
	Record struct {
		ID              string                 `json:"id"`
		StudentID       string                 `json:"studentId"`
		StudentName     string                 `json:"studentName"`
		LoginTime       time.Time              `json:"loginTime"`
		LogoutTime      null.Time              `json:"logoutTime"`
		SessionDuration int64                  `json:"sessionDuration"` // ms
		DeviceInfo      string                 `json:"deviceInfo"`
		BrowserInfo     string                 `json:"browserInfo"`
		IPAddress       string                 `json:"ipAddress"`
		Location        string                 `json:"location"`
		UserAgent       string                 `json:"userAgent"`
		Activities      []Activity             `json:"activities"`
		LessonsAccessed []string               `json:"lessonsAccessed"`
		PagesVisited    []string               `json:"pagesVisited"`
		TypingSessions  []student.TypingSample `json:"typingSessions"`
		Status          Status                 `json:"status"`
		LogoutReason    string                 `json:"logoutReason,omitempty"`
	}

	Activity struct {
		Type      string                 `json:"type"`
		Data      map[string]interface{} `json:"data"`
		Timestamp time.Time              `json:"timestamp"`
	}

	// Metadata describes where a login comes from.
	Metadata struct {
		DeviceInfo  string `json:"deviceInfo"`
		BrowserInfo string `json:"browserInfo"`
		IPAddress   string `json:"ipAddress"`
		Location    string `json:"location"`
		UserAgent   string `json:"userAgent"`
	}

	LogoutInput struct {
		Reason  string
		LoginID string // closes the most recent active record when empty
	}

	ActivityInput struct {
		Type    string
		Data    map[string]interface{}
		LoginID string // targets the most recent active record when empty
	}
)

func (r Record) Active() bool {
	return r.Status == StatusActive
}

// Duration returns the session duration of a completed record.
func (r Record) Duration() time.Duration {
	return time.Duration(r.SessionDuration) * time.Millisecond
}

func (md Metadata) withDefaults() Metadata {
	def := func(s, fallback string) string {
		if s = core.CleanString(s); s == "" {
			return fallback
		}
		return s
	}
	return Metadata{
		DeviceInfo:  def(md.DeviceInfo, unknownDevice),
		BrowserInfo: def(md.BrowserInfo, unknownBrowser),
		IPAddress:   def(md.IPAddress, unknownIP),
		Location:    def(md.Location, unknownLocation),
		UserAgent:   def(md.UserAgent, unknownAgent),
	}
}

// Request payloads

type LoginRequest struct {
	StudentID string `json:"studentId" validate:"required,notblank"`
	Metadata
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.StudentID = core.CleanString(lr.StudentID)
	return validate.Struct(lr)
}

type LogoutRequest struct {
	StudentID string `json:"studentId" validate:"required,notblank"`
	Reason    string `json:"reason"`
	LoginID   string `json:"loginId"`
}

func (lr *LogoutRequest) Validate(validate *validator.Validate) error {
	lr.StudentID = core.CleanString(lr.StudentID)
	lr.LoginID = core.CleanString(lr.LoginID)
	return validate.Struct(lr)
}

type ActivityRequest struct {
	StudentID    string                 `json:"studentId" validate:"required,notblank"`
	ActivityType string                 `json:"activityType" validate:"required,notblank"`
	Data         map[string]interface{} `json:"data"`
	LoginID      string                 `json:"loginId"`
}

func (ar *ActivityRequest) Validate(validate *validator.Validate) error {
	ar.StudentID = core.CleanString(ar.StudentID)
	ar.ActivityType = core.CleanString(ar.ActivityType)
	ar.LoginID = core.CleanString(ar.LoginID)
	return validate.Struct(ar)
}
