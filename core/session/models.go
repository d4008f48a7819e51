package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/student"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Session is a learning activity window, independent of login state.
type Session struct {
	ID              string                 `json:"id"`
	StudentID       string                 `json:"studentId"`
	StartTime       time.Time              `json:"startTime"`
	EndTime         null.Time              `json:"endTime"`
	Duration        int64                  `json:"duration"` // ms
	PagesVisited    []string               `json:"pagesVisited"`
	LessonsAccessed []string               `json:"lessonsAccessed"`
	TypingSessions  []student.TypingSample `json:"typingSessions"`
	Status          Status                 `json:"status"`
}

func (s Session) Ended() bool {
	return s.Status == StatusEnded
}

type TrackInput struct {
	Page     string
	LessonID string
}

// Request payloads

type StartRequest struct {
	StudentID string `json:"studentId" validate:"required,notblank"`
}

func (sr *StartRequest) Validate(validate *validator.Validate) error {
	sr.StudentID = core.CleanString(sr.StudentID)
	return validate.Struct(sr)
}

type EndRequest struct {
	SessionID string `json:"sessionId" validate:"required,notblank"`
}

func (er *EndRequest) Validate(validate *validator.Validate) error {
	er.SessionID = core.CleanString(er.SessionID)
	return validate.Struct(er)
}

type TrackRequest struct {
	SessionID string `json:"sessionId" validate:"required,notblank"`
	Page      string `json:"page"`
	LessonID  string `json:"lessonId"`
}

func (tr *TrackRequest) Validate(validate *validator.Validate) error {
	tr.SessionID = core.CleanString(tr.SessionID)
	tr.Page = core.CleanString(tr.Page)
	tr.LessonID = core.CleanString(tr.LessonID)
	return validate.Struct(tr)
}
