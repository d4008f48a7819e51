package student

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrEmailExists    = errors.New("student already registered")
	ErrUsernameExists = errors.New("a student with this username already exists")
)

type (
	Repository interface {
		// CreateStudent fails with ErrEmailExists or ErrUsernameExists on duplicates.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		QueryStudents(ctx context.Context) ([]Student, error)
		// UpdateStudent applies fn to the stored student atomically and returns the result.
		UpdateStudent(ctx context.Context, id string, fn func(st *Student) error) (Student, error)
	}

	TypingRepository interface {
		AppendTypingStat(ctx context.Context, stat TypingStat) error
		QueryTypingStats(ctx context.Context, studentID string) ([]TypingStat, error)
	}

	// SessionTyping appends a typing sample to an active learning session.
	SessionTyping interface {
		AddTyping(ctx context.Context, sessionID string, sample TypingSample) error
	}

	Service struct {
		repo     Repository
		typing   TypingRepository
		sessions SessionTyping
		logger   core.Logger
	}
)

func NewService(repo Repository, typing TypingRepository, sessions SessionTyping, logger core.Logger) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(typing, "typing"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, typing: typing, sessions: sessions, logger: logger}, nil
}

// Register creates a student from validated data.
func (svc *Service) Register(ctx context.Context, ns NewStudent) (Student, error) {
	now := core.NowFunc()
	st := Student{
		ID:            core.NewID(),
		Name:          ns.Name,
		Email:         ns.Email,
		Username:      ns.Username,
		Grade:         null.NewString(ns.Grade, ns.Grade != ""),
		Interests:     nonNil(ns.Interests),
		LearningGoals: nonNil(ns.LearningGoals),
		ContactInfo: ContactInfo{
			ParentName:       ns.ParentName,
			ParentEmail:      ns.ParentEmail,
			ParentPhone:      ns.ParentPhone,
			EmergencyContact: ns.EmergencyContact,
			Address:          ns.Address,
		},
		RegisteredAt:       now,
		LastActive:         now,
		PerformanceHistory: []ProgressEntry{},
	}
	if ns.Age != nil {
		st.Age = null.IntFrom(*ns.Age)
	}
	if ns.Password != "" {
		if err := st.SetPassword(ns.Password); err != nil {
			return Student{}, errors.Wrap(err, "hashing password")
		}
	}

	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrEmailExists:
			field = "email"
		case ErrUsernameExists:
			field = "username"
		default:
			return Student{}, errors.Wrap(err, "creating student")
		}
		return Student{}, core.NewValidationError(errors.Cause(err), core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	svc.logger.Info("student registered: " + st.ID)
	return st, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx)
}

// RecordTyping appends a typing stat and recomputes the student's average typing speed.
// A stat tied to an active session is also added to that session.
func (svc *Service) RecordTyping(ctx context.Context, nt NewTypingStat) (TypingStat, error) {
	if _, err := svc.repo.GetStudent(ctx, nt.StudentID); err != nil {
		return TypingStat{}, err
	}

	stat := TypingStat{
		ID:        core.NewID(),
		StudentID: nt.StudentID,
		SessionID: null.NewString(nt.SessionID, nt.SessionID != ""),
		WPM:       nt.WPM,
		Accuracy:  nt.Accuracy,
		Text:      nt.Text,
		TimeSpent: nt.TimeSpent,
		Timestamp: core.NowFunc(),
	}
	if err := svc.typing.AppendTypingStat(ctx, stat); err != nil {
		return TypingStat{}, errors.Wrap(err, "appending typing stat")
	}

	// the average is computed under the student lock so concurrent appends all end up counted
	_, err := svc.repo.UpdateStudent(ctx, stat.StudentID, func(st *Student) error {
		stats, err := svc.typing.QueryTypingStats(ctx, st.ID)
		if err != nil {
			return err
		}
		st.AverageTypingSpeed = AverageWPM(stats)
		return nil
	})
	if err != nil {
		return stat, errors.Wrap(err, "updating average typing speed")
	}

	if stat.SessionID.Valid && svc.sessions != nil {
		sample := TypingSample{WPM: stat.WPM, Accuracy: stat.Accuracy, Timestamp: stat.Timestamp}
		if err := svc.sessions.AddTyping(ctx, stat.SessionID.String, sample); err != nil {
			svc.logger.Warn("adding typing sample to session "+stat.SessionID.String, err)
		}
	}
	return stat, nil
}

func (svc *Service) TypingStats(ctx context.Context, studentID string) ([]TypingStat, error) {
	return svc.typing.QueryTypingStats(ctx, core.CleanString(studentID))
}

// AverageWPM returns the arithmetic mean of the stats' WPM, 0 when empty.
func AverageWPM(stats []TypingStat) float64 {
	if len(stats) == 0 {
		return 0
	}
	var total float64
	for _, s := range stats {
		total += s.WPM
	}
	return total / float64(len(stats))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
