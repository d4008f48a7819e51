package login

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/student"
)

// ErrNoActiveLogin is returned when a student has no open login record to act on.
var ErrNoActiveLogin = errors.New("no active session found")

type (
	Repository interface {
		CreateLogin(ctx context.Context, rec Record) error
		// UpdateActiveLogin applies fn to the active record of the student with the given id,
		// or to the student's most recent active record when loginID is empty.
		// It fails with ErrNoActiveLogin when there is no such record.
		UpdateActiveLogin(ctx context.Context, studentID, loginID string, fn func(rec *Record) error) (Record, error)
		// QueryLogins returns the login records of a student, or all of them when studentID is empty.
		QueryLogins(ctx context.Context, studentID string) ([]Record, error)
	}

	// Notifier dispatches guardian notifications without blocking the caller.
	Notifier interface {
		Go(rcpt notification.Recipient, ev notification.Event)
	}

	// Recorder tracks student presence windows and notifies guardians on login and logout.
	Recorder struct {
		repo     Repository
		students student.Repository
		notifier Notifier
		logger   core.Logger
	}
)

func NewRecorder(repo Repository, students student.Repository, notifier Notifier, logger core.Logger) (*Recorder, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Recorder{repo: repo, students: students, notifier: notifier, logger: logger}, nil
}

// Login opens a new presence window and returns it along with the updated student.
func (r *Recorder) Login(ctx context.Context, studentID string, md Metadata) (Record, student.Student, error) {
	st, err := r.students.GetStudent(ctx, studentID)
	if err != nil {
		return Record{}, student.Student{}, err
	}

	now := core.NowFunc()
	given := md
	md = md.withDefaults()
	rec := Record{
		ID:              core.NewID(),
		StudentID:       st.ID,
		StudentName:     st.Name,
		LoginTime:       now,
		DeviceInfo:      md.DeviceInfo,
		BrowserInfo:     md.BrowserInfo,
		IPAddress:       md.IPAddress,
		Location:        md.Location,
		UserAgent:       md.UserAgent,
		Activities:      []Activity{},
		LessonsAccessed: []string{},
		PagesVisited:    []string{},
		TypingSessions:  []student.TypingSample{},
		Status:          StatusActive,
	}
	if err = r.repo.CreateLogin(ctx, rec); err != nil {
		return Record{}, student.Student{}, errors.Wrap(err, "creating login record")
	}

	st, err = r.students.UpdateStudent(ctx, st.ID, func(s *student.Student) error {
		s.TotalSessions++
		s.LastActive = now
		return nil
	})
	if err != nil {
		return rec, student.Student{}, errors.Wrap(err, "updating student")
	}

	r.logger.Info(fmt.Sprintf("student %s logged in (%s)", st.ID, rec.ID))
	r.notifier.Go(st.Guardian(), notification.LoginEvent{
		StudentName: st.Name,
		LoginTime:   rec.LoginTime,
		DeviceInfo:  core.CleanString(given.DeviceInfo),
		Location:    core.CleanString(given.Location),
	})
	return rec, st, nil
}

// Logout closes a presence window. It fails with ErrNoActiveLogin, without changing anything,
// when the student has no open record.
func (r *Recorder) Logout(ctx context.Context, studentID string, in LogoutInput) (Record, error) {
	st, err := r.students.GetStudent(ctx, studentID)
	if err != nil {
		return Record{}, err
	}

	reason := core.CleanString(in.Reason)
	if reason == "" {
		reason = defaultLogoutReason
	}
	now := core.NowFunc()

	rec, err := r.repo.UpdateActiveLogin(ctx, st.ID, in.LoginID, func(rec *Record) error {
		if now.Before(rec.LoginTime) {
			now = rec.LoginTime
		}
		rec.LogoutTime = null.TimeFrom(now)
		rec.SessionDuration = core.Millis(now.Sub(rec.LoginTime))
		rec.Status = StatusCompleted
		rec.LogoutReason = reason
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	st, err = r.students.UpdateStudent(ctx, st.ID, func(s *student.Student) error {
		s.LastActive = now
		return nil
	})
	if err != nil {
		return rec, errors.Wrap(err, "updating student")
	}

	r.logger.Info(fmt.Sprintf("student %s logged out (%s) after %dms", st.ID, rec.ID, rec.SessionDuration))
	r.notifier.Go(st.Guardian(), notification.LogoutEvent{
		StudentName:     st.Name,
		LoginTime:       rec.LoginTime,
		LogoutTime:      rec.LogoutTime.Time,
		SessionDuration: rec.Duration(),
		LessonsAccessed: rec.LessonsAccessed,
		PagesVisited:    rec.PagesVisited,
		ActivityCount:   len(rec.Activities),
		DeviceInfo:      rec.DeviceInfo,
		LogoutReason:    rec.LogoutReason,
	})
	return rec, nil
}

// RecordActivity appends an activity to an open login record.
func (r *Recorder) RecordActivity(ctx context.Context, studentID string, in ActivityInput) (Activity, error) {
	if _, err := r.students.GetStudent(ctx, studentID); err != nil {
		return Activity{}, err
	}

	act := Activity{
		Type:      in.Type,
		Data:      in.Data,
		Timestamp: core.NowFunc(),
	}
	if act.Data == nil {
		act.Data = map[string]interface{}{}
	}

	_, err := r.repo.UpdateActiveLogin(ctx, studentID, in.LoginID, func(rec *Record) error {
		apply(rec, act)
		return nil
	})
	if err != nil {
		return Activity{}, err
	}
	return act, nil
}

// apply appends act to rec and updates the derived sets.
func apply(rec *Record, act Activity) {
	rec.Activities = append(rec.Activities, act)

	switch act.Type {
	case ActivityPageVisit:
		rec.PagesVisited = core.AppendUnique(rec.PagesVisited, stringField(act.Data, "page"))
	case ActivityLessonAccess, ActivityLessonCompleted:
		rec.LessonsAccessed = core.AppendUnique(rec.LessonsAccessed, stringField(act.Data, "lessonId"))
	case ActivityTypingTest:
		rec.TypingSessions = append(rec.TypingSessions, student.TypingSample{
			WPM:       numberField(act.Data, "wpm"),
			Accuracy:  numberField(act.Data, "accuracy"),
			Timestamp: act.Timestamp,
		})
	}
}

// Query returns the login records of a student, or all of them when studentID is empty.
func (r *Recorder) Query(ctx context.Context, studentID string) ([]Record, error) {
	return r.repo.QueryLogins(ctx, core.CleanString(studentID))
}

// Active returns the most recent open login record of a student.
func (r *Recorder) Active(ctx context.Context, studentID string) (Record, error) {
	recs, err := r.repo.QueryLogins(ctx, studentID)
	if err != nil {
		return Record{}, err
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Active() {
			return recs[i], nil
		}
	}
	return Record{}, ErrNoActiveLogin
}

func stringField(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case string:
		return core.CleanString(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func numberField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
