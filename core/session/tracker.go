package session

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session already ended")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) error
		GetSession(ctx context.Context, id string) (Session, error)
		// QuerySessions returns the sessions of a student, or all of them when studentID is empty.
		QuerySessions(ctx context.Context, studentID string) ([]Session, error)
		// UpdateSession applies fn to the stored session atomically. fn errors abort the update.
		UpdateSession(ctx context.Context, id string, fn func(sess *Session) error) (Session, error)
	}

	// Tracker owns the lifecycle of learning sessions: Active until ended, Ended forever after.
	Tracker struct {
		repo     Repository
		students student.Repository
		logger   core.Logger
	}
)

var _ student.SessionTyping = (*Tracker)(nil)

func NewTracker(repo Repository, students student.Repository, logger core.Logger) (*Tracker, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Tracker{repo: repo, students: students, logger: logger}, nil
}

func (t *Tracker) Start(ctx context.Context, studentID string) (Session, error) {
	if _, err := t.students.GetStudent(ctx, studentID); err != nil {
		return Session{}, err
	}

	sess := Session{
		ID:              core.NewID(),
		StudentID:       studentID,
		StartTime:       core.NowFunc(),
		PagesVisited:    []string{},
		LessonsAccessed: []string{},
		TypingSessions:  []student.TypingSample{},
		Status:          StatusActive,
	}
	if err := t.repo.CreateSession(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

// Track records a page and/or lesson visit. Both behave as sets.
func (t *Tracker) Track(ctx context.Context, id string, in TrackInput) (Session, error) {
	return t.repo.UpdateSession(ctx, id, func(sess *Session) error {
		if sess.Ended() {
			return ErrEnded
		}
		sess.PagesVisited = core.AppendUnique(sess.PagesVisited, core.CleanString(in.Page))
		sess.LessonsAccessed = core.AppendUnique(sess.LessonsAccessed, core.CleanString(in.LessonID))
		return nil
	})
}

// AddTyping appends a typing sample to an active session.
func (t *Tracker) AddTyping(ctx context.Context, id string, sample student.TypingSample) error {
	_, err := t.repo.UpdateSession(ctx, id, func(sess *Session) error {
		if sess.Ended() {
			return ErrEnded
		}
		sess.TypingSessions = append(sess.TypingSessions, sample)
		return nil
	})
	return err
}

// End closes a session and adds its duration to the student's total time spent.
// Ending an ended session returns it unchanged.
func (t *Tracker) End(ctx context.Context, id string) (Session, error) {
	var ended bool
	now := core.NowFunc()

	sess, err := t.repo.UpdateSession(ctx, id, func(sess *Session) error {
		if sess.Ended() {
			return nil
		}
		if now.Before(sess.StartTime) {
			now = sess.StartTime
		}
		sess.EndTime = null.TimeFrom(now)
		sess.Duration = core.Millis(now.Sub(sess.StartTime))
		sess.Status = StatusEnded
		ended = true
		return nil
	})
	if err != nil || !ended {
		return sess, err
	}

	_, err = t.students.UpdateStudent(ctx, sess.StudentID, func(st *student.Student) error {
		st.TotalTimeSpent += sess.Duration
		st.LastActive = now
		return nil
	})
	switch {
	case errors.Cause(err) == student.ErrNotFound:
		t.logger.Warn(fmt.Sprintf("session %s ended for unknown student %s", sess.ID, sess.StudentID))
	case err != nil:
		return sess, errors.Wrap(err, "updating student time spent")
	}
	return sess, nil
}

func (t *Tracker) Get(ctx context.Context, id string) (Session, error) {
	return t.repo.GetSession(ctx, core.CleanString(id))
}

func (t *Tracker) QueryByStudent(ctx context.Context, studentID string) ([]Session, error) {
	return t.repo.QuerySessions(ctx, core.CleanString(studentID))
}
