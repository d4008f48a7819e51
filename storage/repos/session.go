package repos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/session"
)

type sessionRepository struct {
	sessions collection[session.Session]
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(store core.Store) session.Repository {
	return &sessionRepository{sessions: collection[session.Session]{store: store, name: core.CollSessions}}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) error {
	return repo.sessions.insert(ctx, sess, nil)
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	sess, err := repo.sessions.find(ctx, func(s session.Session) bool { return s.ID == id })
	if errors.Cause(err) == errNoMatch {
		return session.Session{}, session.ErrNotFound
	}
	return sess, err
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, studentID string) ([]session.Session, error) {
	return repo.sessions.filter(ctx, func(s session.Session) bool {
		return studentID == "" || s.StudentID == studentID
	})
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, id string, fn func(*session.Session) error) (session.Session, error) {
	sess, err := repo.sessions.update(ctx, func(s session.Session) bool { return s.ID == id }, fn)
	if errors.Cause(err) == errNoMatch {
		return session.Session{}, session.ErrNotFound
	}
	return sess, err
}
