package repos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/login"
)

type loginRepository struct {
	logins collection[login.Record]
}

var _ login.Repository = (*loginRepository)(nil)

func NewLoginRepository(store core.Store) login.Repository {
	return &loginRepository{logins: collection[login.Record]{store: store, name: core.CollLoginLogs}}
}

func (repo *loginRepository) CreateLogin(ctx context.Context, rec login.Record) error {
	return repo.logins.insert(ctx, rec, nil)
}

func (repo *loginRepository) UpdateActiveLogin(ctx context.Context, studentID, loginID string, fn func(*login.Record) error) (login.Record, error) {
	match := func(rec login.Record) bool {
		return rec.StudentID == studentID && rec.Active() && (loginID == "" || rec.ID == loginID)
	}
	rec, err := repo.logins.update(ctx, match, fn)
	if errors.Cause(err) == errNoMatch {
		return login.Record{}, login.ErrNoActiveLogin
	}
	return rec, err
}

func (repo *loginRepository) QueryLogins(ctx context.Context, studentID string) ([]login.Record, error) {
	return repo.logins.filter(ctx, func(rec login.Record) bool {
		return studentID == "" || rec.StudentID == studentID
	})
}
