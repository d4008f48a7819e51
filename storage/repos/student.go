package repos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/student"
)

type studentRepository struct {
	students collection[student.Student]
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(store core.Store) student.Repository {
	return &studentRepository{students: collection[student.Student]{store: store, name: core.CollStudents}}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	err := repo.students.insert(ctx, st, func(existing []student.Student) error {
		for _, other := range existing {
			if other.Email == st.Email {
				return student.ErrEmailExists
			}
			if st.Username != "" && other.Username == st.Username {
				return student.ErrUsernameExists
			}
		}
		return nil
	})
	if err != nil {
		return student.Student{}, err
	}
	return st, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	st, err := repo.students.find(ctx, func(s student.Student) bool { return s.ID == id })
	if errors.Cause(err) == errNoMatch {
		return student.Student{}, student.ErrNotFound
	}
	return st, err
}

func (repo *studentRepository) QueryStudents(ctx context.Context) ([]student.Student, error) {
	return repo.students.all(ctx)
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, id string, fn func(*student.Student) error) (student.Student, error) {
	st, err := repo.students.update(ctx, func(s student.Student) bool { return s.ID == id }, fn)
	if errors.Cause(err) == errNoMatch {
		return student.Student{}, student.ErrNotFound
	}
	return st, err
}

type typingRepository struct {
	stats collection[student.TypingStat]
}

var _ student.TypingRepository = (*typingRepository)(nil)

func NewTypingRepository(store core.Store) student.TypingRepository {
	return &typingRepository{stats: collection[student.TypingStat]{store: store, name: core.CollTypingStats}}
}

func (repo *typingRepository) AppendTypingStat(ctx context.Context, stat student.TypingStat) error {
	return repo.stats.insert(ctx, stat, nil)
}

func (repo *typingRepository) QueryTypingStats(ctx context.Context, studentID string) ([]student.TypingStat, error) {
	return repo.stats.filter(ctx, func(ts student.TypingStat) bool {
		return studentID == "" || ts.StudentID == studentID
	})
}
