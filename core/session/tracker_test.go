package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studytrack/core/session"
	"github.com/trezcool/studytrack/core/student"
	inmemdb "github.com/trezcool/studytrack/storage/inmem"
	"github.com/trezcool/studytrack/storage/repos"
	"github.com/trezcool/studytrack/tests"
)

func setup(t *testing.T) (*session.Tracker, student.Repository) {
	store := inmemdb.NewStore()
	students := repos.NewStudentRepository(store)
	tracker, err := session.NewTracker(repos.NewSessionRepository(store), students, testutil.DiscardLogger)
	require.NoError(t, err)
	return tracker, students
}

func TestTracker_Lifecycle(t *testing.T) {
	now := testutil.FreezeTime(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	tracker, students := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, students, "Ada", "ada@test.com", "", "")

	sess, err := tracker.Start(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, sess.Status)
	assert.False(t, sess.EndTime.Valid)

	tracks := []session.TrackInput{
		{Page: "/dashboard"},
		{Page: "/lessons", LessonID: "math-1"},
		{Page: "/dashboard", LessonID: "math-1"},
		{LessonID: "sci-2"},
	}
	for _, in := range tracks {
		_, err = tracker.Track(ctx, sess.ID, in)
		require.NoError(t, err)
	}

	*now = now.Add(90 * time.Second)
	ended, err := tracker.End(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEnded, ended.Status)
	assert.Equal(t, int64(90000), ended.Duration)
	assert.True(t, ended.EndTime.Valid)
	assert.Equal(t, []string{"/dashboard", "/lessons"}, ended.PagesVisited)
	assert.Equal(t, []string{"math-1", "sci-2"}, ended.LessonsAccessed)

	got, err := students.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), got.TotalTimeSpent)

	// ending twice does not double count
	*now = now.Add(time.Hour)
	again, err := tracker.End(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, ended.Duration, again.Duration)
	got, err = students.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), got.TotalTimeSpent)

	_, err = tracker.Track(ctx, sess.ID, session.TrackInput{Page: "/late"})
	assert.Equal(t, session.ErrEnded, errors.Cause(err))
	err = tracker.AddTyping(ctx, sess.ID, student.TypingSample{WPM: 40})
	assert.Equal(t, session.ErrEnded, errors.Cause(err))

	list, err := tracker.QueryByStudent(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sess.ID, list[0].ID)
}

func TestTracker_Errors(t *testing.T) {
	tracker, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{name: "start unknown student", run: func() error { _, err := tracker.Start(ctx, "nope"); return err }, wantErr: student.ErrNotFound},
		{name: "track unknown", run: func() error { _, err := tracker.Track(ctx, "nope", session.TrackInput{Page: "/"}); return err }, wantErr: session.ErrNotFound},
		{name: "end unknown", run: func() error { _, err := tracker.End(ctx, "nope"); return err }, wantErr: session.ErrNotFound},
		{name: "get unknown", run: func() error { _, err := tracker.Get(ctx, "nope"); return err }, wantErr: session.ErrNotFound},
		{name: "typing unknown", run: func() error { return tracker.AddTyping(ctx, "nope", student.TypingSample{}) }, wantErr: session.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantErr, errors.Cause(tc.run()))
		})
	}
}

func TestTracker_ConcurrentTrack(t *testing.T) {
	tracker, students := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, students, "Ada", "ada@test.com", "", "")
	sess, err := tracker.Start(ctx, st.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tracker.Track(ctx, sess.ID, session.TrackInput{Page: fmt.Sprintf("/page-%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := tracker.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.PagesVisited, 20)
}

func TestTracker_ConcurrentEnd(t *testing.T) {
	now := testutil.FreezeTime(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	tracker, students := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, students, "Ada", "ada@test.com", "", "")
	sess, err := tracker.Start(ctx, st.ID)
	require.NoError(t, err)
	*now = now.Add(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.End(ctx, sess.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := students.GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), got.TotalTimeSpent)
}

func TestTracker_AddTyping(t *testing.T) {
	tracker, students := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, students, "Ada", "ada@test.com", "", "")
	sess, err := tracker.Start(ctx, st.ID)
	require.NoError(t, err)

	require.NoError(t, tracker.AddTyping(ctx, sess.ID, student.TypingSample{WPM: 40, Accuracy: 90}))
	require.NoError(t, tracker.AddTyping(ctx, sess.ID, student.TypingSample{WPM: 40, Accuracy: 90}))

	got, err := tracker.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.TypingSessions, 2)
}
