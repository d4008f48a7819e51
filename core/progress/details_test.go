package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core/progress"
	"github.com/trezcool/studytrack/core/session"
	"github.com/trezcool/studytrack/core/student"
	"github.com/trezcool/studytrack/tests"
)

func TestService_Details(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := testutil.FreezeTime(t, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	st := testutil.CreateStudent(t, f.students, "Ada", "ada@test.com", "parent@test.com", "")

	sess, err := f.tracker.Start(ctx, st.ID)
	require.NoError(t, err)
	_, err = f.tracker.Track(ctx, sess.ID, session.TrackInput{Page: "/lessons", LessonID: "math-1"})
	require.NoError(t, err)
	_, err = f.tracker.Track(ctx, sess.ID, session.TrackInput{Page: "/lessons", LessonID: "math-2"})
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, progress.ProgressRequest{StudentID: st.ID, LessonID: "math-1", Score: 90, Subject: "Math"})
	require.NoError(t, err)
	for _, wpm := range []float64{30, 50} {
		_, err = f.studentSvc.RecordTyping(ctx, student.NewTypingStat{StudentID: st.ID, SessionID: sess.ID, WPM: wpm, Accuracy: 90})
		require.NoError(t, err)
		*now = now.Add(10 * time.Minute)
	}
	_, err = f.tracker.End(ctx, sess.ID)
	require.NoError(t, err)

	got, err := f.svc.Details(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.BasicInfo.ID)
	assert.Equal(t, progress.LearningStats{
		TotalSessions:          1,
		TotalTimeSpent:         (20 * time.Minute).Milliseconds(),
		AverageSessionDuration: (20 * time.Minute).Milliseconds(),
		TotalLessonsAccessed:   2,
		CompletedLessons:       1,
		CompletionRate:         50,
	}, got.LearningStats)
	assert.Equal(t, 40, got.TypingStats.AverageWPM)
	assert.Equal(t, 20, got.TypingStats.Improvement)
	assert.Len(t, got.TypingStats.RecentScores, 2)
	assert.Equal(t, []progress.PageVisits{{Page: "/lessons", Count: 1}}, got.Activity.MostVisitedPages)
	assert.Equal(t, 1, got.Activity.LearningStreak)
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, session.StatusEnded, got.Sessions[0].Status)

	_, err = f.svc.Details(ctx, "nope")
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestBuildStudentDetails(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) // a Friday
	day := 24 * time.Hour
	sess := func(ago time.Duration, dur time.Duration, pages, lessons []string) session.Session {
		start := now.Add(-ago)
		return session.Session{
			StartTime:       start,
			EndTime:         null.TimeFrom(start.Add(dur)),
			Duration:        dur.Milliseconds(),
			PagesVisited:    pages,
			LessonsAccessed: lessons,
			Status:          session.StatusEnded,
		}
	}
	typing := func(ago time.Duration, wpm, accuracy float64) student.TypingStat {
		return student.TypingStat{WPM: wpm, Accuracy: accuracy, Timestamp: now.Add(-ago)}
	}

	t.Run("empty", func(t *testing.T) {
		got := progress.BuildStudentDetails(student.Student{ID: "s1", PasswordHash: "secret"}, nil, nil, now)
		assert.Equal(t, progress.LearningStats{}, got.LearningStats)
		assert.Equal(t, progress.TypingSummary{RecentScores: []student.TypingSample{}}, got.TypingStats)
		assert.Empty(t, got.Activity.MostVisitedPages)
		assert.Zero(t, got.Activity.LearningStreak)
		assert.Empty(t, got.Sessions)
		assert.NotNil(t, got.Sessions)
		assert.Equal(t, []string{}, got.BasicInfo.Interests)

		require.Len(t, got.Activity.WeeklyActivity, 7)
		assert.Equal(t, progress.DayActivity{Day: "Sat", Date: "2024-03-09"}, got.Activity.WeeklyActivity[0])
		assert.Equal(t, progress.DayActivity{Day: "Fri", Date: "2024-03-15"}, got.Activity.WeeklyActivity[6])
	})

	t.Run("learning and activity", func(t *testing.T) {
		st := student.Student{PerformanceHistory: []student.ProgressEntry{
			{LessonID: "math-1", Subject: "Math", Score: 80},
			{LessonID: "math-2", Subject: "Math", Score: 91},
			{LessonID: "sci-9", Subject: "Science", Score: 70},
		}}
		sessions := []session.Session{
			sess(2*time.Hour, 30*time.Minute, []string{"/a", "/b"}, []string{"math-1", "math-2"}),
			sess(1*day, 60*time.Minute, []string{"/b", "/c"}, []string{"math-1", "art-1"}),
			sess(2*day, 15*time.Minute, []string{"/b", "/d", "/e", "/f", "/g"}, nil),
			sess(10*day, 5*time.Minute, nil, []string{"history-1"}),
		}

		got := progress.BuildStudentDetails(st, sessions, nil, now)
		assert.Equal(t, progress.LearningStats{
			TotalSessions:          4,
			TotalTimeSpent:         (110 * time.Minute).Milliseconds(),
			AverageSessionDuration: (27*time.Minute + 30*time.Second).Milliseconds(),
			TotalLessonsAccessed:   4,
			CompletedLessons:       2,
			CompletionRate:         50,
		}, got.LearningStats)

		assert.Equal(t, map[string]progress.SubjectPerformance{
			"Math":    {Lessons: 2, AverageScore: 86},
			"Science": {Lessons: 1, AverageScore: 70},
		}, got.Activity.SubjectPerformance)

		assert.Equal(t, []progress.PageVisits{
			{Page: "/b", Count: 3},
			{Page: "/a", Count: 1},
			{Page: "/c", Count: 1},
			{Page: "/d", Count: 1},
			{Page: "/e", Count: 1},
		}, got.Activity.MostVisitedPages)

		assert.Equal(t, 3, got.Activity.LearningStreak)
		week := got.Activity.WeeklyActivity
		assert.Equal(t, progress.DayActivity{Day: "Fri", Date: "2024-03-15", Sessions: 1, TimeSpent: (30 * time.Minute).Milliseconds(), LessonsAccessed: 2}, week[6])
		assert.Equal(t, 1, week[5].Sessions)
		assert.Equal(t, 1, week[4].Sessions)
		assert.Zero(t, week[0].Sessions, "sessions older than a week are left out")

		require.Len(t, got.Sessions, 4)
		assert.Equal(t, 5, got.Sessions[2].PagesVisited)
		assert.Equal(t, 2, got.Sessions[0].LessonsAccessed)
	})

	t.Run("streak broken today", func(t *testing.T) {
		sessions := []session.Session{sess(1*day, time.Minute, nil, nil), sess(2*day, time.Minute, nil, nil)}
		got := progress.BuildStudentDetails(student.Student{}, sessions, nil, now)
		assert.Zero(t, got.Activity.LearningStreak)
	})

	t.Run("typing", func(t *testing.T) {
		var stats []student.TypingStat
		// recorded out of order: the improvement follows timestamps
		for i := 1; i <= 12; i++ {
			stats = append(stats, typing(time.Duration(i)*time.Hour, float64(100-i*5), 90))
		}
		stats[0].Accuracy = 78

		got := progress.BuildStudentDetails(student.Student{}, nil, stats, now).TypingStats
		assert.Equal(t, 12, got.TotalTypingSessions)
		assert.Equal(t, 68, got.AverageWPM) // mean of 40..95 is 67.5
		assert.Equal(t, 89, got.AverageAccuracy)
		assert.Equal(t, 30, got.Improvement)
		require.Len(t, got.RecentScores, 10)
		assert.Equal(t, 50.0, got.RecentScores[0].WPM)
		assert.Equal(t, 95.0, got.RecentScores[9].WPM)
	})
}
