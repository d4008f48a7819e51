package progress

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/login"
	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/student"
)

const (
	// an improvement above this many points notifies the guardian
	notifyImprovementThreshold = 5

	week           = 7 * 24 * time.Hour
	noTopSubject   = "None"
	unknownSubject = "Unknown"
)

type (
	// Logins is the part of the login recorder the progress service relies on.
	Logins interface {
		RecordActivity(ctx context.Context, studentID string, in login.ActivityInput) (login.Activity, error)
		Query(ctx context.Context, studentID string) ([]login.Record, error)
	}

	Service struct {
		students student.Repository
		logins   Logins
		sessions Sessions
		typing   Typing
		notifier login.Notifier
		logger   core.Logger
	}

	ProgressRequest struct {
		StudentID   string  `json:"studentId" validate:"required,notblank"`
		LessonID    string  `json:"lessonId" validate:"required,notblank"`
		Score       float64 `json:"score" validate:"min=0"`
		Subject     string  `json:"subject"`
		Improvement float64 `json:"improvement"`
	}

	AchievementRequest struct {
		StudentID   string  `json:"studentId" validate:"required,notblank"`
		Achievement string  `json:"achievement" validate:"required,notblank"`
		Subject     string  `json:"subject"`
		Score       float64 `json:"score"`
	}

	// WeeklyReport summarizes the last 7 days of a student.
	WeeklyReport struct {
		LessonsCompleted int           `json:"lessonsCompleted"`
		TotalTime        time.Duration `json:"-"`
		TotalTimeText    string        `json:"totalTime"`
		AverageScore     int           `json:"averageScore"`
		TopSubject       string        `json:"topSubject"`
		Improvement      int           `json:"improvement"`
	}
)

func (pr *ProgressRequest) Validate(validate *validator.Validate) error {
	pr.StudentID = core.CleanString(pr.StudentID)
	pr.LessonID = core.CleanString(pr.LessonID)
	pr.Subject = core.CleanString(pr.Subject)
	return validate.Struct(pr)
}

func (ar *AchievementRequest) Validate(validate *validator.Validate) error {
	ar.StudentID = core.CleanString(ar.StudentID)
	ar.Achievement = core.CleanString(ar.Achievement)
	ar.Subject = core.CleanString(ar.Subject)
	return validate.Struct(ar)
}

func NewService(
	students student.Repository,
	logins Logins,
	sessions Sessions,
	typing Typing,
	notifier login.Notifier,
	logger core.Logger,
) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(logins, "logins"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(typing, "typing"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(logger, "logger"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Service{
		students: students,
		logins:   logins,
		sessions: sessions,
		typing:   typing,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Record appends a completed lesson to the student's performance history.
// The lesson is also logged on the student's open login record, if any.
func (svc *Service) Record(ctx context.Context, req ProgressRequest) (student.ProgressEntry, error) {
	entry := student.ProgressEntry{
		LessonID:    req.LessonID,
		Score:       req.Score,
		Subject:     req.Subject,
		Improvement: req.Improvement,
		Timestamp:   core.NowFunc(),
	}
	if entry.Subject == "" {
		entry.Subject = unknownSubject
	}

	st, err := svc.students.UpdateStudent(ctx, req.StudentID, func(st *student.Student) error {
		st.PerformanceHistory = append(st.PerformanceHistory, entry)
		st.TotalLessonsCompleted++
		st.LastActive = entry.Timestamp
		return nil
	})
	if err != nil {
		return student.ProgressEntry{}, err
	}

	_, err = svc.logins.RecordActivity(ctx, st.ID, login.ActivityInput{
		Type: login.ActivityLessonCompleted,
		Data: map[string]interface{}{"lessonId": entry.LessonID, "score": entry.Score},
	})
	if err != nil && errors.Cause(err) != login.ErrNoActiveLogin {
		svc.logger.Warn("logging completed lesson on login record", err)
	}

	if entry.Improvement > notifyImprovementThreshold {
		svc.notifier.Go(st.Guardian(), notification.ProgressEvent{
			StudentName:   st.Name,
			ScoreIncrease: entry.Improvement,
			Subject:       entry.Subject,
			CurrentScore:  entry.Score,
			Date:          entry.Timestamp,
		})
	}
	return entry, nil
}

// Achievement notifies the guardian of a milestone reached by the student.
func (svc *Service) Achievement(ctx context.Context, req AchievementRequest) (student.Student, error) {
	st, err := svc.students.GetStudent(ctx, req.StudentID)
	if err != nil {
		return student.Student{}, err
	}
	svc.notifier.Go(st.Guardian(), notification.AchievementEvent{
		StudentName: st.Name,
		Achievement: req.Achievement,
		Subject:     req.Subject,
		Score:       req.Score,
		Date:        core.NowFunc(),
	})
	return st, nil
}

// WeeklyReport computes the report of the last 7 days and sends it to the guardian.
func (svc *Service) WeeklyReport(ctx context.Context, studentID string) (WeeklyReport, error) {
	st, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return WeeklyReport{}, err
	}
	logins, err := svc.logins.Query(ctx, st.ID)
	if err != nil {
		return WeeklyReport{}, errors.Wrap(err, "querying login records")
	}

	rep := BuildWeeklyReport(st, logins, core.NowFunc())
	svc.notifier.Go(st.Guardian(), notification.WeeklyReportEvent{
		StudentName:      st.Name,
		LessonsCompleted: rep.LessonsCompleted,
		TotalTime:        rep.TotalTime,
		AverageScore:     rep.AverageScore,
		TopSubject:       rep.TopSubject,
		Improvement:      rep.Improvement,
	})
	return rep, nil
}

// TestNotification sends a sample one hour session summary to the student's guardian.
func (svc *Service) TestNotification(ctx context.Context, studentID string) (student.Student, error) {
	st, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}
	now := core.NowFunc()
	svc.notifier.Go(st.Guardian(), notification.LogoutEvent{
		StudentName:     st.Name,
		LoginTime:       now.Add(-time.Hour),
		LogoutTime:      now,
		SessionDuration: time.Hour,
		LessonsAccessed: []string{"Math Basics", "Science Quiz"},
		PagesVisited:    []string{"/dashboard", "/lessons", "/progress"},
		ActivityCount:   2,
		DeviceInfo:      "Test Device",
		LogoutReason:    "Test logout",
	})
	return st, nil
}

// BuildWeeklyReport computes the weekly statistics as of now.
// Scores of the previous 7 days are the baseline of the improvement.
func BuildWeeklyReport(st student.Student, logins []login.Record, now time.Time) WeeklyReport {
	weekAgo := now.Add(-week)
	twoWeeksAgo := now.Add(-2 * week)

	var current, previous []student.ProgressEntry
	for _, p := range st.PerformanceHistory {
		switch {
		case p.Timestamp.After(weekAgo):
			current = append(current, p)
		case p.Timestamp.After(twoWeeksAgo):
			previous = append(previous, p)
		}
	}

	var total time.Duration
	for _, rec := range logins {
		if rec.LoginTime.After(weekAgo) {
			total += rec.Duration()
		}
	}

	rep := WeeklyReport{
		LessonsCompleted: len(current),
		TotalTime:        total,
		TotalTimeText:    notification.FormatDuration(total),
		AverageScore:     averageScore(current),
		TopSubject:       topSubject(current),
	}
	rep.Improvement = rep.AverageScore - averageScore(previous)
	return rep
}

func averageScore(entries []student.ProgressEntry) int {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		sum += e.Score
	}
	return int(math.Round(sum / float64(len(entries))))
}

// topSubject returns the subject with the best average score, alphabetical on ties.
func topSubject(entries []student.ProgressEntry) string {
	type agg struct {
		total float64
		count int
	}
	bySubject := make(map[string]*agg)
	for _, e := range entries {
		a, ok := bySubject[e.Subject]
		if !ok {
			a = &agg{}
			bySubject[e.Subject] = a
		}
		a.total += e.Score
		a.count++
	}
	if len(bySubject) == 0 {
		return noTopSubject
	}

	subjects := make([]string, 0, len(bySubject))
	for s := range bySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	best := subjects[0]
	for _, s := range subjects[1:] {
		a, b := bySubject[s], bySubject[best]
		if a.total/float64(a.count) > b.total/float64(b.count) {
			best = s
		}
	}
	return best
}
