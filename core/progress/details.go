package progress

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/session"
	"github.com/trezcool/studytrack/core/student"
)

const (
	recentScoresLimit = 10
	topPagesLimit     = 5
	activityDays      = 7
	dateLayout        = "2006-01-02"
)

type (
	// Sessions is the part of the session tracker the analytics rely on.
	Sessions interface {
		QueryByStudent(ctx context.Context, studentID string) ([]session.Session, error)
	}

	// Typing is the part of the student service the analytics rely on.
	Typing interface {
		TypingStats(ctx context.Context, studentID string) ([]student.TypingStat, error)
	}

	// StudentDetails is the analytics view of one student.
	StudentDetails struct {
		BasicInfo     BasicInfo        `json:"basicInfo"`
		LearningStats LearningStats    `json:"learningStats"`
		TypingStats   TypingSummary    `json:"typingStats"`
		Activity      Activity         `json:"activity"`
		Sessions      []SessionSummary `json:"sessions"`
	}

	BasicInfo struct {
		ID            string      `json:"id"`
		Name          string      `json:"name"`
		Email         string      `json:"email"`
		Age           null.Int    `json:"age"`
		Grade         null.String `json:"grade"`
		Interests     []string    `json:"interests"`
		LearningGoals []string    `json:"learningGoals"`
		RegisteredAt  time.Time   `json:"registeredAt"`
		LastActive    time.Time   `json:"lastActive"`
	}

	// LearningStats durations are in milliseconds.
	LearningStats struct {
		TotalSessions          int   `json:"totalSessions"`
		TotalTimeSpent         int64 `json:"totalTimeSpent"`
		AverageSessionDuration int64 `json:"averageSessionDuration"`
		TotalLessonsAccessed   int   `json:"totalLessonsAccessed"`
		CompletedLessons       int   `json:"completedLessons"`
		CompletionRate         int   `json:"completionRate"` // percent
	}

	TypingSummary struct {
		AverageWPM          int                    `json:"averageWpm"`
		AverageAccuracy     int                    `json:"averageAccuracy"`
		TotalTypingSessions int                    `json:"totalTypingSessions"`
		Improvement         int                    `json:"improvement"`
		RecentScores        []student.TypingSample `json:"recentScores"`
	}

	Activity struct {
		WeeklyActivity     []DayActivity                 `json:"weeklyActivity"`
		SubjectPerformance map[string]SubjectPerformance `json:"subjectPerformance"`
		MostVisitedPages   []PageVisits                  `json:"mostVisitedPages"`
		LearningStreak     int                           `json:"learningStreak"` // days
	}

	DayActivity struct {
		Day             string `json:"day"`
		Date            string `json:"date"`
		Sessions        int    `json:"sessions"`
		TimeSpent       int64  `json:"timeSpent"`
		LessonsAccessed int    `json:"lessonsAccessed"`
	}

	SubjectPerformance struct {
		Lessons      int `json:"lessons"`
		AverageScore int `json:"averageScore"`
	}

	PageVisits struct {
		Page  string `json:"page"`
		Count int    `json:"count"`
	}

	SessionSummary struct {
		ID              string         `json:"id"`
		StartTime       time.Time      `json:"startTime"`
		EndTime         null.Time      `json:"endTime"`
		Duration        int64          `json:"duration"`
		Status          session.Status `json:"status"`
		PagesVisited    int            `json:"pagesVisited"`
		LessonsAccessed int            `json:"lessonsAccessed"`
	}
)

// Details gathers the learning, typing and activity analytics of a student.
func (svc *Service) Details(ctx context.Context, studentID string) (StudentDetails, error) {
	st, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return StudentDetails{}, err
	}
	sessions, err := svc.sessions.QueryByStudent(ctx, st.ID)
	if err != nil {
		return StudentDetails{}, errors.Wrap(err, "querying sessions")
	}
	stats, err := svc.typing.TypingStats(ctx, st.ID)
	if err != nil {
		return StudentDetails{}, errors.Wrap(err, "querying typing stats")
	}
	return BuildStudentDetails(st, sessions, stats, core.NowFunc()), nil
}

// BuildStudentDetails computes the analytics as of now. Calendar days are those of now's location.
func BuildStudentDetails(st student.Student, sessions []session.Session, stats []student.TypingStat, now time.Time) StudentDetails {
	st = st.Public()
	return StudentDetails{
		BasicInfo: BasicInfo{
			ID:            st.ID,
			Name:          st.Name,
			Email:         st.Email,
			Age:           st.Age,
			Grade:         st.Grade,
			Interests:     nonNilStrings(st.Interests),
			LearningGoals: nonNilStrings(st.LearningGoals),
			RegisteredAt:  st.RegisteredAt,
			LastActive:    st.LastActive,
		},
		LearningStats: learningStats(st, sessions),
		TypingStats:   typingSummary(stats),
		Activity: Activity{
			WeeklyActivity:     weeklyActivity(sessions, now),
			SubjectPerformance: subjectPerformance(st.PerformanceHistory),
			MostVisitedPages:   mostVisitedPages(sessions),
			LearningStreak:     learningStreak(sessions, now),
		},
		Sessions: sessionSummaries(sessions),
	}
}

// learningStats counts a lesson as completed when it was both accessed in a session and
// recorded in the performance history.
func learningStats(st student.Student, sessions []session.Session) LearningStats {
	ls := LearningStats{TotalSessions: len(sessions)}

	accessed := make(map[string]struct{})
	for _, s := range sessions {
		ls.TotalTimeSpent += s.Duration
		for _, l := range s.LessonsAccessed {
			accessed[l] = struct{}{}
		}
	}
	if ls.TotalSessions > 0 {
		ls.AverageSessionDuration = int64(math.Round(float64(ls.TotalTimeSpent) / float64(ls.TotalSessions)))
	}
	ls.TotalLessonsAccessed = len(accessed)

	completed := make(map[string]struct{})
	for _, p := range st.PerformanceHistory {
		if _, ok := accessed[p.LessonID]; ok {
			completed[p.LessonID] = struct{}{}
		}
	}
	ls.CompletedLessons = len(completed)
	if ls.TotalLessonsAccessed > 0 {
		ls.CompletionRate = int(math.Round(float64(ls.CompletedLessons) / float64(ls.TotalLessonsAccessed) * 100))
	}
	return ls
}

func typingSummary(stats []student.TypingStat) TypingSummary {
	sorted := append([]student.TypingStat(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	ts := TypingSummary{
		TotalTypingSessions: len(sorted),
		RecentScores:        []student.TypingSample{},
	}
	if len(sorted) == 0 {
		return ts
	}

	var accuracy float64
	for _, s := range sorted {
		accuracy += s.Accuracy
	}
	ts.AverageWPM = int(math.Round(student.AverageWPM(sorted)))
	ts.AverageAccuracy = int(math.Round(accuracy / float64(len(sorted))))

	// second half average over first half average
	if len(sorted) >= 2 {
		half := len(sorted) / 2
		ts.Improvement = int(math.Round(student.AverageWPM(sorted[half:]) - student.AverageWPM(sorted[:half])))
	}

	recent := sorted
	if len(recent) > recentScoresLimit {
		recent = recent[len(recent)-recentScoresLimit:]
	}
	for _, s := range recent {
		ts.RecentScores = append(ts.RecentScores, student.TypingSample{WPM: s.WPM, Accuracy: s.Accuracy, Timestamp: s.Timestamp})
	}
	return ts
}

// weeklyActivity returns one entry per calendar day, oldest first, ending today.
func weeklyActivity(sessions []session.Session, now time.Time) []DayActivity {
	days := make([]DayActivity, activityDays)
	lessons := make([]map[string]struct{}, activityDays)
	index := make(map[string]int, activityDays)
	for i := range days {
		d := now.AddDate(0, 0, i-activityDays+1)
		days[i] = DayActivity{Day: d.Format("Mon"), Date: d.Format(dateLayout)}
		lessons[i] = make(map[string]struct{})
		index[days[i].Date] = i
	}

	for _, s := range sessions {
		i, ok := index[s.StartTime.In(now.Location()).Format(dateLayout)]
		if !ok {
			continue
		}
		days[i].Sessions++
		days[i].TimeSpent += s.Duration
		for _, l := range s.LessonsAccessed {
			lessons[i][l] = struct{}{}
		}
	}
	for i := range days {
		days[i].LessonsAccessed = len(lessons[i])
	}
	return days
}

func subjectPerformance(history []student.ProgressEntry) map[string]SubjectPerformance {
	type agg struct {
		total float64
		count int
	}
	bySubject := make(map[string]*agg)
	for _, p := range history {
		a, ok := bySubject[p.Subject]
		if !ok {
			a = &agg{}
			bySubject[p.Subject] = a
		}
		a.total += p.Score
		a.count++
	}

	perf := make(map[string]SubjectPerformance, len(bySubject))
	for subject, a := range bySubject {
		perf[subject] = SubjectPerformance{
			Lessons:      a.count,
			AverageScore: int(math.Round(a.total / float64(a.count))),
		}
	}
	return perf
}

// mostVisitedPages ranks pages by visits, alphabetical on ties.
func mostVisitedPages(sessions []session.Session) []PageVisits {
	counts := make(map[string]int)
	for _, s := range sessions {
		for _, p := range s.PagesVisited {
			counts[p]++
		}
	}

	pages := make([]PageVisits, 0, len(counts))
	for p, c := range counts {
		pages = append(pages, PageVisits{Page: p, Count: c})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Count != pages[j].Count {
			return pages[i].Count > pages[j].Count
		}
		return pages[i].Page < pages[j].Page
	})
	if len(pages) > topPagesLimit {
		pages = pages[:topPagesLimit]
	}
	return pages
}

// learningStreak counts consecutive calendar days with a session, ending today.
func learningStreak(sessions []session.Session, now time.Time) int {
	active := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		active[s.StartTime.In(now.Location()).Format(dateLayout)] = struct{}{}
	}

	streak := 0
	for d := now; ; d = d.AddDate(0, 0, -1) {
		if _, ok := active[d.Format(dateLayout)]; !ok {
			return streak
		}
		streak++
	}
}

func sessionSummaries(sessions []session.Session) []SessionSummary {
	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:              s.ID,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			Duration:        s.Duration,
			Status:          s.Status,
			PagesVisited:    len(s.PagesVisited),
			LessonsAccessed: len(s.LessonsAccessed),
		})
	}
	return summaries
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
