package notification

import "time"

// EventKind selects the message template.
type EventKind string

const (
	EventLogin        EventKind = "login"
	EventLogout       EventKind = "logout"
	EventProgress     EventKind = "progress"
	EventAchievement  EventKind = "achievement"
	EventWeeklyReport EventKind = "weekly_report"
)

var subjects = map[EventKind]string{
	EventLogin:        "Student Login Notification",
	EventLogout:       "Student Session Summary",
	EventProgress:     "Student Progress Update",
	EventAchievement:  "Student Achievement Notification",
	EventWeeklyReport: "Weekly Progress Report",
}

// Event is the data interpolated into a message template.
type Event interface {
	Kind() EventKind
}

type LoginEvent struct {
	StudentName string
	LoginTime   time.Time
	DeviceInfo  string
	Location    string
}

type LogoutEvent struct {
	StudentName     string
	LoginTime       time.Time
	LogoutTime      time.Time
	SessionDuration time.Duration
	LessonsAccessed []string
	PagesVisited    []string
	ActivityCount   int
	DeviceInfo      string
	LogoutReason    string
}

type ProgressEvent struct {
	StudentName   string
	ScoreIncrease float64
	Subject       string
	CurrentScore  float64
	Date          time.Time
}

type AchievementEvent struct {
	StudentName string
	Achievement string
	Subject     string
	Score       float64
	Date        time.Time
}

type WeeklyReportEvent struct {
	StudentName      string
	LessonsCompleted int
	TotalTime        time.Duration
	AverageScore     int
	TopSubject       string
	Improvement      int
}

func (LoginEvent) Kind() EventKind        { return EventLogin }
func (LogoutEvent) Kind() EventKind       { return EventLogout }
func (ProgressEvent) Kind() EventKind     { return EventProgress }
func (AchievementEvent) Kind() EventKind  { return EventAchievement }
func (WeeklyReportEvent) Kind() EventKind { return EventWeeklyReport }
