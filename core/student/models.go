package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/notification"
)

type (
	Student struct {
		ID                    string          `json:"id"`
		Name                  string          `json:"name"`
		Email                 string          `json:"email"`
		Username              string          `json:"username,omitempty"`
		PasswordHash          string          `json:"passwordHash,omitempty"`
		Age                   null.Int        `json:"age"`
		Grade                 null.String     `json:"grade"`
		Interests             []string        `json:"interests"`
		LearningGoals         []string        `json:"learningGoals"`
		ContactInfo           ContactInfo     `json:"contactInfo"`
		RegisteredAt          time.Time       `json:"registeredAt"`
		LastActive            time.Time       `json:"lastActive"`
		TotalTimeSpent        int64           `json:"totalTimeSpent"` // ms
		TotalLessonsCompleted int             `json:"totalLessonsCompleted"`
		AverageTypingSpeed    float64         `json:"averageTypingSpeed"`
		TotalSessions         int             `json:"totalSessions"`
		PerformanceHistory    []ProgressEntry `json:"performanceHistory"`
	}

	// ContactInfo holds the guardian contact of a student.
	ContactInfo struct {
		ParentName       string `json:"parentName"`
		ParentEmail      string `json:"parentEmail"`
		ParentPhone      string `json:"parentPhone"`
		EmergencyContact string `json:"emergencyContact"`
		Address          string `json:"address"`
	}

	ProgressEntry struct {
		LessonID    string    `json:"lessonId"`
		Score       float64   `json:"score"`
		Subject     string    `json:"subject"`
		Improvement float64   `json:"improvement"`
		Timestamp   time.Time `json:"timestamp"`
	}

	// TypingStat is one typing test result.
	TypingStat struct {
		ID        string      `json:"id"`
		StudentID string      `json:"studentId"`
		SessionID null.String `json:"sessionId"`
		WPM       float64     `json:"wpm"`
		Accuracy  float64     `json:"accuracy"`
		Text      string      `json:"text"`
		TimeSpent int64       `json:"timeSpent"`
		Timestamp time.Time   `json:"timestamp"`
	}

	// TypingSample is the short form of a typing test kept on sessions and login records.
	TypingSample struct {
		WPM       float64   `json:"wpm"`
		Accuracy  float64   `json:"accuracy"`
		Timestamp time.Time `json:"timestamp"`
	}
)

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(pwd))
}

// Public returns a copy of the student safe to send to clients.
func (s Student) Public() Student {
	s.PasswordHash = ""
	return s
}

// Guardian returns the notification recipient for the student's guardian.
func (s Student) Guardian() notification.Recipient {
	return notification.Recipient{
		StudentID:    s.ID,
		StudentName:  s.Name,
		GuardianName: s.ContactInfo.ParentName,
		Phone:        core.CleanString(s.ContactInfo.ParentPhone),
		Email:        core.CleanString(s.ContactInfo.ParentEmail),
	}
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	Name             string   `json:"name" validate:"required,notblank"`
	Email            string   `json:"email" validate:"required,email"`
	Username         string   `json:"username" validate:"omitempty,min=3,alphanum"`
	Password         string   `json:"password"`
	Age              *int     `json:"age" validate:"omitempty,min=3,max=120"`
	Grade            string   `json:"grade"`
	Interests        []string `json:"interests"`
	LearningGoals    []string `json:"learningGoals"`
	ParentName       string   `json:"parentName"`
	ParentEmail      string   `json:"parentEmail" validate:"omitempty,email"`
	ParentPhone      string   `json:"parentPhone" validate:"omitempty,min=7,max=20"`
	EmergencyContact string   `json:"emergencyContact"`
	Address          string   `json:"address"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	return validate.Struct(ns)
}

// NewTypingStat is a typing test result posted by a client.
type NewTypingStat struct {
	StudentID string  `json:"studentId" validate:"required"`
	SessionID string  `json:"sessionId"`
	WPM       float64 `json:"wpm" validate:"required,gt=0"`
	Accuracy  float64 `json:"accuracy" validate:"min=0,max=100"`
	Text      string  `json:"text"`
	TimeSpent int64   `json:"timeSpent" validate:"min=0"`
}

func (nt *NewTypingStat) Validate(validate *validator.Validate) error {
	nt.StudentID = core.CleanString(nt.StudentID)
	nt.SessionID = core.CleanString(nt.SessionID)
	return validate.Struct(nt)
}
