package student_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/student"
	inmemdb "github.com/trezcool/studytrack/storage/inmem"
	"github.com/trezcool/studytrack/storage/repos"
	"github.com/trezcool/studytrack/tests"
)

type fakeSessions struct {
	mu      sync.Mutex
	samples map[string][]student.TypingSample
	err     error
}

func (f *fakeSessions) AddTyping(_ context.Context, id string, sample student.TypingSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.samples == nil {
		f.samples = make(map[string][]student.TypingSample)
	}
	f.samples[id] = append(f.samples[id], sample)
	return nil
}

type fixture struct {
	repo     student.Repository
	typing   student.TypingRepository
	sessions *fakeSessions
	svc      *student.Service
}

func setup(t *testing.T) fixture {
	store := inmemdb.NewStore()
	f := fixture{
		repo:     repos.NewStudentRepository(store),
		typing:   repos.NewTypingRepository(store),
		sessions: &fakeSessions{},
	}
	svc, err := student.NewService(f.repo, f.typing, f.sessions, testutil.DiscardLogger)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func intPtr(i int) *int { return &i }

func TestService_Register(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	st, err := f.svc.Register(ctx, student.NewStudent{
		Name:          "Ada Lovelace",
		Email:         "ada@test.com",
		Username:      "ada",
		Password:      "Xk9#mQ2$vLp7",
		Age:           intPtr(12),
		Grade:         "7",
		ParentName:    "Anne",
		ParentEmail:   "anne@test.com",
		ParentPhone:   "+15550001111",
		LearningGoals: []string{"typing"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, int64(0), st.TotalTimeSpent)
	assert.Equal(t, 0, st.TotalSessions)
	assert.Equal(t, 12, st.Age.Int)
	assert.Equal(t, "7", st.Grade.String)
	assert.Equal(t, []string{}, st.Interests)
	assert.Equal(t, []string{"typing"}, st.LearningGoals)
	assert.NoError(t, st.CheckPassword("Xk9#mQ2$vLp7"))
	assert.Empty(t, st.Public().PasswordHash)

	rcpt := st.Guardian()
	assert.Equal(t, "anne@test.com", rcpt.Email)
	assert.Equal(t, "+15550001111", rcpt.Phone)
	assert.Equal(t, "Anne", rcpt.GuardianName)

	got, err := f.svc.Get(ctx, " "+st.ID+" ")
	require.NoError(t, err)
	assert.Equal(t, st.Email, got.Email)

	tests := []struct {
		name      string
		ns        student.NewStudent
		wantField string
	}{
		{name: "duplicate email", ns: student.NewStudent{Name: "Other", Email: "ada@test.com"}, wantField: "email"},
		{name: "duplicate username", ns: student.NewStudent{Name: "Other", Email: "other@test.com", Username: "ada"}, wantField: "username"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.ns)
			require.Error(t, err)
			verr, ok := errors.Cause(err).(*core.ValidationError)
			require.True(t, ok, "want *core.ValidationError, got %T", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tc.wantField, verr.Fields[0].Field)
		})
	}

	all, err := f.svc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_GetUnknown(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Get(context.Background(), "nope")
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestNewStudent_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.RegisterValidators(validate, translator)

	tests := []struct {
		name       string
		ns         student.NewStudent
		wantFields map[string]string
	}{
		{
			name: "valid",
			ns:   student.NewStudent{Name: " Ada ", Email: " ADA@test.com "},
		},
		{
			name:       "blank name",
			ns:         student.NewStudent{Name: "   ", Email: "ada@test.com"},
			wantFields: map[string]string{"name": "this field is required"},
		},
		{
			name:       "bad emails",
			ns:         student.NewStudent{Name: "Ada", Email: "ada", ParentEmail: "parent"},
			wantFields: map[string]string{"email": "email must be a valid email address", "parentEmail": "parentEmail must be a valid email address"},
		},
		{
			name:       "short password",
			ns:         student.NewStudent{Name: "Ada", Email: "ada@test.com", Password: "abc"},
			wantFields: map[string]string{"password": "password must contain at least 8 characters"},
		},
		{
			name:       "password with spaces",
			ns:         student.NewStudent{Name: "Ada", Email: "ada@test.com", Password: "Xk9#m Q2$vLp7"},
			wantFields: map[string]string{"password": "password must not contain whitespace"},
		},
		{
			name:       "password similar to name",
			ns:         student.NewStudent{Name: "Ada Lovelace", Email: "ada@test.com", Password: "AdaLovelace1"},
			wantFields: map[string]string{"password": "password cannot be similar to student attributes"},
		},
		{
			name:       "age out of range",
			ns:         student.NewStudent{Name: "Ada", Email: "ada@test.com", Age: intPtr(1)},
			wantFields: map[string]string{"age": "age must be 3 or greater"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ns.Validate(validate)
			if tc.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tc.wantFields, got)
		})
	}

	ns := student.NewStudent{Name: " Ada ", Email: " ADA@test.com "}
	require.NoError(t, ns.Validate(validate))
	assert.Equal(t, "Ada", ns.Name)
	assert.Equal(t, "ada@test.com", ns.Email)
}

func TestService_RecordTyping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, f.repo, "Ada", "ada@test.com", "", "")

	for _, wpm := range []float64{40, 50, 60} {
		_, err := f.svc.RecordTyping(ctx, student.NewTypingStat{StudentID: st.ID, WPM: wpm, Accuracy: 95})
		require.NoError(t, err)
	}
	got, err := f.svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.AverageTypingSpeed)

	stat, err := f.svc.RecordTyping(ctx, student.NewTypingStat{StudentID: st.ID, SessionID: "sess-1", WPM: 70, Accuracy: 90, TimeSpent: 60000})
	require.NoError(t, err)
	assert.True(t, stat.SessionID.Valid)
	require.Len(t, f.sessions.samples["sess-1"], 1)
	assert.Equal(t, 70.0, f.sessions.samples["sess-1"][0].WPM)

	stats, err := f.svc.TypingStats(ctx, st.ID)
	require.NoError(t, err)
	assert.Len(t, stats, 4)

	_, err = f.svc.RecordTyping(ctx, student.NewTypingStat{StudentID: "nope", WPM: 10})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_RecordTyping_SessionFailureIsLogged(t *testing.T) {
	f := setup(t)
	f.sessions.err = errors.New("session already ended")
	st := testutil.CreateStudent(t, f.repo, "Ada", "ada@test.com", "", "")

	_, err := f.svc.RecordTyping(context.Background(), student.NewTypingStat{StudentID: st.ID, SessionID: "sess-1", WPM: 30})
	assert.NoError(t, err)
}

func TestService_RecordTyping_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	st := testutil.CreateStudent(t, f.repo, "Ada", "ada@test.com", "", "", time.Now())

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(wpm float64) {
			defer wg.Done()
			_, err := f.svc.RecordTyping(ctx, student.NewTypingStat{StudentID: st.ID, WPM: wpm})
			assert.NoError(t, err)
		}(float64(i * 10))
	}
	wg.Wait()

	got, err := f.svc.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.AverageTypingSpeed)
}

func TestAverageWPM(t *testing.T) {
	tests := []struct {
		name  string
		stats []student.TypingStat
		want  float64
	}{
		{name: "empty", want: 0},
		{name: "one", stats: []student.TypingStat{{WPM: 42}}, want: 42},
		{name: "many", stats: []student.TypingStat{{WPM: 30}, {WPM: 45}, {WPM: 60}}, want: 45},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, student.AverageWPM(tc.stats))
		})
	}
}
