package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/studytrack/apps/api/echo"
	"github.com/trezcool/studytrack/core"
	"github.com/trezcool/studytrack/core/login"
	"github.com/trezcool/studytrack/core/notification"
	"github.com/trezcool/studytrack/core/progress"
	"github.com/trezcool/studytrack/core/session"
	"github.com/trezcool/studytrack/core/student"
	inmemdb "github.com/trezcool/studytrack/storage/inmem"
	"github.com/trezcool/studytrack/storage/repos"
	"github.com/trezcool/studytrack/tests"
)

type fixture struct {
	app      Server
	students student.Repository
	notifs   notification.Log
	notifier *testutil.Notifier
}

func setup(t *testing.T) fixture {
	t.Helper()
	return setupWithStore(t, inmemdb.NewStore())
}

func setupWithStore(t *testing.T, store core.Store) fixture {
	t.Helper()
	f := fixture{
		students: repos.NewStudentRepository(store),
		notifs:   repos.NewNotificationLog(store),
		notifier: &testutil.Notifier{},
	}
	logger := testutil.DiscardLogger

	tracker, err := session.NewTracker(repos.NewSessionRepository(store), f.students, logger)
	require.NoError(t, err)
	studentSvc, err := student.NewService(f.students, repos.NewTypingRepository(store), tracker, logger)
	require.NoError(t, err)
	recorder, err := login.NewRecorder(repos.NewLoginRepository(store), f.students, f.notifier, logger)
	require.NoError(t, err)
	progressSvc, err := progress.NewService(f.students, recorder, tracker, studentSvc, f.notifier, logger)
	require.NoError(t, err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.RegisterValidators(validate, translator)

	f.app = NewServer(ServerDeps{
		Conf:           &core.Config{AppName: "StudyTrack", Build: "test", TestMode: true},
		Logger:         logger,
		StudentSvc:     studentSvc,
		LoginRecorder:  recorder,
		SessionTracker: tracker,
		ProgressSvc:    progressSvc,
		Notifications:  f.notifs,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = f.app.Close() })
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// do sends a request to the app and decodes the JSON response into dst, if not nil.
func (f fixture) do(t *testing.T, method, path string, body interface{}, wantCode int, dst interface{}) {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newRequest(method, path, data)
	f.app.ServeHTTP(rec, req)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, app Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
