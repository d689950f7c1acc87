package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kosakata/apps/api/echo"
	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/submission"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/services/logger"
	"github.com/trezcool/kosakata/storage/database/sqlx"
	"github.com/trezcool/kosakata/tests"
)

// the API's today
var today = testutil.Date("2024-01-10")

type apiEnv struct {
	app     *echoapi.Server
	conf    *core.Config
	usrRepo user.Repository
	subRepo submission.Repository
}

func setup(t *testing.T) apiEnv {
	conf := testutil.NewConfig()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	subRepo := sqlxrepos.NewSubmissionRepository(db)

	// set up services
	validate, translator := testutil.NewValidator()
	usrSvc, err := user.NewService(usrRepo, conf, testutil.FixedClock(testutil.Noon(today)))
	require.NoError(t, err)
	subSvc, err := submission.NewService(subRepo, conf, validate, translator, testutil.FixedClock(testutil.Noon(today)))
	require.NoError(t, err)

	// set up server
	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		UserSvc:        usrSvc,
		SubmissionSvc:  subSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return apiEnv{app: app, conf: conf, usrRepo: usrRepo, subRepo: subRepo}
}

func (e apiEnv) student(t *testing.T, uname, enrolledOn string) user.User {
	return testutil.CreateUser(t, e.usrRepo, "Student "+uname, uname, uname+"@test.cd", "", user.RoleStudent, testutil.Date(enrolledOn))
}

func (e apiEnv) teacher(t *testing.T) user.User {
	return testutil.CreateUser(t, e.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, testutil.Date("2024-01-01"))
}

func (e apiEnv) token(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(e.conf, echoapi.GetUserClaims(e.conf, usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (e apiEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.app.ServeHTTP(rec, req)
	return rec
}

func (e apiEnv) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := e.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func newSubmissionBody(t *testing.T, date string, n int) []byte {
	ns := map[string]interface{}{"entries": testutil.Entries(n)}
	if date != "" {
		ns["date"] = date
	}
	return marshalObj(t, ns)
}
