package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kosakata/apps/api/echo"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/tests"
)

const pwd = "Xy7#kq9!Lm"

func Test_userApi_login(t *testing.T) {
	e := setup(t)
	usr := testutil.CreateUser(t, e.usrRepo, "Jane Doe", "jane", "jane@test.cd", pwd, user.RoleStudent, testutil.Date("2024-01-01"))
	inactive := testutil.CreateUser(t, e.usrRepo, "N Dog", "ndog", "ndog@test.cd", pwd, user.RoleStudent, testutil.Date("2024-01-01"))
	inactive.IsActive = false
	_, err := e.usrRepo.UpdateUser(context.Background(), inactive)
	require.NoError(t, err)

	body := func(uname, pass string) []byte {
		return marshalObj(t, echoapi.LoginRequest{Username: uname, Password: pass})
	}
	failed := marshalObj(t, httpErr{Error: "authentication failed"})

	e.run(t, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
		{name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: body("john", pwd), wantCode: http.StatusBadRequest, wantData: failed},
		{name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: body("jane", "lol"), wantCode: http.StatusBadRequest, wantData: failed},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login", body: body("ndog", pwd),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	for _, uname := range []string{"jane", " JANE@test.cd "} {
		rec := e.do(http.MethodPost, "/v1/users/login", "", body(uname, pwd))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		// the token authenticates the user
		rec = e.do(http.MethodGet, "/v1/users/me", resp.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me user.User
		decode(t, rec, &me)
		assert.Equal(t, usr.ID, me.ID)
		assert.False(t, me.LastLogin.IsZero())
	}
}

func Test_userApi_me(t *testing.T) {
	e := setup(t)
	usr := e.student(t, "jane", "2024-01-01")

	e.run(t, []httpTest{
		{name: "auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "invalid token", path: "/v1/users/me", token: "lol",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "ok", path: "/v1/users/me", token: e.token(t, usr), wantCode: http.StatusOK, wantData: marshalObj(t, usr)},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	e := setup(t)
	usr := e.student(t, "jane", "2024-01-01")

	rec := e.do(http.MethodPost, "/v1/users/token-refresh", e.token(t, usr))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// an expired refresh window
	claims := echoapi.GetUserClaims(e.conf, usr, 1)
	token, err := echoapi.GenerateToken(e.conf, claims)
	require.NoError(t, err)
	rec = e.do(http.MethodPost, "/v1/users/token-refresh", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error": "refresh has expired"}`, rec.Body.String())
}

func Test_userApi_create(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateUser(t, e.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, testutil.Date("2024-01-01"))
	student := e.student(t, "jane", "2024-01-01")

	newUser := func(uname string, role string) []byte {
		return marshalObj(t, map[string]interface{}{
			"name":             "New User",
			"username":         uname,
			"password":         pwd,
			"password_confirm": pwd,
			"role":             role,
			"enrolled_on":      "2024-01-05",
		})
	}

	e.run(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/users", body: newUser("newbie", "student"), token: e.token(t, student),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "taken", method: http.MethodPost, path: "/v1/users", body: newUser("jane", "student"), token: e.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "a user with this username or email already exists", "email": "a user with this username or email already exists"}`),
		},
		{
			name: "bad role", method: http.MethodPost, path: "/v1/users", body: newUser("newbie", "principal"), token: e.token(t, admin),
			wantCode: http.StatusBadRequest,
		},
	})

	rec := e.do(http.MethodPost, "/v1/users", e.token(t, admin), newUser("newbie", "student"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, testutil.Date("2024-01-05"), usr.EnrolledOn)
	assert.Equal(t, "newbie", usr.Username)
}

func Test_userApi_query(t *testing.T) {
	e := setup(t)
	enrolled := testutil.Date("2024-01-01")
	t0 := time.Now().UTC().Truncate(time.Second)
	admin := testutil.CreateUser(t, e.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, enrolled, t0)
	student := testutil.CreateUser(t, e.usrRepo, "Jane", "jane", "jane@test.cd", "", user.RoleStudent, enrolled, t0.Add(time.Second))
	teacher := testutil.CreateUser(t, e.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", user.RoleTeacher, enrolled, t0.Add(2*time.Second))
	adminToken := e.token(t, admin)

	e.run(t, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: e.token(t, teacher),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{admin, student, teacher})},
		{name: "role", path: "/v1/users?role=teacher", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{teacher})},
		{name: "unknown role", path: "/v1/users?role=lol", token: adminToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "search", path: "/v1/users?search=jane", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{student})},
		{name: "is_active", path: "/v1/users?is_active=false", token: adminToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})
}
