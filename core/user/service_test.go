package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kosakata/core"
	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/storage/database/inmem"
	"github.com/trezcool/kosakata/tests"
)

// the service's current time
var now = time.Date(2024, 5, 20, 23, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*user.Service, user.Repository) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)
	svc, err := user.NewService(repo, testutil.NewConfig(), testutil.FixedClock(now))
	require.NoError(t, err)
	return svc, repo
}

func TestNewService(t *testing.T) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)

	_, err = user.NewService(nil, testutil.NewConfig(), nil)
	assert.Error(t, err)

	assert.NotPanics(t, func() {
		_, err = user.NewService(repo, nil, nil)
	})
	assert.Error(t, err)

	conf := testutil.NewConfig()
	conf.Submission.Timezone = "Nowhere/Atlantis"
	_, err = user.NewService(repo, conf, nil)
	assert.Error(t, err)

	svc, err := user.NewService(repo, testutil.NewConfig(), nil) // wall clock
	require.NoError(t, err)
	usr, err := svc.Create(context.Background(), user.NewUser{Name: "Jane", Username: "jane", Password: "Xy7#kq9!Lm", Role: user.RoleStudent})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), usr.CreatedAt, time.Minute)
}

func validationTags(t *testing.T, err error) map[string]string {
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "want validator.ValidationErrors, got %v", err)
	tags := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags
}

func TestNewUser_Validate(t *testing.T) {
	svc, repo := setup(t)
	validate, _ := testutil.NewValidator()
	testutil.CreateUser(t, repo, "Taken", "taken", "taken@test.cd", "", user.RoleStudent, testutil.Date("2024-01-01"))

	valid := func() user.NewUser {
		return user.NewUser{
			Name:            "Jane Doe",
			Username:        "jane",
			Email:           "jane@test.cd",
			Password:        "Xy7#kq9!Lm",
			PasswordConfirm: "Xy7#kq9!Lm",
			Role:            user.RoleStudent,
		}
	}

	tests := []struct {
		name     string
		modify   func(nu *user.NewUser)
		wantTags map[string]string
	}{
		{name: "valid", modify: func(nu *user.NewUser) {}},
		{name: "blank name", modify: func(nu *user.NewUser) { nu.Name = "  " }, wantTags: map[string]string{"name": "required"}},
		{name: "no role", modify: func(nu *user.NewUser) { nu.Role = 0 }, wantTags: map[string]string{"role": "role"}},
		{
			name:     "no username nor email",
			modify:   func(nu *user.NewUser) { nu.Username, nu.Email = "", "" },
			wantTags: map[string]string{"username": "username_or_email", "email": "username_or_email"},
		},
		{name: "bad email", modify: func(nu *user.NewUser) { nu.Email = "jane" }, wantTags: map[string]string{"email": "email"}},
		{name: "short username", modify: func(nu *user.NewUser) { nu.Username = "jd" }, wantTags: map[string]string{"username": "min"}},
		{
			name: "password mismatch",
			modify: func(nu *user.NewUser) { nu.PasswordConfirm = "Xy7#kq9!Ln" },
			wantTags: map[string]string{"password_confirm": "eqfield"},
		},
		{
			name:     "short password",
			modify:   func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "Xy7#k", "Xy7#k" },
			wantTags: map[string]string{"password": "pwdminlen"},
		},
		{
			name:     "numeric password",
			modify:   func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "12345678", "12345678" },
			wantTags: map[string]string{"password": "pwdnotallnum"},
		},
		{
			name:     "simple password",
			modify:   func(nu *user.NewUser) { nu.Password, nu.PasswordConfirm = "password1", "password1" },
			wantTags: map[string]string{"password": "pwdcplx"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.modify(&nu)
			err := nu.Validate(validate, svc)
			if tt.wantTags == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantTags, validationTags(t, err))
		})
	}

	t.Run("taken", func(t *testing.T) {
		nu := valid()
		nu.Username = " TAKEN "
		err := nu.Validate(validate, svc)
		assert.True(t, core.IsValidation(err))
		assert.Equal(t, "taken", nu.Username)
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	usr, err := svc.Create(ctx, user.NewUser{Name: "Jane", Username: "jane", Password: "Xy7#kq9!Lm", Role: user.RoleStudent})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.Equal(t, testutil.Date("2024-05-20"), usr.EnrolledOn)
	assert.Equal(t, now, usr.CreatedAt)
	assert.NoError(t, usr.CheckPassword("Xy7#kq9!Lm"))

	usr, err = svc.Create(ctx, user.NewUser{
		Name: "John", Username: "john", Password: "Xy7#kq9!Lm", Role: user.RoleStudent, EnrolledOn: testutil.Date("2024-06-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.Date("2024-06-01"), usr.EnrolledOn)

	got, err := svc.GetByUsernameOrEmail(ctx, " JOHN ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got, err = svc.SetLastLogin(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, now, got.LastLogin)

	got, err = svc.SetPassword(ctx, got, "N3w-Pa55word")
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("N3w-Pa55word"))

	users, err := svc.Query(ctx, user.QueryFilter{Search: " jan "})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "jane", users[0].Username)
}
