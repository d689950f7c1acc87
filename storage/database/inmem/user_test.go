package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kosakata/core/user"
	"github.com/trezcool/kosakata/tests"
)

func Test_userRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setup(t))
	enrolled := testutil.Date("2024-03-01")

	jane := testutil.CreateUser(t, repo, "Jane Doe", "jane", "jane@test.cd", "", user.RoleStudent, enrolled)
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher", "", "", user.RoleTeacher, enrolled)

	got, err := repo.GetUserByUsernameOrEmail(ctx, "jane@test.cd")
	require.NoError(t, err)
	assert.Equal(t, jane, got)

	assert.Equal(t, user.ErrUserExists, repo.CheckUsernameUniqueness(ctx, "jane", ""))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "jane", "", jane))

	_, err = repo.CreateUser(ctx, user.User{ID: "x", Username: "teacher"})
	assert.Equal(t, user.ErrUserExists, err)

	users, err := repo.QueryUsers(ctx, user.QueryFilter{Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, []user.User{teacher}, users)

	_, err = repo.UpdateUser(ctx, user.User{ID: "unknown"})
	assert.Equal(t, user.ErrNotFound, err)
}
