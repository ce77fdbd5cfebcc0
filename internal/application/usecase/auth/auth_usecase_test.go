package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/internal/testutil"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/auth"
	"github.com/khoahotran/filmila/pkg/logger"
)

func newAuthDeps() (*testutil.UserRepo, *auth.JWTService, *RegisterUseCase, *LoginUseCase) {
	repo := testutil.NewUserRepo()
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	log := logger.NewNopLogger()
	return repo, jwtSvc, NewRegisterUseCase(repo, jwtSvc, log), NewLoginUseCase(repo, jwtSvc, log)
}

func TestRegister_IssuesTokenWithRole(t *testing.T) {
	_, jwtSvc, register, _ := newAuthDeps()

	out, err := register.Execute(context.Background(), RegisterInput{
		Email: " Maker@Example.com ", Password: "correct-horse", Role: user.RoleFilmmaker, Name: "Maker",
	})
	require.NoError(t, err)

	claims, err := jwtSvc.ValidateToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.ViewerID, claims.ViewerID)
	assert.Equal(t, string(user.RoleFilmmaker), claims.Role)
}

func TestRegister_DuplicateEmailIsUserExists(t *testing.T) {
	_, _, register, _ := newAuthDeps()
	ctx := context.Background()

	_, err := register.Execute(ctx, RegisterInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = register.Execute(ctx, RegisterInput{Email: "A@example.com", Password: "password2"})
	require.ErrorIs(t, err, apperror.ErrConflict)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeUserExists, appErr.Code)
}

func TestRegister_Validation(t *testing.T) {
	_, _, register, _ := newAuthDeps()
	ctx := context.Background()

	for name, in := range map[string]RegisterInput{
		"bad email":      {Email: "not-an-email", Password: "password1"},
		"short password": {Email: "b@example.com", Password: "short"},
		"unknown role":   {Email: "c@example.com", Password: "password1", Role: "admin"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := register.Execute(ctx, in)
			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		})
	}
}

func TestLogin(t *testing.T) {
	_, jwtSvc, register, login := newAuthDeps()
	ctx := context.Background()

	reg, err := register.Execute(ctx, RegisterInput{Email: "v@example.com", Password: "password1"})
	require.NoError(t, err)

	out, err := login.Execute(ctx, LoginInput{Email: "V@example.com", Password: "password1"})
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.ViewerID, claims.ViewerID)
	assert.Equal(t, string(user.RoleViewer), claims.Role)

	for _, in := range []LoginInput{
		{Email: "v@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "password1"},
	} {
		_, err := login.Execute(ctx, in)
		require.ErrorIs(t, err, apperror.ErrUnauthorized)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInvalidCredentials, appErr.Code)
	}
}

func TestLogout(t *testing.T) {
	_, jwtSvc, register, login := newAuthDeps()
	revocations := testutil.NewRevocationStore()
	logout := NewLogoutUseCase(revocations, jwtSvc)
	ctx := context.Background()

	_, err := register.Execute(ctx, RegisterInput{Email: "l@example.com", Password: "password1"})
	require.NoError(t, err)
	out, err := login.Execute(ctx, LoginInput{Email: "l@example.com", Password: "password1"})
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateToken(out.AccessToken)
	require.NoError(t, err)

	require.NoError(t, logout.Execute(ctx, claims))
	revoked, err := revocations.IsRevoked(ctx, claims.TokenID(), claims.ViewerID, claims.IssuedAt.Time)
	require.NoError(t, err)
	assert.True(t, revoked)

	other := *claims
	other.ID = "another-jti"
	revoked, err = revocations.IsRevoked(ctx, other.TokenID(), other.ViewerID, other.IssuedAt.Time)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, logout.ExecuteAll(ctx, claims))
	revoked, err = revocations.IsRevoked(ctx, other.TokenID(), other.ViewerID, other.IssuedAt.Time)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutAll_LaterTokensStayValid(t *testing.T) {
	_, jwtSvc, register, login := newAuthDeps()
	revocations := testutil.NewRevocationStore()
	logout := NewLogoutUseCase(revocations, jwtSvc)
	ctx := context.Background()

	out, err := register.Execute(ctx, RegisterInput{Email: "all@example.com", Password: "password1"})
	require.NoError(t, err)
	first, err := jwtSvc.ValidateToken(out.AccessToken)
	require.NoError(t, err)

	require.NoError(t, logout.ExecuteAll(ctx, first))
	revoked, err := revocations.IsRevoked(ctx, first.TokenID(), first.ViewerID, first.IssuedAt.Time)
	require.NoError(t, err)
	assert.True(t, revoked)

	time.Sleep(2 * time.Millisecond)
	again, err := login.Execute(ctx, LoginInput{Email: "all@example.com", Password: "password1"})
	require.NoError(t, err)
	second, err := jwtSvc.ValidateToken(again.AccessToken)
	require.NoError(t, err)

	revoked, err = revocations.IsRevoked(ctx, second.TokenID(), second.ViewerID, second.IssuedAt.Time)
	require.NoError(t, err)
	assert.False(t, revoked)
}
