package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebuszqo/FinanceLedger/internal/user"
)

type testEnv struct {
	svc   *service
	users *fakeUserStore
	repo  *fakeTwoFactorRepository
	jwt   JWTManagerInterface
	jane  *user.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	users := newFakeUserStore()
	repo := &fakeTwoFactorRepository{store: users, secrets: map[string]string{}}
	jwtManager := newTestJWTManager(t, time.Minute, time.Hour)

	jane := &user.User{ID: "u-jane", UserName: "jane.doe", Email: "jane@example.com", SecurityStamp: "stamp-1"}
	users.add(jane, "correct-horse")

	svc := NewAuthService(repo, users, NewSessionManager(time.Minute), jwtManager, NewAuthenticator("FinanceLedger"), log).(*service)
	return &testEnv{svc: svc, users: users, repo: repo, jwt: jwtManager, jane: jane}
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestLogin_IssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, access, refresh, err := env.svc.Login(ctx, "JANE@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "u-jane", u.ID)

	userID, err := env.jwt.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "u-jane", userID)
	assert.NoError(t, env.jwt.ValidateRefreshToken(refresh, "stamp-1"))
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, _, _, err := env.svc.Login(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, _, err := env.svc.Login(ctx, "jane.doe", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, _, err := env.svc.Login(ctx, "jane.doe", "wrong")
	assert.ErrorIs(t, err, ErrUserLockedOut)

	// Correct password is still rejected while locked.
	_, _, _, err = env.svc.Login(ctx, "jane.doe", "correct-horse")
	assert.ErrorIs(t, err, ErrUserLockedOut)
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, _, err := env.svc.Login(ctx, "jane.doe", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = env.svc.Login(ctx, "jane.doe", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, 1, env.users.resetCalled)
	assert.Zero(t, env.users.users["u-jane"].AccessFailedCount)
}

func TestTwoFactor_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	uri, err := env.svc.RegisterTwoFactor(ctx, "u-jane")
	require.NoError(t, err)
	assert.Contains(t, uri, "otpauth://totp/")
	secret := env.repo.secrets["u-jane"]
	require.NotEmpty(t, secret)

	assert.ErrorIs(t, env.svc.ConfirmTwoFactor(ctx, "u-jane", "000000"), ErrInvalid2FACode)
	require.NoError(t, env.svc.ConfirmTwoFactor(ctx, "u-jane", currentCode(t, secret)))

	_, err = env.svc.RegisterTwoFactor(ctx, "u-jane")
	assert.ErrorIs(t, err, ErrUser2FAAlreadyEnabled)

	_, sessionToken, refresh, err := env.svc.Login(ctx, "jane.doe", "correct-horse")
	require.NoError(t, err)
	assert.Empty(t, refresh)
	assert.NotEmpty(t, sessionToken)

	_, _, _, err = env.svc.VerifyTwoFactor(ctx, sessionToken, "000000")
	assert.ErrorIs(t, err, ErrInvalid2FACode)

	u, access, refresh, err := env.svc.VerifyTwoFactor(ctx, sessionToken, currentCode(t, secret))
	require.NoError(t, err)
	assert.Equal(t, "u-jane", u.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// A session token is single use.
	_, _, _, err = env.svc.VerifyTwoFactor(ctx, sessionToken, currentCode(t, secret))
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	require.NoError(t, env.svc.DisableTwoFactor(ctx, "u-jane", currentCode(t, secret)))
	assert.False(t, env.users.users["u-jane"].TwoFactorEnabled)
	assert.ErrorIs(t, env.svc.DisableTwoFactor(ctx, "u-jane", "123456"), ErrUser2FANotEnabled)
}

func TestConfirmTwoFactor_NotRegistered(t *testing.T) {
	env := newTestEnv(t)
	assert.ErrorIs(t, env.svc.ConfirmTwoFactor(context.Background(), "u-jane", "123456"), ErrTwoFactorNotRegistered)
}

func TestRefreshAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	access, refresh, err := env.svc.RefreshAccessToken(ctx, "u-jane")
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NoError(t, env.jwt.ValidateRefreshToken(refresh, "stamp-1"))

	_, _, err = env.svc.RefreshAccessToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
