package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/guard"
)

type authFixture struct {
	svc      *AuthService
	users    *fakeUserRepo
	profiles *fakeProfileRepo
	resets   *fakeResetRepo
	attempts *fakeAttempts
	denylist *auth.MemoryDenylist
	mailer   *fakeMailer
	rec      *recorder
	jwtMgr   *auth.JWTManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    newFakeUserRepo(),
		profiles: newFakeProfileRepo(),
		resets:   newFakeResetRepo(),
		attempts: &fakeAttempts{failures: map[string]int{}},
		denylist: auth.NewMemoryDenylist(),
		mailer:   &fakeMailer{},
		rec:      &recorder{},
		jwtMgr:   auth.NewJWTManager("test-secret-that-is-long-enough-for-hs256", time.Hour),
	}
	logger := zap.NewNop()
	f.svc = NewAuthService(AuthDeps{
		DB:       &fakeDB{},
		Users:    f.users,
		Profiles: f.profiles,
		Resets:   f.resets,
		JWTMgr:   f.jwtMgr,
		Denylist: f.denylist,
		Lockout:  guard.NewLockout(f.attempts, logger),
		Mailer:   f.mailer,
		Events:   f.rec,
		ResetURL: "https://app.example.com/reset",
		Logger:   logger,
	})
	return f
}

func TestAuthService_SignUp(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.SignUp(context.Background(), Credentials{Email: " Tipster@Example.com ", Password: "longenough"})
	require.NoError(t, err)

	assert.Equal(t, "tipster@example.com", res.User.Email)
	assert.NotEmpty(t, res.Token)
	claims, err := f.jwtMgr.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), claims.Subject)

	profile, ok := f.profiles.profiles[res.User.ID]
	require.True(t, ok, "sign-up creates the profile")
	assert.Equal(t, domain.DefaultCurrency, profile.Currency)
	assert.Equal(t, []events.Type{events.SessionSignedIn}, f.rec.types())
}

func TestAuthService_SignUp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     Credentials
		status int
	}{
		{"bad email", Credentials{Email: "nope", Password: "longenough"}, http.StatusBadRequest},
		{"short password", Credentials{Email: "a@example.com", Password: "short"}, http.StatusBadRequest},
		{"password over bcrypt limit", Credentials{Email: "a@example.com", Password: strings.Repeat("a", 80)}, http.StatusBadRequest},
		{"duplicate", Credentials{Email: "taken@example.com", Password: "longenough"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.users.users["taken@example.com"] = domain.AuthUser{ID: uuid.New(), Email: "taken@example.com"}

			_, err := f.svc.SignUp(context.Background(), tt.in)
			requireAppError(t, err, tt.status)
		})
	}
}

func TestAuthService_SignIn(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.SignUp(context.Background(), Credentials{Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)

	res, err := f.svc.SignIn(context.Background(), Credentials{Email: "A@example.com", Password: "longenough"}, "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = f.svc.SignIn(context.Background(), Credentials{Email: "a@example.com", Password: "wrongpass"}, "127.0.0.1")
	appErr := requireAppError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Identifiants invalides", appErr.Message)

	_, err = f.svc.SignIn(context.Background(), Credentials{Email: "ghost@example.com", Password: "longenough"}, "127.0.0.1")
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestAuthService_SignIn_Lockout(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.SignUp(context.Background(), Credentials{Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)

	for i := 0; i < guard.MaxAttempts; i++ {
		_, err := f.svc.SignIn(context.Background(), Credentials{Email: "a@example.com", Password: "wrongpass"}, "")
		requireAppError(t, err, http.StatusUnauthorized)
	}

	_, err = f.svc.SignIn(context.Background(), Credentials{Email: "a@example.com", Password: "longenough"}, "")
	appErr := requireAppError(t, err, http.StatusTooManyRequests)
	assert.Equal(t, "ACCOUNT_LOCKED", appErr.Code)
}

func TestAuthService_SignOut(t *testing.T) {
	f := newAuthFixture(t)
	res, err := f.svc.SignUp(context.Background(), Credentials{Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)
	claims, err := f.jwtMgr.ValidateToken(res.Token)
	require.NoError(t, err)
	sess, err := claims.Session()
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(context.Background(), sess))

	revoked, err := f.denylist.IsRevoked(context.Background(), sess.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Contains(t, f.rec.types(), events.SessionSignedOut)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, Credentials{Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)

	t.Run("unknown email is silent", func(t *testing.T) {
		require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.com"))
		assert.Empty(t, f.mailer.link)
		assert.Empty(t, f.resets.tokens)
	})

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@example.com"))
	assert.Equal(t, "a@example.com", f.mailer.to)
	link, err := url.Parse(f.mailer.link)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	_, stored := f.resets.tokens[token]
	assert.False(t, stored, "only the hash is stored")

	t.Run("bad token", func(t *testing.T) {
		err := f.svc.ConfirmPasswordReset(ctx, "not-a-token", "newpassword")
		requireAppError(t, err, http.StatusBadRequest)
	})

	t.Run("password over bcrypt limit", func(t *testing.T) {
		err := f.svc.ConfirmPasswordReset(ctx, token, strings.Repeat("a", 80))
		requireAppError(t, err, http.StatusBadRequest)
	})

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, token, "newpassword"))

	_, err = f.svc.SignIn(ctx, Credentials{Email: "a@example.com", Password: "newpassword"}, "")
	require.NoError(t, err)

	t.Run("token is single use", func(t *testing.T) {
		err := f.svc.ConfirmPasswordReset(ctx, token, "anotherpassword")
		requireAppError(t, err, http.StatusBadRequest)
	})
}

func TestAuthService_PasswordReset_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, Credentials{Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@example.com"))
	link, err := url.Parse(f.mailer.link)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(ResetTokenTTL + time.Minute) }
	err = f.svc.ConfirmPasswordReset(ctx, link.Query().Get("token"), "newpassword")
	requireAppError(t, err, http.StatusBadRequest)
}
