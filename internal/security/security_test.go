package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/datastore"
)

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Security.Debug = true
	settings.Security.SessionSecret = "test-session-secret"
	settings.Security.SessionTTL = time.Hour
	settings.Security.JWTSecret = "test-jwt-secret"
	settings.Security.JWTExpiry = time.Hour
	settings.Security.BcryptCost = 4
	return settings
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
	assert.False(t, CheckPassword("", "hunter2"))
}

func TestHashPasswordCostFallback(t *testing.T) {
	// Out-of-range costs must not fail, they fall back to the default.
	hash, err := HashPassword("hunter2", 99)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2"))
}

func TestSessionLifecycle(t *testing.T) {
	manager := NewSessionManager(testSettings())

	session := manager.Create(7, "diver")
	require.NotEmpty(t, session.Token)
	assert.Equal(t, uint(7), session.UserID)

	got, ok := manager.Get(session.Token)
	require.True(t, ok)
	assert.Equal(t, "diver", got.Username)

	// Two logins yield distinct independent sessions.
	other := manager.Create(7, "diver")
	assert.NotEqual(t, session.Token, other.Token)
	assert.Equal(t, 2, manager.Count())

	manager.Destroy(session.Token)
	_, ok = manager.Get(session.Token)
	assert.False(t, ok)
	_, ok = manager.Get(other.Token)
	assert.True(t, ok, "destroying one session leaves others intact")

	// Unknown and empty tokens resolve to nothing.
	_, ok = manager.Get("not-a-token")
	assert.False(t, ok)
	_, ok = manager.Get("")
	assert.False(t, ok)
	manager.Destroy("not-a-token")
}

func TestSessionCookieRoundTrip(t *testing.T) {
	manager := NewSessionManager(testSettings())
	session := manager.Create(1, "diver")

	rec := httptest.NewRecorder()
	manager.WriteCookie(rec, session.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.False(t, cookies[0].Secure, "debug mode allows non-HTTPS cookies")

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.AddCookie(cookies[0])
	assert.Equal(t, session.Token, manager.ReadCookie(req))

	// Clearing expires the cookie client-side.
	rec = httptest.NewRecorder()
	manager.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestReadCookieAbsent(t *testing.T) {
	manager := NewSessionManager(testSettings())
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, manager.ReadCookie(req))
}

func TestTokenIssueAndValidate(t *testing.T) {
	issuer := NewTokenIssuer(testSettings())

	token, err := issuer.Issue(7, "diver")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "diver", claims.Username)
	assert.Equal(t, "aquatrace", claims.Issuer)
}

func TestTokenValidateRejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer(testSettings())

	_, err := issuer.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Token signed with a different secret.
	otherSettings := testSettings()
	otherSettings.Security.JWTSecret = "other-secret"
	foreign, err := NewTokenIssuer(otherSettings).Issue(7, "diver")
	require.NoError(t, err)
	_, err = issuer.Validate(foreign)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenValidateRejectsExpired(t *testing.T) {
	settings := testSettings()
	settings.Security.JWTExpiry = -time.Minute
	issuer := NewTokenIssuer(settings)

	// Negative expiry falls back to the default, so force a short-lived
	// issuer manually.
	issuer.expiry = -time.Minute
	token, err := issuer.Issue(7, "diver")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func newVerifierStore(t *testing.T) (datastore.Interface, *datastore.User) {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	user := &datastore.User{
		Username:     "diver",
		Email:        "diver@example.com",
		PasswordHash: hash,
	}
	require.NoError(t, store.CreateUser(user))
	return store, user
}

func TestLocalVerifier(t *testing.T) {
	store, user := newVerifierStore(t)
	verifier := NewLocalVerifier(store)
	ctx := context.Background()

	got, err := verifier.Verify(ctx, "diver", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = verifier.Verify(ctx, "diver@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = verifier.Verify(ctx, "diver", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = verifier.Verify(ctx, "nobody", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown user and wrong password are indistinguishable")
}

func TestLoginLimiter(t *testing.T) {
	settings := testSettings()
	settings.Security.LoginRateLimit = 1
	settings.Security.LoginRateBurst = 2
	limiter := NewLoginLimiter(settings)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, limiter.Allow("10.0.0.2"), "limits are per client")
}

func TestLoginLimiterDisabled(t *testing.T) {
	limiter := NewLoginLimiter(testSettings())
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"))
	}
}

func TestOAuthProviderDisabledByDefault(t *testing.T) {
	provider := NewOAuthProvider(testSettings())
	assert.False(t, provider.Enabled())

	settings := testSettings()
	settings.Security.GoogleOAuth.Enabled = true
	settings.Security.GoogleOAuth.ClientID = "client"
	settings.Security.GoogleOAuth.ClientSecret = "secret"
	settings.Security.GoogleOAuth.RedirectURI = "https://example.com/callback"
	provider = NewOAuthProvider(settings)
	assert.True(t, provider.Enabled())
	assert.Contains(t, provider.AuthCodeURL("state-1"), "state=state-1")
}
