package security

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	gocache "github.com/patrickmn/go-cache"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/logging"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "aquatrace_session"

const sessionCleanupInterval = 10 * time.Minute

// Session is the server-side state bound to one login.
type Session struct {
	Token     string
	UserID    uint
	Username  string
	CreatedAt time.Time
}

// SessionManager issues opaque session tokens and keeps the server-side
// session state in an expiring in-memory store. Tokens travel in a hardened
// cookie; handlers pass the token explicitly, there is no ambient request
// state.
type SessionManager struct {
	store   *gocache.Cache
	ttl     time.Duration
	options *sessions.Options
	logger  *slog.Logger
}

// NewSessionManager builds a session manager from the security settings.
func NewSessionManager(settings *conf.Settings) *SessionManager {
	ttl := settings.Security.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		store:   gocache.New(ttl, sessionCleanupInterval),
		ttl:     ttl,
		options: buildSessionOptions(!settings.Security.Debug, int(ttl.Seconds())),
		logger:  logging.ForService("security"),
	}
}

// buildSessionOptions creates cookie options with standard hardening. The
// secure parameter controls whether cookies require HTTPS.
func buildSessionOptions(secure bool, maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Create opens a new session for the user and returns its token.
func (m *SessionManager) Create(userID uint, username string) Session {
	session := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now(),
	}
	m.store.Set(session.Token, session, m.ttl)
	m.logger.Debug("session created", "user_id", userID, "username", username)
	return session
}

// Get resolves a token to its session. The second return value is false for
// unknown or expired tokens.
func (m *SessionManager) Get(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	value, found := m.store.Get(token)
	if !found {
		return Session{}, false
	}
	session, ok := value.(Session)
	return session, ok
}

// Destroy invalidates the session for the given token. Destroying an unknown
// token is a no-op.
func (m *SessionManager) Destroy(token string) {
	if _, found := m.store.Get(token); found {
		m.store.Delete(token)
		m.logger.Debug("session destroyed")
	}
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	return m.store.ItemCount()
}

// WriteCookie attaches the session cookie to the response.
func (m *SessionManager) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(token, m.options.MaxAge))
}

// ClearCookie expires the session cookie on the client.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

// ReadCookie extracts the session token from the request, or "" when the
// cookie is absent.
func (m *SessionManager) ReadCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (m *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     m.options.Path,
		MaxAge:   maxAge,
		Secure:   m.options.Secure,
		HttpOnly: m.options.HttpOnly,
		SameSite: m.options.SameSite,
	}
}
