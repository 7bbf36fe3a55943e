package security

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
)

var (
	// ErrInvalidCredentials is returned when a login identifier/password pair
	// does not match a stored account. It deliberately does not distinguish
	// unknown users from wrong passwords.
	ErrInvalidCredentials = errors.NewStd("invalid credentials")

	// ErrUnauthenticated is returned when a request carries no valid session
	// or bearer token.
	ErrUnauthenticated = errors.NewStd("unauthenticated")
)

// timingEqualizationHash is a valid bcrypt hash of a throwaway value, used
// only to keep the unknown-user path as slow as a real comparison.
const timingEqualizationHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// CredentialVerifier resolves a login identifier and password to a stored
// account. Implementations other than the local bcrypt verifier can defer to
// external identity providers.
type CredentialVerifier interface {
	Verify(ctx context.Context, identifier, password string) (datastore.User, error)
}

// LocalVerifier checks credentials against bcrypt hashes in the datastore.
type LocalVerifier struct {
	Store datastore.Interface
}

// NewLocalVerifier returns a verifier backed by the given store.
func NewLocalVerifier(store datastore.Interface) *LocalVerifier {
	return &LocalVerifier{Store: store}
}

// Verify looks up the user by username or email and compares the password
// against the stored hash. Lookup failures and hash mismatches both map to
// ErrInvalidCredentials so callers cannot probe for registered accounts.
func (v *LocalVerifier) Verify(ctx context.Context, identifier, password string) (datastore.User, error) {
	user, err := v.Store.GetUserByLogin(identifier)
	if err != nil {
		if errors.Is(err, datastore.ErrUserNotFound) {
			// Burn comparable time so unknown users are not distinguishable
			// by response latency.
			CheckPassword(timingEqualizationHash, password)
			return datastore.User{}, ErrInvalidCredentials
		}
		return datastore.User{}, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return datastore.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// OAuthProvider holds the external identity configuration. It is the hook
// for delegating credential verification to an OAuth2 endpoint instead of
// the local bcrypt verifier.
type OAuthProvider struct {
	Config  *oauth2.Config
	enabled bool
}

// NewOAuthProvider builds the Google OAuth2 configuration from settings.
// When the provider is disabled the returned value is inert and
// AuthCodeURL/Exchange must not be used.
func NewOAuthProvider(settings *conf.Settings) *OAuthProvider {
	oa := settings.Security.GoogleOAuth
	return &OAuthProvider{
		enabled: oa.Enabled,
		Config: &oauth2.Config{
			ClientID:     oa.ClientID,
			ClientSecret: oa.ClientSecret,
			RedirectURL:  oa.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Enabled reports whether external identity login is configured.
func (p *OAuthProvider) Enabled() bool {
	return p != nil && p.enabled
}

// AuthCodeURL returns the provider consent URL for the given state value.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange swaps an authorization code for a provider token.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.New(err).
			Component("security").
			Category(errors.CategoryAuth).
			Context("operation", "oauth_exchange").
			Build()
	}
	return token, nil
}
