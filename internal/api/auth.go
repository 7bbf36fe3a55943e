package api

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquatrace/aquatrace-go/internal/datastore"
	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/security"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 64
)

// RegisterRequest is the account creation payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload. Identifier matches username or email.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Username  string    `json:"username,omitempty"`
	Token     string    `json:"token,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// initAuthRoutes registers all authentication-related API endpoints
func (c *Controller) initAuthRoutes() {
	authGroup := c.Group.Group("/auth")

	authGroup.POST("/register", c.Register)
	authGroup.POST("/login", c.Login)

	protectedGroup := authGroup.Group("", c.authMiddleware)
	protectedGroup.POST("/logout", c.Logout)
}

// Register handles POST /api/v2/auth/register
func (c *Controller) Register(ctx echo.Context) error {
	var req RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid registration request", http.StatusBadRequest)
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateRegistration(&req); err != nil {
		c.recordAuthOp("register", "failure")
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	}

	hash, err := security.HashPassword(req.Password, c.Settings.Security.BcryptCost)
	if err != nil {
		c.recordAuthOp("register", "failure")
		return c.HandleError(ctx, err, "Failed to create account", http.StatusInternalServerError)
	}

	user := &datastore.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := c.DS.CreateUser(user); err != nil {
		c.recordAuthOp("register", "failure")
		if errors.Is(err, datastore.ErrDuplicateUser) {
			return c.HandleError(ctx, err, "Username or email already registered", http.StatusConflict)
		}
		if errors.Is(err, datastore.ErrStoreUnavailable) {
			return c.HandleError(ctx, err, "Service temporarily unavailable", http.StatusServiceUnavailable)
		}
		return c.HandleError(ctx, err, "Failed to create account", http.StatusInternalServerError)
	}

	c.recordAuthOp("register", "success")
	c.apiLogger.Info("account created", "username", user.Username, "user_id", user.ID)
	return ctx.JSON(http.StatusCreated, AuthResponse{
		Success:   true,
		Message:   "Account created",
		Username:  user.Username,
		Timestamp: time.Now(),
	})
}

// Login handles POST /api/v2/auth/login. On success it sets the session
// cookie and returns a bearer token for cookie-less clients. A failed login
// changes no state.
func (c *Controller) Login(ctx echo.Context) error {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid login request", http.StatusBadRequest)
	}

	if !c.loginLimiter.Allow(ctx.RealIP()) {
		c.recordAuthOp("login", "throttled")
		return c.HandleError(ctx, errors.NewStd("too many login attempts"),
			"Too many login attempts, slow down", http.StatusTooManyRequests)
	}

	if req.Identifier == "" || req.Password == "" {
		c.recordAuthOp("login", "failure")
		return c.HandleError(ctx, security.ErrInvalidCredentials,
			"Identifier and password are required", http.StatusBadRequest)
	}

	user, err := c.verifier.Verify(ctx.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		c.recordAuthOp("login", "failure")
		if errors.Is(err, security.ErrInvalidCredentials) {
			return c.HandleError(ctx, err, "Invalid credentials", http.StatusUnauthorized)
		}
		if errors.Is(err, datastore.ErrStoreUnavailable) {
			return c.HandleError(ctx, err, "Service temporarily unavailable", http.StatusServiceUnavailable)
		}
		return c.HandleError(ctx, err, "Login failed", http.StatusInternalServerError)
	}

	session := c.sessions.Create(user.ID, user.Username)
	c.sessions.WriteCookie(ctx.Response(), session.Token)

	token, err := c.tokens.Issue(user.ID, user.Username)
	if err != nil {
		// Session login still succeeded; report it without a bearer token.
		c.apiLogger.Warn("bearer token issue failed", "error", err, "user_id", user.ID)
		token = ""
	}

	c.recordAuthOp("login", "success")
	c.apiLogger.Info("login", "username", user.Username, "user_id", user.ID, "ip", ctx.RealIP())
	return ctx.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Logged in",
		Username:  user.Username,
		Token:     token,
		Timestamp: time.Now(),
	})
}

// Logout handles POST /api/v2/auth/logout
func (c *Controller) Logout(ctx echo.Context) error {
	if token, ok := ctx.Get(ctxSessionToken).(string); ok && token != "" {
		c.sessions.Destroy(token)
	}
	c.sessions.ClearCookie(ctx.Response())

	c.recordAuthOp("logout", "success")
	return ctx.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Logged out",
		Timestamp: time.Now(),
	})
}

func (c *Controller) recordAuthOp(operation, status string) {
	if c.metrics != nil {
		c.metrics.HTTP.RecordAuthOperation(operation, status)
		if status != "success" {
			c.metrics.HTTP.RecordAuthError(operation, status)
		}
	}
}

func validateRegistration(req *RegisterRequest) error {
	switch {
	case req.Username == "":
		return errors.NewStd("username is required")
	case len(req.Username) > maxUsernameLength:
		return errors.NewStd("username too long")
	case req.Email == "":
		return errors.NewStd("email is required")
	case req.Password == "":
		return errors.NewStd("password is required")
	case len(req.Password) < minPasswordLength:
		return errors.Newf("password must be at least %d characters", minPasswordLength).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errors.NewStd("invalid email address")
	}
	return nil
}
