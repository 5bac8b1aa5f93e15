package app

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"drawtrack/pkg/auth"
	"drawtrack/pkg/domain"
	"drawtrack/pkg/store"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
)

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the login/register response: the user plus a signed token.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseRole(role string) (domain.UserRole, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "":
		return domain.RoleViewer, nil
	case string(domain.RoleAdmin):
		return domain.RoleAdmin, nil
	case string(domain.RoleViewer):
		return domain.RoleViewer, nil
	default:
		return "", fmt.Errorf("%w: role must be admin or viewer", ErrInvalidInput)
	}
}

// Register creates an account. The very first account ever created is
// promoted to admin so a fresh deployment can bootstrap itself; after
// that, only an authenticated admin (actor) may grant the admin role.
func (a *App) Register(in RegisterInput, actor *auth.Claims) (Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normEmail(in.Email)
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if len(in.Password) > maxPasswordLen {
		return Session{}, fmt.Errorf("%w: password exceeds %d characters", ErrInvalidInput, maxPasswordLen)
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return Session{}, err
	}

	count, err := a.store.UserCount()
	if err != nil {
		return Session{}, err
	}
	if count == 0 {
		role = domain.RoleAdmin
	} else if role == domain.RoleAdmin {
		if actor == nil || actor.Role != domain.RoleAdmin {
			return Session{}, fmt.Errorf("%w: only an admin may grant the admin role", ErrUnauthorized)
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	u, err := a.store.CreateUser(domain.User{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return Session{}, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if err != nil {
		return Session{}, err
	}
	token, err := a.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password return the same error so callers cannot probe for accounts.
func (a *App) Login(in LoginInput) (Session, error) {
	email := normEmail(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	u, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return Session{}, err
	}
	if !ok || !auth.CheckPassword(in.Password, u.PasswordHash) {
		return Session{}, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	token, err := a.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}

// Me resolves the authenticated user from verified claims. A token whose
// user has since been deleted is treated as unauthorized.
func (a *App) Me(claims auth.Claims) (domain.User, error) {
	u, ok, err := a.store.GetUserByID(claims.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
	}
	return u, nil
}

// VerifyToken parses and validates a bearer token.
func (a *App) VerifyToken(token string) (auth.Claims, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}
