package auth

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/session"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"go.uber.org/zap"
)

var ErrInvalidRole = apperr.New(http.StatusForbidden, "Invalid role", nil)

type SSO interface {
	Verifier
	Login(ctx context.Context, name, password string) (upstream.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Roles are the configured role values and where each one lands after login.
type Roles struct {
	Admin      string
	WasteImage string
	View       string
}

func (r Roles) Landing(role string) (string, bool) {
	switch role {
	case "":
		return "", false
	case r.Admin:
		return "/register", true
	case r.WasteImage:
		return "/portal", true
	case r.View:
		return "/view", true
	}
	return "", false
}

type Authenticator struct {
	SSO   SSO
	Store session.Store
	Roles Roles
	Log   *zap.Logger
}

// Login exchanges credentials for a token, stores it in s with the verified
// identity, and returns the page the user's role lands on.
func (a *Authenticator) Login(ctx context.Context, s *session.Session, name, password string) (string, error) {
	res, err := a.SSO.Login(ctx, name, password)
	if err != nil {
		return "", apperr.New(http.StatusUnauthorized, upstream.ServerMessage(err, "Login failed"), err)
	}
	s.ClearUser()
	s.Token = res.Token

	user := res.User
	if v, err := a.SSO.Verify(ctx, res.Token); err == nil {
		user = v
	} else {
		a.logger().Warn("verify after login", zap.Error(err))
	}
	s.UserID, s.Username, s.Role = user.ID, user.Name, user.Role
	if err := a.Store.Save(ctx, s); err != nil {
		return "", err
	}

	landing, ok := a.Roles.Landing(res.User.Role)
	if !ok {
		return "", ErrInvalidRole
	}
	return landing, nil
}

// Logout revokes the token at the SSO service when there is one and wipes the
// session. A failed revoke still clears local state.
func (a *Authenticator) Logout(ctx context.Context, s *session.Session) error {
	var revokeErr error
	if s.Token != "" {
		revokeErr = a.SSO.Logout(ctx, s.Token)
	}
	if err := a.Store.Delete(ctx, s.ID); err != nil {
		return err
	}
	s.ClearUser()
	if revokeErr != nil {
		a.logger().Warn("sso logout", zap.Error(revokeErr))
		return apperr.Upstream(upstream.ServerMessage(revokeErr, "Logout failed"), revokeErr)
	}
	return nil
}

// Identity is the mirrored user a session holds.
type Identity struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	Authenticated bool   `json:"authenticated"`
}

func IdentityOf(s *session.Session) Identity {
	if s == nil {
		return Identity{}
	}
	return Identity{UserID: s.UserID, Username: s.Username, Role: s.Role, Authenticated: s.Token != ""}
}

func (a *Authenticator) logger() *zap.Logger {
	if a.Log != nil {
		return a.Log
	}
	return zap.L()
}
