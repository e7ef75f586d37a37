// Package auth attaches a browser session to every request and gates routes
// on an SSO-verified user and role.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/session"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"go.uber.org/zap"
)

const msgForbidden = "You do not have the required roles to access this page."

type ctxKey int

const (
	sessionKey ctxKey = iota
	userKey
)

type Verifier interface {
	Verify(ctx context.Context, token string) (upstream.User, error)
}

type Syncer interface {
	Sync(ctx context.Context, token string, user upstream.User) error
}

// Sessions loads the cookie's session (or starts one), refreshes its TTL and
// puts it on the request context.
func Sessions(st session.Store, ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := session.Load(r.Context(), st, r)
			if err == nil {
				err = st.Save(r.Context(), s)
			}
			if err != nil {
				zap.L().Error("session load", zap.Error(err))
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			session.SetCookie(w, s, ttl, secure)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
		})
	}
}

// SessionFrom returns the request's session; nil outside the Sessions middleware.
func SessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// UserFrom returns the user the Guard verified for this request.
func UserFrom(ctx context.Context) (upstream.User, bool) {
	u, ok := ctx.Value(userKey).(upstream.User)
	return u, ok
}

type Guard struct {
	Store     session.Store
	SSO       Verifier
	Sync      Syncer // optional
	LoginURL  string
	AdminRole string
	Log       *zap.Logger
}

// Require lets a request through only with a verified user whose role is in
// roles. No roles means any verified user; the admin role always passes.
func (g *Guard) Require(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s := SessionFrom(ctx)
			if s == nil || s.Token == "" {
				g.unauthenticated(w, r, "Authentication failed")
				return
			}

			user, err := g.SSO.Verify(ctx, s.Token)
			if err != nil {
				g.logger().Info("token rejected", zap.String("session", s.ID), zap.Error(err))
				s.ClearUser()
				if serr := g.Store.Save(ctx, s); serr != nil {
					g.logger().Warn("session save", zap.Error(serr))
				}
				g.unauthenticated(w, r, upstream.ServerMessage(err, "Authentication failed"))
				return
			}

			s.UserID, s.Username, s.Role = user.ID, user.Name, user.Role
			if err := g.Store.Save(ctx, s); err != nil {
				g.logger().Warn("session save", zap.Error(err))
			}
			g.syncUser(s.Token, user)

			if len(roles) > 0 && user.Role != g.AdminRole && !slices.Contains(roles, user.Role) {
				writeError(w, r, http.StatusForbidden, msgForbidden, "")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
		})
	}
}

// syncUser pushes the verified user to the user store in the background.
// Failures are logged and otherwise ignored.
func (g *Guard) syncUser(token string, user upstream.User) {
	if g.Sync == nil {
		return
	}
	log := g.logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.Sync.Sync(ctx, token, user); err != nil {
			log.Warn("user sync failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}()
}

func (g *Guard) unauthenticated(w http.ResponseWriter, r *http.Request, msg string) {
	target := g.loginRedirect(r)
	if wantsJSON(r) {
		writeError(w, r, http.StatusUnauthorized, msg, target)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// loginRedirect is the SSO login URL carrying the current absolute URL as ?redirect=.
func (g *Guard) loginRedirect(r *http.Request) string {
	u, err := url.Parse(g.LoginURL)
	if err != nil {
		return g.LoginURL
	}
	q := u.Query()
	q.Set("redirect", currentURL(r))
	u.RawQuery = q.Encode()
	return u.String()
}

func currentURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg, redirect string) {
	if !wantsJSON(r) && redirect == "" {
		http.Error(w, msg, code)
		return
	}
	body := map[string]string{"error": msg}
	if redirect != "" {
		body["redirect"] = redirect
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (g *Guard) logger() *zap.Logger {
	if g.Log != nil {
		return g.Log
	}
	return zap.L()
}
