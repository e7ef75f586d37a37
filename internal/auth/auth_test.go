package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/apperr"
	"github.com/ariefcatur/go-waste-portal.git/internal/session"
	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSO struct {
	users    map[string]upstream.User // token -> user
	login    upstream.LoginResult
	loginErr error
	logouts  []string
}

func (f *fakeSSO) Verify(_ context.Context, token string) (upstream.User, error) {
	u, ok := f.users[token]
	if !ok {
		return upstream.User{}, &upstream.StatusError{Service: "sso", Status: 401, Message: "Token expired"}
	}
	return u, nil
}

func (f *fakeSSO) Login(context.Context, string, string) (upstream.LoginResult, error) {
	return f.login, f.loginErr
}

func (f *fakeSSO) Logout(_ context.Context, token string) error {
	f.logouts = append(f.logouts, token)
	return nil
}

type chanSyncer chan upstream.User

func (c chanSyncer) Sync(_ context.Context, _ string, u upstream.User) error {
	c <- u
	return errors.New("user store down")
}

var (
	viewer = upstream.User{ID: "u1", Name: "Vik", Role: "view"}
	admin  = upstream.User{ID: "u0", Name: "Root", Role: "admin"}
)

type fixture struct {
	store *session.MemoryStore
	sso   *fakeSSO
	sync  chanSyncer
	guard *Guard
}

func newFixture() *fixture {
	f := &fixture{
		store: session.NewMemoryStore(time.Hour),
		sso:   &fakeSSO{users: map[string]upstream.User{"view-token": viewer, "admin-token": admin}},
		sync:  make(chanSyncer, 4),
	}
	f.guard = &Guard{Store: f.store, SSO: f.sso, Sync: f.sync, LoginURL: "https://sso.example/login", AdminRole: "admin"}
	return f
}

func (f *fixture) handler(roles ...string) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFrom(r.Context())
		_, _ = w.Write([]byte("hello " + u.Name))
	})
	return Sessions(f.store, time.Hour, false)(f.guard.Require(roles...)(inner))
}

func (f *fixture) sessionWithToken(t *testing.T, token string) *session.Session {
	s := session.New()
	s.Token = token
	require.NoError(t, f.store.Save(context.Background(), s))
	return s
}

func request(path string, s *session.Session, accept string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "http://portal.example"+path, nil)
	if s != nil {
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.ID})
	}
	if accept != "" {
		r.Header.Set("Accept", accept)
	}
	return r
}

func TestRequireRedirectsWithoutToken(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.handler("view").ServeHTTP(rec, request("/view?page=2", nil, ""))

	assert.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "sso.example", loc.Host)
	assert.Equal(t, "http://portal.example/view?page=2", loc.Query().Get("redirect"))
	assert.NotEmpty(t, rec.Result().Cookies(), "a session cookie is issued")
}

func TestRequireJSONClientsGet401(t *testing.T) {
	f := newFixture()
	s := f.sessionWithToken(t, "stale")
	rec := httptest.NewRecorder()
	f.handler().ServeHTTP(rec, request("/view/history", s, "application/json"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Token expired", body["error"])
	assert.Contains(t, body["redirect"], "https://sso.example/login?redirect=")

	got, err := f.store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Token, "rejected token is dropped")
}

func TestRequireMirrorsUserAndSyncs(t *testing.T) {
	f := newFixture()
	s := f.sessionWithToken(t, "view-token")
	rec := httptest.NewRecorder()
	f.handler("view").ServeHTTP(rec, request("/view", s, ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello Vik", rec.Body.String())

	got, _ := f.store.Get(context.Background(), s.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "view", got.Role)

	select {
	case u := <-f.sync:
		assert.Equal(t, viewer, u)
	case <-time.After(time.Second):
		t.Fatal("user was not synced")
	}
}

func TestRequireWrongRole(t *testing.T) {
	f := newFixture()
	s := f.sessionWithToken(t, "view-token")
	rec := httptest.NewRecorder()
	f.handler("wasteImage").ServeHTTP(rec, request("/portal", s, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "You do not have the required roles to access this page.")
}

func TestRequireAdminBypassesRoles(t *testing.T) {
	f := newFixture()
	s := f.sessionWithToken(t, "admin-token")
	rec := httptest.NewRecorder()
	f.handler("wasteImage").ServeHTTP(rec, request("/portal", s, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginLandings(t *testing.T) {
	roles := Roles{Admin: "admin", WasteImage: "wasteImage", View: "view"}
	for role, want := range map[string]string{"admin": "/register", "wasteImage": "/portal", "view": "/view"} {
		got, ok := roles.Landing(role)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := roles.Landing("guest")
	assert.False(t, ok)
}

func TestLoginStoresToken(t *testing.T) {
	f := newFixture()
	f.sso.login = upstream.LoginResult{Token: "view-token", User: viewer}
	a := &Authenticator{SSO: f.sso, Store: f.store, Roles: Roles{Admin: "admin", WasteImage: "wasteImage", View: "view"}}
	s := session.New()

	landing, err := a.Login(context.Background(), s, "Vik", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/view", landing)

	got, err := f.store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "view-token", got.Token)
	assert.Equal(t, Identity{UserID: "u1", Username: "Vik", Role: "view", Authenticated: true}, IdentityOf(got))
}

func TestLoginFailures(t *testing.T) {
	f := newFixture()
	a := &Authenticator{SSO: f.sso, Store: f.store, Roles: Roles{Admin: "admin", WasteImage: "wasteImage", View: "view"}}

	f.sso.loginErr = &upstream.StatusError{Service: "sso", Status: 401, Message: "Invalid credentials"}
	_, err := a.Login(context.Background(), session.New(), "x", "y")
	code, msg := apperr.Status(err)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", msg)

	f.sso.loginErr = errors.New("dial tcp: refused")
	_, err = a.Login(context.Background(), session.New(), "x", "y")
	_, msg = apperr.Status(err)
	assert.Equal(t, "Login failed", msg)

	f.sso.loginErr = nil
	f.sso.login = upstream.LoginResult{Token: "t", User: upstream.User{ID: "g", Role: "guest"}}
	_, err = a.Login(context.Background(), session.New(), "x", "y")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLogout(t *testing.T) {
	f := newFixture()
	a := &Authenticator{SSO: f.sso, Store: f.store}
	s := f.sessionWithToken(t, "view-token")

	require.NoError(t, a.Logout(context.Background(), s))
	assert.Equal(t, []string{"view-token"}, f.sso.logouts)
	_, err := f.store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
