package upstream

import (
	"context"
	"errors"
	"net/http"
)

var ErrNoUser = errors.New("sso: response carried no user")

type SSOClient struct{ c *Client }

func NewSSOClient(c *Client) *SSOClient { return &SSOClient{c: c} }

// Verify resolves the user behind token via GET /verify-auth.
func (s *SSOClient) Verify(ctx context.Context, token string) (User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := s.c.Call(ctx, http.MethodGet, "/verify-auth", nil, token, nil, &out); err != nil {
		return User{}, err
	}
	if out.User == nil {
		return User{}, ErrNoUser
	}
	return *out.User, nil
}

func (s *SSOClient) Login(ctx context.Context, name, password string) (LoginResult, error) {
	var out LoginResult
	body := map[string]string{"name": name, "password": password}
	err := s.c.Call(ctx, http.MethodPost, "/login", nil, "", body, &out)
	return out, err
}

func (s *SSOClient) Logout(ctx context.Context, token string) error {
	return s.c.Call(ctx, http.MethodPost, "/logout", nil, token, struct{}{}, nil)
}

// UserSyncClient mirrors verified users into the backend user store.
type UserSyncClient struct{ c *Client }

func NewUserSyncClient(c *Client) *UserSyncClient { return &UserSyncClient{c: c} }

func (u *UserSyncClient) Sync(ctx context.Context, token string, user User) error {
	return u.c.Call(ctx, http.MethodPost, "/sync-user", nil, token, user, nil)
}
