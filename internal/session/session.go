// Package session keeps per-browser state: the bearer token and a mirror of the
// verified user.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/cache"
	"github.com/ariefcatur/go-waste-portal.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const CookieName = "portal_session"

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"access_token,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearUser drops the token and every mirrored identity field.
func (s *Session) ClearUser() {
	s.Token, s.UserID, s.Username, s.Role = "", "", "", ""
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func New() *Session {
	now := time.Now().UTC()
	return &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// Load returns the session named by the request cookie, or a fresh unsaved one.
func Load(ctx context.Context, st Store, r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return New(), nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return New(), nil
	}
	s, err := st.Get(ctx, c.Value)
	if errors.Is(err, ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func SetCookie(w http.ResponseWriter, s *Session, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ExpireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// maxMemorySessions bounds the in-process store; the least recently saved
// session goes first.
const maxMemorySessions = 100000

// MemoryStore keeps sessions in process. Entries expire ttl after their last
// Save and are swept even when never read again.
type MemoryStore struct {
	clock clockwork.Clock
	c     *cache.TTL[Session]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return newMemoryStore(clockwork.NewRealClock(), ttl)
}

func newMemoryStore(clock clockwork.Clock, ttl time.Duration) *MemoryStore {
	return &MemoryStore{clock: clock, c: cache.NewTTL[Session](clock, ttl, maxMemorySessions)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.c.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	s.UpdatedAt = m.clock.Now().UTC()
	m.c.Set(s.ID, *s)
	m.c.Touch(s.ID)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

// Len is the number of live entries, expired ones included until swept.
func (m *MemoryStore) Len() int { return m.c.Len() }

type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = redisx.TTLSession
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	found, err := redisx.GetJSON(ctx, r.rdb, fmt.Sprintf(redisx.KeySession, id), &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	return redisx.SetJSON(ctx, r.rdb, fmt.Sprintf(redisx.KeySession, s.ID), s, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, fmt.Sprintf(redisx.KeySession, id)).Err()
}
