package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/cache"
	"github.com/ariefcatur/go-waste-portal.git/internal/redisx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Repository persists the working cart per browser session. Every write replaces
// the whole cart; there is no cross-request locking, the last write wins.
type Repository interface {
	Load(ctx context.Context, key string) (Cart, error)
	Save(ctx context.Context, key string, c Cart) error
	Clear(ctx context.Context, key string) error
}

// MemoryRepository keeps drafts in process for the same lifetime the Redis
// repository gives them; abandoned drafts are swept.
type MemoryRepository struct {
	c *cache.TTL[[]Line]
}

func NewMemoryRepository() *MemoryRepository {
	return newMemoryRepository(clockwork.NewRealClock(), redisx.TTLCart)
}

func newMemoryRepository(clock clockwork.Clock, ttl time.Duration) *MemoryRepository {
	return &MemoryRepository{c: cache.NewTTL[[]Line](clock, ttl, maxMemoryDrafts)}
}

const maxMemoryDrafts = 100000

func (r *MemoryRepository) Load(_ context.Context, key string) (Cart, error) {
	lines, _ := r.c.Get(key)
	return Cart{Lines: append([]Line(nil), lines...)}, nil
}

func (r *MemoryRepository) Save(_ context.Context, key string, c Cart) error {
	if c.Empty() {
		r.c.Delete(key)
		return nil
	}
	r.c.Set(key, append([]Line(nil), c.Lines...))
	r.c.Touch(key)
	return nil
}

func (r *MemoryRepository) Clear(_ context.Context, key string) error {
	r.c.Delete(key)
	return nil
}

type RedisRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisRepository(rdb redis.Cmdable) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: redisx.TTLCart}
}

func (r *RedisRepository) Load(ctx context.Context, key string) (Cart, error) {
	var lines []Line
	if _, err := redisx.GetJSON(ctx, r.rdb, fmt.Sprintf(redisx.KeyCart, key), &lines); err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return Cart{Lines: lines}, nil
}

func (r *RedisRepository) Save(ctx context.Context, key string, c Cart) error {
	if c.Empty() {
		return r.Clear(ctx, key)
	}
	return redisx.SetJSON(ctx, r.rdb, fmt.Sprintf(redisx.KeyCart, key), c.Lines, r.ttl)
}

func (r *RedisRepository) Clear(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, fmt.Sprintf(redisx.KeyCart, key)).Err()
}

// DBPool matches the methods from *pgxpool.Pool the repository uses, so tests can swap in pgxmock.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Load(ctx context.Context, key string) (Cart, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT lines FROM cart_drafts WHERE session_id=$1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return Cart{Lines: lines}, nil
}

func (r *PostgresRepository) Save(ctx context.Context, key string, c Cart) error {
	if c.Empty() {
		return r.Clear(ctx, key)
	}
	raw, err := json.Marshal(c.Lines)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO cart_drafts(session_id, lines)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET lines=EXCLUDED.lines, updated_at=now()
	`, key, raw)
	return err
}

func (r *PostgresRepository) Clear(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_drafts WHERE session_id=$1`, key)
	return err
}
