package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"laundry-ops/backend/internal/portal/domain"
)

const redisKeyPrefix = "portal:session:"

// expiredRetention keeps expired sessions readable for a while so a late reconnect is told
// its session expired instead of being treated as anonymous.
const expiredRetention = 24 * time.Hour

// RedisOpts configures the Redis portal session backend.
type RedisOpts struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

type redisSession struct {
	DeliveryID   string     `json:"deliveryId"`
	OrderID      string     `json:"orderId"`
	Contact      string     `json:"contact"`
	CustomerName string     `json:"customerName,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type RedisRepository struct {
	rdb     *redis.Client
	nowF    func() time.Time
	timeout time.Duration
}

// NewRedisRepository returns a portal session repository that stores sessions as JSON under portal:session:<hash>.
func NewRedisRepository(o RedisOpts) *RedisRepository {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return &RedisRepository{rdb: rdb, nowF: time.Now, timeout: timeout}
}

func redisKey(tokenHash string) string {
	return redisKeyPrefix + tokenHash
}

// GetByTokenHash returns the session for tokenHash, or nil if the key does not exist.
func (r *RedisRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	val, err := r.rdb.Get(ctx, redisKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("portal redis get: %w", err)
	}
	return decodeRedisSession(tokenHash, val)
}

// Put stores the session. The key outlives ExpiresAt by expiredRetention; sessions without expiry never expire.
func (r *RedisRepository) Put(ctx context.Context, s *domain.Session) error {
	payload, err := json.Marshal(redisSession{
		DeliveryID:   s.DeliveryID,
		OrderID:      s.OrderID,
		Contact:      s.Contact,
		CustomerName: s.CustomerName,
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    s.CreatedAt,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.rdb.Set(ctx, redisKey(s.TokenHash), payload, keyTTL(s.ExpiresAt, r.nowF())).Err()
}

// Ping checks connectivity; used by the health check.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RedisRepository) Close() error {
	return r.rdb.Close()
}

func keyTTL(expiresAt *time.Time, now time.Time) time.Duration {
	if expiresAt == nil {
		return 0
	}
	ttl := expiresAt.Sub(now) + expiredRetention
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

func decodeRedisSession(tokenHash string, val []byte) (*domain.Session, error) {
	var rs redisSession
	if err := json.Unmarshal(val, &rs); err != nil {
		return nil, fmt.Errorf("portal redis decode: %w", err)
	}
	return &domain.Session{
		TokenHash:    tokenHash,
		DeliveryID:   rs.DeliveryID,
		OrderID:      rs.OrderID,
		Contact:      rs.Contact,
		CustomerName: rs.CustomerName,
		ExpiresAt:    rs.ExpiresAt,
		CreatedAt:    rs.CreatedAt,
	}, nil
}
