package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-auth/internal/domain"
)

const userCachePrefix = "auth:user:"

// cachedUser is the Redis representation of a user. The password hash is never cached.
type cachedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CachedUserRepository serves GetByID from Redis in front of another repository.
// Redis failures fall through to the wrapped repository. Cached users carry no
// password hash; GetForUpdate and GetByEmail always reach the wrapped store.
type CachedUserRepository struct {
	UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps base. A nil client or non-positive ttl disables caching.
func NewCachedUserRepository(base UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedUserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUserRepository{UserRepository: base, client: client, ttl: ttl, logger: logger}
}

func (r *CachedUserRepository) enabled() bool {
	return r.client != nil && r.ttl > 0
}

// GetByID returns the cached user or loads and caches it.
func (r *CachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !r.enabled() {
		return r.UserRepository.GetByID(ctx, id)
	}

	key := userCachePrefix + id
	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedUser
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return cached.toDomain(), nil
		}
		r.logger.Debug("discarding corrupt user cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("user cache read failed", zap.Error(err))
	}

	user, err := r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(fromDomain(user))
	if err == nil {
		if setErr := r.client.Set(ctx, key, payload, r.ttl).Err(); setErr != nil {
			r.logger.Warn("user cache write failed", zap.Error(setErr))
		}
	}
	return user, nil
}

// Update writes through and evicts the cached entry.
func (r *CachedUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Update(ctx, user); err != nil {
		return err
	}
	r.Evict(ctx, user.ID)
	return nil
}

// Evict removes a user from the cache.
func (r *CachedUserRepository) Evict(ctx context.Context, id string) {
	if !r.enabled() {
		return
	}
	if err := r.client.Del(ctx, userCachePrefix+id).Err(); err != nil {
		r.logger.Warn("user cache evict failed", zap.Error(err))
	}
}

func fromDomain(u *domain.User) cachedUser {
	return cachedUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
