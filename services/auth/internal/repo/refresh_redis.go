package repo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkg_hash "github.com/Skotchmaster/platform/pkg/hash"
	"github.com/Skotchmaster/platform/services/auth/internal/models"
)

// Key layout, relative to the store prefix:
//
//	token:<hash>  hash {owner, expires_at, created_at} in unix millis
//	owner:<id>    string holding the owner's current token hash
//	expiry        sorted set of token hashes scored by expires_at
//
// Every mutation runs as a single script so the owner pointer, the token and
// the expiry index never disagree.
const (
	tokenKeyPart  = "token:"
	ownerKeyPart  = "owner:"
	expiryKeyPart = "expiry"
)

var createScript = redis.NewScript(`
local old = redis.call("GET", KEYS[1])
if old then
  redis.call("DEL", ARGV[5] .. old)
  redis.call("ZREM", KEYS[3], old)
end
redis.call("HSET", KEYS[2], "owner", ARGV[2], "expires_at", ARGV[3], "created_at", ARGV[4])
redis.call("PEXPIREAT", KEYS[2], ARGV[3])
redis.call("SET", KEYS[1], ARGV[1])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
redis.call("ZADD", KEYS[3], ARGV[3], ARGV[1])
return 1
`)

var deleteByHashScript = redis.NewScript(`
local owner = redis.call("HGET", KEYS[1], "owner")
local n = redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
if owner then
  local ok = ARGV[2] .. owner
  if redis.call("GET", ok) == ARGV[1] then
    redis.call("DEL", ok)
  end
end
return n
`)

var deleteOwnerScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], cur)
return redis.call("DEL", ARGV[1] .. cur)
`)

var deleteExpiredScript = redis.NewScript(`
local hashes = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
for _, h in ipairs(hashes) do
  local key = ARGV[2] .. h
  local owner = redis.call("HGET", key, "owner")
  if owner then
    local ok = ARGV[3] .. owner
    if redis.call("GET", ok) == h then
      redis.call("DEL", ok)
    end
  end
  redis.call("DEL", key)
  redis.call("ZREM", KEYS[1], h)
end
return #hashes
`)

// RedisRefreshStore is the Redis-backed refresh token store. It is intended
// for a single Redis node; the scripts derive keys from stored values.
type RedisRefreshStore struct {
	Client redis.UniversalClient
	TTL    time.Duration
	Prefix string
	Now    func() time.Time
}

func NewRedisRefreshStore(client redis.UniversalClient, ttl time.Duration, prefix string) *RedisRefreshStore {
	if prefix == "" {
		prefix = "refresh:"
	}
	return &RedisRefreshStore{Client: client, TTL: ttl, Prefix: prefix, Now: time.Now}
}

func (s *RedisRefreshStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *RedisRefreshStore) tokenKey(hash string) string { return s.Prefix + tokenKeyPart + hash }
func (s *RedisRefreshStore) ownerKey(id uuid.UUID) string {
	return s.Prefix + ownerKeyPart + id.String()
}
func (s *RedisRefreshStore) expiryKey() string { return s.Prefix + expiryKeyPart }

func (s *RedisRefreshStore) Create(ctx context.Context, owner uuid.UUID) (*models.RefreshToken, error) {
	value, err := newTokenValue()
	if err != nil {
		return nil, err
	}
	now := s.now().Truncate(time.Millisecond)
	hash := pkg_hash.Sha256Hex(value)
	rt := models.RefreshToken{
		TokenHash: hash,
		UserID:    owner,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
		Value:     value,
	}

	keys := []string{s.ownerKey(owner), s.tokenKey(hash), s.expiryKey()}
	err = createScript.Run(ctx, s.Client, keys,
		hash,
		owner.String(),
		rt.ExpiresAt.UnixMilli(),
		rt.CreatedAt.UnixMilli(),
		s.Prefix+tokenKeyPart,
	).Err()
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *RedisRefreshStore) Find(ctx context.Context, value string) (*models.RefreshToken, error) {
	hash := pkg_hash.Sha256Hex(value)
	fields, err := s.Client.HGetAll(ctx, s.tokenKey(hash)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	owner, err := uuid.Parse(fields["owner"])
	if err != nil {
		return nil, errors.New("refresh token has invalid owner")
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, errors.New("refresh token has invalid expiry")
	}
	created, _ := strconv.ParseInt(fields["created_at"], 10, 64)

	return &models.RefreshToken{
		TokenHash: hash,
		UserID:    owner,
		ExpiresAt: time.UnixMilli(expires).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

func (s *RedisRefreshStore) DeleteByValue(ctx context.Context, value string) error {
	hash := pkg_hash.Sha256Hex(value)
	keys := []string{s.tokenKey(hash), s.expiryKey()}
	return deleteByHashScript.Run(ctx, s.Client, keys, hash, s.Prefix+ownerKeyPart).Err()
}

func (s *RedisRefreshStore) DeleteAllForOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	keys := []string{s.ownerKey(owner), s.expiryKey()}
	return deleteOwnerScript.Run(ctx, s.Client, keys, s.Prefix+tokenKeyPart).Int64()
}

func (s *RedisRefreshStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	keys := []string{s.expiryKey()}
	return deleteExpiredScript.Run(ctx, s.Client, keys,
		before.UnixMilli(),
		s.Prefix+tokenKeyPart,
		s.Prefix+ownerKeyPart,
	).Int64()
}
