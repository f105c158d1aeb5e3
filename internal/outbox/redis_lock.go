package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultLockKey = "outbox:worker:lock"

// Only the owner may delete the lock.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock is a Locker held for at most ttl per drain round.
type RedisLock struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = DefaultLockKey
	}
	return &RedisLock{client: client, key: key, owner: uuid.NewString(), ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.owner).Err()
}
