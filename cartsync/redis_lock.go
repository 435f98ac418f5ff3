package cartsync

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/storekit/connector"
	"github.com/ceyewan/storekit/xerrors"
)

// redisLockStore 基于 Redis 的结账锁存储
//
// SET NX PX 获取，TTL 即陈旧窗口，到期自动可被抢占；
// 释放用 Lua 校验持有者，避免误删他人的锁。
type redisLockStore struct {
	client *redis.Client
	key    string
}

// NewRedisLockStore 基于 Redis 连接器创建结账锁存储
//
// key 为空时使用 storekit:cartsync:checkout_lock。
func NewRedisLockStore(conn connector.RedisConnector, key string) (LockStore, error) {
	if conn == nil {
		return nil, xerrors.New("cartsync: redis connector is nil")
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.New("cartsync: redis connector not connected")
	}
	if key == "" {
		key = "storekit:cartsync:checkout_lock"
	}
	return &redisLockStore{client: client, key: key}, nil
}

func (s *redisLockStore) Acquire(ctx context.Context, lock CheckoutLock, ttl time.Duration) error {
	value, err := msgpack.Marshal(lock)
	if err != nil {
		return xerrors.Wrap(err, "cartsync: encode checkout lock")
	}

	ok, err := s.client.SetNX(ctx, s.key, value, ttl).Result()
	if err != nil {
		return xerrors.Wrap(err, "cartsync: acquire checkout lock")
	}
	if ok {
		return nil
	}

	// 键已存在：自己持有则刷新，他人持有则拒绝
	holder, err := s.Holder(ctx)
	if err != nil {
		return err
	}
	if holder != nil && holder.Owner != lock.Owner {
		return xerrors.Wrapf(ErrCheckoutLocked, "held by %s", holder.Owner)
	}
	if err := s.client.Set(ctx, s.key, value, ttl).Err(); err != nil {
		return xerrors.Wrap(err, "cartsync: refresh checkout lock")
	}
	return nil
}

// releaseScript 仅当锁仍属于指定持有者时删除
//
// 锁值为 msgpack 编码，Lua 侧无法解码，持有者校验在客户端完成后，
// 以完整值做比对保证删除的仍是校验时看到的那把锁。
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

func (s *redisLockStore) Release(ctx context.Context, owner string) error {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return xerrors.Wrap(err, "cartsync: read checkout lock")
	}

	var lock CheckoutLock
	if err := msgpack.Unmarshal(raw, &lock); err != nil {
		return xerrors.Wrap(err, "cartsync: decode checkout lock")
	}
	if lock.Owner != owner {
		return ErrNotLockOwner
	}

	if _, err := s.client.Eval(ctx, releaseScript, []string{s.key}, raw).Result(); err != nil {
		return xerrors.Wrap(err, "cartsync: release checkout lock")
	}
	return nil
}

func (s *redisLockStore) Holder(ctx context.Context) (*CheckoutLock, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "cartsync: read checkout lock")
	}

	var lock CheckoutLock
	if err := msgpack.Unmarshal(raw, &lock); err != nil {
		return nil, xerrors.Wrap(err, "cartsync: decode checkout lock")
	}
	return &lock, nil
}
