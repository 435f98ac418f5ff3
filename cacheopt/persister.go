package cacheopt

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/storekit/connector"
	"github.com/ceyewan/storekit/xerrors"
)

// Persister 关键缓存子集的持久化存储能力抽象
type Persister interface {
	// Save 保存一个键的编码值
	Save(ctx context.Context, key string, data []byte) error
	// Load 读取一个键的编码值，不存在返回 (nil, false, nil)
	Load(ctx context.Context, key string) ([]byte, bool, error)
}

// memoryPersister 进程内持久化（测试与单进程场景）
type memoryPersister struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryPersister 创建进程内持久化存储
func NewMemoryPersister() Persister {
	return &memoryPersister{entries: make(map[string][]byte)}
}

func (p *memoryPersister) Save(ctx context.Context, key string, data []byte) error {
	dup := make([]byte, len(data))
	copy(dup, data)

	p.mu.Lock()
	p.entries[key] = dup
	p.mu.Unlock()
	return nil
}

func (p *memoryPersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	data, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	dup := make([]byte, len(data))
	copy(dup, data)
	return dup, true, nil
}

// redisPersister 基于 Redis 的持久化，跨进程重启保留关键子集
type redisPersister struct {
	client *redis.Client
	prefix string
}

// NewRedisPersister 基于 Redis 连接器创建持久化存储
//
// prefix 为空时使用 storekit:cacheopt:。
func NewRedisPersister(conn connector.RedisConnector, prefix string) (Persister, error) {
	if conn == nil {
		return nil, xerrors.New("cacheopt: redis connector is nil")
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.New("cacheopt: redis connector not connected")
	}
	if prefix == "" {
		prefix = "storekit:cacheopt:"
	}
	return &redisPersister{client: client, prefix: prefix}, nil
}

func (p *redisPersister) Save(ctx context.Context, key string, data []byte) error {
	if err := p.client.Set(ctx, p.prefix+key, data, 0).Err(); err != nil {
		return xerrors.Wrapf(err, "cacheopt: persist %s", key)
	}
	return nil
}

func (p *redisPersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "cacheopt: load %s", key)
	}
	return data, true, nil
}
