package cartsync

import (
	"context"
	"sync"
)

// memoryChannel 进程内广播通道
//
// 同进程多标签页（多 Syncer）场景的 storage 事件模拟：
// 发布异步投递给除发布者外注册在同一键上的所有处理器。
type memoryChannel struct {
	mu       sync.RWMutex
	handlers map[string]map[int]func([]byte)
	nextID   int
	closed   bool
}

// NewMemoryChannel 创建进程内广播通道
func NewMemoryChannel() Channel {
	return &memoryChannel{
		handlers: make(map[string]map[int]func([]byte)),
	}
}

func (c *memoryChannel) Publish(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}

	for _, handler := range c.handlers[key] {
		// 投递复制后的载荷，异步模拟 storage 事件
		data := make([]byte, len(payload))
		copy(data, payload)
		h := handler
		go h(data)
	}
	return nil
}

func (c *memoryChannel) Subscribe(ctx context.Context, key string, handler func([]byte)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}

	if c.handlers[key] == nil {
		c.handlers[key] = make(map[int]func([]byte))
	}
	id := c.nextID
	c.nextID++
	c.handlers[key][id] = handler

	return func() {
		c.mu.Lock()
		delete(c.handlers[key], id)
		c.mu.Unlock()
	}, nil
}

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.handlers = make(map[string]map[int]func([]byte))
	c.mu.Unlock()
	return nil
}
