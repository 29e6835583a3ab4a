package service

import "sync"

// ResultCache 缓存派生统计结果。键需包含完整的筛选/排序条件与输入指纹（见 views.Key），
// 因此快照变化后旧条目不会被命中，只会按 FIFO 顺序淘汰。
// 缓存的值会被多个请求共享，调用方不得修改。
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]any
	order    []string
	onHit    func()
	onMiss   func()
}

// NewResultCache 创建容量为 capacity 的缓存，capacity<=0 表示不缓存。
func NewResultCache(capacity int) *ResultCache {
	if capacity < 0 {
		capacity = 0
	}
	return &ResultCache{
		capacity: capacity,
		entries:  make(map[string]any, capacity),
	}
}

// WithObserver 注册命中/未命中回调，通常用于上报指标。
func (c *ResultCache) WithObserver(onHit, onMiss func()) *ResultCache {
	c.onHit = onHit
	c.onMiss = onMiss
	return c
}

// Get 读取缓存。
func (c *ResultCache) Get(key string) (any, bool) {
	c.mu.Lock()
	value, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		if c.onHit != nil {
			c.onHit()
		}
	} else if c.onMiss != nil {
		c.onMiss()
	}
	return value, ok
}

// Put 写入缓存，超出容量时淘汰最早写入的条目。
func (c *ResultCache) Put(key string, value any) {
	if c.capacity == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = value
		return
	}
	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = value
	c.order = append(c.order, key)
}

// Len 返回当前条目数。
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge 清空缓存。
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any, c.capacity)
	c.order = nil
}

// memoize 在缓存中查找 key，未命中时调用 compute 并写回。c 为 nil 时直接计算。
func memoize[T any](c *ResultCache, key string, compute func() T) T {
	if c == nil {
		return compute()
	}
	if cached, ok := c.Get(key); ok {
		if value, ok := cached.(T); ok {
			return value
		}
	}
	value := compute()
	c.Put(key, value)
	return value
}
