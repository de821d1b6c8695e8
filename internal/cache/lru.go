package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultLRUCapacity = 1024

// lruEntry 链表节点负载，expiresAt为零值时永不过期
type lruEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// LRU 有界的进程内缓存，按最近使用顺序淘汰
// 过期条目在下一次读取时惰性清除
type LRU struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

// NewLRU 创建容量上限为capacity的LRU缓存
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = defaultLRUCapacity
	}
	return &LRU{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get 读取键值并将条目提升为最近使用
func (c *LRU) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := element.Value.(*lruEntry)
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.removeElement(element)
		return nil, false
	}
	c.order.MoveToFront(element)
	return entry.value, true
}

// Put 写入键值，超出容量时淘汰最久未使用的条目
func (c *LRU) Put(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if element, ok := c.items[key]; ok {
		entry := element.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&lruEntry{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = element

	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Len 返回当前条目数，含尚未惰性清除的过期条目
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU) removeElement(element *list.Element) {
	entry := element.Value.(*lruEntry)
	delete(c.items, entry.key)
	c.order.Remove(element)
}

var _ Cache = (*LRU)(nil)
