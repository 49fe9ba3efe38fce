package scorer

import (
	"container/list"
	"sync"
	"time"

	"github.com/rushteam/feedkit/core"
)

// cacheKey 是打分缓存键：个性化缓存为 (viewer, post)，
// 全局热点缓存 viewerID 固定为 0。
type cacheKey struct {
	viewerID int64
	postID   int64
}

type cacheEntry struct {
	key        cacheKey
	scores     core.EngagementScores
	capturedAt time.Time
}

// scoreCache 是有界 LRU + TTL 的打分向量缓存。
//
// 不变量：now - capturedAt > ttl 的条目视为不存在，并在下次查到时
// 惰性剔除。所有操作持锁，但临界区只做元数据更新（查表/换链表头），
// 昂贵的重打分在任何锁之外进行。
type scoreCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	ll      *list.List // front = 最近使用
	entries map[cacheKey]*list.Element
}

func newScoreCache(capacity int, ttl time.Duration) *scoreCache {
	return &scoreCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		entries:  make(map[cacheKey]*list.Element, min(capacity, 1024)),
	}
}

// Get 查找并触达一个条目。过期条目按不存在处理并就地剔除。
func (c *scoreCache) Get(key cacheKey) (core.EngagementScores, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return core.EngagementScores{}, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.capturedAt) > c.ttl {
		c.ll.Remove(el)
		delete(c.entries, key)
		return core.EngagementScores{}, false
	}
	c.ll.MoveToFront(el)
	return entry.scores, true
}

// Put 写入/覆盖一个条目，超容量时剔除最久未使用的。
func (c *scoreCache) Put(key cacheKey, scores core.EngagementScores) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.scores = scores
		entry.capturedAt = c.now()
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&cacheEntry{key: key, scores: scores, capturedAt: c.now()})
	c.entries[key] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *scoreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *scoreCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.entries = make(map[cacheKey]*list.Element, min(c.capacity, 1024))
}
