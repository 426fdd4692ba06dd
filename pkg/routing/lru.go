package routing

import (
	"sync"
	"time"
)

// decisionLRU 固定容量的路由决策缓存
// 槽位数组加显式双向链表：head 是最近使用端，tail 是淘汰端，
// 空闲槽位用 free 链复用，不做动态分配；时间和容量两种淘汰并存
type decisionLRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	slots    []decisionSlot
	index    map[string]int
	head     int
	tail     int
	free     int
}

// decisionSlot 一个缓存槽位
type decisionSlot struct {
	key      string
	value    QueryResult
	storedAt time.Time
	prev     int
	next     int
	inUse    bool
}

const nilSlot = -1

// newDecisionLRU 创建决策缓存
func newDecisionLRU(capacity int, ttl time.Duration) *decisionLRU {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &decisionLRU{
		capacity: capacity,
		ttl:      ttl,
		slots:    make([]decisionSlot, capacity),
		index:    make(map[string]int, capacity),
		head:     nilSlot,
		tail:     nilSlot,
	}

	// 把所有槽位串进空闲链
	for i := 0; i < capacity; i++ {
		c.slots[i].prev = nilSlot
		c.slots[i].next = i + 1
	}
	c.slots[capacity-1].next = nilSlot
	c.free = 0

	return c
}

// get 查询缓存；命中时提升到链表头
// 超过有效期的条目视为不存在并立即回收槽位
func (c *decisionLRU) get(key string) (QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.index[key]
	if !ok {
		return QueryResult{}, false
	}

	if time.Since(c.slots[idx].storedAt) > c.ttl {
		c.evict(idx)
		return QueryResult{}, false
	}

	c.moveToFront(idx)
	return c.slots[idx].value, true
}

// put 写入缓存；容量满时先淘汰 tail
func (c *decisionLRU) put(key string, value QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.index[key]; ok {
		c.slots[idx].value = value
		c.slots[idx].storedAt = time.Now()
		c.moveToFront(idx)
		return
	}

	idx := c.takeFreeSlot()
	if idx == nilSlot {
		// 没有空闲槽位，淘汰最久未用的条目
		idx = c.tail
		c.evict(idx)
		idx = c.takeFreeSlot()
	}

	c.slots[idx] = decisionSlot{
		key:      key,
		value:    value,
		storedAt: time.Now(),
		prev:     nilSlot,
		next:     nilSlot,
		inUse:    true,
	}
	c.index[key] = idx
	c.pushFront(idx)
}

// invalidate 删除指定键
func (c *decisionLRU) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.index[key]; ok {
		c.evict(idx)
	}
}

// len 返回在用条目数
func (c *decisionLRU) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// takeFreeSlot 从空闲链摘一个槽位，没有则返回 nilSlot
func (c *decisionLRU) takeFreeSlot() int {
	idx := c.free
	if idx == nilSlot {
		return nilSlot
	}
	c.free = c.slots[idx].next
	c.slots[idx].next = nilSlot
	return idx
}

// evict 把槽位从使用链摘除并归还空闲链
func (c *decisionLRU) evict(idx int) {
	c.unlink(idx)
	delete(c.index, c.slots[idx].key)

	c.slots[idx] = decisionSlot{prev: nilSlot, next: c.free}
	c.free = idx
}

// moveToFront 把槽位提升到链表头
func (c *decisionLRU) moveToFront(idx int) {
	if c.head == idx {
		return
	}
	c.unlink(idx)
	c.pushFront(idx)
}

// pushFront 把摘除状态的槽位插到链表头
func (c *decisionLRU) pushFront(idx int) {
	c.slots[idx].prev = nilSlot
	c.slots[idx].next = c.head
	if c.head != nilSlot {
		c.slots[c.head].prev = idx
	}
	c.head = idx
	if c.tail == nilSlot {
		c.tail = idx
	}
}

// unlink 把槽位从使用链上摘除，前后指针保持一致
func (c *decisionLRU) unlink(idx int) {
	prev := c.slots[idx].prev
	next := c.slots[idx].next

	if prev != nilSlot {
		c.slots[prev].next = next
	} else if c.head == idx {
		c.head = next
	}

	if next != nilSlot {
		c.slots[next].prev = prev
	} else if c.tail == idx {
		c.tail = prev
	}

	c.slots[idx].prev = nilSlot
	c.slots[idx].next = nilSlot
}
