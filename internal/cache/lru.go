package cache

import (
	"container/list"
	"time"

	"capprices/internal/core"
)

// LRU is a size-bounded least-recently-used map. It is not safe for
// concurrent use.
type LRU[T any] struct {
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	hits    int
	misses  int
}

type entry[T any] struct {
	key  string
	data T
}

// NewLRU creates an LRU holding at most maxSize entries.
func NewLRU[T any](maxSize int) *LRU[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRU[T]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value and marks it as most recently used.
func (c *LRU[T]) Get(key string) (T, bool) {
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		var zero T
		return zero, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[T]).data, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *LRU[T]) Set(key string, data T) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[T]).data = data
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&entry[T]{key: key, data: data})

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[T]).key)
	}
}

// Size returns the current number of entries.
func (c *LRU[T]) Size() int {
	return len(c.items)
}

// Stats returns the hit and miss counters.
func (c *LRU[T]) Stats() (hits, misses int) {
	return c.hits, c.misses
}

// MemoizeDates wraps parse so that each distinct date string is parsed once
// while it stays in lru. Failed parses are not remembered.
func MemoizeDates(parse core.DateParser, lru *LRU[time.Time]) core.DateParser {
	return func(value string) (time.Time, error) {
		if t, ok := lru.Get(value); ok {
			return t, nil
		}
		t, err := parse(value)
		if err != nil {
			return time.Time{}, err
		}
		lru.Set(value, t)
		return t, nil
	}
}
