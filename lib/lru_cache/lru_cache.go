package lru_cache

// none marks a missing neighbour, or an empty head/tail.
const none = -1

type entry[K comparable, V any] struct {
	key   K
	value V
	live  bool

	prev int
	next int
}

// LRU is a fixed capacity cache that evicts the least recently used entry.
//
// Entries live in an arena slice and link to each other by slot index, so
// promotion and eviction never allocate. Slots of removed entries go onto a
// free list and are reused by later inserts.
//
// LRU is not safe for concurrent use.
type LRU[K comparable, V any] struct {
	capacity int
	index    map[K]int
	entries  []entry[K, V]
	free     []int

	head int // most recently used
	tail int // least recently used
}

func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 0 {
		capacity = 0
	}

	return &LRU[K, V]{
		capacity: capacity,
		index:    make(map[K]int, capacity),
		entries:  make([]entry[K, V], 0, capacity),
		head:     none,
		tail:     none,
	}
}

// Put stores value under key and marks it as most recently used. If key was
// already present its previous value is returned with replaced set to true.
// Inserting a new key into a full cache evicts the least recently used entry.
func (l *LRU[K, V]) Put(key K, value V) (previous V, replaced bool) {
	if i, exists := l.index[key]; exists {
		l.promote(i)

		e := &l.entries[i]
		previous = e.value
		e.value = value

		return previous, true
	}

	i := l.alloc(key, value)
	l.pushFront(i)
	l.index[key] = i

	for len(l.index) > l.capacity {
		l.Evict()
	}

	return previous, false
}

// Get returns the value stored under key and marks it as most recently used.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	i, exists := l.index[key]
	if !exists {
		var zero V
		return zero, false
	}

	l.promote(i)

	return l.entries[i].value, true
}

// Update promotes key and lets fn modify the stored value in place.
// It reports whether key was present.
func (l *LRU[K, V]) Update(key K, fn func(v *V)) bool {
	i, exists := l.index[key]
	if !exists {
		return false
	}

	l.promote(i)
	fn(&l.entries[i].value)

	return true
}

// Peek returns the value stored under key without touching its recency.
func (l *LRU[K, V]) Peek(key K) (V, bool) {
	i, exists := l.index[key]
	if !exists {
		var zero V
		return zero, false
	}

	return l.entries[i].value, true
}

// Contains reports whether key is cached. It does not promote the entry.
func (l *LRU[K, V]) Contains(key K) bool {
	_, exists := l.index[key]
	return exists
}

// Remove deletes key from the cache and returns the value it held.
func (l *LRU[K, V]) Remove(key K) (V, bool) {
	i, exists := l.index[key]
	if !exists {
		var zero V
		return zero, false
	}

	delete(l.index, key)
	l.unlink(i)

	return l.release(i), true
}

// Evict drops the least recently used entry and returns it.
func (l *LRU[K, V]) Evict() (key K, value V, evicted bool) {
	if l.tail == none {
		return key, value, false
	}

	i := l.tail
	key = l.entries[i].key

	delete(l.index, key)
	l.unlink(i)

	return key, l.release(i), true
}

// Keys returns cached keys ordered from most to least recently used.
func (l *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(l.index))
	for i := l.head; i != none; i = l.entries[i].next {
		keys = append(keys, l.entries[i].key)
	}

	return keys
}

// Purge drops every entry and resets the arena.
func (l *LRU[K, V]) Purge() {
	l.index = make(map[K]int, l.capacity)
	l.entries = make([]entry[K, V], 0, l.capacity)
	l.free = nil
	l.head, l.tail = none, none
}

func (l *LRU[K, V]) Len() int {
	return len(l.index)
}

func (l *LRU[K, V]) Cap() int {
	return l.capacity
}

func (l *LRU[K, V]) IsEmpty() bool {
	return len(l.index) == 0
}

func (l *LRU[K, V]) IsFull() bool {
	return len(l.index) == l.capacity
}

// alloc places a new live entry into a free slot, growing the arena when
// there is none.
func (l *LRU[K, V]) alloc(key K, value V) int {
	e := entry[K, V]{key: key, value: value, live: true, prev: none, next: none}

	if n := len(l.free); n > 0 {
		i := l.free[n-1]
		l.free = l.free[:n-1]
		l.entries[i] = e

		return i
	}

	l.entries = append(l.entries, e)

	return len(l.entries) - 1
}

// release takes the value out of slot i and tombstones it.
func (l *LRU[K, V]) release(i int) V {
	value := l.entries[i].value
	l.entries[i] = entry[K, V]{prev: none, next: none}
	l.free = append(l.free, i)

	return value
}

func (l *LRU[K, V]) promote(i int) {
	if l.head == i {
		return
	}

	l.unlink(i)
	l.pushFront(i)
}

func (l *LRU[K, V]) pushFront(i int) {
	e := &l.entries[i]
	e.prev = none
	e.next = l.head

	if l.head != none {
		l.entries[l.head].prev = i
	}

	l.head = i
	if l.tail == none {
		l.tail = i
	}
}

func (l *LRU[K, V]) unlink(i int) {
	prev, next := l.entries[i].prev, l.entries[i].next

	if prev != none {
		l.entries[prev].next = next
	} else {
		l.head = next
	}

	if next != none {
		l.entries[next].prev = prev
	} else {
		l.tail = prev
	}

	l.entries[i].prev, l.entries[i].next = none, none
}
