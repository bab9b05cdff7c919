package assets

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Item is one loaded asset held by the store. Payload is the decoded value
// (a *scene.Model, *scene.Texture, *scene.EnvironmentMap or *MaterialSet
// depending on Type).
type Item struct {
	Name    string
	Type    string
	Payload interface{}
}

// ItemStore maps asset names to loaded items. It is safe for concurrent use
// and supports waiting on names that have not been stored yet.
type ItemStore struct {
	mu      sync.Mutex
	items   map[string]Item
	order   []string
	waiters map[string][]chan Item
}

func NewItemStore() *ItemStore {
	return &ItemStore{
		items:   map[string]Item{},
		waiters: map[string][]chan Item{},
	}
}

// Set stores an item and releases every waiter on its name. The first write
// for a name wins; later writes for the same name are ignored.
func (s *ItemStore) Set(item Item) {
	s.mu.Lock()
	if _, ok := s.items[item.Name]; ok {
		s.mu.Unlock()
		return
	}
	s.items[item.Name] = item
	s.order = append(s.order, item.Name)
	waiting := s.waiters[item.Name]
	delete(s.waiters, item.Name)
	s.mu.Unlock()

	for _, ch := range waiting {
		ch <- item
	}
}

// Replace overwrites the item for a name in place, keeping its position in
// insertion order. Unknown names fall back to Set semantics. Used by hot
// reloads; regular loading goes through the first-write-wins Set.
func (s *ItemStore) Replace(item Item) {
	s.mu.Lock()
	if _, ok := s.items[item.Name]; !ok {
		s.mu.Unlock()
		s.Set(item)
		return
	}
	s.items[item.Name] = item
	s.mu.Unlock()
}

// Get returns the item for a name. The second result is false when the name
// has not been stored.
func (s *ItemStore) Get(name string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[name]
	return item, ok
}

// Has reports whether the name has been stored.
func (s *ItemStore) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Len returns the number of stored items.
func (s *ItemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Names returns stored names in insertion order.
func (s *ItemStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// NamesOfType returns the names of stored items with the given type, in
// insertion order.
func (s *ItemStore) NamesOfType(assetType string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, name := range s.order {
		if s.items[name].Type == assetType {
			out = append(out, name)
		}
	}
	return out
}

// FirstOfType returns the earliest stored item of the given type; used for
// same-type fallback substitution after a load failure.
func (s *ItemStore) FirstOfType(assetType string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		if it := s.items[name]; it.Type == assetType {
			return it, true
		}
	}
	return Item{}, false
}

// WaitFor blocks until the name is stored or the context ends. Names already
// present return immediately.
func (s *ItemStore) WaitFor(ctx context.Context, name string) (Item, error) {
	s.mu.Lock()
	if item, ok := s.items[name]; ok {
		s.mu.Unlock()
		return item, nil
	}
	ch := make(chan Item, 1)
	s.waiters[name] = append(s.waiters[name], ch)
	s.mu.Unlock()

	select {
	case item := <-ch:
		return item, nil
	case <-ctx.Done():
		s.dropWaiter(name, ch)
		return Item{}, errors.Wrapf(ctx.Err(), "waiting for item %q", name)
	}
}

func (s *ItemStore) dropWaiter(name string, ch chan Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiting := s.waiters[name]
	for i, w := range waiting {
		if w == ch {
			s.waiters[name] = append(waiting[:i], waiting[i+1:]...)
			return
		}
	}
}

// Cache is the process-wide asset cache that survives pipeline re-runs. It
// short-circuits reloads by name and is never evicted for the session.
type Cache struct {
	mu    sync.Mutex
	items map[string]Item
}

var (
	globalCache     *Cache
	globalCacheOnce sync.Once
)

// GlobalCache returns the process-wide cache, constructing it on first use.
// Re-initialization is a no-op.
func GlobalCache() *Cache {
	globalCacheOnce.Do(func() {
		globalCache = NewCache()
	})
	return globalCache
}

// NewCache builds an isolated cache, mainly for tests that must not share
// state with the process-wide one.
func NewCache() *Cache {
	return &Cache{items: map[string]Item{}}
}

func (c *Cache) Put(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[item.Name]; ok {
		return
	}
	c.items[item.Name] = item
}

// Replace overwrites a cached item regardless of any existing entry.
func (c *Cache) Replace(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.Name] = item
}

func (c *Cache) Get(name string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[name]
	return item, ok
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Reset empties the cache. Intended for tests.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]Item{}
}
