// Package catalog keeps the service's locally held copy of persisted entities and applies
// every write optimistically: the change is applied locally, replaced with the store's
// response on success and rolled back on failure.
package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// Entity is anything the catalog can hold. Clone must return a deep copy.
type Entity[T any] interface {
	ID() uuid.UUID
	Clone() T
}

type entry[T any] struct {
	token   uint64
	item    T
	pending bool
}

// Collection is an ordered, concurrency-safe set of entities keyed by identifier.
// Entries created locally but not yet confirmed by the store are held under a private
// token until reconciliation.
type Collection[T Entity[T]] struct {
	mu      sync.RWMutex
	name    string
	entries []entry[T]
	next    uint64
	loaded  bool
}

// New creates an empty collection. name is used in not-found errors.
func New[T Entity[T]](name string) *Collection[T] {
	return &Collection[T]{name: name}
}

// Load replaces the contents with items, in order.
func (c *Collection[T]) Load(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make([]entry[T], 0, len(items))
	for _, it := range items {
		c.entries = append(c.entries, c.newEntry(it.Clone()))
	}
	c.loaded = true
}

// Loaded reports whether Load has been called at least once.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// All returns copies of every entry, in order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.item.Clone()
	}
	return out
}

// Get returns a copy of the entry with the given identifier.
func (c *Collection[T]) Get(id uuid.UUID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexOf(id); i >= 0 {
		return c.entries[i].item.Clone(), true
	}
	var zero T
	return zero, false
}

// Len returns the number of entries, including unconfirmed ones.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Create appends placeholder, calls persist, and swaps the placeholder for the stored
// record. On failure the placeholder is removed and the error returned untouched.
func (c *Collection[T]) Create(ctx context.Context, placeholder T, persist func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	e := c.newEntry(placeholder.Clone())
	e.pending = true
	c.entries = append(c.entries, e)
	c.mu.Unlock()

	stored, err := persist(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOfToken(e.token)
	if err != nil {
		if i >= 0 {
			c.removeAt(i)
		}
		var zero T
		return zero, err
	}

	confirmed := stored.Clone()
	switch {
	case i >= 0:
		c.entries[i].item = confirmed
		c.entries[i].pending = false
	case c.indexOf(confirmed.ID()) < 0:
		// The placeholder was dropped by a concurrent reload; keep the stored record.
		c.entries = append(c.entries, c.newEntry(confirmed))
	}
	return stored.Clone(), nil
}

// Update applies mutate to the local entry, calls persist, and replaces the entry with
// the stored record. On failure the entry is restored to its pre-edit value.
func (c *Collection[T]) Update(ctx context.Context, id uuid.UUID, mutate func(T) error, persist func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return zero, domain.NewNotFoundError(c.name, id.String())
	}
	previous := c.entries[i].item.Clone()
	edited := c.entries[i].item.Clone()
	if err := mutate(edited); err != nil {
		c.mu.Unlock()
		return zero, err
	}
	c.entries[i].item = edited
	c.mu.Unlock()

	stored, err := persist(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if j := c.indexOf(id); j >= 0 {
			c.entries[j].item = previous
		}
		return zero, err
	}
	if j := c.indexOf(id); j >= 0 {
		c.entries[j].item = stored.Clone()
	}
	return stored.Clone(), nil
}

// Delete removes the entry, calls persist, and reinserts it at its old position on failure.
func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID, persist func(context.Context) error) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return domain.NewNotFoundError(c.name, id.String())
	}
	removed := c.entries[i]
	c.removeAt(i)
	c.mu.Unlock()

	if err := persist(ctx); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.indexOf(id) < 0 {
			at := i
			if at > len(c.entries) {
				at = len(c.entries)
			}
			c.entries = append(c.entries, entry[T]{})
			copy(c.entries[at+1:], c.entries[at:])
			c.entries[at] = removed
		}
		return err
	}
	return nil
}

// Upsert inserts or replaces an entry confirmed elsewhere, such as by another instance.
func (c *Collection[T]) Upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(item.ID()); i >= 0 {
		c.entries[i].item = item.Clone()
		return
	}
	c.entries = append(c.entries, c.newEntry(item.Clone()))
}

// Remove drops an entry without touching the store. It reports whether one was present.
func (c *Collection[T]) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(id); i >= 0 {
		c.removeAt(i)
		return true
	}
	return false
}

func (c *Collection[T]) newEntry(item T) entry[T] {
	c.next++
	return entry[T]{token: c.next, item: item}
}

// indexOf skips unconfirmed placeholders, whose identifiers are not authoritative.
func (c *Collection[T]) indexOf(id uuid.UUID) int {
	for i, e := range c.entries {
		if !e.pending && e.item.ID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) indexOfToken(token uint64) int {
	for i, e := range c.entries {
		if e.token == token {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) removeAt(i int) {
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
}
