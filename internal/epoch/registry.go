package epoch

import (
	"fmt"
	"iter"
	"sync"
)

// Registry holds epochs in registration order. It is populated once at
// startup and then sealed; reads never block each other.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byKey  map[string]Epoch
	sealed bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Epoch)}
}

// NewBuiltin creates an unsealed registry pre-populated with the built-in catalogue.
func NewBuiltin() *Registry {
	r := NewRegistry()
	for _, e := range Builtin() {
		if err := r.Register(e); err != nil {
			panic(fmt.Sprintf("builtin catalogue: %v", err))
		}
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r := NewBuiltin()
	r.Seal()
	return r
})

// Default returns the process-wide registry holding the built-in catalogue.
// It is initialized on first use and sealed.
func Default() *Registry {
	return defaultRegistry()
}

// Register inserts e. It fails with ErrDuplicateKey if the key exists,
// ErrSealed after Seal, or ErrInvalidEpoch for out-of-range fields.
func (r *Registry) Register(e Epoch) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("register %q: %w", e.Key, ErrSealed)
	}
	if _, exists := r.byKey[e.Key]; exists {
		return fmt.Errorf("register %q: %w", e.Key, ErrDuplicateKey)
	}
	r.byKey[e.Key] = e.clone()
	r.order = append(r.order, e.Key)
	return nil
}

// Lookup returns the epoch registered under key.
func (r *Registry) Lookup(key string) (Epoch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byKey[key]
	if !ok {
		return Epoch{}, fmt.Errorf("lookup %q: %w", key, ErrNotFound)
	}
	return e.clone(), nil
}

// Index returns the registration position of key.
func (r *Registry) Index(key string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, k := range r.order {
		if k == key {
			return i, true
		}
	}
	return 0, false
}

// All yields every epoch in registration order. The sequence is finite and
// may be ranged over any number of times.
func (r *Registry) All() iter.Seq[Epoch] {
	return func(yield func(Epoch) bool) {
		r.mu.RLock()
		keys := append([]string(nil), r.order...)
		r.mu.RUnlock()

		for _, k := range keys {
			e, err := r.Lookup(k)
			if err != nil {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of registered epochs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Seal blocks further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Reset empties and unseals the registry. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byKey = make(map[string]Epoch)
	r.sealed = false
}
