package settings

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cast"

	"github.com/minotaur-io/minotaur/errors"
)

// Store is a priority-layered settings map. Each key holds candidate values
// at named priorities; reads always observe the highest-priority value.
//
// A Store is frozen after construction: Set, Delete, and Update fail with a
// SETTINGS_FROZEN error unless run inside Unfreeze. All methods are safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	frozen bool
	data   map[string]*Attributes
}

// New creates a Store populated from initial at the given priority and
// freezes it. A nil initial map yields an empty frozen store.
func New(initial map[string]any, priority string) (*Store, error) {
	s := &Store{data: make(map[string]*Attributes)}
	for key, value := range initial {
		if err := s.set(key, value, priority); err != nil {
			return nil, err
		}
	}
	s.frozen = true
	return s, nil
}

// Frozen reports whether the store currently rejects mutation.
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Unfreeze runs fn with the store temporarily unfrozen, restoring the
// previous frozen state afterwards even if fn returns an error.
func (s *Store) Unfreeze(fn func(*Store) error) error {
	s.mu.Lock()
	prev := s.frozen
	s.frozen = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.frozen = prev
		s.mu.Unlock()
	}()

	return fn(s)
}

// Get returns the highest-priority value for key. A missing key is a
// KEY_NOT_FOUND error.
func (s *Store) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attrs, ok := s.data[key]
	if !ok {
		return nil, errors.KeyNotFound(key)
	}
	value, ok := attrs.Get()
	if !ok {
		return nil, errors.KeyNotFound(key)
	}
	return value, nil
}

// GetDefault returns the value for key, or fallback when the key is absent.
func (s *Store) GetDefault(key string, fallback any) any {
	value, err := s.Get(key)
	if err != nil {
		return fallback
	}
	return value
}

// GetString returns the value for key coerced to a string.
func (s *Store) GetString(key string) string {
	return cast.ToString(s.GetDefault(key, ""))
}

// GetInt returns the value for key coerced to an int.
func (s *Store) GetInt(key string) int {
	return cast.ToInt(s.GetDefault(key, 0))
}

// GetBool returns the value for key coerced to a bool.
func (s *Store) GetBool(key string) bool {
	return cast.ToBool(s.GetDefault(key, false))
}

// GetDuration returns the value for key coerced to a time.Duration.
// Plain integers are interpreted as seconds, so SCHEDULER_INTERVAL=3
// and SCHEDULER_INTERVAL=3s mean the same thing.
func (s *Store) GetDuration(key string) time.Duration {
	value, err := s.Get(key)
	if err != nil {
		return 0
	}
	switch v := value.(type) {
	case int, int32, int64, float64:
		return time.Duration(cast.ToInt64(v)) * time.Second
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Environment variables arrive as strings, so a bare number
		// still means seconds.
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(n * float64(time.Second))
		}
		return 0
	default:
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
		return time.Duration(cast.ToInt64(v)) * time.Second
	}
}

// PriorityOf returns the name of the priority currently shadowing key.
func (s *Store) PriorityOf(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attrs, ok := s.data[key]
	if !ok {
		return "", errors.KeyNotFound(key)
	}
	priority, ok := attrs.Priority()
	if !ok {
		return "", errors.KeyNotFound(key)
	}
	return priority, nil
}

// Has reports whether key exists in the store.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a snapshot of every key resolved to its highest-priority value.
func (s *Store) Map() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.data))
	for key, attrs := range s.data {
		if value, ok := attrs.Get(); ok {
			out[key] = value
		}
	}
	return out
}

// Set records value for key at the given priority.
func (s *Store) Set(key string, value any, priority string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return errors.SettingsFrozen()
	}
	return s.set(key, value, priority)
}

// set assumes the lock is held and the frozen check has passed.
func (s *Store) set(key string, value any, priority string) error {
	attrs, ok := s.data[key]
	if !ok {
		attrs = &Attributes{}
	}
	if err := attrs.Set(value, priority); err != nil {
		return err
	}
	s.data[key] = attrs
	return nil
}

// Delete removes key and all of its layered values.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return errors.SettingsFrozen()
	}
	if _, ok := s.data[key]; !ok {
		return errors.KeyNotFound(key)
	}
	delete(s.data, key)
	return nil
}

// Update records every entry of values at the given priority.
// A nil map is a no-op.
func (s *Store) Update(values map[string]any, priority string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return errors.SettingsFrozen()
	}
	for key, value := range values {
		if err := s.set(key, value, priority); err != nil {
			return err
		}
	}
	return nil
}
