// Package state keeps the mutable records of simulated components. Readers
// always receive deep copies, and writers change a staged copy that becomes
// visible all at once on Commit.
package state

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNotRegistered is returned for keys that were never registered.
var ErrNotRegistered = errors.New("state: key is not registered")

// Manager owns named state objects and coordinates transactional updates.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	typ       reflect.Type
	active    any
	staged    any
	hasStaged bool
}

// NewManager constructs a Manager with no registered states.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Register installs a new state value under the provided key. The value is
// deep copied, so later mutations of the original do not reach the manager.
func (m *Manager) Register(key string, value any) error {
	if key == "" {
		return fmt.Errorf("state: key must be non-empty")
	}
	if value == nil {
		return fmt.Errorf("state: value for %q must be non-nil", key)
	}

	copyVal, err := deepCopy(value)
	if err != nil {
		return fmt.Errorf("state: unable to copy value for %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return fmt.Errorf("state: key %q already registered", key)
	}

	m.entries[key] = &entry{
		typ:    reflect.TypeOf(value),
		active: copyVal,
	}

	return nil
}

// Load returns a deep copy of the committed value stored under key. Staged,
// uncommitted changes are never visible to Load.
func (m *Manager) Load(key string) (any, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	var active any
	if ok {
		active = e.active
	}
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, key)
	}

	return deepCopy(active)
}

// Stage returns a mutable copy of the active value for key. Repeated calls
// return the same staged value until it is committed or discarded.
func (m *Manager) Stage(key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, key)
	}

	if e.hasStaged {
		return e.staged, nil
	}

	copyVal, err := deepCopy(e.active)
	if err != nil {
		return nil, fmt.Errorf("state: unable to copy value for %q: %w", key, err)
	}

	e.staged = copyVal
	e.hasStaged = true

	return e.staged, nil
}

// Commit makes the staged value for key the active one. It is an error to
// call Commit when there is no staged value.
func (m *Manager) Commit(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, key)
	}
	if !e.hasStaged {
		return fmt.Errorf("state: key %q has no staged value", key)
	}

	e.active = e.staged
	e.staged = nil
	e.hasStaged = false

	return nil
}

// Discard forgets the staged value for key, if any.
func (m *Manager) Discard(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.staged = nil
		e.hasStaged = false
	}
}

// Keys lists the registered keys in no particular order.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}

	return keys
}

// Update stages the value under key, hands it to fn, and commits it. When fn
// returns an error, the staged value is discarded and the error returned.
func Update[T any](m *Manager, key string, fn func(*T) error) error {
	staged, err := m.Stage(key)
	if err != nil {
		return err
	}

	value, ok := staged.(*T)
	if !ok {
		m.Discard(key)
		var zero *T
		return fmt.Errorf("state: key %q holds %T, not %T", key, staged, zero)
	}

	if err := fn(value); err != nil {
		m.Discard(key)
		return err
	}

	return m.Commit(key)
}

// LoadAs is Load with a typed result.
func LoadAs[T any](m *Manager, key string) (*T, error) {
	loaded, err := m.Load(key)
	if err != nil {
		return nil, err
	}

	value, ok := loaded.(*T)
	if !ok {
		var zero *T
		return nil, fmt.Errorf("state: key %q holds %T, not %T", key, loaded, zero)
	}

	return value, nil
}

func deepCopy(value any) (any, error) {
	registerGobType(value)

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	typ := reflect.TypeOf(value)
	var target reflect.Value
	if typ.Kind() == reflect.Ptr {
		target = reflect.New(typ.Elem())
	} else {
		target = reflect.New(typ)
	}

	dec := gob.NewDecoder(&buf)
	if err := dec.Decode(target.Interface()); err != nil {
		return nil, err
	}

	if typ.Kind() == reflect.Ptr {
		return target.Interface(), nil
	}

	return target.Elem().Interface(), nil
}

var registeredTypes sync.Map

func registerGobType(value any) {
	typ := reflect.TypeOf(value)
	if _, done := registeredTypes.LoadOrStore(typ, struct{}{}); done {
		return
	}

	gob.Register(value)
	if typ.Kind() != reflect.Ptr {
		gob.Register(reflect.New(typ).Interface())
	}
}
