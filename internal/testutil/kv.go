package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrInjected is returned by MemoryKV operations while failure is enabled.
var ErrInjected = errors.New("injected store failure")

// MemoryKV is an in-memory stand-in for *store.Store.
//
// It implements the same key-value methods (StringSet, PutStringSet,
// AddToStringSet, Setting, PutSetting, DeleteSetting) and can be switched into a failing
// mode to exercise StoreUnavailable paths.
type MemoryKV struct {
	mu       sync.Mutex
	sets     map[string][]string
	settings map[string]string
	failing  bool
	puts     int
	adds     int
}

// NewMemoryKV creates an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		sets:     make(map[string][]string),
		settings: make(map[string]string),
	}
}

// SetFailing makes every subsequent operation return ErrInjected (or not).
func (m *MemoryKV) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Puts returns how many PutStringSet calls succeeded.
func (m *MemoryKV) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Adds returns how many AddToStringSet calls succeeded.
func (m *MemoryKV) Adds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adds
}

func (m *MemoryKV) StringSet(_ context.Context, namespace, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, ErrInjected
	}
	return slices.Clone(m.sets[namespace+"/"+key]), nil
}

func (m *MemoryKV) PutStringSet(_ context.Context, namespace, key string, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrInjected
	}
	var set []string
	for _, v := range members {
		if !slices.Contains(set, v) {
			set = append(set, v)
		}
	}
	m.sets[namespace+"/"+key] = set
	m.puts++
	return nil
}

func (m *MemoryKV) AddToStringSet(_ context.Context, namespace, key, member string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, ErrInjected
	}
	set := m.sets[namespace+"/"+key]
	if !slices.Contains(set, member) {
		set = append(set, member)
		m.sets[namespace+"/"+key] = set
	}
	m.adds++
	return len(set), nil
}

func (m *MemoryKV) Setting(_ context.Context, namespace, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", false, ErrInjected
	}
	v, ok := m.settings[namespace+"/"+key]
	return v, ok, nil
}

func (m *MemoryKV) PutSetting(_ context.Context, namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrInjected
	}
	m.settings[namespace+"/"+key] = value
	return nil
}

func (m *MemoryKV) DeleteSetting(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return ErrInjected
	}
	delete(m.settings, namespace+"/"+key)
	return nil
}
