package config

import (
	"fmt"
	"sync"
)

// Section is a named group of settings that knows how to serialize
// itself to and from the store's generic map form.
type Section interface {
	// ID returns the stable section identifier used in the store
	ID() string

	// Title returns the human-readable section name
	Title() string

	// Description explains what the section configures
	Description() string

	// Data returns the current settings for persistence
	Data() map[string]interface{}

	// SetData applies loaded settings
	SetData(data map[string]interface{}) error

	// Validate checks the current settings
	Validate() error

	// Reset restores the section defaults
	Reset()
}

// Manager coordinates registered sections with the backing store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex
}

// NewManager creates a manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. Section IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section '%s' already registered", id)
	}

	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns the section with the given ID.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		sections = append(sections, m.sections[id])
	}
	return sections
}

// LoadAll loads the store and applies each section's stored data.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config store: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		data, err := m.store.GetSection(id)
		if err != nil {
			return fmt.Errorf("failed to read section '%s': %w", id, err)
		}
		if err := m.sections[id].SetData(data); err != nil {
			return fmt.Errorf("failed to apply section '%s': %w", id, err)
		}
	}
	return nil
}

// SaveAll validates every section and writes them all to the store.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if err := m.sections[id].Validate(); err != nil {
			return fmt.Errorf("section '%s' is invalid: %w", id, err)
		}
	}

	for _, id := range m.order {
		if err := m.store.SetSection(id, m.sections[id].Data()); err != nil {
			return fmt.Errorf("failed to stage section '%s': %w", id, err)
		}
	}

	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save config store: %w", err)
	}
	return nil
}

// ResetAll restores every section to its defaults.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		m.sections[id].Reset()
	}
}
