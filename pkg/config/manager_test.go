package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSection is a test implementation of the Section interface
type mockSection struct {
	id          string
	title       string
	data        map[string]interface{}
	validateErr error
}

func (m *mockSection) ID() string                                { return m.id }
func (m *mockSection) Title() string                             { return m.title }
func (m *mockSection) Description() string                       { return "" }
func (m *mockSection) Data() map[string]interface{}              { return m.data }
func (m *mockSection) SetData(data map[string]interface{}) error { m.data = data; return nil }
func (m *mockSection) Validate() error                           { return m.validateErr }
func (m *mockSection) Reset()                                    { m.data = make(map[string]interface{}) }

// mockStore is a test implementation of the Store interface
type mockStore struct {
	sections map[string]map[string]interface{}
	loadErr  error
	saveErr  error
	saved    bool
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]interface{})}
}

func (m *mockStore) Load() error { return m.loadErr }

func (m *mockStore) Save() error {
	m.saved = true
	return m.saveErr
}

func (m *mockStore) GetSection(sectionID string) (map[string]interface{}, error) {
	if data, exists := m.sections[sectionID]; exists {
		return data, nil
	}
	return make(map[string]interface{}), nil
}

func (m *mockStore) SetSection(sectionID string, data map[string]interface{}) error {
	m.sections[sectionID] = data
	return nil
}

func (m *mockStore) GetAll() (map[string]map[string]interface{}, error) {
	return m.sections, nil
}

func (m *mockStore) SetAll(data map[string]map[string]interface{}) error {
	m.sections = data
	return nil
}

func TestManager_RegisterSection(t *testing.T) {
	t.Run("registers and retrieves", func(t *testing.T) {
		manager := NewManager(newMockStore())
		require.NoError(t, manager.RegisterSection(&mockSection{id: "test"}))

		section, ok := manager.GetSection("test")
		require.True(t, ok)
		assert.Equal(t, "test", section.ID())
	})

	t.Run("rejects duplicate IDs", func(t *testing.T) {
		manager := NewManager(newMockStore())
		require.NoError(t, manager.RegisterSection(&mockSection{id: "test"}))
		assert.Error(t, manager.RegisterSection(&mockSection{id: "test"}))
	})

	t.Run("preserves registration order", func(t *testing.T) {
		manager := NewManager(newMockStore())
		for _, id := range []string{"first", "second", "third"} {
			require.NoError(t, manager.RegisterSection(&mockSection{id: id}))
		}

		sections := manager.GetSections()
		require.Len(t, sections, 3)
		assert.Equal(t, "first", sections[0].ID())
		assert.Equal(t, "second", sections[1].ID())
		assert.Equal(t, "third", sections[2].ID())
	})
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("applies stored data to sections", func(t *testing.T) {
		store := newMockStore()
		store.sections["test"] = map[string]interface{}{"key": "value"}

		manager := NewManager(store)
		section := &mockSection{id: "test", data: make(map[string]interface{})}
		require.NoError(t, manager.RegisterSection(section))

		require.NoError(t, manager.LoadAll())
		assert.Equal(t, "value", section.data["key"])
	})

	t.Run("surfaces store load errors", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = errors.New("load error")

		manager := NewManager(store)
		assert.Error(t, manager.LoadAll())
	})
}

func TestManager_SaveAll(t *testing.T) {
	t.Run("writes every section and saves", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{
			id:   "test",
			data: map[string]interface{}{"key": "value"},
		}))

		require.NoError(t, manager.SaveAll())
		assert.Equal(t, "value", store.sections["test"]["key"])
		assert.True(t, store.saved)
	})

	t.Run("an invalid section blocks the whole save", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		require.NoError(t, manager.RegisterSection(&mockSection{
			id:   "good",
			data: map[string]interface{}{"key": "value"},
		}))
		require.NoError(t, manager.RegisterSection(&mockSection{
			id:          "bad",
			validateErr: errors.New("validation error"),
		}))

		assert.Error(t, manager.SaveAll())
		assert.False(t, store.saved, "nothing may reach disk when any section is invalid")
	})
}

func TestManager_ResetAll(t *testing.T) {
	manager := NewManager(newMockStore())
	section := &mockSection{id: "test", data: map[string]interface{}{"key": "value"}}
	require.NoError(t, manager.RegisterSection(section))

	manager.ResetAll()
	assert.Empty(t, section.data)
}

func TestManager_ConcurrentRegistration(t *testing.T) {
	manager := NewManager(newMockStore())

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			_ = manager.RegisterSection(&mockSection{id: fmt.Sprintf("section%d", i)})
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Len(t, manager.GetSections(), 10)
}
