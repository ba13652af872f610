package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightops/afrmm/pkg/money"
)

func TestStaleCache_PutGet(t *testing.T) {
	cache := testCache(t)

	_, _, ok := cache.Get("152305123456789")
	assert.False(t, ok)

	require.NoError(t, cache.Put("152305123456789", money.Centavos(89460)))
	amount, observedAt, ok := cache.Get("152305123456789")
	require.True(t, ok)
	assert.Equal(t, money.Centavos(89460), amount)
	assert.False(t, observedAt.IsZero())
}

func TestStaleCache_SurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")

	cache, err := NewStaleCache(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put("152305123456789", money.Centavos(123456)))

	reloaded, err := NewStaleCache(path)
	require.NoError(t, err)
	amount, _, ok := reloaded.Get("152305123456789")
	require.True(t, ok)
	assert.Equal(t, money.Centavos(123456), amount)
}

func TestStaleCache_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0640))

	_, err := NewStaleCache(path)
	assert.Error(t, err)
}
