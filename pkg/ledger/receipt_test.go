package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReceiptStore(t *testing.T) *ReceiptStore {
	t.Helper()
	store, err := NewReceiptStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestReceiptStore_StoreAndOpen(t *testing.T) {
	store := newTestReceiptStore(t)

	data := []byte("<html><body>Pagamento efetuado com sucesso</body></html>")
	ref, err := store.Store(data)
	require.NoError(t, err)
	assert.Len(t, ref, 64, "reference is a hex SHA-256")

	got, err := store.Open(ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	path, err := store.Path(ref)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestReceiptStore_ContentAddressing(t *testing.T) {
	store := newTestReceiptStore(t)

	data := []byte("<html>receipt</html>")
	ref1, err := store.Store(data)
	require.NoError(t, err)
	ref2, err := store.Store(data)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2, "same bytes, same reference")

	ref3, err := store.Store([]byte("<html>other receipt</html>"))
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref3)
}

func TestReceiptStore_RejectsEmpty(t *testing.T) {
	store := newTestReceiptStore(t)
	_, err := store.Store(nil)
	assert.Error(t, err)
}

func TestReceiptStore_RejectsCorruptPDF(t *testing.T) {
	store := newTestReceiptStore(t)
	// Has the PDF magic but no valid structure behind it.
	_, err := store.Store([]byte("%PDF-1.7 not actually a pdf"))
	assert.Error(t, err)
}

func TestReceiptStore_OpenUnknownRef(t *testing.T) {
	store := newTestReceiptStore(t)
	_, err := store.Open("deadbeef")
	assert.Error(t, err)
}
