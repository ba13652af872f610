package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ReceiptStore keeps payment receipts as content-addressed files: the
// reference is the SHA-256 of the bytes, so storing the same receipt
// twice is a no-op and a reference can always be re-verified against
// its content.
type ReceiptStore struct {
	dir string
}

// NewReceiptStore creates the store rooted at dir, creating the
// directory if needed.
func NewReceiptStore(dir string) (*ReceiptStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create receipts directory: %w", err)
	}
	return &ReceiptStore{dir: dir}, nil
}

// Store writes the receipt bytes and returns their content address.
// PDF receipts are structurally validated before storage; a corrupt
// download is rejected rather than archived. Non-PDF captures (HTML
// snapshots of the terminal screen) are stored as-is.
func (r *ReceiptStore) Store(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty receipt")
	}

	if isPDF(data) {
		if err := api.Validate(bytes.NewReader(data), nil); err != nil {
			return "", fmt.Errorf("receipt PDF failed validation: %w", err)
		}
	}

	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])
	path := r.pathFor(ref, data)

	if _, err := os.Stat(path); err == nil {
		// Already stored; content addressing makes this a no-op.
		return ref, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("store receipt: %w", err)
	}
	return ref, nil
}

// Open returns the stored receipt bytes for a reference.
func (r *ReceiptStore) Open(ref string) ([]byte, error) {
	for _, ext := range []string{".pdf", ".html"} {
		data, err := os.ReadFile(filepath.Join(r.dir, ref+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read receipt %s: %w", ref, err)
		}
	}
	return nil, fmt.Errorf("receipt %s not found", ref)
}

// Path returns the stable on-disk path for a stored reference, for
// handing to collaborators that serve the artifact.
func (r *ReceiptStore) Path(ref string) (string, error) {
	for _, ext := range []string{".pdf", ".html"} {
		p := filepath.Join(r.dir, ref+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("receipt %s not found", ref)
}

func (r *ReceiptStore) pathFor(ref string, data []byte) string {
	ext := ".html"
	if isPDF(data) {
		ext = ".pdf"
	}
	return filepath.Join(r.dir, ref+ext)
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
