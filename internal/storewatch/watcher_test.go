package storewatch

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSum [sha256.Size]byte

func (s fixedSum) LastWrittenSum() [sha256.Size]byte { return [sha256.Size]byte(s) }

// recordHandler captures log records so the test can assert on warnings.
type recordHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.messages = append(h.messages, r.Message)
	h.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordHandler) all() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

func withRecorder(t *testing.T) *recordHandler {
	t.Helper()
	h := &recordHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return h
}

func TestCheckOwnWriteIsSilent(t *testing.T) {
	h := withRecorder(t)
	path := filepath.Join(t.TempDir(), "data.json")
	content := []byte(`{"users":[],"tasks":[]}`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	w := New(path, fixedSum(sha256.Sum256(content)))
	w.check(context.Background())

	assert.Empty(t, h.all())
}

func TestCheckForeignWriteWarns(t *testing.T) {
	h := withRecorder(t)
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":[],"tasks":[]}`), 0o644))

	w := New(path, fixedSum(sha256.Sum256([]byte("what the store believes it wrote"))))
	w.check(context.Background())

	msgs := h.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "modified by another process")
}

func TestCheckRemovedDocumentWarns(t *testing.T) {
	h := withRecorder(t)
	path := filepath.Join(t.TempDir(), "data.json")

	w := New(path, fixedSum{})
	w.check(context.Background())

	msgs := h.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "removed on disk")
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	content := []byte("hello")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	sum, err := hashFile(path)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(content), sum)
}
