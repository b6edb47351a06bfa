package dedup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// DefaultStatePath is the file the FileStore uses when none is configured.
const DefaultStatePath = ".arb_state_hash"

// MemoryStore keeps the fingerprint for the life of the process. It starts
// empty.
type MemoryStore struct {
	mu sync.RWMutex
	fp string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fp, nil
}

func (m *MemoryStore) Save(_ context.Context, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fp = fp
	return nil
}

// FileStore persists the fingerprint in a small state file so it survives
// restarts of one-shot runs.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore at path (DefaultStatePath when empty).
func NewFileStore(path string) *FileStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultStatePath
	}
	return &FileStore{path: path}
}

// Load returns "" when the state file does not exist yet.
func (f *FileStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("dedup: read %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the fingerprint through a temp file and rename.
func (f *FileStore) Save(_ context.Context, fp string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".arb_state_*")
	if err != nil {
		return fmt.Errorf("dedup: create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(fp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: close temp state: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: replace %s: %w", f.path, err)
	}
	return nil
}

var (
	_ domain.FingerprintStore = (*MemoryStore)(nil)
	_ domain.FingerprintStore = (*FileStore)(nil)
)
