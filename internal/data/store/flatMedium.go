package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

// flatMedium holds one opaque value per flat key.
type flatMedium interface {
	read(key string) ([]byte, error)
	write(key string, value []byte) error
	remove(key string) error
	keys() ([]string, error)
}

type memMedium struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func newMemMedium() *memMedium {
	return &memMedium{values: make(map[string][]byte)}
}

func (m *memMedium) read(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, commonModels.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memMedium) write(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memMedium) remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memMedium) keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	return out, nil
}

const flatFileSuffix = ".json"

// dirMedium stores each key in <dir>/<key>.json. Writes go through a temp
// file and a rename so readers in other processes never see half a value.
type dirMedium struct {
	dir     string
	onWrite func(key string, info os.FileInfo)
}

func newDirMedium(dir string) (*dirMedium, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return &dirMedium{dir: dir}, nil
}

func (d *dirMedium) path(key string) string {
	return filepath.Join(d.dir, key+flatFileSuffix)
}

func (d *dirMedium) read(key string) ([]byte, error) {
	raw, err := os.ReadFile(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, commonModels.ErrNotFound
	}
	return raw, err
}

func (d *dirMedium) write(key string, value []byte) error {
	tmp, err := os.CreateTemp(d.dir, "."+key+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if d.onWrite != nil {
		info, err := os.Stat(tmp.Name())
		if err != nil {
			return err
		}
		d.onWrite(key, info)
	}
	return os.Rename(tmp.Name(), d.path(key))
}

func (d *dirMedium) remove(key string) error {
	if d.onWrite != nil {
		d.onWrite(key, nil)
	}
	err := os.Remove(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (d *dirMedium) keys() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, flatFileSuffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, flatFileSuffix))
	}
	return out, nil
}
