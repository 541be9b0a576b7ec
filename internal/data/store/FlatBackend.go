package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/akolanti/DocAssist/internal/domain/commonModels"
)

// FlatBackend is the fallback: one value per flat key. Collections are a
// single JSON object keyed by id; settings are one key each.
type FlatBackend struct {
	mu     sync.Mutex
	medium flatMedium
}

// NewMemoryBackend keeps everything in process memory.
func NewMemoryBackend() *FlatBackend {
	return &FlatBackend{medium: newMemMedium()}
}

// NewDirBackend keeps one file per key under dir, shared by every process
// pointing at the same directory.
func NewDirBackend(dir string) (*FlatBackend, error) {
	m, err := newDirMedium(dir)
	if err != nil {
		return nil, err
	}
	return &FlatBackend{medium: m}, nil
}

func (b *FlatBackend) Kind() Kind {
	return KindFlat
}

// Location is the directory backing the store, empty for memory.
func (b *FlatBackend) Location() string {
	if d, ok := b.medium.(*dirMedium); ok {
		return d.dir
	}
	return ""
}

func (b *FlatBackend) onWrite(fn func(key string, info os.FileInfo)) {
	if d, ok := b.medium.(*dirMedium); ok {
		d.onWrite = fn
	}
}

func (b *FlatBackend) Get(ctx context.Context, partition Partition, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validPartition(partition); err != nil {
		return nil, err
	}
	if !partition.isCollection() {
		key, err := flatKey(partition, id)
		if err != nil {
			return nil, err
		}
		return b.medium.read(key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	coll, err := b.readCollection(partition)
	if err != nil {
		return nil, err
	}
	val, ok := coll[id]
	if !ok {
		return nil, commonModels.ErrNotFound
	}
	return val, nil
}

func (b *FlatBackend) GetAll(ctx context.Context, partition Partition) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validPartition(partition); err != nil {
		return nil, err
	}
	if partition == DocumentContent {
		return b.readContents()
	}
	if !partition.isCollection() {
		out := make(map[string][]byte)
		for _, key := range settingKeys {
			val, err := b.medium.read(key)
			if errors.Is(err, commonModels.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	coll, err := b.readCollection(partition)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(coll))
	for id, val := range coll {
		out[id] = val
	}
	return out, nil
}

func (b *FlatBackend) Put(ctx context.Context, partition Partition, id string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validPartition(partition); err != nil {
		return err
	}
	if !partition.isCollection() {
		key, err := flatKey(partition, id)
		if err != nil {
			return err
		}
		return b.medium.write(key, value)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	coll, err := b.readCollection(partition)
	if err != nil {
		return err
	}
	coll[id] = json.RawMessage(value)
	return b.writeCollection(partition, coll)
}

func (b *FlatBackend) Delete(ctx context.Context, partition Partition, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validPartition(partition); err != nil {
		return err
	}
	if !partition.isCollection() {
		key, err := flatKey(partition, id)
		if err != nil {
			return err
		}
		return b.medium.remove(key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	coll, err := b.readCollection(partition)
	if err != nil {
		return err
	}
	if _, ok := coll[id]; !ok {
		return nil
	}
	delete(coll, id)
	return b.writeCollection(partition, coll)
}

func (b *FlatBackend) Close() error {
	return nil
}

const contentKeyPrefix = "content-"

// flatKey names the medium key of a per-id partition entry.
func flatKey(partition Partition, id string) (string, error) {
	if partition != DocumentContent {
		return id, nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return contentKeyPrefix + id, nil
}

func (b *FlatBackend) readContents() (map[string][]byte, error) {
	keys, err := b.medium.keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	for _, key := range keys {
		id, ok := strings.CutPrefix(key, contentKeyPrefix)
		if !ok {
			continue
		}
		val, err := b.medium.read(key)
		if errors.Is(err, commonModels.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = val
	}
	return out, nil
}

func (b *FlatBackend) readCollection(partition Partition) (map[string]json.RawMessage, error) {
	raw, err := b.medium.read(string(partition))
	if errors.Is(err, commonModels.ErrNotFound) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, err
	}
	coll, err := decodeCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", partition, err)
	}
	return coll, nil
}

func (b *FlatBackend) writeCollection(partition Partition, coll map[string]json.RawMessage) error {
	raw, err := json.Marshal(coll)
	if err != nil {
		return err
	}
	return b.medium.write(string(partition), raw)
}

// decodeCollection accepts the keyed object layout and the older array
// layout where each element carries its own "id".
func decodeCollection(raw []byte) (map[string]json.RawMessage, error) {
	coll := make(map[string]json.RawMessage)
	if len(raw) == 0 {
		return coll, nil
	}
	if err := json.Unmarshal(raw, &coll); err == nil {
		if coll == nil {
			coll = make(map[string]json.RawMessage)
		}
		return coll, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		var head struct {
			Id string `json:"id"`
		}
		if err := json.Unmarshal(item, &head); err != nil || head.Id == "" {
			continue
		}
		coll[head.Id] = item
	}
	return coll, nil
}
