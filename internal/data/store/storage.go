package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/domain/chatModel"
	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

var logger = logger_i.NewLogger("Store")

// Storage is the typed view over a Backend. Every successful write is
// followed by a change notification on the bus.
type Storage struct {
	backend Backend
	bus     *notify.Bus
	relay   notify.Relay
	status  Status
	now     func() time.Time

	// digest of the raw content last written per document id
	contents sync.Map
}

func New(backend Backend, bus *notify.Bus) *Storage {
	return &Storage{
		backend: backend,
		bus:     bus,
		status:  Status{Backend: backend.Kind()},
		now:     time.Now,
	}
}

func (s *Storage) Bus() *notify.Bus {
	return s.bus
}

func (s *Storage) Status() Status {
	return s.status
}

// Start begins relaying notifications to and from other processes. A relay
// failure only costs cross-process notifications.
func (s *Storage) Start(ctx context.Context) {
	if s.relay == nil {
		return
	}
	if err := s.relay.Start(ctx); err != nil {
		logger.WithTrace(ctx).Warn("cross-process notifications disabled", "error", err)
		s.relay = nil
	}
}

func (s *Storage) Close() error {
	var errs []error
	if s.relay != nil {
		errs = append(errs, s.relay.Close())
	}
	errs = append(errs, s.backend.Close())
	return errors.Join(errs...)
}

func (s *Storage) write(ctx context.Context, partition Partition, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", partition, id, err)
	}
	err = s.backend.Put(ctx, partition, id, raw)
	metrics.CaptureStoreWrite(string(s.backend.Kind()), string(partition), err)
	if err != nil {
		logger.WithTrace(ctx).Error("write failed", "partition", partition, "id", id, "error", err)
		return fmt.Errorf("%w: writing %s/%s: %w", commonModels.ErrStorageUnavailable, partition, id, err)
	}
	s.bus.Publish(ctx, notify.Event{Topic: topicFor(partition, id), Key: id})
	return nil
}

func (s *Storage) remove(ctx context.Context, partition Partition, id string) error {
	err := s.backend.Delete(ctx, partition, id)
	metrics.CaptureStoreWrite(string(s.backend.Kind()), string(partition), err)
	if err != nil {
		logger.WithTrace(ctx).Error("delete failed", "partition", partition, "id", id, "error", err)
		return fmt.Errorf("%w: deleting %s/%s: %w", commonModels.ErrStorageUnavailable, partition, id, err)
	}
	s.bus.Publish(ctx, notify.Event{Topic: topicFor(partition, id), Key: id})
	return nil
}

func read[T any](ctx context.Context, b Backend, partition Partition, id string) (T, error) {
	var out T
	raw, err := b.Get(ctx, partition, id)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding %s/%s: %w", partition, id, err)
	}
	return out, nil
}

// readAll skips entries that no longer decode rather than failing the list.
func readAll[T any](ctx context.Context, b Backend, partition Partition) ([]T, error) {
	raw, err := b.GetAll(ctx, partition)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for id, val := range raw {
		var item T
		if err := json.Unmarshal(val, &item); err != nil {
			logger.WithTrace(ctx).Warn("skipping undecodable entry", "partition", partition, "id", id, "error", err)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// conversations

func (s *Storage) Conversations(ctx context.Context) ([]chatModel.Conversation, error) {
	list, err := readAll[chatModel.Conversation](ctx, s.backend, Conversations)
	if err != nil {
		return nil, err
	}
	chatModel.SortByUpdated(list)
	return list, nil
}

func (s *Storage) Conversation(ctx context.Context, id string) (chatModel.Conversation, error) {
	return read[chatModel.Conversation](ctx, s.backend, Conversations, id)
}

func (s *Storage) SaveConversation(ctx context.Context, conv chatModel.Conversation) error {
	return s.write(ctx, Conversations, conv.Id, conv)
}

func (s *Storage) DeleteConversation(ctx context.Context, id string) error {
	return s.remove(ctx, Conversations, id)
}

// ActiveConversationID returns "" when no conversation is active.
func (s *Storage) ActiveConversationID(ctx context.Context) (string, error) {
	raw, err := s.backend.Get(ctx, Settings, KeyActiveConversation)
	if errors.Is(err, commonModels.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return decodeString(raw), nil
}

// SetActiveConversationID with "" clears the stored pointer.
func (s *Storage) SetActiveConversationID(ctx context.Context, id string) error {
	if id == "" {
		return s.remove(ctx, Settings, KeyActiveConversation)
	}
	return s.write(ctx, Settings, KeyActiveConversation, id)
}

// documents

// Document returns the document with its raw content.
func (s *Storage) Document(ctx context.Context, id string) (commonModels.Document, error) {
	doc, err := read[commonModels.Document](ctx, s.backend, Documents, id)
	if err != nil || len(doc.Content) > 0 {
		return doc, err
	}
	raw, err := s.backend.Get(ctx, DocumentContent, id)
	if errors.Is(err, commonModels.ErrNotFound) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc.Content); err != nil {
		return doc, fmt.Errorf("decoding content of %s: %w", id, err)
	}
	return doc, nil
}

// Documents lists every document without raw content, newest upload first.
func (s *Storage) Documents(ctx context.Context) ([]commonModels.Document, error) {
	list, err := readAll[commonModels.Document](ctx, s.backend, Documents)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = list[i].Meta()
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].UploadedAt.Equal(list[j].UploadedAt) {
			return list[i].Id < list[j].Id
		}
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})
	return list, nil
}

// SaveDocument writes the metadata record. Raw content goes to its own
// entry and is only rewritten when it changes.
func (s *Storage) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	if len(doc.Content) > 0 {
		if err := s.saveContent(ctx, doc.Id, doc.Content); err != nil {
			return err
		}
	}
	return s.write(ctx, Documents, doc.Id, doc.Meta())
}

func (s *Storage) saveContent(ctx context.Context, id string, content []byte) error {
	sum := sha256.Sum256(content)
	if prev, ok := s.contents.Load(id); ok && prev.([sha256.Size]byte) == sum {
		return nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encoding content of %s: %w", id, err)
	}
	err = s.backend.Put(ctx, DocumentContent, id, raw)
	metrics.CaptureStoreWrite(string(s.backend.Kind()), string(DocumentContent), err)
	if err != nil {
		logger.WithTrace(ctx).Error("write failed", "partition", DocumentContent, "id", id, "error", err)
		return fmt.Errorf("%w: writing content of %s: %w", commonModels.ErrStorageUnavailable, id, err)
	}
	s.contents.Store(id, sum)
	return nil
}

func (s *Storage) DeleteDocument(ctx context.Context, id string) error {
	if err := s.remove(ctx, Documents, id); err != nil {
		return err
	}
	s.contents.Delete(id)
	if err := s.backend.Delete(ctx, DocumentContent, id); err != nil {
		logger.WithTrace(ctx).Warn("document content not removed", "id", id, "error", err)
	}
	return nil
}

// settings

func (s *Storage) Settings(ctx context.Context) (chatModel.Settings, error) {
	var out chatModel.Settings
	raw, err := s.backend.GetAll(ctx, Settings)
	if err != nil {
		return out, err
	}
	if v, ok := raw[KeyDarkMode]; ok {
		dark, err := decodeBool(v)
		if err != nil {
			logger.WithTrace(ctx).Warn("unreadable setting, using default", "key", KeyDarkMode, "value", string(v), "error", err)
		}
		out.DarkMode = dark
	}
	if v, ok := raw[KeyLanguage]; ok {
		out.Language = decodeString(v)
	}
	return out, nil
}

func (s *Storage) SaveSettings(ctx context.Context, settings chatModel.Settings) error {
	if err := s.write(ctx, Settings, KeyDarkMode, settings.DarkMode); err != nil {
		return err
	}
	return s.write(ctx, Settings, KeyLanguage, settings.Language)
}

// decodeBool accepts JSON booleans and the quoted or bare "true"/"false"
// older clients stored.
func decodeBool(raw []byte) (bool, error) {
	var v bool
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	return strconv.ParseBool(decodeString(raw))
}

// decodeString accepts JSON strings and bare values written by older clients.
func decodeString(raw []byte) string {
	var v string
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
