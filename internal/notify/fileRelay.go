package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/fsnotify/fsnotify"
)

// KeyTopic maps a flat storage key to the topic its changes belong to.
type KeyTopic func(key string) (Topic, bool)

// FileRelay watches the flat storage directory. Another process writing a
// key file shows up here as a remote event for that key.
type FileRelay struct {
	dir      string
	suffix   string
	bus      *Bus
	topicFor KeyTopic
	logger   *logger_i.Logger

	watcher *fsnotify.Watcher

	mu     sync.Mutex
	own    map[string]os.FileInfo
	timers map[string]*time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewFileRelay(dir, suffix string, bus *Bus, topicFor KeyTopic) *FileRelay {
	return &FileRelay{
		dir:      dir,
		suffix:   suffix,
		bus:      bus,
		topicFor: topicFor,
		logger:   logger_i.NewLogger("File Relay"),
		own:      make(map[string]os.FileInfo),
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}
}

// MarkWritten records the file this process is about to rename into place
// for key, or a removal when info is nil. An event is dropped only while
// the file on disk is still that one, so writes from other processes
// always get through.
func (f *FileRelay) MarkWritten(key string, info os.FileInfo) {
	f.mu.Lock()
	f.own[key] = info
	f.mu.Unlock()
}

func (f *FileRelay) isOwnEcho(key, name string) bool {
	mine, marked := f.own[key]
	if !marked {
		return false
	}
	cur, err := os.Stat(filepath.Join(f.dir, name))
	if mine == nil {
		return errors.Is(err, os.ErrNotExist)
	}
	if err != nil {
		return false
	}
	return os.SameFile(mine, cur) && mine.Size() == cur.Size() && mine.ModTime().Equal(cur.ModTime())
}

func (f *FileRelay) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", f.dir, err)
	}
	f.watcher = watcher

	f.wg.Add(1)
	go f.watchLoop(ctx)
	f.logger.Info("file relay started", "dir", f.dir)
	return nil
}

func (f *FileRelay) watchLoop(ctx context.Context) {
	defer f.wg.Done()
	for {
		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			f.handle(ctx, filepath.Base(event.Name))
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("watcher error", "error", err)
		}
	}
}

func (f *FileRelay) handle(ctx context.Context, name string) {
	if !strings.HasSuffix(name, f.suffix) || strings.HasPrefix(name, ".") {
		return
	}
	key := strings.TrimSuffix(name, f.suffix)
	topic, ok := f.topicFor(key)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isOwnEcho(key, name) {
		return
	}
	// one rename produces several fs events, deliver them as one
	if t, exists := f.timers[key]; exists {
		t.Stop()
	}
	f.timers[key] = time.AfterFunc(config.NotificationBurstWindow, func() {
		f.mu.Lock()
		delete(f.timers, key)
		f.mu.Unlock()
		f.bus.Publish(ctx, Event{Topic: topic, Key: key, Origin: "file:" + f.dir, Remote: true})
	})
}

func (f *FileRelay) Close() error {
	if f.watcher == nil {
		return nil
	}
	close(f.stopCh)
	err := f.watcher.Close()
	f.wg.Wait()

	f.mu.Lock()
	for _, t := range f.timers {
		t.Stop()
	}
	f.mu.Unlock()
	f.logger.Info("file relay stopped")
	return err
}
