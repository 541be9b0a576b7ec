package notify

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

var watchLogger = logger_i.NewLogger("Notify Watch")

// Watch calls reload after events on topic. The event payload is ignored;
// reload re-reads canonical state. Bursts closer than the burst window
// produce one reload. The returned func stops watching.
func Watch(bus *Bus, topic Topic, reload func(ctx context.Context) error) func() {
	return watchWindow(bus, topic, config.NotificationBurstWindow, reload)
}

func watchWindow(bus *Bus, topic Topic, window time.Duration, reload func(ctx context.Context) error) func() {
	var (
		mu      sync.Mutex
		timer   *time.Timer
		stopped bool
	)

	unsub := bus.Subscribe(topic, func(ctx context.Context, _ Event) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(window, func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			mu.Unlock()
			if err := reload(context.WithoutCancel(ctx)); err != nil {
				watchLogger.WithTrace(ctx).Warn("reload failed", "topic", topic, "error", err)
			}
		})
	})

	return func() {
		unsub()
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}
}
