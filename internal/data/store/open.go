package store

import (
	"context"

	"github.com/akolanti/DocAssist/internal/notify"
)

// Status describes which backend is serving and why.
type Status struct {
	Backend  Kind   `json:"backend"`
	Location string `json:"location,omitempty"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Open picks a backend and returns the store. It does not fail: when redis
// is unreachable or cannot be initialized the flat backend serves, and when
// the data dir is unusable data lives in memory.
func Open(ctx context.Context, opts Options, bus *notify.Bus) *Storage {
	log := logger.WithTrace(ctx)

	flat, err := openFlat(opts.DataDir)
	status := Status{Backend: KindFlat, Location: flat.Location()}
	if err != nil {
		log.Warn("data dir unusable, keeping data in memory", "dir", opts.DataDir, "error", err)
		status.Degraded = true
		status.Reason = err.Error()
	}

	detection := DetectBackend(ctx, opts)
	if detection.Kind == KindIndexed {
		if Initialize(ctx, detection.Redis, flat) {
			s := New(NewRedisBackend(detection.Redis), bus)
			s.relay = notify.NewRedisRelay(detection.Redis, bus)
			s.status = Status{Backend: KindIndexed}
			return s
		}
		_ = detection.Redis.Close()
		status.Degraded = true
		status.Reason = "indexed backend could not be initialized"
	} else if !opts.DisableRedis {
		status.Degraded = true
		status.Reason = "indexed backend unreachable"
	}

	s := New(flat, bus)
	s.status = status
	if dir := flat.Location(); dir != "" {
		relay := notify.NewFileRelay(dir, flatFileSuffix, bus, FlatKeyTopic)
		flat.onWrite(relay.MarkWritten)
		s.relay = relay
	}
	if status.Degraded {
		log.Warn("storage running in degraded mode", "backend", status.Backend, "reason", status.Reason)
	}
	return s
}

func openFlat(dir string) (*FlatBackend, error) {
	if dir == "" {
		return NewMemoryBackend(), nil
	}
	b, err := NewDirBackend(dir)
	if err != nil {
		return NewMemoryBackend(), err
	}
	return b, nil
}
