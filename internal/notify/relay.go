package notify

import "context"

// Relay mirrors bus events to other processes sharing the same data and
// republishes theirs locally with Remote set.
type Relay interface {
	Start(ctx context.Context) error
	Close() error
}
