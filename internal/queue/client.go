package queue

import "context"

// Client sends orphan messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg OrphanMessage) error
}
