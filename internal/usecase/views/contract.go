package views

import "context"

// Counter is the counter store subset the tracker writes to.
type Counter interface {
	Increment(ctx context.Context, id string) error
	Forget(ctx context.Context, id string) error
}
