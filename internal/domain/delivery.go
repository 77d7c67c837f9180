package domain

import "context"

// Sender delivers a text message to a recipient on the messaging platform.
// A returned error means the delivery round-trip failed; callers decide
// whether that failure is worth escalating.
type Sender interface {
	SendText(ctx context.Context, to string, text string) error
}
