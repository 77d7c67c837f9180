package knowledge

import (
	"context"

	"warelay/internal/domain"
)

// NoopAck is the acknowledgement returned by the stub's Add.
const NoopAck = "knowledge-disabled"

// Noop is the shipped default retriever: it satisfies the full contract but
// never returns snippets and never stores anything.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Search(ctx context.Context, query string, topK int) ([]domain.Snippet, error) {
	return nil, nil
}

func (*Noop) Add(ctx context.Context, document string, metadata map[string]string) (string, error) {
	return NoopAck, nil
}
