package domain

import "context"

// Snippet is a ranked knowledge-base hit returned from a search.
type Snippet struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Retriever is the knowledge-retrieval capability. The completion provider
// only sees this contract; whether the active variant is the no-op stub or
// the SQLite-backed engine is a startup wiring decision.
type Retriever interface {
	// Search returns up to topK snippets relevant to the query, best first.
	Search(ctx context.Context, query string, topK int) ([]Snippet, error)

	// Add stores a document and returns an acknowledgement (the document id,
	// or a status marker for variants that do not store anything).
	Add(ctx context.Context, document string, metadata map[string]string) (string, error)
}
