// Package knowledge provides the retrieval capability behind the
// domain.Retriever contract: a no-op stub and a SQLite-backed engine that
// chunks documents and ranks term matches.
package knowledge

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"warelay/internal/domain"
)

// Document is stored metadata for one added document.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a single indexed slice of a document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
	WordCount  int    `json:"word_count"`
}

// Storer is the storage interface for the knowledge engine.
type Storer interface {
	AddDocument(ctx context.Context, doc Document, chunks []Chunk) error
	SearchChunks(ctx context.Context, query string, topK int) ([]domain.Snippet, error)
	ListDocuments(ctx context.Context) ([]Document, error)
}

// Engine implements domain.Retriever on top of a Storer, handling chunking
// on add and delegating ranked search.
type Engine struct {
	store     Storer
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

type EngineConfig struct {
	Store     Storer
	ChunkSize int // words per chunk (default: 512)
	Overlap   int // overlapping words between chunks (default: 50)
	Logger    *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 50
	}
	return &Engine{
		store:     cfg.Store,
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.Overlap,
		logger:    cfg.Logger,
	}
}

// Add chunks the document, stores metadata and chunks, and returns the
// document id as acknowledgement.
func (e *Engine) Add(ctx context.Context, document string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(document) == "" {
		return "", fmt.Errorf("document is empty")
	}

	// Document ID from content hash, so re-adding the same text is a no-op
	// at the storage layer rather than a duplicate.
	hash := sha256.Sum256([]byte(document))
	docID := fmt.Sprintf("%x", hash[:8])

	name := metadata["name"]
	if name == "" {
		name = "untitled"
	}

	chunks := e.chunkText(document, docID)

	doc := Document{
		ID:         docID,
		Name:       name,
		Size:       int64(len(document)),
		ChunkCount: len(chunks),
		CreatedAt:  time.Now(),
	}

	if err := e.store.AddDocument(ctx, doc, chunks); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}

	e.logger.Info("document added to knowledge base",
		"name", name, "chunks", len(chunks), "size", len(document))

	return docID, nil
}

// Search queries the knowledge base and returns ranked snippets.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]domain.Snippet, error) {
	if topK <= 0 {
		topK = 3
	}
	return e.store.SearchChunks(ctx, query, topK)
}

// ListDocuments returns all documents in the knowledge base.
func (e *Engine) ListDocuments(ctx context.Context) ([]Document, error) {
	return e.store.ListDocuments(ctx)
}

// chunkText splits text into overlapping chunks of approximately chunkSize words.
func (e *Engine) chunkText(text, docID string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	step := e.chunkSize - e.overlap
	if step <= 0 {
		step = e.chunkSize
	}

	for i := 0; i < len(words); i += step {
		end := i + e.chunkSize
		if end > len(words) {
			end = len(words)
		}

		content := strings.Join(words[i:end], " ")
		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("%s_%d", docID, len(chunks)),
			DocumentID: docID,
			Content:    content,
			ChunkIndex: len(chunks),
			WordCount:  end - i,
		})

		if end >= len(words) {
			break
		}
	}

	return chunks
}
