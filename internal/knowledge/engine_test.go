package knowledge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(t *testing.T, chunkSize, overlap int) *Engine {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "knowledge.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewEngine(EngineConfig{
		Store:     store,
		ChunkSize: chunkSize,
		Overlap:   overlap,
		Logger:    testLogger(),
	})
}

func TestChunkText_SingleChunk(t *testing.T) {
	e := NewEngine(EngineConfig{ChunkSize: 100, Overlap: 10, Logger: testLogger()})

	chunks := e.chunkText("one two three", "doc1")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "one two three" {
		t.Errorf("chunk content = %q", chunks[0].Content)
	}
	if chunks[0].WordCount != 3 {
		t.Errorf("word count = %d, want 3", chunks[0].WordCount)
	}
}

func TestChunkText_Overlap(t *testing.T) {
	e := NewEngine(EngineConfig{ChunkSize: 4, Overlap: 2, Logger: testLogger()})

	chunks := e.chunkText("a b c d e f g h", "doc1")
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 overlapping chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "a b c d" {
		t.Errorf("first chunk = %q", chunks[0].Content)
	}
	if chunks[1].Content != "c d e f" {
		t.Errorf("second chunk = %q, overlap not applied", chunks[1].Content)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.DocumentID != "doc1" {
			t.Errorf("chunk %d has document id %q", i, c.DocumentID)
		}
	}
}

func TestChunkText_Empty(t *testing.T) {
	e := NewEngine(EngineConfig{Logger: testLogger()})
	if chunks := e.chunkText("   ", "doc1"); chunks != nil {
		t.Errorf("expected nil for whitespace-only text, got %d chunks", len(chunks))
	}
}

func TestAddAndSearch(t *testing.T) {
	e := newTestEngine(t, 64, 8)
	ctx := context.Background()

	id, err := e.Add(ctx, "Our support line is open Monday through Friday from nine to five.",
		map[string]string{"name": "hours"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("expected a document id acknowledgement")
	}

	snippets, err := e.Search(ctx, "when is support open", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected at least one snippet")
	}
	if !strings.Contains(snippets[0].Text, "support line") {
		t.Errorf("top snippet = %q", snippets[0].Text)
	}
	if snippets[0].Score <= 0 {
		t.Errorf("score should be positive, got %f", snippets[0].Score)
	}
}

func TestAdd_EmptyDocument(t *testing.T) {
	e := newTestEngine(t, 64, 8)
	if _, err := e.Add(context.Background(), "  \n ", nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestAdd_SameContentSameID(t *testing.T) {
	e := newTestEngine(t, 64, 8)
	ctx := context.Background()

	id1, err := e.Add(ctx, "identical content", map[string]string{"name": "a"})
	if err != nil {
		t.Fatalf("first Add: %v", err)
	}
	id2, err := e.Add(ctx, "identical content", map[string]string{"name": "b"})
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same content produced different ids: %s vs %s", id1, id2)
	}

	docs, err := e.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("re-adding same content should not duplicate, got %d docs", len(docs))
	}
}

func TestSearch_RankingAndTopK(t *testing.T) {
	e := newTestEngine(t, 64, 0)
	ctx := context.Background()

	docs := []string{
		"shipping rates depend on destination country",
		"we offer free shipping on orders over fifty dollars",
		"returns are accepted within thirty days",
	}
	for i, d := range docs {
		if _, err := e.Add(ctx, d, map[string]string{"name": string(rune('a' + i))}); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	snippets, err := e.Search(ctx, "free shipping", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("topK=1 should cap results, got %d", len(snippets))
	}
	if !strings.Contains(snippets[0].Text, "free shipping") {
		t.Errorf("chunk matching both terms should rank first, got %q", snippets[0].Text)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	e := newTestEngine(t, 64, 0)
	ctx := context.Background()

	if _, err := e.Add(ctx, "completely unrelated text", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	snippets, err := e.Search(ctx, "zzzxqj", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("expected no snippets, got %d", len(snippets))
	}
}

func TestSearchTerms(t *testing.T) {
	terms := searchTerms("When IS the Office open?")
	want := []string{"when", "is", "the", "office", "open"}
	if len(terms) != len(want) {
		t.Fatalf("terms = %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, terms[i], want[i])
		}
	}

	if got := searchTerms("a I ?"); len(got) != 0 {
		t.Errorf("single-letter noise should be dropped, got %v", got)
	}
}

func TestNoop(t *testing.T) {
	n := NewNoop()
	ctx := context.Background()

	snippets, err := n.Search(ctx, "anything", 3)
	if err != nil || snippets != nil {
		t.Errorf("Noop.Search = (%v, %v), want (nil, nil)", snippets, err)
	}

	ack, err := n.Add(ctx, "doc", nil)
	if err != nil {
		t.Fatalf("Noop.Add: %v", err)
	}
	if ack != NoopAck {
		t.Errorf("Noop.Add ack = %q, want %q", ack, NoopAck)
	}
}

func TestSeed(t *testing.T) {
	e := newTestEngine(t, 64, 0)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `documents:
  - name: faq
    text: |
      Orders ship within two business days.
  - name: empty
    text: ""
  - name: contact
    text: Email support at help@example.com.
    metadata:
      source: handbook
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	if err := Seed(ctx, e, path, testLogger()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	// The empty document fails Add and is skipped; the other two load.
	docs, err := e.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 seeded documents, got %d", len(docs))
	}

	snippets, err := e.Search(ctx, "orders ship", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(snippets) == 0 {
		t.Error("seeded content not searchable")
	}
}

func TestSeed_MissingFile(t *testing.T) {
	err := Seed(context.Background(), NewNoop(), filepath.Join(t.TempDir(), "absent.yaml"), testLogger())
	if err == nil {
		t.Fatal("expected error for missing seed file")
	}
}
