package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"warelay/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Storer using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		size        INTEGER DEFAULT 0,
		chunk_count INTEGER DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		content     TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		word_count  INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(document_id, chunk_index);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) AddDocument(ctx context.Context, doc Document, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, name, size, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Size, doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		return err
	}

	// Re-adding replaces the previous chunk set for the same content hash.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, doc.ID); err != nil {
		return err
	}

	for _, c := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, content, chunk_index, word_count)
			 VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.Content, c.ChunkIndex, c.WordCount,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SearchChunks ranks chunks by the fraction of query terms they contain.
// Chunks matching no term are excluded; ties break on shorter content.
func (s *SQLiteStore) SearchChunks(ctx context.Context, query string, topK int) ([]domain.Snippet, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	// Candidate set: any chunk containing at least one term.
	conds := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, t := range terms {
		conds[i] = "lower(content) LIKE ?"
		args[i] = "%" + t + "%"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content FROM chunks WHERE `+strings.Join(conds, " OR "), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []domain.Snippet
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, err
		}
		lower := strings.ToLower(content)
		matched := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		hits = append(hits, domain.Snippet{
			ID:    id,
			Text:  content,
			Score: float64(matched) / float64(len(terms)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return len(hits[i].Text) < len(hits[j].Text)
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, size, chunk_count, created_at FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Size, &d.ChunkCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// searchTerms lowercases and splits a query, dropping single-letter noise.
func searchTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'")
		if len(f) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}
