package search

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	indexer, err := NewIndexer(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create indexer: %v", err)
	}
	t.Cleanup(func() { indexer.Close() })
	return indexer
}

func seed(t *testing.T, indexer *Indexer) {
	t.Helper()
	docs := []Document{
		{ID: 1, Tool: "base64", Label: "jwt header", Input: "eyJhbGciOiJIUzI1NiJ9", Output: `{"alg":"HS256"}`, CreatedAt: 100},
		{ID: 2, Tool: "base64", Label: "greeting", Input: "hello world", Output: "aGVsbG8gd29ybGQ=", CreatedAt: 200},
		{ID: 3, Tool: "hash", Label: "greeting", Input: "hello world", CreatedAt: 300},
	}
	if err := indexer.IndexBatch(docs); err != nil {
		t.Fatalf("failed to index: %v", err)
	}
}

func TestIndexBatch(t *testing.T) {
	indexer := newTestIndexer(t)
	seed(t, indexer)

	count, err := indexer.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed entries, got %d", count)
	}
}

func TestSearch_ScopedToTool(t *testing.T) {
	indexer := newTestIndexer(t)
	seed(t, indexer)

	hits, err := indexer.Search("base64", "hello", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].ID != 2 || hits[0].Tool != "base64" || hits[0].Label != "greeting" {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestSearch_EmptyTextMatchesAllNewestFirst(t *testing.T) {
	indexer := newTestIndexer(t)
	seed(t, indexer)

	hits, err := indexer.Search("base64", "", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != 2 {
		t.Errorf("expected newest entry first, got %d", hits[0].ID)
	}
}

func TestRemove(t *testing.T) {
	indexer := newTestIndexer(t)
	seed(t, indexer)

	if err := indexer.Remove(2, 999); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	hits, err := indexer.Search("base64", "hello", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected removed entry to be gone, got %+v", hits)
	}
}

func TestRemoveTool(t *testing.T) {
	indexer := newTestIndexer(t)
	seed(t, indexer)

	if err := indexer.RemoveTool("base64"); err != nil {
		t.Fatalf("remove tool failed: %v", err)
	}

	count, _ := indexer.Count()
	if count != 1 {
		t.Errorf("expected 1 remaining entry, got %d", count)
	}

	hits, _ := indexer.Search("hash", "hello", 10)
	if len(hits) != 1 {
		t.Errorf("expected other tool untouched, got %d hits", len(hits))
	}
}
