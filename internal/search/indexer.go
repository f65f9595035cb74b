/*
Package search implements full-text search over tool history.

Entries are indexed with Bleve in memory: the label and, for text payloads,
the decoded input and output. Every query is scoped to a single tool.
*/
package search

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog"
)

// Document is a history entry as stored in the index.
type Document struct {
	ID        int64
	Tool      string
	Label     string
	Input     string
	Output    string
	CreatedAt int64
}

// Hit is a single search result.
type Hit struct {
	ID    int64   `json:"id"`
	Tool  string  `json:"tool"`
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score"`
}

// Indexer manages the in-memory history index.
type Indexer struct {
	bleveIndex bleve.Index
	log        zerolog.Logger
	mu         sync.RWMutex
}

// NewIndexer creates a new indexer backed by an in-memory Bleve index.
func NewIndexer(log zerolog.Logger) (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{
		bleveIndex: index,
		log:        log.With().Str("component", "search").Logger(),
	}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Tool: exact-match filter, kept out of free-text matches
	toolField := bleve.NewTextFieldMapping()
	toolField.Analyzer = keyword.Name
	toolField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("tool", toolField)

	docMapping.AddFieldMappingsAt("label", bleve.NewTextFieldMapping())

	// Payloads are searchable but not stored
	inputField := bleve.NewTextFieldMapping()
	inputField.Store = false
	docMapping.AddFieldMappingsAt("input", inputField)

	outputField := bleve.NewTextFieldMapping()
	outputField.Store = false
	docMapping.AddFieldMappingsAt("output", outputField)

	createdField := bleve.NewNumericFieldMapping()
	createdField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("createdAt", createdField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// IndexBatch adds or replaces several documents at once.
func (i *Indexer) IndexBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, doc := range docs {
		fields := map[string]interface{}{
			"tool":      doc.Tool,
			"label":     doc.Label,
			"input":     doc.Input,
			"output":    doc.Output,
			"createdAt": float64(doc.CreatedAt),
		}
		if err := batch.Index(docID(doc.ID), fields); err != nil {
			i.log.Warn().Err(err).Int64("id", doc.ID).Msg("failed to index history entry")
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index history: %w", err)
	}
	return nil
}

// Remove deletes documents by history id. Unknown ids are ignored.
func (i *Indexer) Remove(ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, id := range ids {
		batch.Delete(docID(id))
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch delete: %w", err)
	}
	return nil
}

// RemoveTool deletes every document of a tool.
func (i *Indexer) RemoveTool(tool string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	total, err := i.bleveIndex.DocCount()
	if err != nil {
		return fmt.Errorf("failed to get doc count: %w", err)
	}
	if total == 0 {
		return nil
	}

	req := bleve.NewSearchRequestOptions(toolQuery(tool), int(total), 0, false)
	results, err := i.bleveIndex.Search(req)
	if err != nil {
		return fmt.Errorf("failed to find tool docs: %w", err)
	}

	batch := i.bleveIndex.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch delete: %w", err)
	}
	return nil
}

// Search returns the tool's entries matching text, best match first and
// newest first among equal scores. Empty text matches every entry.
func (i *Indexer) Search(tool, text string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	var textQuery query.Query
	if text == "" {
		textQuery = bleve.NewMatchAllQuery()
	} else {
		textQuery = bleve.NewMatchQuery(text)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(textQuery, toolQuery(tool)), limit, 0, false)
	req.Fields = []string{"tool", "label"}
	req.SortBy([]string{"-_score", "-createdAt"})

	results, err := i.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		toolName, _ := h.Fields["tool"].(string)
		label, _ := h.Fields["label"].(string)
		hits = append(hits, Hit{ID: id, Tool: toolName, Label: label, Score: h.Score})
	}
	return hits, nil
}

// Count returns the total number of indexed entries.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}
	return nil
}

func toolQuery(tool string) query.Query {
	q := bleve.NewTermQuery(tool)
	q.SetField("tool")
	return q
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
