// Package search maintains a full-text index over finished debates so past
// decisions can be found by query or synthesis content.
package search

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve"
)

// Document is what gets indexed per decision.
type Document struct {
	Query     string `json:"query"`
	Synthesis string `json:"synthesis"`
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index wraps a bleve index over decision documents.
type Index struct {
	idx bleve.Index
}

// Open opens (or creates) the index at path. An empty path yields an
// in-memory index, used by tests and by deployments that opt out of
// persistence.
func Open(path string) (*Index, error) {
	mapping := bleve.NewIndexMapping()
	if path == "" {
		idx, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, fmt.Errorf("open in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("open index %s: %w", path, err)
		}
		idx, err = bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("create index %s: %w", path, err)
		}
	}
	return &Index{idx: idx}, nil
}

// IndexDecision adds or replaces one decision document.
func (i *Index) IndexDecision(id, query, synthesis string) error {
	return i.idx.Index(id, Document{Query: query, Synthesis: synthesis})
}

// Search runs a query-string search and returns scored decision ids.
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 25
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	return hits, nil
}

func (i *Index) Close() error { return i.idx.Close() }
