// Package unichrome is the host-facing database facade: it maps collection
// names to collection instances, owns the storage directory, and wraps the
// HNSW core (internal/hnsw) with a document store, post-filters, and the
// on-disk file layout.
package unichrome

import (
	"time"
)

// Document is the collection engine's stored unit: an embedding vector plus
// the text and metadata it was derived from. The document store owns each
// Document; the HNSW graph holds the same *Document pointers as its items.
type Document struct {
	ID                   int32             `json:"id"`
	Text                 string            `json:"text"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	Vector               []float32         `json:"vector"`
	CreationDateTime     time.Time         `json:"creation_date_time"`
	ModificationDateTime time.Time         `json:"modification_date_time"`
}

// EmbeddingVector satisfies hnsw.Item so a *Document can be stored directly
// as a graph node's payload.
func (d *Document) EmbeddingVector() []float32 {
	return d.Vector
}

// SearchResult is a single scored document returned from a query.
type SearchResult struct {
	ID                   int32             `json:"id"`
	Text                 string            `json:"text"`
	Score                float32           `json:"score"` // cosine distance; smaller is closer
	Vector               []float32         `json:"vector,omitempty"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	CreationDateTime     time.Time         `json:"creation_date_time"`
	ModificationDateTime time.Time         `json:"modification_date_time"`
}

// SearchResults is the complete response to a query.
type SearchResults struct {
	Results []*SearchResult `json:"results"`
	Took    time.Duration   `json:"took"`
	Total   int             `json:"total"`
}

// DateRange bounds a timestamp field inclusively on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End] inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// DatabaseStats summarises database-wide state.
type DatabaseStats struct {
	CollectionCount int                         `json:"collection_count"`
	Collections     map[string]*CollectionStats `json:"collections"`
	Uptime          time.Duration               `json:"uptime"`
}

// CollectionStats summarises a single collection's state.
type CollectionStats struct {
	Name                  string  `json:"name"`
	DocumentCount         int     `json:"document_count"`
	Dimension             int     `json:"dimension"`
	DistanceCacheHitRate  float64 `json:"distance_cache_hit_rate"`
	HasQuantization       bool    `json:"has_quantization"`
	HasExactIndex         bool    `json:"has_exact_index"`
	Persistent            bool    `json:"persistent"`
}
