// Package flat implements an exact, brute-force vector index: a linear
// scan over every stored vector. It trades HNSW's logarithmic search time
// for zero approximation error, making it useful as a recall baseline and
// for collections small enough that an exact scan is cheap.
package flat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/xDarkicex/unichrome/internal/distance"
	"github.com/xDarkicex/unichrome/internal/quant"
)

// VectorEntry is a single stored item: a document ID, its embedding, and
// whatever metadata it carries.
type VectorEntry struct {
	ID       int32                  `json:"id"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata"`
}

// SearchResult is a single scored hit from Search.
type SearchResult struct {
	ID       int32                  `json:"id"`
	Score    float32                `json:"score"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Config holds configuration for the flat index.
type Config struct {
	Dimension    int                       `json:"dimension"`
	DistFn       distance.Func             `json:"-"`
	Quantization *quant.QuantizationConfig `json:"quantization,omitempty"`
}

// PersistenceMetadata holds metadata about a persisted flat index.
type PersistenceMetadata struct {
	Version       uint32    `json:"version"`
	NodeCount     int       `json:"node_count"`
	Dimension     int       `json:"dimension"`
	MaxLevel      int       `json:"max_level"` // Always 0 for flat index
	IndexType     string    `json:"index_type"`
	CreatedAt     time.Time `json:"created_at"`
	ChecksumCRC32 uint32    `json:"checksum_crc32"`
	FileSize      int64     `json:"file_size"`
}

// Index implements a flat (brute-force) vector index.
type Index struct {
	config    *Config
	vectors   []*VectorEntry
	idToIndex map[int32]int
	quantizer quant.Quantizer
	mu        sync.RWMutex
}

// NewFlat creates a new flat index. DistFn defaults to distance.SIMD when
// left unset.
func NewFlat(config *Config) (*Index, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}
	if config.DistFn == nil {
		config.DistFn = distance.SIMD
	}

	index := &Index{
		config:    config,
		vectors:   make([]*VectorEntry, 0),
		idToIndex: make(map[int32]int),
	}

	if config.Quantization != nil {
		var err error
		index.quantizer, err = quant.Create(config.Quantization)
		if err != nil {
			return nil, fmt.Errorf("failed to create quantizer: %w", err)
		}
	}

	return index, nil
}

// Insert adds a vector to the index, or overwrites it in place if its ID
// already exists.
func (idx *Index) Insert(ctx context.Context, entry *VectorEntry) error {
	if len(entry.Vector) != idx.config.Dimension {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d",
			idx.config.Dimension, len(entry.Vector))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	stored := &VectorEntry{
		ID:       entry.ID,
		Vector:   make([]float32, len(entry.Vector)),
		Metadata: make(map[string]interface{}, len(entry.Metadata)),
	}
	copy(stored.Vector, entry.Vector)
	for k, v := range entry.Metadata {
		stored.Metadata[k] = v
	}

	if existingIndex, exists := idx.idToIndex[entry.ID]; exists {
		idx.vectors[existingIndex] = stored
		return nil
	}

	idx.idToIndex[entry.ID] = len(idx.vectors)
	idx.vectors = append(idx.vectors, stored)

	return nil
}

// Search performs a brute-force scan across every stored vector, returning
// the k closest in ascending distance order.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]*SearchResult, error) {
	if len(query) != idx.config.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d",
			idx.config.Dimension, len(query))
	}

	if k <= 0 {
		return []*SearchResult{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return []*SearchResult{}, nil
	}

	allResults := make([]*SearchResult, 0, len(idx.vectors))

	for _, entry := range idx.vectors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		d := idx.config.DistFn(query, entry.Vector)

		result := &SearchResult{
			ID:       entry.ID,
			Score:    d,
			Vector:   make([]float32, len(entry.Vector)),
			Metadata: make(map[string]interface{}, len(entry.Metadata)),
		}
		copy(result.Vector, entry.Vector)
		for k, v := range entry.Metadata {
			result.Metadata[k] = v
		}

		allResults = append(allResults, result)
	}

	for i := 0; i < len(allResults)-1; i++ {
		for j := i + 1; j < len(allResults); j++ {
			if allResults[i].Score > allResults[j].Score {
				allResults[i], allResults[j] = allResults[j], allResults[i]
			}
		}
	}

	if k > len(allResults) {
		k = len(allResults)
	}
	results := make([]*SearchResult, k)
	copy(results, allResults[:k])

	return results, nil
}

// Delete removes a vector from the index.
func (idx *Index) Delete(ctx context.Context, id int32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	index, exists := idx.idToIndex[id]
	if !exists {
		return fmt.Errorf("vector with ID %d not found", id)
	}

	idx.vectors = append(idx.vectors[:index], idx.vectors[index+1:]...)

	delete(idx.idToIndex, id)
	for i := index; i < len(idx.vectors); i++ {
		idx.idToIndex[idx.vectors[i].ID] = i
	}

	return nil
}

// Size returns the number of vectors in the index.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// MemoryUsage estimates the memory usage of the index in bytes.
func (idx *Index) MemoryUsage() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var usage int64

	usage += int64(len(idx.vectors)) * int64(idx.config.Dimension) * 4
	usage += int64(len(idx.vectors)) * 4
	usage += int64(len(idx.idToIndex)) * 12

	for _, entry := range idx.vectors {
		for k, v := range entry.Metadata {
			usage += int64(len(k)) + estimateValueSize(v)
		}
	}

	return usage
}

// Close releases the index's in-memory state.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = nil
	idx.idToIndex = nil
	idx.quantizer = nil

	return nil
}

// persistedIndex is the on-disk JSON shape for SaveToDisk/LoadFromDisk.
// Config.DistFn is unexported from JSON (it's a function), so it is
// restored to distance.SIMD on load -- callers that need a different
// kernel must set Config.DistFn again after LoadFromDisk returns.
type persistedIndex struct {
	Config   *Config              `json:"config"`
	Vectors  []*VectorEntry       `json:"vectors"`
	Metadata *PersistenceMetadata `json:"metadata"`
}

// SaveToDisk persists the index to disk as JSON.
func (idx *Index) SaveToDisk(ctx context.Context, path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	data := persistedIndex{
		Config:  idx.config,
		Vectors: idx.vectors,
		Metadata: &PersistenceMetadata{
			Version:   1,
			NodeCount: len(idx.vectors),
			Dimension: idx.config.Dimension,
			MaxLevel:  0,
			IndexType: "Flat",
			CreatedAt: time.Now(),
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode index data: %w", err)
	}

	return nil
}

// LoadFromDisk loads the index from disk.
func (idx *Index) LoadFromDisk(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data persistedIndex
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return fmt.Errorf("failed to decode index data: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.config = data.Config
	idx.config.DistFn = distance.SIMD

	idx.vectors = data.Vectors
	idx.idToIndex = make(map[int32]int, len(data.Vectors))
	for i, entry := range data.Vectors {
		idx.idToIndex[entry.ID] = i
	}

	if idx.config.Quantization != nil {
		idx.quantizer, err = quant.Create(idx.config.Quantization)
		if err != nil {
			return fmt.Errorf("failed to recreate quantizer: %w", err)
		}
	}

	return nil
}

// GetPersistenceMetadata returns metadata about the persisted index.
func (idx *Index) GetPersistenceMetadata() *PersistenceMetadata {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return &PersistenceMetadata{
		Version:   1,
		NodeCount: len(idx.vectors),
		Dimension: idx.config.Dimension,
		MaxLevel:  0,
		IndexType: "Flat",
		CreatedAt: time.Now(),
	}
}

// GetConfig returns the index configuration.
func (idx *Index) GetConfig() *Config {
	return idx.config
}

// estimateValueSize estimates the memory size of a metadata value.
func estimateValueSize(v interface{}) int64 {
	switch val := v.(type) {
	case string:
		return int64(len(val))
	case int, int32, int64, float32, float64:
		return 8
	case bool:
		return 1
	case []interface{}:
		size := int64(0)
		for _, item := range val {
			size += estimateValueSize(item)
		}
		return size
	case map[string]interface{}:
		size := int64(0)
		for k, val := range val {
			size += int64(len(k)) + estimateValueSize(val)
		}
		return size
	default:
		return 16
	}
}
