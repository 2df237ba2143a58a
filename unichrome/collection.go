package unichrome

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/xDarkicex/unichrome/internal/distance"
	"github.com/xDarkicex/unichrome/internal/filter"
	"github.com/xDarkicex/unichrome/internal/hnsw"
	"github.com/xDarkicex/unichrome/internal/index/flat"
	"github.com/xDarkicex/unichrome/internal/obs"
	"github.com/xDarkicex/unichrome/internal/quant"
)

// Collection is a named, dimension-fixed set of documents: a document
// store holding text/metadata/vector plus an HNSW graph over the vectors.
// HNSW has no in-place update or delete, so DeleteDocument and
// UpdateDocumentAsync rebuild the graph from the surviving documents;
// every other writer holds the same lock for the duration, so a reader
// never observes a graph that doesn't match the store.
type Collection struct {
	mu     sync.RWMutex
	name   string
	config *CollectionConfig

	store *DocumentStore
	graph *hnsw.Graph[*Document]

	// exact, when non-nil, mirrors every write into a brute-force index so
	// ExactSearch can serve a zero-approximation-error baseline alongside
	// the HNSW graph's approximate results.
	exact *flat.Index

	quantizer quant.Quantizer

	metrics *obs.Metrics
	closed  bool
}

// CollectionConfig holds collection-specific configuration: the embedding
// dimension, HNSW construction/search parameters, and optional scalar
// quantization.
type CollectionConfig struct {
	Dimension int

	HNSW hnsw.Parameters
	// EfSearch is the candidate-set size used by KNearest at query time:
	// Search asks for max(k, EfSearch) candidates and returns the best k.
	// It is carried on CollectionConfig rather than hnsw.Parameters
	// because, unlike the construction parameters, it is legal to change
	// between searches.
	EfSearch int

	// Quantization, when non-nil, trains a scalar quantizer over inserted
	// vectors (retrained by AddDocument every 32 documents). Its only
	// effect on CollectionStats is HasQuantization; no compression ratio or
	// memory estimate is reported. It does not replace the graph's distance kernel:
	// HNSW's recall guarantees assume the same distance function used at
	// construction is used at search time, and swapping in a lossy
	// quantized kernel would violate that silently.
	Quantization *quant.QuantizationConfig

	// Persistent marks whether this collection round-trips through a
	// .db/.hnsw file pair (see Persist/loadCollection in this file).
	Persistent bool

	// ExactIndex, when true, maintains a brute-force internal/index/flat
	// index alongside the HNSW graph so ExactSearch can serve exact
	// (zero-approximation-error) results -- a recall baseline for
	// collections small enough that a linear scan is cheap.
	ExactIndex bool
}

func defaultCollectionConfig() *CollectionConfig {
	return &CollectionConfig{
		Dimension: 768,
		HNSW:      hnsw.DefaultParameters(),
		EfSearch:  50,
	}
}

// newCollection creates a new, empty collection.
func newCollection(name string, metrics *obs.Metrics, opts ...CollectionOption) (*Collection, error) {
	config := defaultCollectionConfig()

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, newErr(CodeInvalidFilter, "newCollection", fmt.Errorf("apply option: %w", err))
		}
	}

	if err := config.validate(); err != nil {
		return nil, newErr(CodeInvalidFilter, "newCollection", err)
	}

	c := &Collection{
		name:    name,
		config:  config,
		store:   NewDocumentStore(),
		graph:   hnsw.NewGraph[*Document](config.HNSW, distance.SIMD),
		metrics: metrics,
	}

	if config.ExactIndex {
		idx, err := flat.NewFlat(&flat.Config{Dimension: config.Dimension})
		if err != nil {
			return nil, newErr(CodeDimensionMismatch, "newCollection", fmt.Errorf("create exact index: %w", err))
		}
		c.exact = idx
	}

	if config.Quantization != nil {
		q, err := quant.Create(config.Quantization)
		if err != nil {
			return nil, newErr(CodeEmbedding, "newCollection", fmt.Errorf("create quantizer: %w", err))
		}
		c.quantizer = q
	}

	return c, nil
}

func (config *CollectionConfig) validate() error {
	if config.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}
	if err := config.HNSW.Validate(); err != nil {
		return fmt.Errorf("invalid HNSW parameters: %w", err)
	}
	if config.EfSearch <= 0 {
		return fmt.Errorf("EfSearch must be positive, got %d", config.EfSearch)
	}
	return nil
}

// AddDocument embeds text/vector/metadata as a new document, assigns it the
// next monotonic ID, and inserts it into the graph. It returns the new ID.
func (c *Collection) AddDocument(ctx context.Context, text string, vector []float32, metadata map[string]string) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, newErr(CodeIO, "Collection.AddDocument", fmt.Errorf("collection %q is closed", c.name))
	}
	if len(vector) != c.config.Dimension {
		return 0, newErr(CodeDimensionMismatch, "Collection.AddDocument",
			fmt.Errorf("vector has dimension %d, collection expects %d", len(vector), c.config.Dimension))
	}

	doc := c.store.Add(text, vector, metadata, time.Now())
	c.graph.AddItems([]*Document{doc})
	c.mirrorInsertToExact(ctx, doc)

	if c.quantizer != nil && c.store.Len()%32 == 0 {
		c.retrainQuantizer(ctx)
	}

	if c.metrics != nil {
		c.metrics.VectorInserts.Inc()
	}

	return doc.ID, nil
}

// mirrorInsertToExact inserts doc into the optional exact index. Failures
// are not surfaced: the exact index is a diagnostic baseline, never the
// primary index, so it must never gate the write path's success.
func (c *Collection) mirrorInsertToExact(ctx context.Context, doc *Document) {
	if c.exact == nil {
		return
	}
	_ = c.exact.Insert(ctx, &flat.VectorEntry{
		ID:       doc.ID,
		Vector:   doc.Vector,
		Metadata: stringMapToAny(doc.Metadata),
	})
}

func stringMapToAny(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AddDocumentsAsync adds a batch of documents under one lock acquisition.
// Go's context-based cancellation makes literal goroutine-per-call
// asynchrony unnecessary here; the name is kept for parity with the
// single-document/batch split the rest of the API draws, and ctx is
// honoured between items so a cancelled batch stops early. Documents
// accepted before a stop are still indexed, and their IDs are returned
// along with the error.
func (c *Collection) AddDocumentsAsync(ctx context.Context, items []NewDocument) ([]int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, newErr(CodeIO, "Collection.AddDocumentsAsync", fmt.Errorf("collection %q is closed", c.name))
	}

	ids := make([]int32, 0, len(items))
	docs := make([]*Document, 0, len(items))
	now := time.Now()

	var stopErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}

		if len(item.Vector) != c.config.Dimension {
			stopErr = newErr(CodeDimensionMismatch, "Collection.AddDocumentsAsync",
				fmt.Errorf("vector has dimension %d, collection expects %d", len(item.Vector), c.config.Dimension))
			break
		}

		doc := c.store.Add(item.Text, item.Vector, item.Metadata, now)
		docs = append(docs, doc)
		ids = append(ids, doc.ID)
	}

	c.graph.AddItems(docs)
	for _, doc := range docs {
		c.mirrorInsertToExact(ctx, doc)
	}

	if c.metrics != nil {
		for range docs {
			c.metrics.VectorInserts.Inc()
		}
	}

	return ids, stopErr
}

// NewDocument is a single item of an AddDocumentsAsync batch.
type NewDocument struct {
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// TryGetDocument returns a document and true if it exists, or nil and
// false otherwise -- no error for the not-found case.
func (c *Collection) TryGetDocument(id int32) (*Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Get(id)
}

// GetDocument returns a document, or ErrNotFound if id does not exist.
func (c *Collection) GetDocument(id int32) (*Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.store.Get(id)
	if !ok {
		return nil, newErr(CodeNotFound, "Collection.GetDocument", fmt.Errorf("document %d not found", id))
	}
	return doc, nil
}

// Contains reports whether id exists in the collection.
func (c *Collection) Contains(id int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Contains(id)
}

// Count returns the number of documents currently stored.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}

// DeleteDocument removes a document and rebuilds the graph from the
// remaining documents, since HNSW has no in-place deletion. It reports
// false if id did not exist.
func (c *Collection) DeleteDocument(id int32) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, newErr(CodeIO, "Collection.DeleteDocument", fmt.Errorf("collection %q is closed", c.name))
	}

	if !c.store.Delete(id) {
		return false, nil
	}

	c.rebuildGraph()
	if c.exact != nil {
		_ = c.exact.Delete(context.Background(), id)
	}

	if c.metrics != nil {
		c.metrics.IndexRebuilds.Inc()
	}

	return true, nil
}

// UpdateDocumentAsync replaces a document's text/vector/metadata in place
// (ModificationDateTime is bumped; CreationDateTime is untouched) and
// rebuilds the graph, since the vector may have changed. See
// AddDocumentsAsync for why this is synchronous despite the name.
func (c *Collection) UpdateDocumentAsync(ctx context.Context, id int32, text string, vector []float32, metadata map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return newErr(CodeIO, "Collection.UpdateDocumentAsync", fmt.Errorf("collection %q is closed", c.name))
	}
	if len(vector) != c.config.Dimension {
		return newErr(CodeDimensionMismatch, "Collection.UpdateDocumentAsync",
			fmt.Errorf("vector has dimension %d, collection expects %d", len(vector), c.config.Dimension))
	}

	doc, ok := c.store.Update(id, text, vector, metadata, time.Now())
	if !ok {
		return newErr(CodeNotFound, "Collection.UpdateDocumentAsync", fmt.Errorf("document %d not found", id))
	}

	c.rebuildGraph()
	c.mirrorInsertToExact(ctx, doc)

	if c.metrics != nil {
		c.metrics.IndexRebuilds.Inc()
	}

	return nil
}

// rebuildGraph reconstructs the HNSW graph from scratch over the store's
// current documents. Called with c.mu held for writing.
func (c *Collection) rebuildGraph() {
	c.graph = hnsw.NewGraph[*Document](c.config.HNSW, distance.SIMD)
	c.graph.AddItems(c.store.Documents())
}

// SearchOptions narrows a Search/SearchAsync call with post-filters
// applied after the vector search returns candidates.
type SearchOptions struct {
	Filter        filter.Filter
	CreatedRange  *DateRange
	ModifiedRange *DateRange
}

// Search runs a k-nearest-neighbour query and applies any post-filters in
// opts, returning results sorted ascending by distance.
func (c *Collection) Search(ctx context.Context, vector []float32, k int, opts ...*SearchOptions) (*SearchResults, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, newErr(CodeIO, "Collection.Search", fmt.Errorf("collection %q is closed", c.name))
	}
	if len(vector) != c.config.Dimension {
		return nil, newErr(CodeDimensionMismatch, "Collection.Search",
			fmt.Errorf("query vector has dimension %d, collection expects %d", len(vector), c.config.Dimension))
	}
	if k <= 0 {
		return nil, newErr(CodeInvalidFilter, "Collection.Search", fmt.Errorf("k must be positive, got %d", k))
	}

	start := time.Now()
	if c.metrics != nil {
		defer func() {
			c.metrics.SearchLatency.Observe(time.Since(start).Seconds())
			c.metrics.DistanceCacheHitRate.Set(c.graph.CacheHitRate())
		}()
	}

	ef := k
	if c.config.EfSearch > ef {
		ef = c.config.EfSearch
	}
	hits, err := c.graph.KNearest(vector, ef)
	if err != nil {
		if c.metrics != nil {
			c.metrics.SearchErrors.Inc()
		}
		return nil, asGraphChanged("Collection.Search", err)
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	if c.metrics != nil {
		c.metrics.SearchQueries.Inc()
	}

	results := make([]*SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = &SearchResult{
			ID:                   hit.Item.ID,
			Text:                 hit.Item.Text,
			Score:                hit.Distance,
			Vector:               hit.Item.Vector,
			Metadata:             hit.Item.Metadata,
			CreationDateTime:     hit.Item.CreationDateTime,
			ModificationDateTime: hit.Item.ModificationDateTime,
		}
	}

	var opt *SearchOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt != nil {
		results, err = c.applyPostFilters(ctx, results, opt)
		if err != nil {
			return nil, newErr(CodeInvalidFilter, "Collection.Search", err)
		}
	}

	return &SearchResults{Results: results, Took: time.Since(start), Total: len(results)}, nil
}

func (c *Collection) applyPostFilters(ctx context.Context, results []*SearchResult, opt *SearchOptions) ([]*SearchResult, error) {
	if opt.Filter != nil {
		byID := make(map[int32]*SearchResult, len(results))
		entries := make([]*filter.DocumentEntry, len(results))
		for i, r := range results {
			byID[r.ID] = r
			metadata := make(map[string]interface{}, len(r.Metadata))
			for k, v := range r.Metadata {
				metadata[k] = v
			}
			entries[i] = &filter.DocumentEntry{ID: r.ID, Metadata: metadata}
		}
		filtered, err := opt.Filter.Apply(ctx, entries)
		if err != nil {
			return nil, err
		}
		next := make([]*SearchResult, len(filtered))
		for i, e := range filtered {
			next[i] = byID[e.ID]
		}
		results = next
	}

	if opt.CreatedRange != nil || opt.ModifiedRange != nil {
		var kept []*SearchResult
		for _, r := range results {
			if opt.CreatedRange != nil && !opt.CreatedRange.Contains(r.CreationDateTime) {
				continue
			}
			if opt.ModifiedRange != nil && !opt.ModifiedRange.Contains(r.ModificationDateTime) {
				continue
			}
			kept = append(kept, r)
		}
		results = kept
	}

	return results, nil
}

// SearchAsync is Search with ctx threaded through for cancellation; kept
// as a distinct name for parity with the spec's operation list.
func (c *Collection) SearchAsync(ctx context.Context, vector []float32, k int, opts ...*SearchOptions) (*SearchResults, error) {
	return c.Search(ctx, vector, k, opts...)
}

// ExactSearch runs a brute-force linear scan over every stored vector
// instead of the HNSW graph, returning zero-approximation-error results.
// It requires the collection to have been created WithExactIndex -- use it
// to measure the graph's recall against ground truth, or on collections
// small enough that an exact scan is as cheap as an approximate one.
func (c *Collection) ExactSearch(ctx context.Context, vector []float32, k int) (*SearchResults, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, newErr(CodeIO, "Collection.ExactSearch", fmt.Errorf("collection %q is closed", c.name))
	}
	if c.exact == nil {
		return nil, newErr(CodeInvalidFilter, "Collection.ExactSearch", fmt.Errorf("collection %q was not created WithExactIndex", c.name))
	}

	start := time.Now()
	hits, err := c.exact.Search(ctx, vector, k)
	if err != nil {
		return nil, newErr(CodeDimensionMismatch, "Collection.ExactSearch", err)
	}

	results := make([]*SearchResult, len(hits))
	for i, hit := range hits {
		doc, ok := c.store.Get(hit.ID)
		if !ok {
			continue
		}
		results[i] = &SearchResult{
			ID:                   doc.ID,
			Text:                 doc.Text,
			Score:                hit.Score,
			Vector:               doc.Vector,
			Metadata:             doc.Metadata,
			CreationDateTime:     doc.CreationDateTime,
			ModificationDateTime: doc.ModificationDateTime,
		}
	}

	return &SearchResults{Results: results, Took: time.Since(start), Total: len(results)}, nil
}

// Query returns a fluent query builder for this collection.
func (c *Collection) Query(ctx context.Context) *QueryBuilder {
	return &QueryBuilder{
		ctx:        ctx,
		collection: c,
		limit:      10,
	}
}

// retrainQuantizer retrains the optional scalar quantizer over a sample of
// stored vectors for stats reporting. Best-effort: failures are not
// surfaced since quantization here never gates correctness.
func (c *Collection) retrainQuantizer(ctx context.Context) {
	docs := c.store.Documents()
	if len(docs) == 0 {
		return
	}
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		vectors[i] = d.Vector
	}
	_ = c.quantizer.Train(ctx, vectors)
}

// Stats reports the collection's current state.
func (c *Collection) Stats() *CollectionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &CollectionStats{
		Name:                 c.name,
		DocumentCount:        c.store.Len(),
		Dimension:            c.config.Dimension,
		DistanceCacheHitRate: c.graph.CacheHitRate(),
		HasQuantization:      c.quantizer != nil,
		HasExactIndex:        c.exact != nil,
		Persistent:           c.config.Persistent,
	}
	return stats
}

// Close marks the collection closed; further writer/reader ops return a
// CodeIO error.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.exact != nil {
		_ = c.exact.Close()
	}
	return nil
}

// Persist writes the collection's document store and graph to
// <dir>/<name>.db and <dir>/<name>.hnsw.
func (c *Collection) Persist(dir string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dbPath := CollectionDBPath(dir, c.name)
	hnswPath := CollectionHNSWPath(dir, c.name)

	if err := c.store.Persist(dbPath); err != nil {
		return newErr(CodeIO, "Collection.Persist", err)
	}
	if err := c.graph.Save(hnswPath); err != nil {
		return newErr(CodeIO, "Collection.Persist", err)
	}
	return nil
}

// loadCollection reconstructs a collection from its .db/.hnsw file pair.
func loadCollection(name, dir string, metrics *obs.Metrics, config *CollectionConfig) (*Collection, error) {
	dbPath := CollectionDBPath(dir, name)
	hnswPath := CollectionHNSWPath(dir, name)

	store, err := DeserializeAndPopulate(dbPath)
	if err != nil {
		return nil, newErr(CodeIO, "loadCollection", err)
	}

	graph, err := hnsw.LoadGraph[*Document](hnswPath, store.Documents(), distance.SIMD)
	if err != nil {
		return nil, newErr(CodeIO, "loadCollection", err)
	}

	if config == nil {
		config = defaultCollectionConfig()
	}
	if docs := store.Documents(); len(docs) > 0 {
		config.Dimension = len(docs[0].Vector)
	}
	config.HNSW = graph.Parameters()
	config.Persistent = true

	c := &Collection{
		name:    name,
		config:  config,
		store:   store,
		graph:   graph,
		metrics: metrics,
	}

	if config.ExactIndex {
		idx, err := flat.NewFlat(&flat.Config{Dimension: config.Dimension})
		if err != nil {
			return nil, newErr(CodeDimensionMismatch, "loadCollection", fmt.Errorf("create exact index: %w", err))
		}
		ctx := context.Background()
		for _, doc := range store.Documents() {
			_ = idx.Insert(ctx, &flat.VectorEntry{ID: doc.ID, Vector: doc.Vector, Metadata: stringMapToAny(doc.Metadata)})
		}
		c.exact = idx
	}

	return c, nil
}

// CollectionDBPath returns the document-store file path for a collection
// under dir.
func CollectionDBPath(dir, name string) string {
	return filepath.Join(dir, name+".db")
}

// CollectionHNSWPath returns the graph file path for a collection under
// dir.
func CollectionHNSWPath(dir, name string) string {
	return filepath.Join(dir, name+".hnsw")
}
