// Package unichrome is an embeddable vector database: a directory of named
// collections, each a document store paired with an HNSW graph over its
// embeddings, persisted as a <name>.db/<name>.hnsw file pair.
package unichrome

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xDarkicex/unichrome/internal/obs"
)

// Database is the root façade: it maps collection names to Collection
// instances and owns the storage directory they persist under.
type Database struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	storagePath string
	metrics     *obs.Metrics
	health      *obs.HealthChecker
	config      *Config
	closed      bool
	startedAt   time.Time
}

// Config holds database-wide configuration.
type Config struct {
	StoragePath    string
	MetricsEnabled bool
	MaxCollections int
}

// New creates a new Database instance with the given options. Collections
// already persisted under its storage path are not loaded here; each is
// loaded on its first GetCollection call.
func New(opts ...Option) (*Database, error) {
	config := &Config{
		StoragePath:    "./data",
		MetricsEnabled: true,
		MaxCollections: 100,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, newErr(CodeInvalidFilter, "New", fmt.Errorf("apply option: %w", err))
		}
	}

	if err := os.MkdirAll(config.StoragePath, 0o755); err != nil {
		return nil, newErr(CodeIO, "New", fmt.Errorf("create storage path: %w", err))
	}

	var metrics *obs.Metrics
	if config.MetricsEnabled {
		metrics = obs.NewMetrics()
	}

	db := &Database{
		collections: make(map[string]*Collection),
		storagePath: config.StoragePath,
		metrics:     metrics,
		config:      config,
		startedAt:   time.Now(),
	}
	db.health = obs.NewHealthChecker(db)

	if err := db.loadExistingCollections(); err != nil {
		return nil, newErr(CodeIO, "New", fmt.Errorf("load existing collections: %w", err))
	}

	return db, nil
}

// CreateCollection creates a new, empty collection with the specified options.
func (db *Database) CreateCollection(ctx context.Context, name string, opts ...CollectionOption) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, newErr(CodeIO, "Database.CreateCollection", fmt.Errorf("database is closed"))
	}
	if _, exists := db.collections[name]; exists {
		return nil, newErr(CodeAlreadyExists, "Database.CreateCollection", fmt.Errorf("collection %q already exists", name))
	}
	if len(db.collections) >= db.config.MaxCollections {
		return nil, newErr(CodeInvalidFilter, "Database.CreateCollection", fmt.Errorf("maximum number of collections (%d) exceeded", db.config.MaxCollections))
	}

	collection, err := newCollection(name, db.metrics, opts...)
	if err != nil {
		return nil, err
	}

	db.collections[name] = collection
	return collection, nil
}

// GetCollection retrieves an existing collection by name, loading it from
// its file pair on first access if it was persisted by a prior process.
func (db *Database) GetCollection(name string) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, newErr(CodeIO, "Database.GetCollection", fmt.Errorf("database is closed"))
	}

	if collection, ok := db.collections[name]; ok {
		return collection, nil
	}

	if _, err := os.Stat(CollectionDBPath(db.storagePath, name)); err != nil {
		return nil, newErr(CodeNotFound, "Database.GetCollection", fmt.Errorf("collection %q not found", name))
	}

	collection, err := loadCollection(name, db.storagePath, db.metrics, nil)
	if err != nil {
		return nil, err
	}

	db.collections[name] = collection
	return collection, nil
}

// ListCollections returns the names of all collections currently loaded or
// discoverable on disk.
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	seen := make(map[string]bool, len(db.collections))
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		seen[name] = true
		names = append(names, name)
	}

	entries, err := os.ReadDir(db.storagePath)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if ext := filepath.Ext(entry.Name()); ext == ".db" {
				name := strings.TrimSuffix(entry.Name(), ext)
				if !seen[name] {
					names = append(names, name)
				}
			}
		}
	}

	return names
}

// DeletePersistedStorage removes a collection's on-disk file pair and, if
// loaded, its in-memory instance.
func (db *Database) DeletePersistedStorage(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.collections, name)

	var errs []error
	if err := os.Remove(CollectionDBPath(db.storagePath, name)); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if err := os.Remove(CollectionHNSWPath(db.storagePath, name)); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return newErr(CodeIO, "Database.DeletePersistedStorage", fmt.Errorf("%v", errs))
	}
	return nil
}

// Health returns the current health status.
func (db *Database) Health(ctx context.Context) (*obs.HealthStatus, error) {
	return db.health.Check(ctx)
}

// CollectionCount satisfies obs.Checkable.
func (db *Database) CollectionCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.collections)
}

// Closed satisfies obs.Checkable.
func (db *Database) Closed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}

// Stats returns database statistics.
func (db *Database) Stats() *DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stats := &DatabaseStats{
		CollectionCount: len(db.collections),
		Collections:     make(map[string]*CollectionStats),
		Uptime:          time.Since(db.startedAt),
	}

	for name, collection := range db.collections {
		stats.Collections[name] = collection.Stats()
	}

	return stats
}

// loadExistingCollections is intentionally a no-op: collections are loaded
// lazily on first GetCollection call, since discovering a collection's
// dimension/HNSW parameters requires reading its .db/.hnsw file pair, which is only
// worth doing when the collection is actually requested.
func (db *Database) loadExistingCollections() error {
	return nil
}

// Close persists and shuts down every loaded collection configured for
// persistence, then marks the database closed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}

	var errs []error
	for _, collection := range db.collections {
		if collection.config.Persistent {
			if err := collection.Persist(db.storagePath); err != nil {
				errs = append(errs, err)
			}
		}
		if err := collection.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	db.closed = true

	if len(errs) > 0 {
		return newErr(CodeIO, "Database.Close", fmt.Errorf("%v", errs))
	}
	return nil
}
