package unichrome

import (
	"fmt"

	"github.com/xDarkicex/unichrome/internal/hnsw"
	"github.com/xDarkicex/unichrome/internal/quant"
)

// Option represents a database configuration option
type Option func(*Config) error

// WithStoragePath sets the storage path for the database
func WithStoragePath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("storage path cannot be empty")
		}
		c.StoragePath = path
		return nil
	}
}

// WithMetrics enables or disables metrics collection
func WithMetrics(enabled bool) Option {
	return func(c *Config) error {
		c.MetricsEnabled = enabled
		return nil
	}
}

// WithMaxCollections sets the maximum number of collections
func WithMaxCollections(max int) Option {
	return func(c *Config) error {
		if max <= 0 {
			return fmt.Errorf("max collections must be positive")
		}
		c.MaxCollections = max
		return nil
	}
}

// CollectionOption represents a collection configuration option
type CollectionOption func(*CollectionConfig) error

// WithDimension sets the vector dimension for the collection
func WithDimension(dim int) CollectionOption {
	return func(c *CollectionConfig) error {
		if dim <= 0 {
			return fmt.Errorf("dimension must be positive")
		}
		c.Dimension = dim
		return nil
	}
}

// WithEfSearch sets the default candidate-set size used at query time.
func WithEfSearch(efSearch int) CollectionOption {
	return func(c *CollectionConfig) error {
		if efSearch <= 0 {
			return fmt.Errorf("EfSearch must be positive")
		}
		c.EfSearch = efSearch
		return nil
	}
}

// WithM sets the HNSW target out-degree for layers above 0.
func WithM(m int) CollectionOption {
	return func(c *CollectionConfig) error {
		if m <= 0 {
			return fmt.Errorf("M must be positive")
		}
		c.HNSW.M = m
		return nil
	}
}

// WithConstructionPruning sets the efConstruction candidate set size.
func WithConstructionPruning(ef int) CollectionOption {
	return func(c *CollectionConfig) error {
		if ef <= 0 {
			return fmt.Errorf("ConstructionPruning must be positive")
		}
		c.HNSW.ConstructionPruning = ef
		return nil
	}
}

// WithHeuristic selects the neighbour-selection policy used during
// construction.
func WithHeuristic(h hnsw.NeighbourHeuristic) CollectionOption {
	return func(c *CollectionConfig) error {
		c.HNSW.NeighbourHeuristic = h
		return nil
	}
}

// WithExpandBestSelection toggles SelectHeuristic's candidate expansion.
func WithExpandBestSelection(enabled bool) CollectionOption {
	return func(c *CollectionConfig) error {
		c.HNSW.ExpandBestSelection = enabled
		return nil
	}
}

// WithKeepPrunedConnections toggles SelectHeuristic's pruned-connection
// retention.
func WithKeepPrunedConnections(enabled bool) CollectionOption {
	return func(c *CollectionConfig) error {
		c.HNSW.KeepPrunedConnections = enabled
		return nil
	}
}

// WithDistanceCache toggles the construction-time distance cache and sets
// its initial size.
func WithDistanceCache(enabled bool, initialSize int) CollectionOption {
	return func(c *CollectionConfig) error {
		c.HNSW.EnableDistanceCacheForConstruction = enabled
		c.HNSW.InitialDistanceCacheSize = initialSize
		return nil
	}
}

// WithQuantization enables scalar quantization for stats reporting (see
// CollectionConfig.Quantization for why it never touches the search path).
func WithQuantization(config *quant.QuantizationConfig) CollectionOption {
	return func(c *CollectionConfig) error {
		if err := config.Validate(); err != nil {
			return fmt.Errorf("invalid quantization config: %w", err)
		}
		c.Quantization = config
		return nil
	}
}

// WithIndexPersistence marks the collection for file-pair persistence
// under the database's storage path.
func WithIndexPersistence(enabled bool) CollectionOption {
	return func(c *CollectionConfig) error {
		c.Persistent = enabled
		return nil
	}
}

// WithExactIndex maintains a brute-force internal/index/flat index
// alongside the HNSW graph, enabling Collection.ExactSearch.
func WithExactIndex(enabled bool) CollectionOption {
	return func(c *CollectionConfig) error {
		c.ExactIndex = enabled
		return nil
	}
}
