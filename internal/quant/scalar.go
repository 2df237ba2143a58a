package quant

import (
	"context"
	"fmt"
	"sync"

	"github.com/xDarkicex/unichrome/internal/distance"
)

// ScalarQuantizer maps each dimension of a stored embedding onto a
// fixed-point range derived from per-dimension min/max bounds observed at
// training time. It never substitutes for the HNSW graph's distance
// kernel (see CollectionConfig.Quantization): its Distance/DistanceToQuery
// methods exist so a host can estimate memory pressure and measure
// reconstruction error against the collection's actual cosine kernel,
// not to serve search results directly.
type ScalarQuantizer struct {
	mu sync.RWMutex

	config *QuantizationConfig

	// distFn scores two reconstructed (dequantized) vectors. Distance and
	// DistanceToQuery both dequantize first and delegate here, rather than
	// computing a fixed-point-native metric, so a quantized vector's
	// reported distance agrees with whatever kernel the rest of this
	// collection is built on (distance.NonOptimized by default).
	distFn distance.Func

	trained   bool
	dimension int

	// minValues/maxValues bound each dimension's observed range;
	// scale/offset convert a raw float32 to and from its fixed-point code.
	minValues []float32
	maxValues []float32
	scales    []float32
	offsets   []float32

	maxLevel uint32 // 2^Bits - 1, the largest representable fixed-point code

	memoryUsage int64
}

// NewScalarQuantizer creates an unconfigured, untrained quantizer.
func NewScalarQuantizer() *ScalarQuantizer {
	return &ScalarQuantizer{
		trained: false,
	}
}

// Configure sets the quantizer's bit depth and distance kernel. DistFn
// defaults to distance.NonOptimized when the config leaves it nil --
// JSON-loaded configs always do, since a function value can't survive a
// round trip through persisted state.
func (sq *ScalarQuantizer) Configure(config *QuantizationConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if config.Type != ScalarQuantization {
		return fmt.Errorf("expected ScalarQuantization type, got %s", config.Type.String())
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	sq.config = config
	sq.maxLevel = (1 << config.Bits) - 1

	sq.distFn = config.DistFn
	if sq.distFn == nil {
		sq.distFn = distance.NonOptimized
	}

	return nil
}

// Train computes the per-dimension [min, max] range a vector's components
// are later clamped and quantized against.
func (sq *ScalarQuantizer) Train(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no training vectors provided")
	}
	if sq.config == nil {
		return fmt.Errorf("quantizer not configured")
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()

	sq.dimension = len(vectors[0])

	for i, vec := range vectors {
		if len(vec) != sq.dimension {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), sq.dimension)
		}
	}

	numTraining := int(float64(len(vectors)) * sq.config.TrainRatio)
	if numTraining < 1 {
		numTraining = len(vectors)
	}
	trainingVectors := sampleEvery(vectors, numTraining)

	sq.minValues = make([]float32, sq.dimension)
	sq.maxValues = make([]float32, sq.dimension)
	sq.scales = make([]float32, sq.dimension)
	sq.offsets = make([]float32, sq.dimension)

	if len(trainingVectors) > 0 {
		copy(sq.minValues, trainingVectors[0])
		copy(sq.maxValues, trainingVectors[0])
	}

	for _, vec := range trainingVectors {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for d := 0; d < sq.dimension; d++ {
			if vec[d] < sq.minValues[d] {
				sq.minValues[d] = vec[d]
			}
			if vec[d] > sq.maxValues[d] {
				sq.maxValues[d] = vec[d]
			}
		}
	}

	for d := 0; d < sq.dimension; d++ {
		span := sq.maxValues[d] - sq.minValues[d]
		sq.offsets[d] = sq.minValues[d]
		if span == 0 {
			sq.scales[d] = 1.0
		} else {
			sq.scales[d] = span / float32(sq.maxLevel)
		}
	}

	sq.trained = true
	sq.updateMemoryUsage()

	return nil
}

// Compress packs vector into a bitsPerValue-wide (config.Bits) fixed-point
// code per dimension, clamped to the trained [min, max] range.
func (sq *ScalarQuantizer) Compress(vector []float32) ([]byte, error) {
	sq.mu.RLock()
	defer sq.mu.RUnlock()

	if !sq.trained {
		return nil, fmt.Errorf("quantizer not trained")
	}
	if len(vector) != sq.dimension {
		return nil, fmt.Errorf("vector dimension %d does not match expected %d", len(vector), sq.dimension)
	}

	bitsPerValue := sq.config.Bits
	numBytes := (sq.dimension*bitsPerValue + 7) / 8
	compressed := make([]byte, numBytes)
	bitOffset := 0

	for d := 0; d < sq.dimension; d++ {
		value := vector[d]
		if value < sq.minValues[d] {
			value = sq.minValues[d]
		} else if value > sq.maxValues[d] {
			value = sq.maxValues[d]
		}

		normalized := (value - sq.offsets[d]) / sq.scales[d]
		quantized := uint32(normalized + 0.5)
		if quantized > sq.maxLevel {
			quantized = sq.maxLevel
		}

		packBits(compressed, bitOffset, bitsPerValue, quantized)
		bitOffset += bitsPerValue
	}

	return compressed, nil
}

// Decompress reconstructs an approximate vector from a Compress-produced
// code. Reconstruction error grows as Bits shrinks.
func (sq *ScalarQuantizer) Decompress(data []byte) ([]float32, error) {
	sq.mu.RLock()
	defer sq.mu.RUnlock()

	if !sq.trained {
		return nil, fmt.Errorf("quantizer not trained")
	}

	vector := make([]float32, sq.dimension)
	bitOffset := 0
	bitsPerValue := sq.config.Bits

	for d := 0; d < sq.dimension; d++ {
		quantized := unpackBits(data, bitOffset, bitsPerValue)
		bitOffset += bitsPerValue
		vector[d] = sq.offsets[d] + float32(quantized)*sq.scales[d]
	}

	return vector, nil
}

// Distance reconstructs both compressed vectors and scores them with the
// quantizer's configured distance.Func, so a caller comparing quantized
// distance against the collection's own Search results is comparing like
// with like.
func (sq *ScalarQuantizer) Distance(compressed1, compressed2 []byte) (float32, error) {
	v1, err := sq.Decompress(compressed1)
	if err != nil {
		return 0, err
	}
	v2, err := sq.Decompress(compressed2)
	if err != nil {
		return 0, err
	}

	sq.mu.RLock()
	fn := sq.distFn
	sq.mu.RUnlock()

	return fn(v1, v2), nil
}

// DistanceToQuery reconstructs compressed and scores it against query with
// the quantizer's configured distance.Func.
func (sq *ScalarQuantizer) DistanceToQuery(compressed []byte, query []float32) (float32, error) {
	sq.mu.RLock()
	dimension := sq.dimension
	sq.mu.RUnlock()

	if len(query) != dimension {
		return 0, fmt.Errorf("query dimension %d does not match expected %d", len(query), dimension)
	}

	v, err := sq.Decompress(compressed)
	if err != nil {
		return 0, err
	}

	sq.mu.RLock()
	fn := sq.distFn
	sq.mu.RUnlock()

	return fn(query, v), nil
}

// CompressionRatio reports the ratio of a float32 vector's raw size to its
// quantized size.
func (sq *ScalarQuantizer) CompressionRatio() float32 {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	if !sq.trained {
		return 0
	}
	originalBits := sq.dimension * 32
	compressedBits := sq.dimension * sq.config.Bits
	return float32(originalBits) / float32(compressedBits)
}

// MemoryUsage reports the quantizer's own bookkeeping footprint (the
// per-dimension min/max/scale/offset arrays), not the compressed corpus.
func (sq *ScalarQuantizer) MemoryUsage() int64 {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	return sq.memoryUsage
}

// IsTrained reports whether Train has run successfully.
func (sq *ScalarQuantizer) IsTrained() bool {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	return sq.trained
}

// Config returns a copy of the quantizer's configuration.
func (sq *ScalarQuantizer) Config() *QuantizationConfig {
	sq.mu.RLock()
	defer sq.mu.RUnlock()
	if sq.config == nil {
		return nil
	}
	configCopy := *sq.config
	return &configCopy
}

func (sq *ScalarQuantizer) updateMemoryUsage() {
	var usage int64
	usage += int64(len(sq.minValues) * 4)
	usage += int64(len(sq.maxValues) * 4)
	usage += int64(len(sq.scales) * 4)
	usage += int64(len(sq.offsets) * 4)
	sq.memoryUsage = usage
}

// sampleEvery picks n vectors from vectors at a fixed stride, deterministic
// rather than random so a given training set always quantizes the same way.
func sampleEvery(vectors [][]float32, n int) [][]float32 {
	if n >= len(vectors) {
		return vectors
	}
	step := len(vectors) / n
	if step < 1 {
		step = 1
	}
	sampled := make([][]float32, 0, n)
	for i := 0; i < len(vectors) && len(sampled) < n; i += step {
		sampled = append(sampled, vectors[i])
	}
	return sampled
}

func packBits(data []byte, bitOffset, numBits int, value uint32) {
	for i := 0; i < numBits; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if byteIdx >= len(data) {
			return
		}
		if (value>>i)&1 == 1 {
			data[byteIdx] |= 1 << bitIdx
		}
	}
}

func unpackBits(data []byte, bitOffset, numBits int) uint32 {
	value := uint32(0)
	for i := 0; i < numBits; i++ {
		byteIdx := (bitOffset + i) / 8
		bitIdx := (bitOffset + i) % 8
		if byteIdx >= len(data) {
			break
		}
		if (data[byteIdx]>>bitIdx)&1 == 1 {
			value |= 1 << i
		}
	}
	return value
}

// ScalarQuantizerFactory constructs ScalarQuantizer instances for the
// registry.
type ScalarQuantizerFactory struct{}

// NewScalarQuantizerFactory creates a factory for ScalarQuantizer.
func NewScalarQuantizerFactory() *ScalarQuantizerFactory {
	return &ScalarQuantizerFactory{}
}

// Create builds and configures a ScalarQuantizer from config.
func (f *ScalarQuantizerFactory) Create(config *QuantizationConfig) (Quantizer, error) {
	if config.Type != ScalarQuantization {
		return nil, fmt.Errorf("unsupported quantization type: %s", config.Type.String())
	}
	sq := NewScalarQuantizer()
	if err := sq.Configure(config); err != nil {
		return nil, err
	}
	return sq, nil
}

// Supports reports whether qType is ScalarQuantization.
func (f *ScalarQuantizerFactory) Supports(qType QuantizationType) bool {
	return qType == ScalarQuantization
}

// Name identifies this factory in registry diagnostics.
func (f *ScalarQuantizerFactory) Name() string {
	return "ScalarQuantizer"
}
