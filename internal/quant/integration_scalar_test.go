package quant

import (
	"context"
	"testing"
)

func TestScalarQuantizerIntegration(t *testing.T) {
	// Test that scalar quantizer can be created through the global registry
	config := &QuantizationConfig{
		Type:       ScalarQuantization,
		Bits:       8,
		TrainRatio: 0.5,
	}

	// Create quantizer through global registry
	quantizer, err := Create(config)
	if err != nil {
		t.Fatalf("failed to create scalar quantizer through registry: %v", err)
	}

	// Verify it's the correct type
	sq, ok := quantizer.(*ScalarQuantizer)
	if !ok {
		t.Fatalf("expected *ScalarQuantizer, got %T", quantizer)
	}

	// Test basic functionality
	vectors := [][]float32{
		{1.0, 2.0, 3.0},
		{4.0, 5.0, 6.0},
		{7.0, 8.0, 9.0},
	}

	err = sq.Train(context.Background(), vectors)
	if err != nil {
		t.Fatalf("failed to train: %v", err)
	}

	// Test compression/decompression
	compressed, err := sq.Compress(vectors[0])
	if err != nil {
		t.Fatalf("failed to compress: %v", err)
	}

	decompressed, err := sq.Decompress(compressed)
	if err != nil {
		t.Fatalf("failed to decompress: %v", err)
	}

	if len(decompressed) != len(vectors[0]) {
		t.Errorf("dimension mismatch: got %d, expected %d", len(decompressed), len(vectors[0]))
	}

	// Test that scalar quantization is supported
	if !IsSupported(ScalarQuantization) {
		t.Errorf("scalar quantization should be supported")
	}

	// Test that it's in the supported types list
	supportedTypes := SupportedTypes()
	found := false
	for _, qType := range supportedTypes {
		if qType == ScalarQuantization {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("scalar quantization should be in supported types list")
	}

	t.Logf("Scalar quantizer integration test passed - compression ratio: %.2f", sq.CompressionRatio())
}

func TestScalarQuantizerRoundTripAtVaryingBits(t *testing.T) {
	// Exercise the full train/compress/decompress cycle across the supported
	// bit widths, check that decompression restores the vector's dimension,
	// and log the compression ratio and compressed size at each width.
	vectors := make([][]float32, 50)
	for i := 0; i < 50; i++ {
		vectors[i] = []float32{
			float32(i) * 0.1,
			float32(i) * 0.2,
			float32(i) * 0.3,
			float32(i) * 0.4,
		}
	}

	for _, bits := range []int{4, 8, 16} {
		config := &QuantizationConfig{
			Type:       ScalarQuantization,
			Bits:       bits,
			TrainRatio: 0.8,
		}

		quantizer, err := Create(config)
		if err != nil {
			t.Fatalf("bits=%d: failed to create scalar quantizer: %v", bits, err)
		}

		if err := quantizer.Train(context.Background(), vectors[:40]); err != nil {
			t.Fatalf("bits=%d: failed to train: %v", bits, err)
		}

		testVector := vectors[45]
		compressed, err := quantizer.Compress(testVector)
		if err != nil {
			t.Fatalf("bits=%d: failed to compress: %v", bits, err)
		}

		decompressed, err := quantizer.Decompress(compressed)
		if err != nil {
			t.Fatalf("bits=%d: failed to decompress: %v", bits, err)
		}

		if len(decompressed) != len(testVector) {
			t.Errorf("bits=%d: decompressed dimension mismatch: got %d, want %d",
				bits, len(decompressed), len(testVector))
		}

		t.Logf("bits=%d: compression ratio %.2f, compressed size %d bytes",
			bits, quantizer.CompressionRatio(), len(compressed))
	}
}
