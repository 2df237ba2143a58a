package hnsw

// Binary format constants for the graph topology codec. Only the graph's
// structure is persisted here -- Parameters, per-node adjacency lists, and
// the entry point. Items (embeddings + payload) are supplied out-of-band
// by the caller and re-attached in insertion order, matching the order the
// node IDs were originally assigned.
const (
	// graphMagic identifies a unichrome graph snapshot file.
	graphMagic = uint32(0x55434847) // "UCHG"

	// graphFormatVersion is the current on-disk format version.
	graphFormatVersion = uint32(1)
)
