package hnsw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/xDarkicex/unichrome/internal/distance"
)

// Save writes the graph's topology -- Parameters, per-node adjacency lists,
// and entry point -- to path using a length-prefixed little-endian binary
// codec with a trailing CRC32 over the whole body. Items are not written;
// the caller re-supplies them to Load in the same order AddItems produced
// their IDs.
//
// The write is atomic: the body is built in a temporary file in the same
// directory (named with a random uuid to avoid collisions between
// concurrent saves of different collections) and renamed into place only
// once it is fully flushed and synced.
func (g *Graph[T]) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("hnsw: create directory: %w", err)
	}

	tempPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp", uuid.NewString()))

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("hnsw: create temp file: %w", err)
	}

	writeErr := g.writeTo(file)

	if syncErr := file.Sync(); syncErr != nil && writeErr == nil {
		writeErr = syncErr
	}
	if closeErr := file.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("hnsw: write graph: %w", writeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("hnsw: rename into place: %w", err)
	}

	return nil
}

func (g *Graph[T]) writeTo(file *os.File) error {
	body := new(bodyBuffer)

	if err := body.writeParameters(g.params); err != nil {
		return err
	}
	if err := body.writeNodes(g.core.Nodes); err != nil {
		return err
	}
	if err := body.writeEntryPoint(g.entryPoint); err != nil {
		return err
	}

	checksum := crc32.ChecksumIEEE(body.bytes())

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	if err := binary.Write(writer, binary.LittleEndian, graphMagic); err != nil {
		return err
	}
	if err := binary.Write(writer, binary.LittleEndian, graphFormatVersion); err != nil {
		return err
	}
	if err := binary.Write(writer, binary.LittleEndian, uint64(len(body.bytes()))); err != nil {
		return err
	}
	if _, err := writer.Write(body.bytes()); err != nil {
		return err
	}
	return binary.Write(writer, binary.LittleEndian, checksum)
}

// LoadGraph reads a topology snapshot written by Save and re-attaches items
// (embeddings + payload) supplied by the caller. len(items) must equal the
// node count stored in the snapshot. InitialDistanceCacheSize is forced to
// 0 regardless of what was persisted: a freshly loaded graph has no
// construction workload pending, so there is nothing to pre-size for.
func LoadGraph[T Item](path string, items []T, distFn distance.Func) (*Graph[T], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hnsw: open: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	var magic, version uint32
	var bodyLen uint64
	if err := binary.Read(reader, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("hnsw: read magic: %w", err)
	}
	if magic != graphMagic {
		return nil, fmt.Errorf("hnsw: not a unichrome graph file (magic %x)", magic)
	}
	if err := binary.Read(reader, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("hnsw: read version: %w", err)
	}
	if version != graphFormatVersion {
		return nil, fmt.Errorf("hnsw: unsupported format version %d", version)
	}
	if err := binary.Read(reader, binary.LittleEndian, &bodyLen); err != nil {
		return nil, fmt.Errorf("hnsw: read body length: %w", err)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("hnsw: read body: %w", err)
	}

	var storedChecksum uint32
	if err := binary.Read(reader, binary.LittleEndian, &storedChecksum); err != nil {
		return nil, fmt.Errorf("hnsw: read checksum: %w", err)
	}
	if crc32.ChecksumIEEE(body) != storedChecksum {
		return nil, fmt.Errorf("hnsw: checksum mismatch, file is corrupt")
	}

	parser := &bodyBuffer{buf: body}

	params, err := parser.readParameters()
	if err != nil {
		return nil, fmt.Errorf("hnsw: read parameters: %w", err)
	}
	params.InitialDistanceCacheSize = 0

	nodes, err := parser.readNodes()
	if err != nil {
		return nil, fmt.Errorf("hnsw: read nodes: %w", err)
	}

	entryPoint, err := parser.readEntryPoint()
	if err != nil {
		return nil, fmt.Errorf("hnsw: read entry point: %w", err)
	}

	if len(items) != len(nodes) {
		return nil, fmt.Errorf("hnsw: item count %d does not match stored node count %d", len(items), len(nodes))
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	core := NewCore[T](params, distFn, rng)
	core.Items = items
	core.Nodes = nodes

	return &Graph[T]{
		core:       core,
		params:     params,
		distFn:     distFn,
		entryPoint: entryPoint,
	}, nil
}

// bodyBuffer is a minimal growable byte buffer with little-endian
// primitive helpers, used on both the write side (accumulate, then CRC the
// whole thing) and the read side (slice off a parsed prefix as we go).
type bodyBuffer struct {
	buf []byte
	pos int
}

func (b *bodyBuffer) bytes() []byte { return b.buf }

func (b *bodyBuffer) writeUint32(v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return nil
}

func (b *bodyBuffer) writeInt32(v int32) error { return b.writeUint32(uint32(v)) }

func (b *bodyBuffer) writeUint64(v uint64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
	return nil
}

func (b *bodyBuffer) writeFloat64(v float64) error {
	return b.writeUint64(math.Float64bits(v))
}

func (b *bodyBuffer) writeBool(v bool) error {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	return nil
}

func (b *bodyBuffer) readUint32() (uint32, error) {
	if b.pos+4 > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(b.buf[b.pos:])
	b.pos += 4
	return v, nil
}

func (b *bodyBuffer) readInt32() (int32, error) {
	v, err := b.readUint32()
	return int32(v), err
}

func (b *bodyBuffer) readUint64() (uint64, error) {
	if b.pos+8 > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(b.buf[b.pos:])
	b.pos += 8
	return v, nil
}

func (b *bodyBuffer) readFloat64() (float64, error) {
	v, err := b.readUint64()
	return math.Float64frombits(v), err
}

func (b *bodyBuffer) readBool() (bool, error) {
	if b.pos+1 > len(b.buf) {
		return false, io.ErrUnexpectedEOF
	}
	v := b.buf[b.pos]
	b.pos++
	return v != 0, nil
}

func (b *bodyBuffer) writeParameters(p Parameters) error {
	b.writeInt32(int32(p.M))
	b.writeFloat64(p.LevelLambda)
	b.writeInt32(int32(p.NeighbourHeuristic))
	b.writeInt32(int32(p.ConstructionPruning))
	b.writeBool(p.ExpandBestSelection)
	b.writeBool(p.KeepPrunedConnections)
	b.writeBool(p.EnableDistanceCacheForConstruction)
	b.writeInt32(int32(p.InitialDistanceCacheSize))
	b.writeInt32(int32(p.InitialItemsSize))
	return nil
}

func (b *bodyBuffer) readParameters() (Parameters, error) {
	var p Parameters
	var err error

	m, err := b.readInt32()
	if err != nil {
		return p, err
	}
	p.M = int(m)

	p.LevelLambda, err = b.readFloat64()
	if err != nil {
		return p, err
	}

	nh, err := b.readInt32()
	if err != nil {
		return p, err
	}
	p.NeighbourHeuristic = NeighbourHeuristic(nh)

	cp, err := b.readInt32()
	if err != nil {
		return p, err
	}
	p.ConstructionPruning = int(cp)

	p.ExpandBestSelection, err = b.readBool()
	if err != nil {
		return p, err
	}
	p.KeepPrunedConnections, err = b.readBool()
	if err != nil {
		return p, err
	}
	p.EnableDistanceCacheForConstruction, err = b.readBool()
	if err != nil {
		return p, err
	}

	ics, err := b.readInt32()
	if err != nil {
		return p, err
	}
	p.InitialDistanceCacheSize = int(ics)

	iis, err := b.readInt32()
	if err != nil {
		return p, err
	}
	p.InitialItemsSize = int(iis)

	return p, nil
}

func (b *bodyBuffer) writeNodes(nodes []*Node) error {
	b.writeUint32(uint32(len(nodes)))
	for _, node := range nodes {
		b.writeUint32(node.ID)
		b.writeUint32(uint32(len(node.Connections)))
		for _, layer := range node.Connections {
			b.writeUint32(uint32(len(layer)))
			for _, n := range layer {
				b.writeUint32(n)
			}
		}
	}
	return nil
}

func (b *bodyBuffer) readNodes() ([]*Node, error) {
	count, err := b.readUint32()
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, count)
	for i := uint32(0); i < count; i++ {
		id, err := b.readUint32()
		if err != nil {
			return nil, err
		}
		layerCount, err := b.readUint32()
		if err != nil {
			return nil, err
		}
		connections := make([][]uint32, layerCount)
		for l := uint32(0); l < layerCount; l++ {
			linkCount, err := b.readUint32()
			if err != nil {
				return nil, err
			}
			links := make([]uint32, linkCount)
			for k := uint32(0); k < linkCount; k++ {
				v, err := b.readUint32()
				if err != nil {
					return nil, err
				}
				links[k] = v
			}
			connections[l] = links
		}
		nodes[i] = &Node{ID: id, Connections: connections}
	}
	return nodes, nil
}

func (b *bodyBuffer) writeEntryPoint(ep uint32) error {
	if ep == noEntryPoint {
		b.writeBool(false)
		return nil
	}
	b.writeBool(true)
	return b.writeUint32(ep)
}

func (b *bodyBuffer) readEntryPoint() (uint32, error) {
	has, err := b.readBool()
	if err != nil {
		return noEntryPoint, err
	}
	if !has {
		return noEntryPoint, nil
	}
	return b.readUint32()
}
