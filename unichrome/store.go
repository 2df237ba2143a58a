package unichrome

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	storeMagic        = uint32(0x55434844) // "UCHD"
	storeFormatVersion = uint32(1)
)

// DocumentStore owns every document in a collection: the monotonically
// increasing ID allocator and the documents themselves, kept in stable
// insertion order. The HNSW graph only ever sees a document's embedding
// vector through the Item interface; this is the single source of truth
// for everything else about it.
type DocumentStore struct {
	nextID    int32
	documents map[int32]*Document
	order     []int32
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[int32]*Document)}
}

// Add assigns the next ID, stamps both timestamps to now, and stores the
// document.
func (s *DocumentStore) Add(text string, vector []float32, metadata map[string]string, now time.Time) *Document {
	id := s.nextID
	s.nextID++

	doc := &Document{
		ID:                   id,
		Text:                 text,
		Metadata:             metadata,
		Vector:               vector,
		CreationDateTime:     now,
		ModificationDateTime: now,
	}
	s.documents[id] = doc
	s.order = append(s.order, id)
	return doc
}

// Update overwrites text/vector/metadata for an existing document and bumps
// ModificationDateTime to now, leaving CreationDateTime untouched. Reports
// false if id is not present.
func (s *DocumentStore) Update(id int32, text string, vector []float32, metadata map[string]string, now time.Time) (*Document, bool) {
	doc, ok := s.documents[id]
	if !ok {
		return nil, false
	}
	doc.Text = text
	doc.Vector = vector
	doc.Metadata = metadata
	doc.ModificationDateTime = now
	return doc, true
}

// Delete removes a document, reporting whether it was present.
func (s *DocumentStore) Delete(id int32) bool {
	if _, ok := s.documents[id]; !ok {
		return false
	}
	delete(s.documents, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a document by ID.
func (s *DocumentStore) Get(id int32) (*Document, bool) {
	doc, ok := s.documents[id]
	return doc, ok
}

// Contains reports whether id is present.
func (s *DocumentStore) Contains(id int32) bool {
	_, ok := s.documents[id]
	return ok
}

// Len returns the number of documents currently stored.
func (s *DocumentStore) Len() int {
	return len(s.documents)
}

// Documents returns every document in stable insertion order. The caller
// must not mutate the returned slice's elements' identity (it aliases the
// store's own *Document pointers), though field mutation through it is
// visible to every holder of those pointers, including the collection's
// HNSW graph, which stores them as its items.
func (s *DocumentStore) Documents() []*Document {
	out := make([]*Document, 0, len(s.order))
	for _, id := range s.order {
		if doc, ok := s.documents[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// Persist writes the store to path atomically: build in a uuid-named temp
// file in the same directory, flush, sync, then rename into place.
func (s *DocumentStore) Persist(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unichrome: create directory: %w", err)
	}

	tempPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp", uuid.NewString()))

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("unichrome: create temp file: %w", err)
	}

	writeErr := s.writeTo(file)

	if syncErr := file.Sync(); syncErr != nil && writeErr == nil {
		writeErr = syncErr
	}
	if closeErr := file.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("unichrome: write store: %w", writeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("unichrome: rename into place: %w", err)
	}

	return nil
}

func (s *DocumentStore) writeTo(file *os.File) error {
	body := new(storeBuffer)

	body.writeInt32(s.nextID)
	body.writeUint32(uint32(len(s.order)))
	for _, id := range s.order {
		doc := s.documents[id]
		body.writeDocument(doc)
	}

	checksum := crc32.ChecksumIEEE(body.buf)

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	if err := binary.Write(writer, binary.LittleEndian, storeMagic); err != nil {
		return err
	}
	if err := binary.Write(writer, binary.LittleEndian, storeFormatVersion); err != nil {
		return err
	}
	if err := binary.Write(writer, binary.LittleEndian, uint64(len(body.buf))); err != nil {
		return err
	}
	if _, err := writer.Write(body.buf); err != nil {
		return err
	}
	return binary.Write(writer, binary.LittleEndian, checksum)
}

// DeserializeAndPopulate loads a store previously written by Persist.
func DeserializeAndPopulate(path string) (*DocumentStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unichrome: open: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	var magic, version uint32
	var bodyLen uint64
	if err := binary.Read(reader, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("unichrome: read magic: %w", err)
	}
	if magic != storeMagic {
		return nil, fmt.Errorf("unichrome: not a unichrome document store file (magic %x)", magic)
	}
	if err := binary.Read(reader, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("unichrome: read version: %w", err)
	}
	if version != storeFormatVersion {
		return nil, fmt.Errorf("unichrome: unsupported format version %d", version)
	}
	if err := binary.Read(reader, binary.LittleEndian, &bodyLen); err != nil {
		return nil, fmt.Errorf("unichrome: read body length: %w", err)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("unichrome: read body: %w", err)
	}

	var storedChecksum uint32
	if err := binary.Read(reader, binary.LittleEndian, &storedChecksum); err != nil {
		return nil, fmt.Errorf("unichrome: read checksum: %w", err)
	}
	if crc32.ChecksumIEEE(body) != storedChecksum {
		return nil, fmt.Errorf("unichrome: checksum mismatch, file is corrupt")
	}

	parser := &storeBuffer{buf: body}

	nextID, err := parser.readInt32()
	if err != nil {
		return nil, fmt.Errorf("unichrome: read next id: %w", err)
	}

	count, err := parser.readUint32()
	if err != nil {
		return nil, fmt.Errorf("unichrome: read document count: %w", err)
	}

	store := &DocumentStore{
		nextID:    nextID,
		documents: make(map[int32]*Document, count),
		order:     make([]int32, 0, count),
	}

	for i := uint32(0); i < count; i++ {
		doc, err := parser.readDocument()
		if err != nil {
			return nil, fmt.Errorf("unichrome: read document %d: %w", i, err)
		}
		store.documents[doc.ID] = doc
		store.order = append(store.order, doc.ID)
	}

	return store, nil
}

// storeBuffer is a minimal growable byte buffer with little-endian
// primitive helpers, mirroring internal/hnsw's bodyBuffer.
type storeBuffer struct {
	buf []byte
	pos int
}

func (b *storeBuffer) writeUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *storeBuffer) writeInt32(v int32) { b.writeUint32(uint32(v)) }

func (b *storeBuffer) writeInt64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	b.buf = append(b.buf, tmp[:]...)
}

func (b *storeBuffer) writeFloat32(v float32) {
	b.writeUint32(math.Float32bits(v))
}

func (b *storeBuffer) writeString(v string) {
	b.writeUint32(uint32(len(v)))
	b.buf = append(b.buf, v...)
}

func (b *storeBuffer) writeDocument(d *Document) {
	b.writeInt32(d.ID)
	b.writeString(d.Text)
	b.writeUint32(uint32(len(d.Metadata)))
	for k, v := range d.Metadata {
		b.writeString(k)
		b.writeString(v)
	}
	b.writeUint32(uint32(len(d.Vector)))
	for _, f := range d.Vector {
		b.writeFloat32(f)
	}
	b.writeInt64(d.CreationDateTime.UnixNano())
	b.writeInt64(d.ModificationDateTime.UnixNano())
}

func (b *storeBuffer) readUint32() (uint32, error) {
	if b.pos+4 > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(b.buf[b.pos:])
	b.pos += 4
	return v, nil
}

func (b *storeBuffer) readInt32() (int32, error) {
	v, err := b.readUint32()
	return int32(v), err
}

func (b *storeBuffer) readInt64() (int64, error) {
	if b.pos+8 > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(b.buf[b.pos:])
	b.pos += 8
	return int64(v), nil
}

func (b *storeBuffer) readFloat32() (float32, error) {
	v, err := b.readUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (b *storeBuffer) readString() (string, error) {
	n, err := b.readUint32()
	if err != nil {
		return "", err
	}
	if b.pos+int(n) > len(b.buf) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(b.buf[b.pos : b.pos+int(n)])
	b.pos += int(n)
	return s, nil
}

func (b *storeBuffer) readDocument() (*Document, error) {
	id, err := b.readInt32()
	if err != nil {
		return nil, err
	}
	text, err := b.readString()
	if err != nil {
		return nil, err
	}

	metaCount, err := b.readUint32()
	if err != nil {
		return nil, err
	}
	var metadata map[string]string
	if metaCount > 0 {
		metadata = make(map[string]string, metaCount)
		for i := uint32(0); i < metaCount; i++ {
			k, err := b.readString()
			if err != nil {
				return nil, err
			}
			v, err := b.readString()
			if err != nil {
				return nil, err
			}
			metadata[k] = v
		}
	}

	vecLen, err := b.readUint32()
	if err != nil {
		return nil, err
	}
	vector := make([]float32, vecLen)
	for i := uint32(0); i < vecLen; i++ {
		f, err := b.readFloat32()
		if err != nil {
			return nil, err
		}
		vector[i] = f
	}

	created, err := b.readInt64()
	if err != nil {
		return nil, err
	}
	modified, err := b.readInt64()
	if err != nil {
		return nil, err
	}

	return &Document{
		ID:                   id,
		Text:                 text,
		Metadata:             metadata,
		Vector:               vector,
		CreationDateTime:     time.Unix(0, created).UTC(),
		ModificationDateTime: time.Unix(0, modified).UTC(),
	}, nil
}
