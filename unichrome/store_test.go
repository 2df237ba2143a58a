package unichrome

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDocumentStoreAddAssignsSequentialIDs(t *testing.T) {
	s := NewDocumentStore()
	now := time.Now()

	d1 := s.Add("hello", []float32{1, 2, 3}, nil, now)
	d2 := s.Add("world", []float32{4, 5, 6}, nil, now)

	if d1.ID != 0 || d2.ID != 1 {
		t.Errorf("expected sequential IDs 0,1, got %d,%d", d1.ID, d2.ID)
	}
	if s.Len() != 2 {
		t.Errorf("expected len 2, got %d", s.Len())
	}
}

func TestDocumentStoreAddStampsTimestamps(t *testing.T) {
	s := NewDocumentStore()
	now := time.Now()
	doc := s.Add("text", []float32{1}, nil, now)

	if !doc.CreationDateTime.Equal(now) || !doc.ModificationDateTime.Equal(now) {
		t.Error("new document should have CreationDateTime == ModificationDateTime == now")
	}
}

func TestDocumentStoreUpdateBumpsModificationOnly(t *testing.T) {
	s := NewDocumentStore()
	created := time.Now()
	doc := s.Add("text", []float32{1}, nil, created)

	later := created.Add(time.Hour)
	updated, ok := s.Update(doc.ID, "new text", []float32{2}, map[string]string{"k": "v"}, later)
	if !ok {
		t.Fatal("expected update to succeed")
	}
	if !updated.CreationDateTime.Equal(created) {
		t.Error("CreationDateTime should be unchanged by Update")
	}
	if !updated.ModificationDateTime.Equal(later) {
		t.Error("ModificationDateTime should be bumped to the update time")
	}
	if updated.Text != "new text" {
		t.Errorf("expected text updated, got %q", updated.Text)
	}
}

func TestDocumentStoreUpdateMissing(t *testing.T) {
	s := NewDocumentStore()
	_, ok := s.Update(99, "x", []float32{1}, nil, time.Now())
	if ok {
		t.Error("expected update of missing id to report false")
	}
}

func TestDocumentStoreDelete(t *testing.T) {
	s := NewDocumentStore()
	now := time.Now()
	doc := s.Add("text", []float32{1}, nil, now)

	if !s.Delete(doc.ID) {
		t.Error("expected delete to succeed")
	}
	if s.Contains(doc.ID) {
		t.Error("document should no longer be present after delete")
	}
	if s.Delete(doc.ID) {
		t.Error("deleting an already-deleted id should report false")
	}
}

func TestDocumentStoreDocumentsStableOrder(t *testing.T) {
	s := NewDocumentStore()
	now := time.Now()
	var ids []int32
	for i := 0; i < 10; i++ {
		doc := s.Add("text", []float32{float32(i)}, nil, now)
		ids = append(ids, doc.ID)
	}

	s.Delete(ids[3])

	docs := s.Documents()
	if len(docs) != 9 {
		t.Fatalf("expected 9 documents after delete, got %d", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].ID < docs[i-1].ID {
			t.Error("documents should remain in insertion order after a delete")
		}
	}
}

func TestDocumentStorePersistRoundTrip(t *testing.T) {
	s := NewDocumentStore()
	now := time.Now()
	s.Add("first", []float32{1, 2, 3}, map[string]string{"a": "1"}, now)
	s.Add("second", []float32{4, 5, 6}, map[string]string{"b": "2"}, now)
	s.Add("third", []float32{7, 8, 9}, nil, now)

	dir := t.TempDir()
	path := filepath.Join(dir, "docs.db")

	if err := s.Persist(path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	loaded, err := DeserializeAndPopulate(path)
	if err != nil {
		t.Fatalf("DeserializeAndPopulate failed: %v", err)
	}

	if loaded.Len() != s.Len() {
		t.Fatalf("loaded len %d != original len %d", loaded.Len(), s.Len())
	}
	if loaded.nextID != s.nextID {
		t.Errorf("loaded nextID %d != original %d", loaded.nextID, s.nextID)
	}

	origDocs := s.Documents()
	loadedDocs := loaded.Documents()
	for i := range origDocs {
		if origDocs[i].ID != loadedDocs[i].ID {
			t.Errorf("document %d: ID mismatch %d != %d", i, origDocs[i].ID, loadedDocs[i].ID)
		}
		if origDocs[i].Text != loadedDocs[i].Text {
			t.Errorf("document %d: text mismatch", i)
		}
		if len(origDocs[i].Vector) != len(loadedDocs[i].Vector) {
			t.Errorf("document %d: vector length mismatch", i)
		}
		for j := range origDocs[i].Vector {
			if origDocs[i].Vector[j] != loadedDocs[i].Vector[j] {
				t.Errorf("document %d: vector[%d] mismatch %f != %f", i, j, origDocs[i].Vector[j], loadedDocs[i].Vector[j])
			}
		}
		if !origDocs[i].CreationDateTime.Equal(loadedDocs[i].CreationDateTime) {
			t.Errorf("document %d: CreationDateTime mismatch", i)
		}
	}
}

func TestDocumentStorePersistEmptyStore(t *testing.T) {
	s := NewDocumentStore()
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.db")

	if err := s.Persist(path); err != nil {
		t.Fatalf("Persist of empty store failed: %v", err)
	}

	loaded, err := DeserializeAndPopulate(path)
	if err != nil {
		t.Fatalf("DeserializeAndPopulate of empty store failed: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("expected empty store, got %d documents", loaded.Len())
	}
}

func TestDeserializeRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.db")
	writeGarbageDocStoreFile(t, path)

	_, err := DeserializeAndPopulate(path)
	if err == nil {
		t.Error("expected error deserializing a non-store file")
	}
}

func writeGarbageDocStoreFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("not a unichrome store file at all"), 0o644); err != nil {
		t.Fatalf("failed to write garbage file: %v", err)
	}
}
