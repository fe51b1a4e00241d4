package source

import (
	"errors"
	"testing"

	"chatrelay/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestAddAssignsID(t *testing.T) {
	s := newTestStore(t)

	src, err := s.Add(Source{Name: "notes", Text: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if src.ID == "" {
		t.Error("Add did not assign an id")
	}
	if src.CreatedAt.IsZero() {
		t.Error("Add did not set CreatedAt")
	}

	got, err := s.Get(src.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "notes" || got.Text != "hello" {
		t.Errorf("Get = %+v", got)
	}
}

func TestAddAllowsDuplicates(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Add(Source{Name: "same", Text: "same text"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, err := s.Add(Source{Name: "same", Text: "same text"})
	if err != nil {
		t.Fatalf("duplicate Add: %v", err)
	}
	if a.ID == b.ID {
		t.Error("duplicate sources share an id")
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len = %d, want 2", len(list))
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := newTestStore(t)

	src, err := s.Add(Source{Name: "vec", Text: "x", Embedding: []float32{0.5, -1}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Get(src.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Embedding) != 2 || got.Embedding[0] != 0.5 || got.Embedding[1] != -1 {
		t.Errorf("Embedding = %v", got.Embedding)
	}

	plain, err := s.Add(Source{Name: "novec", Text: "y"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err = s.Get(plain.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Embedding != nil {
		t.Errorf("expected nil embedding, got %v", got.Embedding)
	}
}

func TestSetEmbedding(t *testing.T) {
	s := newTestStore(t)

	src, err := s.Add(Source{Name: "notes", Text: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.SetEmbedding(src.ID, []float32{0.5, -0.25}); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}

	got, err := s.Get(src.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Embedding) != 2 || got.Embedding[0] != 0.5 || got.Embedding[1] != -0.25 {
		t.Errorf("Embedding = %v, want stored vector", got.Embedding)
	}
	if got.Name != "notes" || got.Text != "hello" {
		t.Errorf("SetEmbedding touched other fields: %+v", got)
	}
}

func TestSetEmbeddingMissingSource(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetEmbedding("nope", []float32{1}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SetEmbedding = %v, want ErrNotFound", err)
	}
}

func TestSelectRequiresExistingSource(t *testing.T) {
	s := newTestStore(t)

	if err := s.Select("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Select(missing) = %v, want ErrNotFound", err)
	}

	src, _ := s.Add(Source{Name: "a", Text: "x"})
	if err := s.Select(src.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	ids, err := s.SelectedIDs()
	if err != nil {
		t.Fatalf("SelectedIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != src.ID {
		t.Errorf("SelectedIDs = %v", ids)
	}
}

// Removing a selected source must drop it from the selection in the same
// operation; the selection never references a missing source.
func TestRemoveDeselectsAtomically(t *testing.T) {
	s := newTestStore(t)

	src, _ := s.Add(Source{Name: "a", Text: "x"})
	if err := s.Select(src.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if err := s.Remove(src.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	ids, err := s.SelectedIDs()
	if err != nil {
		t.Fatalf("SelectedIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("selection kept removed id: %v", ids)
	}
}

// Selected sources come back in store insertion order, regardless of the
// order they were clicked.
func TestSelectedOrderIsStoreOrder(t *testing.T) {
	s := newTestStore(t)

	first, _ := s.Add(Source{Name: "first", Text: "1"})
	second, _ := s.Add(Source{Name: "second", Text: "2"})
	third, _ := s.Add(Source{Name: "third", Text: "3"})

	// Select in reverse order.
	for _, id := range []string{third.ID, first.ID, second.ID} {
		if err := s.Select(id); err != nil {
			t.Fatalf("Select: %v", err)
		}
	}

	selected, err := s.Selected()
	if err != nil {
		t.Fatalf("Selected: %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	if len(selected) != len(want) {
		t.Fatalf("len = %d, want %d", len(selected), len(want))
	}
	for i, src := range selected {
		if src.ID != want[i] {
			t.Errorf("selected[%d] = %s, want %s", i, src.ID, want[i])
		}
	}
}

func TestDeselectIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	src, _ := s.Add(Source{Name: "a", Text: "x"})
	s.Deselect(src.ID)
	s.Deselect("never-selected")

	ids, err := s.SelectedIDs()
	if err != nil {
		t.Fatalf("SelectedIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("SelectedIDs = %v, want empty", ids)
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	src, _ := s.Add(Source{Name: "a", Text: "x"})
	for i := 0; i < 3; i++ {
		if err := s.Select(src.ID); err != nil {
			t.Fatalf("Select: %v", err)
		}
	}

	ids, _ := s.SelectedIDs()
	if len(ids) != 1 {
		t.Errorf("SelectedIDs = %v, want one entry", ids)
	}
}
