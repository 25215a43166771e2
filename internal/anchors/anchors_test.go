package anchors

import (
	"path/filepath"
	"testing"

	"papyrus/internal/parser"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "anchors.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestReplaceAndLookup(t *testing.T) {
	idx := openTestIndex(t)
	err := idx.Replace("hash1", 0, []parser.AnchorRecord{
		{Name: "note1", Page: 3},
		{Name: "note2", Page: 7},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	page, ok, err := idx.Lookup("hash1", 0, "note2")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok || page != 7 {
		t.Fatalf("got page=%d ok=%v, want 7/true", page, ok)
	}
}

func TestLookupMissingAnchor(t *testing.T) {
	idx := openTestIndex(t)
	_, ok, err := idx.Lookup("hash1", 0, "nope")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected lookup miss for unrecorded anchor")
	}
}

func TestReplaceSupersedesPriorAnchors(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Replace("hash1", 0, []parser.AnchorRecord{{Name: "a", Page: 1}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := idx.Replace("hash1", 0, []parser.AnchorRecord{{Name: "b", Page: 2}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if _, ok, _ := idx.Lookup("hash1", 0, "a"); ok {
		t.Fatal("expected prior anchor to be superseded")
	}
	page, ok, err := idx.Lookup("hash1", 0, "b")
	if err != nil || !ok || page != 2 {
		t.Fatalf("got page=%d ok=%v err=%v, want 2/true/nil", page, ok, err)
	}
}

func TestInvalidateSectionRemovesAllRenderHashes(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Replace("hash1", 0, []parser.AnchorRecord{{Name: "a", Page: 1}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := idx.Replace("hash2", 0, []parser.AnchorRecord{{Name: "a", Page: 5}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := idx.InvalidateSection(0); err != nil {
		t.Fatalf("InvalidateSection: %v", err)
	}
	if _, ok, _ := idx.Lookup("hash1", 0, "a"); ok {
		t.Fatal("expected hash1 anchor to be invalidated")
	}
	if _, ok, _ := idx.Lookup("hash2", 0, "a"); ok {
		t.Fatal("expected hash2 anchor to be invalidated")
	}
}

func TestDifferentSpineIndexesAreIndependent(t *testing.T) {
	idx := openTestIndex(t)
	if err := idx.Replace("hash1", 0, []parser.AnchorRecord{{Name: "a", Page: 1}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := idx.Replace("hash1", 1, []parser.AnchorRecord{{Name: "a", Page: 99}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	p0, _, _ := idx.Lookup("hash1", 0, "a")
	p1, _, _ := idx.Lookup("hash1", 1, "a")
	if p0 != 1 || p1 != 99 {
		t.Fatalf("expected independent spine indexes, got p0=%d p1=%d", p0, p1)
	}
}
