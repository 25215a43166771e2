package progress

import (
	"testing"

	"papyrus/internal/storage"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	want := Position{SpineIndex: 3, SectionPage: 42}
	if err := Save(dir, "book", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(dir, "book")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadLegacyTwoByteFile(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	if err := dir.Mkdir("book"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	wc, err := dir.OpenWrite("book/" + FileName)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := wc.Write([]byte{0x05, 0x00}); err != nil {
		t.Fatal(err)
	}
	if err := wc.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(dir, "book")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SpineIndex != 0 || got.SectionPage != 5 {
		t.Fatalf("got %+v, want spine 0 page 5", got)
	}
}

func TestCoverPositionRoundTrip(t *testing.T) {
	dir := storage.NewDir(t.TempDir())
	want := Position{SpineIndex: 0, SectionPage: -1}
	if err := Save(dir, "book", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(dir, "book")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
