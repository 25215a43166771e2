package page

import (
	"testing"

	"papyrus/internal/layout"
)

func TestAssemblerFlushesOnOverflow(t *testing.T) {
	var pages []Page
	a := NewAssembler(200, 50, 20, func(p Page) bool {
		pages = append(pages, p)
		return true
	})

	for i := 0; i < 5; i++ {
		a.AddLine(layout.TextBlock{})
	}
	a.FlushFinal()

	// height 50 / lineHeight 20 => 2 lines per page (3rd would overflow: 40+20=60>50).
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages (2+2+1 lines), got %d", len(pages))
	}
	if len(pages[0].Elements) != 2 || len(pages[1].Elements) != 2 || len(pages[2].Elements) != 1 {
		t.Fatalf("unexpected page shapes: %d/%d/%d", len(pages[0].Elements), len(pages[1].Elements), len(pages[2].Elements))
	}
}

func TestAssemblerTallImageGetsDedicatedPage(t *testing.T) {
	var pages []Page
	a := NewAssembler(100, 100, 10, func(p Page) bool {
		pages = append(pages, p)
		return true
	})

	a.AddLine(layout.TextBlock{})
	a.AddImage(ImageBlock{Width: 50, Height: 80}) // tall: 80 > 100/2
	a.AddLine(layout.TextBlock{})
	a.FlushFinal()

	// A tall image flushes any pending page ahead of it, gets a page of its
	// own, and flushes again afterward — so the leading line, the image,
	// and the trailing line each land on separate pages.
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages (line | image | line), got %d", len(pages))
	}
	if len(pages[0].Elements) != 1 || pages[0].Elements[0].Line == nil {
		t.Fatalf("expected first page to hold the pending line alone, got %+v", pages[0])
	}
	if len(pages[1].Elements) != 1 || pages[1].Elements[0].Image == nil {
		t.Fatalf("expected second page to hold the image alone, got %+v", pages[1])
	}
	if len(pages[2].Elements) != 1 || pages[2].Elements[0].Line == nil {
		t.Fatalf("expected third page to hold the trailing line alone, got %+v", pages[2])
	}
}

func TestAssemblerBatchStopPropagates(t *testing.T) {
	calls := 0
	a := NewAssembler(100, 20, 20, func(p Page) bool {
		calls++
		return false
	})
	a.AddLine(layout.TextBlock{})
	a.AddLine(layout.TextBlock{})
	if !a.Stopped() {
		t.Fatal("expected Stopped() after page-complete returned false")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 flush, got %d", calls)
	}
}
