// Package pdfsrc isolates the PDF decoding engine behind a narrow
// interface: given a page, return its raw text runs and images. The core
// pipeline never couples to a specific decoder; tests substitute fake
// sources.
package pdfsrc

import "context"

// TextRun is a positioned piece of text from one page. Coordinates use a
// top-left origin with y growing downward.
type TextRun struct {
	Text     string
	X, Y     float64
	FontName string
	FontSize float64
}

// TextBlock is one extraction-supplied block boundary: runs that belong
// together visually. Runs within a block are joined by the normalizer with
// internal line breaks preserved.
type TextBlock struct {
	Runs []TextRun
	BBox [4]float64
}

// Image is a raw image primitive: position, pixel dimensions, and byte
// content. Ref identifies the image inside the source document and is
// stable across repeated appearances (used for classification caching).
type Image struct {
	Ref    string
	Data   []byte
	Width  int
	Height int
	BBox   [4]float64
	Format string // "png", "jpg", ...
}

// Page holds one page's raw primitives in discovery order. No internal
// ordering is guaranteed; the normalizer imposes its own.
type Page struct {
	Number     int
	TextBlocks []TextBlock
	Images     []Image

	// ImageErrs counts images the source failed to decode on this page.
	// Such failures never abort the page.
	ImageErrs int
}

// Source yields raw per-page primitives for one document.
type Source interface {
	// PageCount returns the total number of pages.
	PageCount() int

	// Page returns the raw primitives for a 1-indexed page.
	Page(ctx context.Context, pageNum int) (*Page, error)

	// Close releases underlying resources.
	Close() error
}
