// Package testutil provides fixtures shared by pipeline tests.
package testutil

import (
	"context"
	"fmt"

	"github.com/examkit/examkit/internal/pdfsrc"
)

// FakeSource is an in-memory pdfsrc.Source built from scripted pages.
// Page N of the document is Pages[N-1].
type FakeSource struct {
	Pages []*pdfsrc.Page

	// PageErr, if set for a page number, is returned instead of the page.
	PageErr map[int]error

	Closed bool
}

// NewFakeSource builds a source from pages, numbering them 1..len(pages).
func NewFakeSource(pages ...*pdfsrc.Page) *FakeSource {
	for i, p := range pages {
		p.Number = i + 1
	}
	return &FakeSource{Pages: pages}
}

func (f *FakeSource) PageCount() int { return len(f.Pages) }

func (f *FakeSource) Page(ctx context.Context, pageNum int) (*pdfsrc.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.PageErr[pageNum]; err != nil {
		return nil, err
	}
	if pageNum < 1 || pageNum > len(f.Pages) {
		return nil, fmt.Errorf("page %d out of range", pageNum)
	}
	return f.Pages[pageNum-1], nil
}

func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// TextPage builds a page whose lines become one text block each, stacked
// top to bottom in the given order.
func TextPage(lines ...string) *pdfsrc.Page {
	p := &pdfsrc.Page{}
	for i, line := range lines {
		y := float64(50 + i*20)
		p.TextBlocks = append(p.TextBlocks, pdfsrc.TextBlock{
			Runs: []pdfsrc.TextRun{{
				Text:     line,
				X:        72,
				Y:        y,
				FontName: "Helvetica",
				FontSize: 11,
			}},
			BBox: [4]float64{72, y, 400, y + 12},
		})
	}
	return p
}

// WithImage appends an image to a page at the given position.
func WithImage(p *pdfsrc.Page, ref string, data []byte, w, h int, bbox [4]float64) *pdfsrc.Page {
	p.Images = append(p.Images, pdfsrc.Image{
		Ref:    ref,
		Data:   data,
		Width:  w,
		Height: h,
		BBox:   bbox,
		Format: "png",
	})
	return p
}
