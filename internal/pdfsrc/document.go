package pdfsrc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// lineGapFactor controls when two consecutive text lines are merged into
// one block: gap below fontSize*lineGapFactor keeps them together.
const lineGapFactor = 1.6

// Document is a Source backed by an on-disk PDF. Text runs come from
// ledongthuc/pdf (which exposes per-glyph positions and fonts); images
// come from pdfcpu's extraction context. Image placement rectangles are
// not exposed by the extraction layer, so image blocks carry a zero bbox
// and sort ahead of the page's text.
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	ctx    *pdfmodel.Context
	pages  int
	logger *slog.Logger
}

// Open opens a PDF document for primitive extraction.
func Open(path string, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pctx, err := api.ReadContextFile(path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	return &Document{
		path:   path,
		file:   f,
		reader: r,
		ctx:    pctx,
		pages:  r.NumPage(),
		logger: logger.With("pdf", path),
	}, nil
}

// PageCount returns the total number of pages in the document.
func (d *Document) PageCount() int {
	return d.pages
}

// Close closes the underlying file handle.
func (d *Document) Close() error {
	return d.file.Close()
}

// Page extracts raw primitives for a 1-indexed page.
func (d *Document) Page(ctx context.Context, pageNum int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageNum < 1 || pageNum > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", pageNum, d.pages)
	}

	page := &Page{Number: pageNum}

	p := d.reader.Page(pageNum)
	if !p.V.IsNull() {
		page.TextBlocks = d.extractText(p)
	}

	images, errs := d.extractImages(pageNum)
	page.Images = images
	page.ImageErrs = errs

	return page, nil
}

// extractText groups the page's positioned glyph runs into line-oriented
// text blocks. PDF coordinates grow upward; they are flipped to top-left
// origin here so downstream ordering is (top-to-bottom, left-to-right).
func (d *Document) extractText(p pdf.Page) []TextBlock {
	content := p.Content()
	if len(content.Text) == 0 {
		return nil
	}

	pageHeight := 0.0
	if mb := p.V.Key("MediaBox"); mb.Len() == 4 {
		pageHeight = mb.Index(3).Float64()
	}

	// Bucket glyphs into visual lines by their baseline.
	type line struct {
		y     float64
		size  float64
		texts []pdf.Text
	}
	var lines []*line
	for _, t := range content.Text {
		placed := false
		for _, ln := range lines {
			if math.Abs(ln.y-t.Y) < math.Max(2, ln.size*0.4) {
				ln.texts = append(ln.texts, t)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, &line{y: t.Y, size: t.FontSize, texts: []pdf.Text{t}})
		}
	}

	// Top of page first: larger PDF Y means higher on the page.
	sort.Slice(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var blocks []TextBlock
	var cur *TextBlock
	prevY := math.Inf(1)
	prevSize := 0.0

	for _, ln := range lines {
		sort.Slice(ln.texts, func(i, j int) bool { return ln.texts[i].X < ln.texts[j].X })

		run := lineRun(ln.texts, pageHeight)
		gap := prevY - ln.y
		if cur == nil || gap > math.Max(prevSize, ln.size)*lineGapFactor {
			blocks = append(blocks, TextBlock{})
			cur = &blocks[len(blocks)-1]
			cur.BBox = [4]float64{run.X, run.Y, run.X, run.Y + ln.size}
		}
		cur.Runs = append(cur.Runs, run)
		cur.BBox[0] = math.Min(cur.BBox[0], run.X)
		cur.BBox[3] = math.Max(cur.BBox[3], run.Y+ln.size)

		prevY = ln.y
		prevSize = ln.size
	}
	return blocks
}

// lineRun collapses one visual line's glyphs into a single run.
func lineRun(texts []pdf.Text, pageHeight float64) TextRun {
	var buf bytes.Buffer
	for _, t := range texts {
		buf.WriteString(t.S)
	}
	first := texts[0]
	y := first.Y
	if pageHeight > 0 {
		y = pageHeight - first.Y
	}
	return TextRun{
		Text:     buf.String(),
		X:        first.X,
		Y:        y,
		FontName: first.Font,
		FontSize: first.FontSize,
	}
}

// extractImages pulls the raw image objects referenced by a page. A single
// image's failure is logged and skipped; it never aborts the page.
func (d *Document) extractImages(pageNum int) ([]Image, int) {
	imgs, err := pdfcpu.ExtractPageImages(d.ctx, pageNum, false)
	if err != nil {
		d.logger.Warn("image extraction failed for page", "page", pageNum, "error", err)
		return nil, 1
	}

	var out []Image
	failed := 0
	for objNr, img := range imgs {
		data, err := io.ReadAll(img)
		if err != nil {
			d.logger.Warn("failed reading image object", "page", pageNum, "obj", objNr, "error", err)
			failed++
			continue
		}
		w, h := pixelDims(data)
		out = append(out, Image{
			Ref:    strconv.Itoa(objNr),
			Data:   data,
			Width:  w,
			Height: h,
			Format: img.FileType,
		})
	}

	// Deterministic order for equal-position images.
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, failed
}

// pixelDims decodes just the image header for its pixel dimensions.
// Unknown formats report zero dimensions and are treated as noise upstream.
func pixelDims(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
