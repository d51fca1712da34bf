// Package blocks turns one page's raw primitives into an ordered,
// deduplicated stream of typed content blocks.
package blocks

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/examkit/examkit/internal/imagestore"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/pdfsrc"
)

// Config holds normalizer tuning knobs.
type Config struct {
	// MinImageSize is the minimum pixel dimension; smaller images are
	// classified as noise (default 50).
	MinImageSize int

	// LogoRepeatThreshold is the number of appearances of one content
	// hash after which a small image is treated as a recurring logo
	// (default 5).
	LogoRepeatThreshold int

	// LogoAreaThreshold is the rendered area (pt²) below which a
	// repeating image counts as small (default 10000).
	LogoAreaThreshold float64

	// MaxImagesPerPage is the ceiling above which a page's image
	// extraction is skipped entirely (default 2000).
	MaxImagesPerPage int

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.MinImageSize <= 0 {
		c.MinImageSize = 50
	}
	if c.LogoRepeatThreshold <= 0 {
		c.LogoRepeatThreshold = 5
	}
	if c.LogoAreaThreshold <= 0 {
		c.LogoAreaThreshold = 10000
	}
	if c.MaxImagesPerPage <= 0 {
		c.MaxImagesPerPage = 2000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// classification is the cached verdict for one source image reference.
type classification struct {
	logo bool
	ref  string // stored reference if not a logo
}

// Normalizer converts raw pages into the ordered block stream. It holds
// only reproducible state (classification caches, hash counts, the global
// order counter), so feeding it the same page sequence always yields the
// same stream. Replay-based resume relies on this.
//
// Not safe for concurrent use; each worker owns its own instance.
type Normalizer struct {
	cfg    Config
	store  *imagestore.Store
	examID string
	logger *slog.Logger

	order     int
	byRef     map[string]classification
	hashCount map[string]int
}

// NewNormalizer creates a normalizer for one exam document.
func NewNormalizer(examID string, store *imagestore.Store, cfg Config) *Normalizer {
	cfg.applyDefaults()
	return &Normalizer{
		cfg:       cfg,
		store:     store,
		examID:    examID,
		logger:    cfg.Logger.With("exam_id", examID),
		byRef:     make(map[string]classification),
		hashCount: make(map[string]int),
	}
}

// NormalizePage converts one raw page into ordered content blocks and
// assigns global order indexes. Blocks within the page are sorted by
// (y0, x0) before indexes are handed out, so across all pages the final
// stream's order_index values form a contiguous 0..N-1 sequence.
func (n *Normalizer) NormalizePage(ctx context.Context, page *pdfsrc.Page) ([]model.ContentBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []model.ContentBlock

	for _, tb := range page.TextBlocks {
		blk, ok := n.textBlock(tb, page.Number)
		if ok {
			out = append(out, blk)
		}
	}

	if len(page.Images) > n.cfg.MaxImagesPerPage {
		n.logger.Warn("page has too many images, skipping image extraction",
			"page", page.Number, "images", len(page.Images))
	} else {
		for _, img := range page.Images {
			blk, ok := n.imageBlock(ctx, img, page.Number)
			if ok {
				out = append(out, blk)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BBox[1] != out[j].BBox[1] {
			return out[i].BBox[1] < out[j].BBox[1]
		}
		return out[i].BBox[0] < out[j].BBox[0]
	})

	for i := range out {
		out[i].OrderIndex = n.order
		n.order++
	}
	return out, nil
}

// Order returns the next global order index to be assigned.
func (n *Normalizer) Order() int {
	return n.order
}

// textBlock assembles one raw text block, joining runs with internal line
// breaks preserved. Font metadata comes from the first run.
func (n *Normalizer) textBlock(tb pdfsrc.TextBlock, pageNum int) (model.ContentBlock, bool) {
	if len(tb.Runs) == 0 {
		return model.ContentBlock{}, false
	}

	parts := make([]string, 0, len(tb.Runs))
	for _, r := range tb.Runs {
		parts = append(parts, r.Text)
	}
	content := strings.Join(parts, "\n")
	if strings.TrimSpace(content) == "" {
		return model.ContentBlock{}, false
	}

	first := tb.Runs[0]
	var font *model.FontInfo
	if first.FontName != "" || first.FontSize > 0 {
		font = &model.FontInfo{
			Name:     first.FontName,
			Size:     first.FontSize,
			IsBold:   strings.Contains(strings.ToLower(first.FontName), "bold"),
			IsItalic: strings.Contains(strings.ToLower(first.FontName), "italic"),
		}
	}

	return model.ContentBlock{
		Type:       model.BlockText,
		Content:    content,
		PageNumber: pageNum,
		BBox:       tb.BBox,
		Font:       font,
	}, true
}

// imageBlock classifies and stores one raw image. Noise images (small, or
// hash repeating while rendered small) are dropped; non-noise images are
// stored once per unique content hash. Classification is cached by the
// source's image reference so later occurrences skip the work entirely.
func (n *Normalizer) imageBlock(ctx context.Context, img pdfsrc.Image, pageNum int) (model.ContentBlock, bool) {
	if cached, ok := n.byRef[img.Ref]; ok {
		if cached.logo {
			return model.ContentBlock{}, false
		}
		return n.emitImage(cached.ref, img.BBox, pageNum), true
	}

	if img.Width < n.cfg.MinImageSize || img.Height < n.cfg.MinImageSize {
		n.byRef[img.Ref] = classification{logo: true}
		return model.ContentBlock{}, false
	}

	hash := imagestore.ContentHash(img.Data)
	n.hashCount[hash]++

	area := (img.BBox[2] - img.BBox[0]) * (img.BBox[3] - img.BBox[1])
	if n.hashCount[hash] > n.cfg.LogoRepeatThreshold && area < n.cfg.LogoAreaThreshold {
		n.byRef[img.Ref] = classification{logo: true}
		n.logger.Debug("recurring small image classified as logo",
			"page", pageNum, "hash", hash, "count", n.hashCount[hash])
		return model.ContentBlock{}, false
	}

	ref, err := n.store.Put(ctx, n.examID, hash, img.Format, img.Data)
	if err != nil {
		n.logger.Warn("failed to store image, skipping",
			"page", pageNum, "ref", img.Ref, "error", err)
		return model.ContentBlock{}, false
	}

	n.byRef[img.Ref] = classification{ref: ref}
	return n.emitImage(ref, img.BBox, pageNum), true
}

func (n *Normalizer) emitImage(ref string, bbox [4]float64, pageNum int) model.ContentBlock {
	return model.ContentBlock{
		Type:       model.BlockImage,
		Content:    ref,
		PageNumber: pageNum,
		BBox:       bbox,
	}
}
