// Package model defines the shared data model for exam document structuring:
// content blocks, parsed questions, anomalies, validation reports, and the
// checkpointed exam job record.
package model

import "strings"

// BlockType is the type of a content block.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// FontInfo carries font metadata for a text block, taken from the first
// run inside the block.
type FontInfo struct {
	Name     string  `json:"name,omitempty"`
	Size     float64 `json:"size,omitempty"`
	IsBold   bool    `json:"is_bold,omitempty"`
	IsItalic bool    `json:"is_italic,omitempty"`
}

// ContentBlock is a single typed block in the normalized page stream.
// For text blocks Content holds the assembled text with internal line
// breaks preserved; for image blocks it holds the stored image reference.
//
// OrderIndex is the only ordering contract consumers may rely on: across a
// full document it forms a contiguous 0..N-1 sequence with no gaps or
// duplicates.
type ContentBlock struct {
	Type       BlockType  `json:"type"`
	Content    string     `json:"content"`
	PageNumber int        `json:"page_number"`
	BBox       [4]float64 `json:"bbox"`
	OrderIndex int        `json:"order_index"`
	Font       *FontInfo  `json:"font_info,omitempty"`
}

// IsText reports whether the block is a non-empty text block.
func (b *ContentBlock) IsText() bool {
	return b.Type == BlockText && strings.TrimSpace(b.Content) != ""
}
