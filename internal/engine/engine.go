// Package engine runs the one-shot parse pipeline: page extraction,
// block normalization, question structuring, and validation, with
// optional JSON export of the results.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/examkit/examkit/internal/blocks"
	"github.com/examkit/examkit/internal/fsm"
	"github.com/examkit/examkit/internal/imagestore"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/pdfsrc"
	"github.com/examkit/examkit/internal/validate"
	"github.com/examkit/examkit/version"
)

// Request contains the parameters for a one-shot parse.
type Request struct {
	PDFPath   string        // path to the exam PDF
	Source    pdfsrc.Source // overrides PDFPath when set; file metadata is skipped
	ExamName  string        // optional, derived from filename if empty
	ExamID    string        // optional, derived from filename if empty
	FirstPage int           // optional page range start (1-based, inclusive)
	LastPage  int           // optional page range end (inclusive)
	OutputDir string        // if set, JSON artifacts are written here
	ImagesDir string        // base directory for extracted images
	Blocks    blocks.Config
	RawBlocks bool         // also export the normalized block snapshot
	Logger    *slog.Logger // optional logger for progress updates
}

// Metadata describes the parsed source file.
type Metadata struct {
	Name          string `json:"name"`
	SourcePDF     string `json:"source_pdf"`
	FileHash      string `json:"file_hash"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	TotalPages    int    `json:"total_pages"`
}

// Result contains the output of a successful parse.
type Result struct {
	ExamID        string                  `json:"exam_id"`
	ParserVersion string                  `json:"parser_version"`
	Exam          Metadata                `json:"exam"`
	Questions     []model.ParsedQuestion  `json:"questions"`
	Validation    *model.ValidationReport `json:"validation"`
	Detail        *model.ValidationDetail `json:"validation_detail"`
	BlockCount    int                     `json:"raw_block_count"`
	ElapsedMS     int64                   `json:"elapsed_ms"`
}

// Parse runs the full pipeline against a single PDF.
func Parse(ctx context.Context, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		meta *Metadata
		src  pdfsrc.Source
	)
	if req.Source != nil {
		src = req.Source
		name := req.ExamName
		if name == "" {
			name = "exam"
		}
		meta = &Metadata{Name: name}
	} else {
		pdfPath, err := filepath.Abs(req.PDFPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve pdf path: %w", err)
		}
		meta, err = buildMetadata(pdfPath, req.ExamName)
		if err != nil {
			return nil, err
		}
		doc, err := pdfsrc.Open(pdfPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open pdf: %w", err)
		}
		defer doc.Close()
		src = doc
		req.PDFPath = pdfPath
	}

	examID := req.ExamID
	if examID == "" {
		examID = DeriveExamID(firstNonEmpty(req.PDFPath, meta.Name))
	}
	log = log.With("exam_id", examID)
	meta.TotalPages = src.PageCount()

	first, last, err := pageRange(req.FirstPage, req.LastPage, meta.TotalPages)
	if err != nil {
		return nil, err
	}

	imagesDir := req.ImagesDir
	if imagesDir == "" {
		imagesDir = filepath.Join("storage", "questions")
	}
	images := imagestore.New(imagesDir)

	cfg := req.Blocks
	cfg.Logger = log
	normalizer := blocks.NewNormalizer(examID, images, cfg)
	machine := fsm.New(log)
	rawDetected := map[int]int{}

	start := time.Now()
	log.Info("starting parse", "pdf", meta.SourcePDF, "pages", meta.TotalPages)

	var all []model.ContentBlock
	for pageNum := first; pageNum <= last; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := src.Page(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", pageNum, err)
		}
		scanRawAnchors(page, rawDetected)
		normalized, err := normalizer.NormalizePage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize page %d: %w", pageNum, err)
		}
		for _, b := range normalized {
			machine.Process(b)
		}
		if req.RawBlocks {
			all = append(all, normalized...)
		}
	}
	machine.Finalize()

	questions := machine.Questions()
	report := validate.Run(questions)
	detail := validate.BuildDetail(questions, rawDetected, report, meta.TotalPages)

	result := &Result{
		ExamID:        examID,
		ParserVersion: version.GitRelease,
		Exam:          *meta,
		Questions:     questions,
		Validation:    report,
		Detail:        detail,
		BlockCount:    normalizer.Order(),
		ElapsedMS:     time.Since(start).Milliseconds(),
	}

	log.Info("parse complete",
		"questions", len(questions),
		"success_rate", report.SuccessRate(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if req.OutputDir != "" {
		if err := export(result, all, req, log); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DeriveExamID builds a filesystem-safe exam id from the PDF filename.
func DeriveExamID(pdfPath string) string {
	base := filepath.Base(pdfPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	id := b.String()
	if len(id) > 50 {
		id = id[:50]
	}
	return id
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func buildMetadata(pdfPath, name string) (*Metadata, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("pdf not found: %s", pdfPath)
	}
	hash, err := FileHash(pdfPath)
	if err != nil {
		return nil, err
	}
	if name == "" {
		base := filepath.Base(pdfPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &Metadata{
		Name:          name,
		SourcePDF:     filepath.Base(pdfPath),
		FileHash:      hash,
		FileSizeBytes: info.Size(),
	}, nil
}

// FileHash computes the hex-encoded SHA-256 of a file.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func pageRange(first, last, total int) (int, int, error) {
	if first == 0 {
		first = 1
	}
	if last == 0 {
		last = total
	}
	if first < 1 || last > total || first > last {
		return 0, 0, fmt.Errorf("invalid page range %d-%d for %d pages", first, last, total)
	}
	return first, last, nil
}

func scanRawAnchors(page *pdfsrc.Page, rawDetected map[int]int) {
	var b strings.Builder
	for _, tb := range page.TextBlocks {
		for _, run := range tb.Runs {
			b.WriteString(run.Text)
			b.WriteString("\n")
		}
	}
	for _, num := range fsm.ScanRawAnchors(b.String()) {
		if _, seen := rawDetected[num]; !seen {
			rawDetected[num] = page.Number
		}
	}
}

func export(result *Result, rawBlocks []model.ContentBlock, req Request, log *slog.Logger) error {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := writeJSON(filepath.Join(req.OutputDir, result.ExamID+"_parsed.json"), result); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(req.OutputDir, result.ExamID+"_validation.json"), result.Detail); err != nil {
		return err
	}
	if req.RawBlocks {
		if err := writeJSON(filepath.Join(req.OutputDir, result.ExamID+"_raw_blocks.json"), rawBlocks); err != nil {
			return err
		}
	}
	log.Info("output saved", "dir", req.OutputDir)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
