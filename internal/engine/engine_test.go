package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/examkit/examkit/internal/testutil"
)

func TestParseEndToEnd(t *testing.T) {
	src := testutil.NewFakeSource(
		testutil.TextPage("Question: 1", "What is EC2?", "A. compute", "B. storage", "Answer: A"),
		testutil.TextPage("Question: 2", "What is S3?", "Answer: B", "Explanation: object storage"),
	)

	result, err := Parse(context.Background(), Request{
		Source:    src,
		ExamName:  "AWS Sample",
		ExamID:    "aws-sample",
		ImagesDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if result.ExamID != "aws-sample" {
		t.Errorf("exam id = %q", result.ExamID)
	}
	if result.Exam.Name != "AWS Sample" || result.Exam.TotalPages != 2 {
		t.Errorf("metadata = %+v", result.Exam)
	}
	if len(result.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(result.Questions))
	}
	if result.Questions[0].QuestionText != "What is EC2?" {
		t.Errorf("question 1 text = %q", result.Questions[0].QuestionText)
	}
	if result.Validation.TotalQuestionsDetected != 2 {
		t.Errorf("validation total = %d", result.Validation.TotalQuestionsDetected)
	}
	if result.Validation.SuccessRate() != 100 {
		t.Errorf("success rate = %v", result.Validation.SuccessRate())
	}
	if result.Detail.Summary.RawDetectedCount != 2 {
		t.Errorf("raw detected = %d", result.Detail.Summary.RawDetectedCount)
	}
	if result.BlockCount == 0 {
		t.Error("block count not reported")
	}
	if result.ParserVersion == "" {
		t.Error("parser version missing")
	}
}

func TestParsePageRange(t *testing.T) {
	src := testutil.NewFakeSource(
		testutil.TextPage("Question: 1", "first", "Answer: A"),
		testutil.TextPage("Question: 2", "second", "Answer: B"),
		testutil.TextPage("Question: 3", "third", "Answer: C"),
	)

	result, err := Parse(context.Background(), Request{
		Source:    src,
		ExamID:    "ranged",
		FirstPage: 2,
		LastPage:  2,
		ImagesDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Questions) != 1 || result.Questions[0].QuestionNumber != 2 {
		t.Errorf("questions = %+v", result.Questions)
	}
}

func TestParseInvalidPageRange(t *testing.T) {
	src := testutil.NewFakeSource(testutil.TextPage("Question: 1", "only", "Answer: A"))

	tests := []struct {
		name        string
		first, last int
	}{
		{"past end", 1, 5},
		{"inverted", 2, 1},
		{"negative", -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), Request{
				Source:    src,
				ExamID:    "bad-range",
				FirstPage: tt.first,
				LastPage:  tt.last,
				ImagesDir: t.TempDir(),
			})
			if err == nil {
				t.Error("expected page range error")
			}
		})
	}
}

func TestParseExportsArtifacts(t *testing.T) {
	outDir := t.TempDir()
	src := testutil.NewFakeSource(
		testutil.TextPage("Question: 1", "exported", "Answer: A"),
	)

	_, err := Parse(context.Background(), Request{
		Source:    src,
		ExamID:    "export-test",
		OutputDir: outDir,
		ImagesDir: t.TempDir(),
		RawBlocks: true,
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for _, name := range []string{
		"export-test_parsed.json",
		"export-test_validation.json",
		"export-test_raw_blocks.json",
	} {
		path := filepath.Join(outDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("artifact %s: %v", name, err)
			continue
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			t.Errorf("artifact %s is not valid JSON: %v", name, err)
		}
	}
}

func TestParseRawBlocksOptional(t *testing.T) {
	outDir := t.TempDir()
	src := testutil.NewFakeSource(testutil.TextPage("Question: 1", "text", "Answer: A"))

	_, err := Parse(context.Background(), Request{
		Source:    src,
		ExamID:    "no-raw",
		OutputDir: outDir,
		ImagesDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "no-raw_raw_blocks.json")); !os.IsNotExist(err) {
		t.Error("raw blocks exported without being requested")
	}
}

func TestDeriveExamID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/AWS Exam (2024).pdf", "AWS_Exam__2024_"},
		{"simple.pdf", "simple"},
		{"many.dots.in.name.pdf", "many_dots_in_name"},
		{"already-safe_name.pdf", "already-safe_name"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DeriveExamID(tt.path); got != tt.want {
				t.Errorf("DeriveExamID(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestDeriveExamIDLength(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "x"
	}
	if got := DeriveExamID(long + ".pdf"); len(got) != 50 {
		t.Errorf("len = %d, want 50", len(got))
	}
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	// sha256("hello")
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	got, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	if got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}
