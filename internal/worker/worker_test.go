package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/examkit/examkit/internal/imagestore"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/pdfsrc"
	"github.com/examkit/examkit/internal/store"
	"github.com/examkit/examkit/internal/testutil"
)

// examPages is a four-page document with one question per page. Question
// N is finalized when question N+1's anchor is seen, so finalization lags
// one page behind extraction.
func examPages() []*pdfsrc.Page {
	return []*pdfsrc.Page{
		testutil.TextPage("Question: 1", "First question text", "A. one", "B. two", "Answer: A"),
		testutil.TextPage("Question: 2", "Second question text", "Answer: B", "Explanation: why"),
		testutil.TextPage("Question: 3", "Third question text", "Answer: C"),
		testutil.TextPage("Question: 4", "Fourth question text", "Answer: D"),
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "worker.db"), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedExam(t *testing.T, s *store.Store, id string) {
	t.Helper()
	err := s.CreateExam(context.Background(), &model.ExamJob{ID: id, Name: id})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
}

func runWorker(t *testing.T, cfg Config) {
	t.Helper()
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Run(context.Background())
}

func TestNewValidation(t *testing.T) {
	s := openTestStore(t)
	src := testutil.NewFakeSource(examPages()...)
	images := imagestore.New(t.TempDir())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing exam id", Config{Source: src, Store: s, Images: images}},
		{"missing source", Config{ExamID: "e", Store: s, Images: images}},
		{"missing store", Config{ExamID: "e", Source: src, Images: images}},
		{"missing images", Config{ExamID: "e", Source: src, Store: s}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected config error")
			}
		})
	}
}

func TestImageDecodeFailuresLogged(t *testing.T) {
	s := openTestStore(t)
	seedExam(t, s, "exam-1")

	pages := examPages()
	pages[1].ImageErrs = 2

	var buf bytes.Buffer
	runWorker(t, Config{
		ExamID: "exam-1",
		Source: testutil.NewFakeSource(pages...),
		Store:  s,
		Images: imagestore.New(t.TempDir()),
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
	})

	logs := buf.String()
	if !strings.Contains(logs, "undecodable images on page") {
		t.Fatalf("expected warning about undecodable images, got logs:\n%s", logs)
	}
	if !strings.Contains(logs, "count=2") {
		t.Errorf("expected image error count in logs, got:\n%s", logs)
	}
}

func TestRunCompletes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	runWorker(t, Config{
		ExamID: "exam-1",
		Source: testutil.NewFakeSource(examPages()...),
		Store:  s,
		Images: imagestore.New(t.TempDir()),
	})

	job, err := s.GetExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if job.Status != model.JobCompleted {
		t.Fatalf("status = %s, last_error = %q", job.Status, job.LastError)
	}
	if job.CurrentPage != 4 || job.TotalPages != 4 {
		t.Errorf("pages: current=%d total=%d", job.CurrentPage, job.TotalPages)
	}
	if job.TotalQuestions != 4 {
		t.Errorf("total_questions = %d, want 4", job.TotalQuestions)
	}
	if job.ValidationJSON == "" {
		t.Error("validation_json not persisted")
	}

	questions, err := s.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("got %d questions, want 4", len(questions))
	}
	if questions[0].QuestionText != "First question text" {
		t.Errorf("question 1 text = %q", questions[0].QuestionText)
	}
	if len(questions[0].Options) != 2 {
		t.Errorf("question 1 options = %+v", questions[0].Options)
	}
}

// stopAfterSource requests a worker stop once a given page is fetched,
// so the pause lands at the next page boundary deterministically.
type stopAfterSource struct {
	*testutil.FakeSource
	stopAfter int
	worker    *Worker
}

func (s *stopAfterSource) Page(ctx context.Context, pageNum int) (*pdfsrc.Page, error) {
	page, err := s.FakeSource.Page(ctx, pageNum)
	if err == nil && pageNum == s.stopAfter {
		s.worker.RequestStop()
	}
	return page, err
}

func TestPauseAtPageBoundary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	src := &stopAfterSource{
		FakeSource: testutil.NewFakeSource(examPages()...),
		stopAfter:  2,
	}
	w, err := New(Config{
		ExamID: "exam-1",
		Source: src,
		Store:  s,
		Images: imagestore.New(t.TempDir()),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src.worker = w
	w.Run(ctx)

	job, _ := s.GetExam(ctx, "exam-1")
	if job.Status != model.JobPaused {
		t.Fatalf("status = %s, want paused", job.Status)
	}
	if job.CurrentPage != 2 {
		t.Errorf("current_page = %d, want 2", job.CurrentPage)
	}

	// Only questions finalized within pages 1..2 are durable.
	n, _ := s.CountQuestions(ctx, "exam-1")
	if n != 1 {
		t.Errorf("persisted questions = %d, want 1", n)
	}
}

func TestResumeEquivalence(t *testing.T) {
	ctx := context.Background()

	// Unbroken reference run.
	ref := openTestStore(t)
	seedExam(t, ref, "exam-1")
	runWorker(t, Config{
		ExamID: "exam-1",
		Source: testutil.NewFakeSource(examPages()...),
		Store:  ref,
		Images: imagestore.New(t.TempDir()),
	})

	// Interrupted run: pause after page 2, then resume from page 3.
	s := openTestStore(t)
	seedExam(t, s, "exam-1")
	images := imagestore.New(t.TempDir())

	src := &stopAfterSource{FakeSource: testutil.NewFakeSource(examPages()...), stopAfter: 2}
	w, err := New(Config{ExamID: "exam-1", Source: src, Store: s, Images: images})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src.worker = w
	w.Run(ctx)

	job, _ := s.GetExam(ctx, "exam-1")
	if job.Status != model.JobPaused || job.CurrentPage != 2 {
		t.Fatalf("pause state: status=%s current_page=%d", job.Status, job.CurrentPage)
	}

	runWorker(t, Config{
		ExamID:    "exam-1",
		Source:    testutil.NewFakeSource(examPages()...),
		Store:     s,
		Images:    images,
		StartPage: job.CurrentPage + 1,
	})

	job, _ = s.GetExam(ctx, "exam-1")
	if job.Status != model.JobCompleted {
		t.Fatalf("status = %s, last_error = %q", job.Status, job.LastError)
	}

	want, err := ref.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions(ref): %v", err)
	}
	got, err := s.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("resumed output differs from unbroken run:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestResumeCleansPartialPage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	// A crash mid-page can leave a question committed without the
	// checkpoint advancing. Resume must drop it before rewriting.
	stale := &model.ParsedQuestion{QuestionNumber: 99, QuestionText: "stale", PageStart: 3, PageEnd: 3}
	if err := s.InsertQuestion(ctx, "exam-1", stale); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	if err := s.UpdateExam(ctx, "exam-1", map[string]any{"current_page": 2}); err != nil {
		t.Fatalf("UpdateExam: %v", err)
	}

	runWorker(t, Config{
		ExamID:    "exam-1",
		Source:    testutil.NewFakeSource(examPages()...),
		Store:     s,
		Images:    imagestore.New(t.TempDir()),
		StartPage: 3,
	})

	questions, err := s.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	for _, q := range questions {
		if q.QuestionNumber == 99 {
			t.Error("stale partial-page question survived resume")
		}
	}
}

func TestFailureMarksJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	src := testutil.NewFakeSource(examPages()...)
	src.PageErr = map[int]error{2: errors.New("page stream corrupted")}

	runWorker(t, Config{
		ExamID: "exam-1",
		Source: src,
		Store:  s,
		Images: imagestore.New(t.TempDir()),
	})

	job, _ := s.GetExam(ctx, "exam-1")
	if job.Status != model.JobFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.LastError == "" {
		t.Error("last_error not persisted")
	}
	if job.CurrentPage != 1 {
		t.Errorf("current_page = %d, want 1 (page 1 committed)", job.CurrentPage)
	}
}

// blockingSource holds the worker inside a page fetch until released.
type blockingSource struct {
	*testutil.FakeSource
	release chan struct{}
}

func (b *blockingSource) Page(ctx context.Context, pageNum int) (*pdfsrc.Page, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.FakeSource.Page(ctx, pageNum)
}

func TestRegistryDuplicateSpawn(t *testing.T) {
	s := openTestStore(t)
	seedExam(t, s, "exam-1")
	reg := NewRegistry(nil)

	src := &blockingSource{
		FakeSource: testutil.NewFakeSource(examPages()...),
		release:    make(chan struct{}),
	}
	cfg := Config{ExamID: "exam-1", Source: src, Store: s, Images: imagestore.New(t.TempDir())}

	w, err := reg.Spawn(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if _, err := reg.Spawn(context.Background(), cfg); err == nil {
		t.Error("second spawn for the same exam should fail")
	}

	close(src.release)
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
	waitDrained(t, reg)
}

// waitDrained waits for the registry to drop finished workers; removal
// happens just after Done closes.
func waitDrained(t *testing.T, reg *Registry) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for reg.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still has %d workers", reg.Active())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegistryPauseAll(t *testing.T) {
	s := openTestStore(t)
	seedExam(t, s, "exam-1")
	reg := NewRegistry(nil)

	src := &blockingSource{
		FakeSource: testutil.NewFakeSource(examPages()...),
		release:    make(chan struct{}),
	}
	if _, err := reg.Spawn(context.Background(), Config{
		ExamID: "exam-1", Source: src, Store: s, Images: imagestore.New(t.TempDir()),
	}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	close(src.release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := reg.PauseAll(ctx); err != nil {
		t.Fatalf("PauseAll: %v", err)
	}
	waitDrained(t, reg)
}
