package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/examkit/examkit/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedExam(t *testing.T, s *Store, id string) *model.ExamJob {
	t.Helper()
	job := &model.ExamJob{
		ID:         id,
		Name:       "Test Exam",
		SourcePDF:  "/tmp/exam.pdf",
		FileHash:   "abc123",
		TotalPages: 10,
	}
	if err := s.CreateExam(context.Background(), job); err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	return job
}

func TestExamLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	got, err := s.GetExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got == nil {
		t.Fatal("exam not found after create")
	}
	if got.Status != model.JobPending {
		t.Errorf("status = %s, want pending", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}

	err = s.UpdateExam(ctx, "exam-1", map[string]any{
		"status":       string(model.JobProcessing),
		"current_page": 4,
	})
	if err != nil {
		t.Fatalf("UpdateExam: %v", err)
	}
	got, _ = s.GetExam(ctx, "exam-1")
	if got.Status != model.JobProcessing || got.CurrentPage != 4 {
		t.Errorf("after update: status=%s current_page=%d", got.Status, got.CurrentPage)
	}

	if err := s.DeleteExam(ctx, "exam-1"); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	got, err = s.GetExam(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetExam after delete: %v", err)
	}
	if got != nil {
		t.Error("exam still present after delete")
	}
}

func TestGetExamNotFound(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetExam(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestUpdateExamRejectsUnknownField(t *testing.T) {
	s := openTestStore(t)
	seedExam(t, s, "exam-1")
	err := s.UpdateExam(context.Background(), "exam-1", map[string]any{"file_hash": "x"})
	if err == nil {
		t.Fatal("expected error for disallowed field")
	}
}

func TestUpdateExamMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateExam(context.Background(), "ghost", map[string]any{"current_page": 1})
	if err == nil {
		t.Fatal("expected error for missing exam")
	}
}

func TestListExamsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := &model.ExamJob{ID: "old", Name: "old", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &model.ExamJob{ID: "new", Name: "new", CreatedAt: time.Now().UTC()}
	for _, job := range []*model.ExamJob{older, newer} {
		if err := s.CreateExam(ctx, job); err != nil {
			t.Fatalf("CreateExam: %v", err)
		}
	}

	jobs, err := s.ListExams(ctx)
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "new" || jobs[1].ID != "old" {
		t.Errorf("order = %v", []string{jobs[0].ID, jobs[1].ID})
	}
}

func sampleQuestion(num int) *model.ParsedQuestion {
	return &model.ParsedQuestion{
		QuestionNumber:  num,
		QuestionType:    model.QuestionMCQ,
		QuestionText:    "What is S3?",
		AnswerText:      "B",
		ExplanationText: "object storage",
		PageStart:       num,
		PageEnd:         num,
		RawText:         "raw",
		Options: []model.QuestionOption{
			{Key: "A", Text: "compute"},
			{Key: "B", Text: "storage", IsCorrect: true, Images: []string{"exam/img_b.png"}},
		},
		QuestionImages: []string{"exam/img_q.png"},
		Anomalies:      []model.Anomaly{},
	}
}

func TestInsertAndGetQuestions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	if err := s.InsertQuestion(ctx, "exam-1", sampleQuestion(1)); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	questions, err := s.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(questions))
	}
	q := questions[0]
	if q.QuestionText != "What is S3?" || q.AnswerText != "B" {
		t.Errorf("question = %+v", q)
	}
	if len(q.Options) != 2 {
		t.Fatalf("options = %+v", q.Options)
	}
	if !q.Options[1].IsCorrect || q.Options[0].IsCorrect {
		t.Errorf("correctness lost: %+v", q.Options)
	}
	if len(q.Options[1].Images) != 1 || q.Options[1].Images[0] != "exam/img_b.png" {
		t.Errorf("option images = %v", q.Options[1].Images)
	}
	if len(q.QuestionImages) != 1 || q.QuestionImages[0] != "exam/img_q.png" {
		t.Errorf("question images = %v", q.QuestionImages)
	}
}

func TestReplaceByNumberIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	// Delete-then-insert twice, as replay after a crash would.
	for i := 0; i < 2; i++ {
		if err := s.DeleteQuestionByNumber(ctx, "exam-1", 3); err != nil {
			t.Fatalf("DeleteQuestionByNumber: %v", err)
		}
		q := sampleQuestion(3)
		q.QuestionText = "latest text"
		if err := s.InsertQuestion(ctx, "exam-1", q); err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}

	n, err := s.CountQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("CountQuestions: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	questions, _ := s.GetQuestions(ctx, "exam-1")
	if questions[0].QuestionText != "latest text" {
		t.Errorf("text = %q", questions[0].QuestionText)
	}
}

func TestDeleteQuestionsFromPage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	for _, num := range []int{1, 2, 3, 4} {
		if err := s.InsertQuestion(ctx, "exam-1", sampleQuestion(num)); err != nil {
			t.Fatalf("InsertQuestion %d: %v", num, err)
		}
	}

	if err := s.DeleteQuestionsFromPage(ctx, "exam-1", 3); err != nil {
		t.Fatalf("DeleteQuestionsFromPage: %v", err)
	}

	questions, err := s.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	for _, q := range questions {
		if q.PageStart >= 3 {
			t.Errorf("question %d with page_start %d survived", q.QuestionNumber, q.PageStart)
		}
	}
}

func TestDeleteExamCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	if err := s.InsertQuestion(ctx, "exam-1", sampleQuestion(1)); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}
	if err := s.DeleteExam(ctx, "exam-1"); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}

	n, err := s.CountQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("CountQuestions: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 after cascade", n)
	}
}

func TestQuestionsOrderedByNumber(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedExam(t, s, "exam-1")

	for _, num := range []int{5, 1, 3} {
		if err := s.InsertQuestion(ctx, "exam-1", sampleQuestion(num)); err != nil {
			t.Fatalf("InsertQuestion %d: %v", num, err)
		}
	}

	questions, err := s.GetQuestions(ctx, "exam-1")
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	var nums []int
	for _, q := range questions {
		nums = append(nums, q.QuestionNumber)
	}
	want := []int{1, 3, 5}
	for i := range want {
		if nums[i] != want[i] {
			t.Fatalf("order = %v, want %v", nums, want)
		}
	}
}
