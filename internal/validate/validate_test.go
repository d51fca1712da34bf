package validate

import (
	"reflect"
	"testing"

	"github.com/examkit/examkit/internal/model"
)

func question(num int, text, answer, explanation string) model.ParsedQuestion {
	return model.ParsedQuestion{
		QuestionNumber:  num,
		QuestionText:    text,
		AnswerText:      answer,
		ExplanationText: explanation,
	}
}

func complete(num int) model.ParsedQuestion {
	return question(num, "text", "A", "because")
}

func TestRunEmpty(t *testing.T) {
	report := Run(nil)
	if report.TotalQuestionsDetected != 0 {
		t.Errorf("total = %d, want 0", report.TotalQuestionsDetected)
	}
	if report.SuccessRate() != 0 {
		t.Errorf("success rate = %v, want 0", report.SuccessRate())
	}
	if report.MissingQuestionNumbers == nil || report.DuplicateQuestionNumbers == nil {
		t.Error("slices must be non-nil for JSON output")
	}
}

func TestRunGapDetection(t *testing.T) {
	var questions []model.ParsedQuestion
	for _, n := range []int{1, 2, 5, 6, 10} {
		questions = append(questions, complete(n))
	}

	report := Run(questions)
	want := []int{3, 4, 7, 8, 9}
	if !reflect.DeepEqual(report.MissingQuestionNumbers, want) {
		t.Errorf("missing = %v, want %v", report.MissingQuestionNumbers, want)
	}
}

func TestRunDuplicates(t *testing.T) {
	report := Run([]model.ParsedQuestion{complete(1), complete(2), complete(2), complete(3)})
	if !reflect.DeepEqual(report.DuplicateQuestionNumbers, []int{2}) {
		t.Errorf("duplicates = %v, want [2]", report.DuplicateQuestionNumbers)
	}
	if report.TotalQuestionsDetected != 4 {
		t.Errorf("total = %d, want 4", report.TotalQuestionsDetected)
	}
}

func TestRunMissingSections(t *testing.T) {
	questions := []model.ParsedQuestion{
		complete(1),
		question(2, "text", "", "because"),
		question(3, "text", "B", ""),
	}

	report := Run(questions)
	if !reflect.DeepEqual(report.QuestionsMissingAnswer, []int{2}) {
		t.Errorf("missing answer = %v, want [2]", report.QuestionsMissingAnswer)
	}
	if !reflect.DeepEqual(report.QuestionsMissingExplanation, []int{3}) {
		t.Errorf("missing explanation = %v, want [3]", report.QuestionsMissingExplanation)
	}
	if report.StructuredSuccessfully != 2 {
		t.Errorf("structured = %d, want 2", report.StructuredSuccessfully)
	}
}

func TestSuccessRateRounding(t *testing.T) {
	report := &model.ValidationReport{TotalQuestionsDetected: 3, StructuredSuccessfully: 2}
	if got := report.SuccessRate(); got != 66.67 {
		t.Errorf("success rate = %v, want 66.67", got)
	}
}

func TestRunAnomalyBreakdown(t *testing.T) {
	q := complete(1)
	q.Anomalies = []model.Anomaly{
		{Type: model.AnomalyOrphanImage, Severity: 30},
		{Type: model.AnomalyDuplicateQuestionNumber, Severity: 50},
	}

	report := Run([]model.ParsedQuestion{q})
	if report.AnomalyBreakdown["orphan_image"] != 1 ||
		report.AnomalyBreakdown["duplicate_question_number"] != 1 {
		t.Errorf("breakdown = %v", report.AnomalyBreakdown)
	}
	if report.OrphanImages != 1 {
		t.Errorf("orphan images = %d, want 1", report.OrphanImages)
	}
}

func TestBuildDetailPartitions(t *testing.T) {
	questions := []model.ParsedQuestion{
		complete(1),
		question(2, "text only", "", ""),
	}
	rawDetected := map[int]int{1: 1, 2: 2, 3: 3}
	report := Run(questions)

	detail := BuildDetail(questions, rawDetected, report, 10)

	if !reflect.DeepEqual(detail.FullyStructured, []int{1}) {
		t.Errorf("fully structured = %v, want [1]", detail.FullyStructured)
	}
	if len(detail.PartiallyStructured) != 1 || detail.PartiallyStructured[0].QuestionNumber != 2 {
		t.Errorf("partially structured = %+v", detail.PartiallyStructured)
	}
	wantReasons := []string{"missing_answer", "missing_explanation"}
	if !reflect.DeepEqual(detail.PartiallyStructured[0].Reasons, wantReasons) {
		t.Errorf("reasons = %v, want %v", detail.PartiallyStructured[0].Reasons, wantReasons)
	}
	if len(detail.MissingQuestions) != 1 || detail.MissingQuestions[0].QuestionNumber != 3 {
		t.Errorf("missing questions = %+v", detail.MissingQuestions)
	}
	if detail.MissingQuestions[0].PageDetected != 3 {
		t.Errorf("page detected = %d, want 3", detail.MissingQuestions[0].PageDetected)
	}

	s := detail.Summary
	if s.RawDetectedCount != 3 || s.ParsedCount != 2 ||
		s.FullyStructuredCount != 1 || s.PartiallyStructuredCount != 1 ||
		s.MissingLostCount != 1 || s.TotalPages != 10 {
		t.Errorf("summary = %+v", s)
	}
	if s.SuccessRate != 50 {
		t.Errorf("success rate = %v, want 50", s.SuccessRate)
	}
}

func TestBuildDetailSequenceGaps(t *testing.T) {
	// Raw scan saw 5, parsing produced 1 and 3. The union {1,3,5} has gaps
	// at 2 and 4; gaps stay separate from the anchor-lost signal.
	questions := []model.ParsedQuestion{complete(1), complete(3)}
	rawDetected := map[int]int{1: 1, 3: 2, 5: 4}
	report := Run(questions)

	detail := BuildDetail(questions, rawDetected, report, 5)

	if !reflect.DeepEqual(detail.SequenceGaps, []int{2, 4}) {
		t.Errorf("sequence gaps = %v, want [2 4]", detail.SequenceGaps)
	}
	if len(detail.MissingQuestions) != 1 || detail.MissingQuestions[0].QuestionNumber != 5 {
		t.Errorf("missing questions = %+v", detail.MissingQuestions)
	}
	if detail.Summary.SequenceGapCount != 2 || detail.Summary.MissingLostCount != 1 {
		t.Errorf("summary = %+v", detail.Summary)
	}
}

func TestBuildDetailDiagnosis(t *testing.T) {
	report := Run(nil)

	// Anchor alone on its page suggests a layout split.
	detail := BuildDetail(nil, map[int]int{7: 4}, report, 10)
	if len(detail.MissingQuestions) != 1 {
		t.Fatalf("missing = %+v", detail.MissingQuestions)
	}
	solo := detail.MissingQuestions[0].Reason

	// Anchor sharing a page with another suggests structuring failed.
	detail = BuildDetail(nil, map[int]int{7: 4, 8: 4}, report, 10)
	var shared string
	for _, mq := range detail.MissingQuestions {
		if mq.QuestionNumber == 7 {
			shared = mq.Reason
		}
	}

	if solo == shared {
		t.Errorf("expected distinct diagnoses, both %q", solo)
	}
}

func TestBuildDetailPerQuestionAnomalies(t *testing.T) {
	q := complete(4)
	q.Anomalies = []model.Anomaly{{Type: model.AnomalyDuplicateQuestionNumber, Severity: 50}}
	report := Run([]model.ParsedQuestion{q})

	detail := BuildDetail([]model.ParsedQuestion{q}, nil, report, 1)
	if got := detail.PerQuestionAnomalies["4"]; len(got) != 1 {
		t.Errorf("per-question anomalies = %v", detail.PerQuestionAnomalies)
	}
}
