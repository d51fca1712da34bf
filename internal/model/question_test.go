package model

import "testing"

func TestAnomalyScoreCapped(t *testing.T) {
	q := ParsedQuestion{Anomalies: []Anomaly{
		{Type: AnomalyMissingQuestionText, Severity: 80},
		{Type: AnomalyMissingAnswer, Severity: 60},
		{Type: AnomalyOrphanImage, Severity: 30},
	}}
	if got := q.AnomalyScore(); got != 100 {
		t.Errorf("score = %d, want 100", got)
	}
}

func TestAnomalyScoreSums(t *testing.T) {
	q := ParsedQuestion{Anomalies: []Anomaly{
		{Type: AnomalyMissingAnswer, Severity: 60},
		{Type: AnomalyOrphanImage, Severity: 30},
	}}
	if got := q.AnomalyScore(); got != 90 {
		t.Errorf("score = %d, want 90", got)
	}
}

func TestSectionPresenceTrimsWhitespace(t *testing.T) {
	q := ParsedQuestion{QuestionText: "  \t ", AnswerText: " A ", ExplanationText: ""}
	if q.HasQuestionText() {
		t.Error("whitespace-only question text counted as present")
	}
	if !q.HasAnswer() {
		t.Error("answer text not detected")
	}
	if q.HasExplanation() {
		t.Error("empty explanation counted as present")
	}
}

func TestImageCount(t *testing.T) {
	q := ParsedQuestion{
		QuestionImages:    []string{"a", "b"},
		AnswerImages:      []string{"c"},
		ExplanationImages: []string{"d"},
		Options: []QuestionOption{
			{Key: "A", Images: []string{"e"}},
			{Key: "B"},
		},
	}
	if got := q.ImageCount(); got != 5 {
		t.Errorf("count = %d, want 5", got)
	}
}

func TestIsTextBlock(t *testing.T) {
	tests := []struct {
		name  string
		block ContentBlock
		want  bool
	}{
		{"text", ContentBlock{Type: BlockText, Content: "hello"}, true},
		{"whitespace", ContentBlock{Type: BlockText, Content: "  "}, false},
		{"image", ContentBlock{Type: BlockImage, Content: "ref"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.block.IsText(); got != tt.want {
				t.Errorf("IsText = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobCanStart(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobPending, true},
		{JobPaused, true},
		{JobFailed, true},
		{JobProcessing, false},
		{JobCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			j := ExamJob{Status: tt.status}
			if got := j.CanStart(); got != tt.want {
				t.Errorf("CanStart = %v, want %v", got, tt.want)
			}
		})
	}
}
