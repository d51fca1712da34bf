package model

import "strings"

// QuestionType is the format of a parsed question.
type QuestionType string

const (
	QuestionMCQ      QuestionType = "mcq"
	QuestionHotspot  QuestionType = "hotspot"
	QuestionDragDrop QuestionType = "drag_drop"
	QuestionTextOnly QuestionType = "text_only"
)

// AnomalyType classifies a structural anomaly detected during parsing.
type AnomalyType string

const (
	AnomalyMissingQuestionText       AnomalyType = "missing_question_text"
	AnomalyMissingAnswer             AnomalyType = "missing_answer"
	AnomalyMissingExplanation        AnomalyType = "missing_explanation"
	AnomalyExplanationWithoutAnswer  AnomalyType = "explanation_without_answer"
	AnomalyOrphanImage               AnomalyType = "orphan_image"
	AnomalyDuplicateQuestionNumber   AnomalyType = "duplicate_question_number"
	AnomalyMultiPageFragmentation    AnomalyType = "multi_page_fragmentation"
	AnomalyUnrecognizedAnchor        AnomalyType = "unrecognized_anchor"
	AnomalyEmptySection              AnomalyType = "empty_section"
)

// Anomaly is a structural problem attached to a question.
type Anomaly struct {
	Type     AnomalyType       `json:"type"`
	Severity int               `json:"severity"` // 0-100
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

// QuestionOption is a single answer option (A, B, C, ...).
type QuestionOption struct {
	Key       string   `json:"key"`
	Text      string   `json:"text"`
	IsCorrect bool     `json:"is_correct"`
	Images    []string `json:"images,omitempty"`
}

// ParsedQuestion is a fully structured question entity. It is mutated only
// by the state machine while in flight; after finalization it is
// append-only output.
type ParsedQuestion struct {
	QuestionNumber  int              `json:"question_number"`
	QuestionType    QuestionType     `json:"question_type"`
	PageStart       int              `json:"page_start"`
	PageEnd         int              `json:"page_end"`
	QuestionText    string           `json:"question_text"`
	AnswerText      string           `json:"answer_text"`
	ExplanationText string           `json:"explanation_text"`
	Options         []QuestionOption `json:"options"`

	QuestionImages    []string `json:"question_images,omitempty"`
	AnswerImages      []string `json:"answer_images,omitempty"`
	ExplanationImages []string `json:"explanation_images,omitempty"`

	Anomalies []Anomaly `json:"anomalies"`
	RawText   string    `json:"raw_text"`
}

// HasQuestionText reports whether the question body has non-empty text.
func (q *ParsedQuestion) HasQuestionText() bool {
	return strings.TrimSpace(q.QuestionText) != ""
}

// HasAnswer reports whether the answer section has non-empty text.
func (q *ParsedQuestion) HasAnswer() bool {
	return strings.TrimSpace(q.AnswerText) != ""
}

// HasExplanation reports whether the explanation section has non-empty text.
func (q *ParsedQuestion) HasExplanation() bool {
	return strings.TrimSpace(q.ExplanationText) != ""
}

// AnomalyScore aggregates anomaly severities, capped at 100.
func (q *ParsedQuestion) AnomalyScore() int {
	score := 0
	for _, a := range q.Anomalies {
		score += a.Severity
	}
	if score > 100 {
		score = 100
	}
	return score
}

// ImageCount returns the total number of images across all sections and
// options.
func (q *ParsedQuestion) ImageCount() int {
	n := len(q.QuestionImages) + len(q.AnswerImages) + len(q.ExplanationImages)
	for _, opt := range q.Options {
		n += len(opt.Images)
	}
	return n
}
