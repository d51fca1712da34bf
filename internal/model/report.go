package model

import "math"

// ValidationReport is the aggregate result of validating a finalized
// question list.
type ValidationReport struct {
	TotalQuestionsDetected      int            `json:"total_questions_detected"`
	StructuredSuccessfully      int            `json:"structured_successfully"`
	MissingQuestionNumbers      []int          `json:"missing_question_numbers"`
	DuplicateQuestionNumbers    []int          `json:"duplicate_question_numbers"`
	QuestionsMissingAnswer      []int          `json:"questions_missing_answer"`
	QuestionsMissingExplanation []int          `json:"questions_missing_explanation"`
	OrphanImages                int            `json:"orphan_images"`
	AnomalyBreakdown            map[string]int `json:"anomaly_breakdown"`
}

// SuccessRate returns the percentage of questions structured successfully,
// rounded to two decimals. Zero when no questions were detected.
func (r *ValidationReport) SuccessRate() float64 {
	if r.TotalQuestionsDetected == 0 {
		return 0
	}
	rate := float64(r.StructuredSuccessfully) / float64(r.TotalQuestionsDetected) * 100
	return math.Round(rate*100) / 100
}

// MissingQuestion is a question number seen by the raw-anchor scan but
// absent from the structured output, with a heuristic diagnosis.
type MissingQuestion struct {
	QuestionNumber int    `json:"question_number"`
	PageDetected   int    `json:"page_detected"`
	Reason         string `json:"reason"`
}

// PartialQuestion describes a structured question that is missing one or
// more sections.
type PartialQuestion struct {
	QuestionNumber  int       `json:"question_number"`
	PageStart       int       `json:"page_start"`
	PageEnd         int       `json:"page_end"`
	HasQuestionText bool      `json:"has_question_text"`
	HasAnswer       bool      `json:"has_answer"`
	HasExplanation  bool      `json:"has_explanation"`
	OptionCount     int       `json:"option_count"`
	ImageCount      int       `json:"image_count"`
	Reasons         []string  `json:"reasons"`
	Anomalies       []Anomaly `json:"anomalies"`
}

// ValidationDetail combines the structured validation report with the
// raw-anchor cross-check. The sequence-gap signal and the
// anchor-present-but-unstructured signal are deliberately kept separate;
// they measure different kinds of loss.
type ValidationDetail struct {
	Summary struct {
		RawDetectedCount          int     `json:"raw_detected_count"`
		ParsedCount               int     `json:"parsed_count"`
		FullyStructuredCount      int     `json:"fully_structured_count"`
		PartiallyStructuredCount  int     `json:"partially_structured_count"`
		MissingLostCount          int     `json:"missing_lost_count"`
		SequenceGapCount          int     `json:"sequence_gap_count"`
		DuplicateCount            int     `json:"duplicate_count"`
		TotalPages                int     `json:"total_pages"`
		SuccessRate               float64 `json:"success_rate"`
	} `json:"summary"`
	FullyStructured             []int                 `json:"fully_structured"`
	PartiallyStructured         []PartialQuestion     `json:"partially_structured"`
	MissingQuestions            []MissingQuestion     `json:"missing_questions"`
	SequenceGaps                []int                 `json:"sequence_gaps"`
	DuplicateQuestionNumbers    []int                 `json:"duplicate_question_numbers"`
	QuestionsMissingAnswer      []int                 `json:"questions_missing_answer"`
	QuestionsMissingExplanation []int                 `json:"questions_missing_explanation"`
	AnomalyBreakdown            map[string]int        `json:"anomaly_breakdown"`
	PerQuestionAnomalies        map[string][]Anomaly  `json:"per_question_anomalies"`
}
