package validate

import (
	"sort"
	"strconv"

	"github.com/examkit/examkit/internal/model"
)

// BuildDetail combines the structured validation report with the raw-anchor
// scan into the detail blob stored on the exam job.
//
// rawDetected maps question number to the first page its anchor was seen
// on. The sequence-gap signal (numbers absent from the union of raw and
// parsed sets) and the missing-question signal (anchor seen, structuring
// failed) are reported separately; they measure different losses and are
// deliberately not merged.
func BuildDetail(
	questions []model.ParsedQuestion,
	rawDetected map[int]int,
	report *model.ValidationReport,
	totalPages int,
) *model.ValidationDetail {
	detail := &model.ValidationDetail{
		FullyStructured:             []int{},
		PartiallyStructured:         []model.PartialQuestion{},
		MissingQuestions:            []model.MissingQuestion{},
		SequenceGaps:                []int{},
		DuplicateQuestionNumbers:    append([]int{}, report.DuplicateQuestionNumbers...),
		QuestionsMissingAnswer:      append([]int{}, report.QuestionsMissingAnswer...),
		QuestionsMissingExplanation: append([]int{}, report.QuestionsMissingExplanation...),
		AnomalyBreakdown:            report.AnomalyBreakdown,
		PerQuestionAnomalies:        map[string][]model.Anomaly{},
	}
	sort.Ints(detail.QuestionsMissingAnswer)
	sort.Ints(detail.QuestionsMissingExplanation)

	parsed := make(map[int]bool, len(questions))
	for _, q := range questions {
		parsed[q.QuestionNumber] = true
		if len(q.Anomalies) > 0 {
			detail.PerQuestionAnomalies[strconv.Itoa(q.QuestionNumber)] = q.Anomalies
		}

		if q.HasQuestionText() && q.HasAnswer() {
			detail.FullyStructured = append(detail.FullyStructured, q.QuestionNumber)
			continue
		}

		var reasons []string
		if !q.HasQuestionText() {
			reasons = append(reasons, "missing_question_text")
		}
		if !q.HasAnswer() {
			reasons = append(reasons, "missing_answer")
		}
		if !q.HasExplanation() {
			reasons = append(reasons, "missing_explanation")
		}
		detail.PartiallyStructured = append(detail.PartiallyStructured, model.PartialQuestion{
			QuestionNumber:  q.QuestionNumber,
			PageStart:       q.PageStart,
			PageEnd:         q.PageEnd,
			HasQuestionText: q.HasQuestionText(),
			HasAnswer:       q.HasAnswer(),
			HasExplanation:  q.HasExplanation(),
			OptionCount:     len(q.Options),
			ImageCount:      q.ImageCount(),
			Reasons:         reasons,
			Anomalies:       q.Anomalies,
		})
	}
	sort.Ints(detail.FullyStructured)

	// Anchors seen in raw text but absent from structured output.
	var missingNums []int
	for num := range rawDetected {
		if !parsed[num] {
			missingNums = append(missingNums, num)
		}
	}
	sort.Ints(missingNums)
	for _, num := range missingNums {
		page := rawDetected[num]
		detail.MissingQuestions = append(detail.MissingQuestions, model.MissingQuestion{
			QuestionNumber: num,
			PageDetected:   page,
			Reason:         diagnoseMissing(num, page, rawDetected),
		})
	}

	// Sequence gaps over the union of raw and parsed numbers.
	union := make(map[int]bool, len(rawDetected)+len(parsed))
	for num := range rawDetected {
		union[num] = true
	}
	for num := range parsed {
		union[num] = true
	}
	if len(union) > 0 {
		minNum, maxNum := 0, 0
		first := true
		for num := range union {
			if first || num < minNum {
				minNum = num
			}
			if first || num > maxNum {
				maxNum = num
			}
			first = false
		}
		for num := minNum; num <= maxNum; num++ {
			if !union[num] {
				detail.SequenceGaps = append(detail.SequenceGaps, num)
			}
		}
	}

	detail.Summary.RawDetectedCount = len(rawDetected)
	detail.Summary.ParsedCount = len(questions)
	detail.Summary.FullyStructuredCount = len(detail.FullyStructured)
	detail.Summary.PartiallyStructuredCount = len(detail.PartiallyStructured)
	detail.Summary.MissingLostCount = len(detail.MissingQuestions)
	detail.Summary.SequenceGapCount = len(detail.SequenceGaps)
	detail.Summary.DuplicateCount = len(detail.DuplicateQuestionNumbers)
	detail.Summary.TotalPages = totalPages
	detail.Summary.SuccessRate = report.SuccessRate()

	return detail
}

// diagnoseMissing guesses why an anchor-detected question produced no
// structured entity.
func diagnoseMissing(num, page int, rawDetected map[int]int) string {
	soleOnPage := true
	for other, p := range rawDetected {
		if other != num && p == page {
			soleOnPage = false
			break
		}
	}
	if soleOnPage {
		return "sole anchor on its page; likely non-standard formatting or a page-boundary split"
	}
	return "anchor found in raw text but structuring failed; likely malformed layout or header/footer noise"
}
