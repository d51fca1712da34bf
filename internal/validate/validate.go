// Package validate aggregates finalized questions into a validation
// report, and reconciles the structured output against the raw-anchor
// cross-check scan. Pure functions, no I/O.
package validate

import (
	"sort"

	"github.com/examkit/examkit/internal/model"
)

// Run produces a validation report over the full finalized question list.
func Run(questions []model.ParsedQuestion) *model.ValidationReport {
	report := &model.ValidationReport{
		MissingQuestionNumbers:      []int{},
		DuplicateQuestionNumbers:    []int{},
		QuestionsMissingAnswer:      []int{},
		QuestionsMissingExplanation: []int{},
		AnomalyBreakdown:            map[string]int{},
	}
	if len(questions) == 0 {
		return report
	}

	report.TotalQuestionsDetected = len(questions)

	counts := make(map[int]int)
	for _, q := range questions {
		counts[q.QuestionNumber]++
	}

	minNum, maxNum := questions[0].QuestionNumber, questions[0].QuestionNumber
	for num, c := range counts {
		if c > 1 {
			report.DuplicateQuestionNumbers = append(report.DuplicateQuestionNumbers, num)
		}
		if num < minNum {
			minNum = num
		}
		if num > maxNum {
			maxNum = num
		}
	}
	sort.Ints(report.DuplicateQuestionNumbers)

	for num := minNum; num <= maxNum; num++ {
		if counts[num] == 0 {
			report.MissingQuestionNumbers = append(report.MissingQuestionNumbers, num)
		}
	}

	for _, q := range questions {
		if q.HasQuestionText() && q.HasAnswer() {
			report.StructuredSuccessfully++
		}
		if !q.HasAnswer() {
			report.QuestionsMissingAnswer = append(report.QuestionsMissingAnswer, q.QuestionNumber)
		}
		if !q.HasExplanation() {
			report.QuestionsMissingExplanation = append(report.QuestionsMissingExplanation, q.QuestionNumber)
		}
		for _, a := range q.Anomalies {
			report.AnomalyBreakdown[string(a.Type)]++
			if a.Type == model.AnomalyOrphanImage {
				report.OrphanImages++
			}
		}
	}

	return report
}
