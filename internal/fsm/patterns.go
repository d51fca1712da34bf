package fsm

import (
	"regexp"
	"strconv"
)

// Anchor grammar, applied per text line. English-only, case-insensitive.
var (
	// "Question: 1", "Question 42", or a bare leading number
	questionPattern = regexp.MustCompile(`(?i)^\s*(?:Question\s*)?:?\s*(\d+)\s*`)

	// "A.", "B)", option keys
	optionPattern = regexp.MustCompile(`(?i)^\s*([A-Z])[.)]\s*`)

	// "Answer:", "Correct Answer", "Ans.", "Key:"
	answerPattern = regexp.MustCompile(`(?i)^\s*(?:Correct\s+)?(?:Answer|Ans|Key)[\s.:]*`)

	// "Explanation:", "Reference:", "Rationale:"
	explanationPattern = regexp.MustCompile(`(?i)^\s*(?:Explanation|Reference|Rationale)\s*:?\s*`)
)

// RawQuestionAnchor matches question-number anchors in raw page text. Used
// by the worker's cross-check scan, independent of structural parsing.
var RawQuestionAnchor = regexp.MustCompile(`(?i)(?:^|\n)\s*Question\s*:?\s*(\d+)`)

// noisePatterns is the denylist for headers, footers, page counters, and
// exam-dump boilerplate. Matching lines are dropped before anchor
// detection.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*Questions and Answers PDF`),
	regexp.MustCompile(`(?i)^\s*(Page\s*)?\d+\s*(/|of)\s*\d+\s*$`),
	regexp.MustCompile(`^\s*Question\s*\d+\s*$`), // bare "Question 5" with no content
	regexp.MustCompile(`^https?://\S+$`),
	regexp.MustCompile(`(?i)^\s*Box\s*\d+\s*:`),
	regexp.MustCompile(`(?i)^\s*Select and Place:`),
	regexp.MustCompile(`(?i)^\s*Thank\s+you\s+for\s+your\s+visit\.?\s*$`),
	regexp.MustCompile(`(?i)^\s*Visit\s+us\s+at\b`),
	regexp.MustCompile(`(?i)^\s*For\s+more\s+questions\b`),
	regexp.MustCompile(`(?i)^\s*Get\s+certified\b`),
	regexp.MustCompile(`(?i)^\s*Download\s+free\b`),
	regexp.MustCompile(`(?i)examtopics?\.(com|org|net)`),
	regexp.MustCompile(`(?i)certification.s*prep`),
}

// answerKeyToken finds standalone capital letters in answer text; matching
// option keys are marked correct at finalization.
var answerKeyToken = regexp.MustCompile(`\b([A-Z])\b`)

// ScanRawAnchors returns every question number the raw page text appears
// to mention, in match order. No section parsing is applied; this is the
// superset signal used by the worker's cross-check.
func ScanRawAnchors(text string) []int {
	var nums []int
	for _, m := range RawQuestionAnchor.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			nums = append(nums, n)
		}
	}
	return nums
}

// isNoise reports whether a trimmed line matches the denylist.
func isNoise(line string) bool {
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
