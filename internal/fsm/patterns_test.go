package fsm

import (
	"reflect"
	"testing"
)

func TestQuestionAnchor(t *testing.T) {
	tests := []struct {
		line  string
		num   string
		match bool
	}{
		{"Question: 12 What follows", "12", true},
		{"Question 7", "7", true},
		{"question:3", "3", true},
		{"42. leading number form", "42", true},
		{"  9 ", "9", true},
		{"What is question 5 about?", "", false},
		{"Answer: B", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m := questionPattern.FindStringSubmatch(tt.line)
			if (m != nil) != tt.match {
				t.Fatalf("match = %v, want %v", m != nil, tt.match)
			}
			if tt.match && m[1] != tt.num {
				t.Errorf("captured %q, want %q", m[1], tt.num)
			}
		})
	}
}

func TestAnswerAnchor(t *testing.T) {
	tests := []struct {
		line  string
		match bool
	}{
		{"Answer: B", true},
		{"Correct Answer: A, C", true},
		{"Ans. D", true},
		{"Key: B", true},
		{"answer b", true},
		{"The answer lies elsewhere", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := answerPattern.MatchString(tt.line); got != tt.match {
				t.Errorf("match = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestExplanationAnchor(t *testing.T) {
	tests := []struct {
		line  string
		match bool
	}{
		{"Explanation: because", true},
		{"Reference: AWS docs", true},
		{"Rationale:", true},
		{"This explains nothing", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := explanationPattern.MatchString(tt.line); got != tt.match {
				t.Errorf("match = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestIsNoise(t *testing.T) {
	tests := []struct {
		line  string
		noise bool
	}{
		{"Questions and Answers PDF 2024", true},
		{"8/528", true},
		{"Page 12 of 300", true},
		{"Question 5", true},
		{"https://www.examtopics.com/exams/amazon/", true},
		{"Box 1: select the service", true},
		{"Select and Place:", true},
		{"Thank you for your visit.", true},
		{"Visit us at our website", true},
		{"For more questions contact support", true},
		{"Get certified today", true},
		{"Download free dumps", true},
		{"Question: 5 What is S3?", false},
		{"A. Object storage", false},
		{"The instance stores 8 of 10 volumes", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := isNoise(tt.line); got != tt.noise {
				t.Errorf("isNoise(%q) = %v, want %v", tt.line, got, tt.noise)
			}
		})
	}
}

func TestScanRawAnchors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{
			name: "mixed forms",
			text: "Question 3\nsome text\nQuestion: 4 more text",
			want: []int{3, 4},
		},
		{
			name: "start of text",
			text: "Question:17 body",
			want: []int{17},
		},
		{
			name: "mid-line mention ignored",
			text: "see Question 9 for details",
			want: nil,
		},
		{
			name: "no anchors",
			text: "plain prose without anchors",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScanRawAnchors(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
