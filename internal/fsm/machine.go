// Package fsm implements the anchor-driven state machine that turns an
// ordered content-block stream into structured question entities with
// strict media ownership.
package fsm

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/examkit/examkit/internal/model"
)

// State is the machine's current section context.
type State string

const (
	StateSeekingQuestion State = "SEEKING_QUESTION"
	StateQuestionBody    State = "QUESTION_BODY"
	StateOption          State = "OPTION"
	StateAnswer          State = "ANSWER"
	StateExplanation     State = "EXPLANATION"
)

// Machine consumes content blocks in stream order and emits finalized
// questions. All state is reproducible from the block sequence alone: the
// same stream always yields the same machine state, which is what makes
// replay-based resume sound.
//
// Not safe for concurrent use; one machine per document pass.
type Machine struct {
	state     State
	current   *model.ParsedQuestion
	option    *model.QuestionOption
	questions []model.ParsedQuestion
	seen      map[int]bool
	logger    *slog.Logger
}

// New creates a machine in SEEKING_QUESTION.
func New(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		state:  StateSeekingQuestion,
		seen:   make(map[int]bool),
		logger: logger,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Questions returns the finalized questions emitted so far. The returned
// slice is the machine's output list; callers must not mutate entries.
func (m *Machine) Questions() []model.ParsedQuestion {
	return m.questions
}

// InFlight reports whether a question is currently being accumulated.
func (m *Machine) InFlight() bool {
	return m.current != nil
}

// Finalize closes any in-flight question at end of stream.
func (m *Machine) Finalize() {
	if m.current != nil {
		m.finalizeQuestion()
	}
}

// Process feeds one content block through the machine.
func (m *Machine) Process(block model.ContentBlock) {
	if block.Type == model.BlockImage {
		m.assignImage(block)
		return
	}

	for _, raw := range strings.Split(block.Content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isNoise(line) {
			continue
		}
		m.processLine(line, block.PageNumber)
	}
	if m.current != nil && block.PageNumber > m.current.PageEnd {
		m.current.PageEnd = block.PageNumber
	}
}

// processLine applies anchor detection to one text line, falling through
// to content accumulation.
func (m *Machine) processLine(line string, pageNum int) {
	if loc := questionPattern.FindStringSubmatchIndex(line); loc != nil {
		num, _ := strconv.Atoi(line[loc[2]:loc[3]])
		m.startQuestion(num, pageNum)
		if rest := strings.TrimSpace(line[loc[1]:]); rest != "" {
			m.appendText(rest)
		}
		return
	}

	if m.current == nil {
		return
	}

	if loc := optionPattern.FindStringSubmatchIndex(line); loc != nil &&
		(m.state == StateQuestionBody || m.state == StateOption) {
		key := strings.ToUpper(line[loc[2]:loc[3]])
		m.startOption(key)
		if rest := strings.TrimSpace(line[loc[1]:]); rest != "" {
			m.appendText(rest)
		}
		return
	}

	if loc := answerPattern.FindStringIndex(line); loc != nil {
		m.state = StateAnswer
		m.option = nil
		if rest := strings.TrimSpace(line[loc[1]:]); rest != "" {
			m.appendText(rest)
		}
		return
	}

	if loc := explanationPattern.FindStringIndex(line); loc != nil {
		m.state = StateExplanation
		m.option = nil
		if rest := strings.TrimSpace(line[loc[1]:]); rest != "" {
			m.appendText(rest)
		}
		return
	}

	m.appendText(line)
}

// startQuestion finalizes any in-flight question and begins a new one.
func (m *Machine) startQuestion(num, pageNum int) {
	if m.current != nil {
		m.finalizeQuestion()
	}

	m.logger.Debug("question detected", "number", num, "page", pageNum)

	m.current = &model.ParsedQuestion{
		QuestionNumber: num,
		QuestionType:   model.QuestionMCQ,
		PageStart:      pageNum,
		PageEnd:        pageNum,
	}
	m.option = nil
	m.state = StateQuestionBody

	if m.seen[num] {
		m.current.Anomalies = append(m.current.Anomalies, model.Anomaly{
			Type:     model.AnomalyDuplicateQuestionNumber,
			Severity: 50,
			Message:  "question number seen earlier in the document",
		})
	}
	m.seen[num] = true
}

func (m *Machine) startOption(key string) {
	m.state = StateOption
	m.current.Options = append(m.current.Options, model.QuestionOption{Key: key})
	m.option = &m.current.Options[len(m.current.Options)-1]
}

// appendText space-appends a line to whatever section the current state
// targets, and records it in the question's raw text.
func (m *Machine) appendText(text string) {
	if m.current == nil {
		return
	}

	join := func(existing string) string {
		if existing == "" {
			return text
		}
		return existing + " " + text
	}

	switch m.state {
	case StateQuestionBody:
		m.current.QuestionText = join(m.current.QuestionText)
	case StateOption:
		if m.option != nil {
			m.option.Text = join(m.option.Text)
		}
	case StateAnswer:
		m.current.AnswerText = join(m.current.AnswerText)
	case StateExplanation:
		m.current.ExplanationText = join(m.current.ExplanationText)
	}

	m.current.RawText = join(m.current.RawText)
}

// assignImage gives an image block to the section implied by the current
// state. Images seen before any question are dropped; assignments never
// move afterwards.
func (m *Machine) assignImage(block model.ContentBlock) {
	if m.current == nil {
		m.logger.Debug("dropping pre-question image", "page", block.PageNumber)
		return
	}

	ref := block.Content
	switch m.state {
	case StateQuestionBody:
		m.current.QuestionImages = append(m.current.QuestionImages, ref)
	case StateOption:
		if m.option != nil {
			m.option.Images = append(m.option.Images, ref)
		} else {
			m.current.QuestionImages = append(m.current.QuestionImages, ref)
		}
	case StateAnswer:
		m.current.AnswerImages = append(m.current.AnswerImages, ref)
	case StateExplanation:
		m.current.ExplanationImages = append(m.current.ExplanationImages, ref)
	}

	if block.PageNumber > m.current.PageEnd {
		m.current.PageEnd = block.PageNumber
	}
}

// finalizeQuestion validates the in-flight question and appends it to the
// output list. The list is append-only; questions are never mutated after
// this point.
func (m *Machine) finalizeQuestion() {
	q := m.current

	// Drop ghost options: no text and no images.
	kept := q.Options[:0]
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Text) != "" || len(opt.Images) > 0 {
			kept = append(kept, opt)
		}
	}
	q.Options = kept

	// Clear boilerplate that leaked into the explanation.
	if trimmed := strings.TrimSpace(q.ExplanationText); trimmed != "" && isNoise(trimmed) {
		q.ExplanationText = ""
	}

	if !q.HasQuestionText() {
		q.Anomalies = append(q.Anomalies, model.Anomaly{
			Type:     model.AnomalyMissingQuestionText,
			Severity: 80,
			Message:  "question has no text content",
		})
	}

	if !q.HasAnswer() {
		q.Anomalies = append(q.Anomalies, model.Anomaly{
			Type:     model.AnomalyMissingAnswer,
			Severity: 60,
			Message:  "question has no answer section",
		})
		if q.HasExplanation() {
			q.Anomalies = append(q.Anomalies, model.Anomaly{
				Type:     model.AnomalyExplanationWithoutAnswer,
				Severity: 40,
				Message:  "explanation present without an answer",
			})
		}
	} else {
		keys := answerKeyToken.FindAllStringSubmatch(strings.ToUpper(q.AnswerText), -1)
		for _, match := range keys {
			for i := range q.Options {
				if q.Options[i].Key == match[1] {
					q.Options[i].IsCorrect = true
				}
			}
		}
	}

	if !q.HasQuestionText() && len(q.QuestionImages) > 0 {
		q.Anomalies = append(q.Anomalies, model.Anomaly{
			Type:     model.AnomalyOrphanImage,
			Severity: 30,
			Message:  "question body contains only images",
			Context:  map[string]string{"section": "question"},
		})
	}

	m.questions = append(m.questions, *q)
	m.current = nil
	m.option = nil
}
