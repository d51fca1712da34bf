package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/examkit/examkit/internal/model"
)

// InsertQuestion writes a question with its options and images in one
// transaction. Callers pair it with DeleteQuestionByNumber for idempotent
// replace-by-number semantics.
func (s *Store) InsertQuestion(ctx context.Context, examID string, q *model.ParsedQuestion) error {
	anomalies, err := json.Marshal(q.Anomalies)
	if err != nil {
		return fmt.Errorf("failed to marshal anomalies: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin question tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO questions (exam_id, question_number, question_type,
			question_text, answer_text, explanation_text, page_start, page_end,
			raw_text, anomalies_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		examID, q.QuestionNumber, string(q.QuestionType), q.QuestionText,
		q.AnswerText, q.ExplanationText, q.PageStart, q.PageEnd, q.RawText,
		string(anomalies),
	)
	if err != nil {
		return fmt.Errorf("failed to insert question %d: %w", q.QuestionNumber, err)
	}
	questionID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read question id: %w", err)
	}

	for _, opt := range q.Options {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO options (question_id, option_key, option_text, is_correct)
			 VALUES (?, ?, ?, ?)`,
			questionID, opt.Key, opt.Text, boolToInt(opt.IsCorrect))
		if err != nil {
			return fmt.Errorf("failed to insert option %s: %w", opt.Key, err)
		}
		for _, img := range opt.Images {
			if err := insertImage(ctx, tx, questionID, "option", opt.Key, img); err != nil {
				return err
			}
		}
	}

	sections := []struct {
		name   string
		images []string
	}{
		{"question", q.QuestionImages},
		{"answer", q.AnswerImages},
		{"explanation", q.ExplanationImages},
	}
	for _, sec := range sections {
		for _, img := range sec.images {
			if err := insertImage(ctx, tx, questionID, sec.name, "", img); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func insertImage(ctx context.Context, tx *sql.Tx, questionID int64, section, optionKey, path string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO question_images (question_id, section, option_key, image_path)
		 VALUES (?, ?, ?, ?)`,
		questionID, section, optionKey, path)
	if err != nil {
		return fmt.Errorf("failed to insert image ref: %w", err)
	}
	return nil
}

// DeleteQuestionByNumber deletes any stored question for (exam, number).
func (s *Store) DeleteQuestionByNumber(ctx context.Context, examID string, number int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM questions WHERE exam_id = ? AND question_number = ?`,
		examID, number)
	if err != nil {
		return fmt.Errorf("failed to delete question %d: %w", number, err)
	}
	return nil
}

// DeleteQuestionsFromPage deletes questions whose page_start is at or past
// the given page. Used on resume to drop partial work from an interrupted
// page.
func (s *Store) DeleteQuestionsFromPage(ctx context.Context, examID string, page int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM questions WHERE exam_id = ? AND page_start >= ?`,
		examID, page)
	if err != nil {
		return fmt.Errorf("failed to delete questions from page %d: %w", page, err)
	}
	return nil
}

// CountQuestions returns the number of stored questions for an exam.
func (s *Store) CountQuestions(ctx context.Context, examID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = ?`, examID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return n, nil
}

// GetQuestions returns all stored questions for an exam, hydrated with
// options and image references, ordered by question number.
func (s *Store) GetQuestions(ctx context.Context, examID string) ([]model.ParsedQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_number, question_type, question_text, answer_text,
			explanation_text, page_start, page_end, raw_text, anomalies_json
		 FROM questions WHERE exam_id = ? ORDER BY question_number, id`,
		examID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.ParsedQuestion
	var ids []int64
	for rows.Next() {
		var id int64
		var q model.ParsedQuestion
		var qType, anomalies string
		if err := rows.Scan(&id, &q.QuestionNumber, &qType, &q.QuestionText,
			&q.AnswerText, &q.ExplanationText, &q.PageStart, &q.PageEnd,
			&q.RawText, &anomalies); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.QuestionType = model.QuestionType(qType)
		if err := json.Unmarshal([]byte(anomalies), &q.Anomalies); err != nil {
			return nil, fmt.Errorf("failed to decode anomalies: %w", err)
		}
		questions = append(questions, q)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if err := s.hydrate(ctx, id, &questions[i]); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

// hydrate attaches options and image references to one question.
func (s *Store) hydrate(ctx context.Context, questionID int64, q *model.ParsedQuestion) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT option_key, option_text, is_correct FROM options
		 WHERE question_id = ? ORDER BY option_key`, questionID)
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	for rows.Next() {
		var opt model.QuestionOption
		var correct int
		if err := rows.Scan(&opt.Key, &opt.Text, &correct); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan option: %w", err)
		}
		opt.IsCorrect = correct != 0
		q.Options = append(q.Options, opt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	imgRows, err := s.db.QueryContext(ctx,
		`SELECT section, option_key, image_path FROM question_images
		 WHERE question_id = ? ORDER BY id`, questionID)
	if err != nil {
		return fmt.Errorf("failed to query images: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var section, optionKey, path string
		if err := imgRows.Scan(&section, &optionKey, &path); err != nil {
			return fmt.Errorf("failed to scan image ref: %w", err)
		}
		switch section {
		case "question":
			q.QuestionImages = append(q.QuestionImages, path)
		case "answer":
			q.AnswerImages = append(q.AnswerImages, path)
		case "explanation":
			q.ExplanationImages = append(q.ExplanationImages, path)
		case "option":
			for i := range q.Options {
				if q.Options[i].Key == optionKey {
					q.Options[i].Images = append(q.Options[i].Images, path)
					break
				}
			}
		}
	}
	if err := imgRows.Err(); err != nil {
		return err
	}

	sort.Slice(q.Options, func(i, j int) bool { return q.Options[i].Key < q.Options[j].Key })
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
