// Package store persists exam jobs and structured questions in SQLite.
// Uses the pure-Go modernc driver via database/sql; each page's writes are
// their own transaction, bounding crash blast radius to one page.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/examkit/examkit/internal/model"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("pragma failed", "pragma", pragma, "error", err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exams (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source_pdf TEXT DEFAULT '',
			file_hash TEXT DEFAULT '',
			file_size_bytes INTEGER DEFAULT 0,
			total_pages INTEGER DEFAULT 0,
			total_questions INTEGER DEFAULT 0,
			status TEXT DEFAULT 'pending',
			current_page INTEGER DEFAULT 0,
			last_error TEXT DEFAULT '',
			validation_json TEXT DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exam_id TEXT NOT NULL,
			question_number INTEGER NOT NULL,
			question_type TEXT DEFAULT 'mcq',
			question_text TEXT DEFAULT '',
			answer_text TEXT DEFAULT '',
			explanation_text TEXT DEFAULT '',
			page_start INTEGER DEFAULT 0,
			page_end INTEGER DEFAULT 0,
			raw_text TEXT DEFAULT '',
			anomalies_json TEXT DEFAULT '[]',
			FOREIGN KEY(exam_id) REFERENCES exams(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS options (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id INTEGER NOT NULL,
			option_key TEXT NOT NULL,
			option_text TEXT DEFAULT '',
			is_correct INTEGER DEFAULT 0,
			FOREIGN KEY(question_id) REFERENCES questions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS question_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_id INTEGER NOT NULL,
			section TEXT NOT NULL,
			option_key TEXT DEFAULT '',
			image_path TEXT NOT NULL,
			FOREIGN KEY(question_id) REFERENCES questions(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_exam_id ON questions(exam_id);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_exam_number ON questions(exam_id, question_number);`,
		`CREATE INDEX IF NOT EXISTS idx_options_question_id ON options(question_id);`,
		`CREATE INDEX IF NOT EXISTS idx_images_question_id ON question_images(question_id);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return tx.Commit()
}

// CreateExam inserts a new exam job row.
func (s *Store) CreateExam(ctx context.Context, job *model.ExamJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = model.JobPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exams (id, name, source_pdf, file_hash, file_size_bytes,
			total_pages, total_questions, status, current_page, last_error,
			validation_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.SourcePDF, job.FileHash, job.FileSizeBytes,
		job.TotalPages, job.TotalQuestions, string(job.Status), job.CurrentPage,
		job.LastError, job.ValidationJSON, job.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

// GetExam fetches an exam job by id. Returns nil, nil when not found.
func (s *Store) GetExam(ctx context.Context, examID string) (*model.ExamJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source_pdf, file_hash, file_size_bytes, total_pages,
			total_questions, status, current_page, last_error, validation_json,
			created_at
		 FROM exams WHERE id = ?`, examID)
	return scanExam(row)
}

// ListExams returns all exam jobs, newest first.
func (s *Store) ListExams(ctx context.Context) ([]*model.ExamJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source_pdf, file_hash, file_size_bytes, total_pages,
			total_questions, status, current_page, last_error, validation_json,
			created_at
		 FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	defer rows.Close()

	var jobs []*model.ExamJob
	for rows.Next() {
		job, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateExam applies a field map to an exam row. Allowed keys: status,
// current_page, total_pages, total_questions, last_error, validation_json.
func (s *Store) UpdateExam(ctx context.Context, examID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	allowed := map[string]bool{
		"status": true, "current_page": true, "total_pages": true,
		"total_questions": true, "last_error": true, "validation_json": true,
	}

	set := ""
	args := make([]any, 0, len(fields)+1)
	for key, val := range fields {
		if !allowed[key] {
			return fmt.Errorf("unknown exam field %q", key)
		}
		if set != "" {
			set += ", "
		}
		set += key + " = ?"
		args = append(args, val)
	}
	args = append(args, examID)

	res, err := s.db.ExecContext(ctx, "UPDATE exams SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exam %s not found", examID)
	}
	return nil
}

// DeleteExam removes an exam and, via cascade, its questions.
func (s *Store) DeleteExam(ctx context.Context, examID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, examID); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (*model.ExamJob, error) {
	var job model.ExamJob
	var status, createdAt string
	err := row.Scan(&job.ID, &job.Name, &job.SourcePDF, &job.FileHash,
		&job.FileSizeBytes, &job.TotalPages, &job.TotalQuestions, &status,
		&job.CurrentPage, &job.LastError, &job.ValidationJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan exam: %w", err)
	}
	job.Status = model.JobStatus(status)
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &job, nil
}
