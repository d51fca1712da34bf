package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/avast/retry-go/v4"

	"github.com/examkit/examkit/internal/blocks"
	"github.com/examkit/examkit/internal/fsm"
	"github.com/examkit/examkit/internal/imagestore"
	"github.com/examkit/examkit/internal/model"
	"github.com/examkit/examkit/internal/pdfsrc"
	"github.com/examkit/examkit/internal/store"
	"github.com/examkit/examkit/internal/validate"
)

// maxErrorLen bounds the error text persisted on failure.
const maxErrorLen = 5000

// persistAttempts is the retry budget for per-question writes; SQLite can
// report transient busy errors under concurrent exams.
const persistAttempts = 3

// Config configures a checkpointed worker for one exam.
type Config struct {
	ExamID string
	Source pdfsrc.Source
	Store  *store.Store
	Images *imagestore.Store

	// Blocks tunes the normalizer.
	Blocks blocks.Config

	// StartPage is the 1-indexed page to start from. Values above 1
	// trigger the replay-based resume protocol; 0 or 1 start fresh.
	StartPage int

	Logger *slog.Logger
}

// Worker processes one exam document page by page. Processing is strictly
// sequential: the state machine is order-dependent, so there is no
// parallelism inside one exam. Cancellation is cooperative and polled at
// page boundaries only; a page in flight always completes.
type Worker struct {
	cfg    Config
	logger *slog.Logger

	stop atomic.Bool
	done chan struct{}
}

// New validates config and creates a worker. Run must be called to start.
func New(cfg Config) (*Worker, error) {
	if cfg.ExamID == "" {
		return nil, fmt.Errorf("exam id is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("page source is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("image store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Worker{
		cfg:    cfg,
		logger: cfg.Logger.With("exam_id", cfg.ExamID),
		done:   make(chan struct{}),
	}, nil
}

// RequestStop signals the worker to stop gracefully after the current
// page. The checkpoint stays at the last fully committed page.
func (w *Worker) RequestStop() {
	w.stop.Store(true)
}

// Done is closed when the worker exits.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run executes the page loop until completion, pause, or failure. Any
// unhandled failure transitions the job to failed, preserving everything
// already committed.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	if err := w.run(ctx); err != nil {
		msg := err.Error()
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}
		w.logger.Error("parsing failed", "error", err)
		if uerr := w.cfg.Store.UpdateExam(context.Background(), w.cfg.ExamID, map[string]any{
			"status":     string(model.JobFailed),
			"last_error": msg,
		}); uerr != nil {
			w.logger.Error("failed to persist failure status", "error", uerr)
		}
	}
}

func (w *Worker) run(ctx context.Context) error {
	st := w.cfg.Store

	if err := st.UpdateExam(ctx, w.cfg.ExamID, map[string]any{
		"status":     string(model.JobProcessing),
		"last_error": "",
	}); err != nil {
		return fmt.Errorf("failed to mark exam processing: %w", err)
	}

	totalPages := w.cfg.Source.PageCount()
	if err := st.UpdateExam(ctx, w.cfg.ExamID, map[string]any{"total_pages": totalPages}); err != nil {
		return fmt.Errorf("failed to persist page count: %w", err)
	}

	normalizer := blocks.NewNormalizer(w.cfg.ExamID, w.cfg.Images, w.cfg.Blocks)
	machine := fsm.New(w.logger)

	// rawDetected maps question number to the first page mentioning it,
	// built from raw text across replay and the main loop.
	rawDetected := make(map[int]int)

	processFrom := w.cfg.StartPage
	if processFrom < 1 {
		processFrom = 1
	}

	w.logger.Info("starting parse", "total_pages", totalPages, "start_page", processFrom)

	// Replay phase: rebuild normalizer caches and machine state for
	// pages before the checkpoint, discarding output. Deterministic
	// because neither component holds non-reproducible state.
	if processFrom > 1 {
		if err := w.replay(ctx, normalizer, machine, rawDetected, processFrom-1); err != nil {
			return err
		}
	}

	// Drop partial work from the page the previous run was interrupted
	// on before writing it again.
	if err := st.DeleteQuestionsFromPage(ctx, w.cfg.ExamID, processFrom); err != nil {
		return err
	}

	for pageNum := processFrom; pageNum <= totalPages; pageNum++ {
		if stopped, err := w.checkStop(ctx); err != nil {
			return err
		} else if stopped {
			w.logger.Info("paused", "page", pageNum)
			return nil
		}

		finalized, err := w.processPage(ctx, normalizer, machine, rawDetected, pageNum)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNum, err)
		}

		for i := range finalized {
			if err := w.persistQuestion(ctx, &finalized[i]); err != nil {
				return fmt.Errorf("page %d: %w", pageNum, err)
			}
		}

		// Checkpoint advances only after every question write landed.
		if err := st.UpdateExam(ctx, w.cfg.ExamID, map[string]any{"current_page": pageNum}); err != nil {
			return fmt.Errorf("failed to advance checkpoint to page %d: %w", pageNum, err)
		}

		if len(finalized) > 0 {
			w.logger.Info("page committed",
				"page", pageNum, "of", totalPages, "questions", len(finalized))
		}
	}

	return w.complete(ctx, machine, rawDetected, totalPages)
}

// checkStop polls the in-process stop flag and the persisted job status.
// Returns true when the worker should stop; the paused status is
// persisted with current_page untouched.
func (w *Worker) checkStop(ctx context.Context) (bool, error) {
	externalPause := false
	if !w.stop.Load() && ctx.Err() == nil {
		job, err := w.cfg.Store.GetExam(ctx, w.cfg.ExamID)
		if err != nil {
			return false, err
		}
		if job == nil {
			return true, fmt.Errorf("exam %s disappeared from store", w.cfg.ExamID)
		}
		if job.Status == model.JobProcessing {
			return false, nil
		}
		externalPause = true
		w.logger.Info("external status change observed", "status", job.Status)
	}

	if !externalPause {
		// Background context: the pause write must land even when the
		// stop came from context cancellation.
		if err := w.cfg.Store.UpdateExam(context.Background(), w.cfg.ExamID, map[string]any{
			"status": string(model.JobPaused),
		}); err != nil {
			return true, err
		}
	}
	return true, nil
}

// processPage runs one page through normalizer and machine, returning
// questions finalized during the page.
func (w *Worker) processPage(
	ctx context.Context,
	normalizer *blocks.Normalizer,
	machine *fsm.Machine,
	rawDetected map[int]int,
	pageNum int,
) ([]model.ParsedQuestion, error) {
	page, err := w.cfg.Source.Page(ctx, pageNum)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page: %w", err)
	}

	w.scanRaw(page, rawDetected)
	if page.ImageErrs > 0 {
		w.logger.Warn("undecodable images on page", "page", pageNum, "count", page.ImageErrs)
	}

	blks, err := normalizer.NormalizePage(ctx, page)
	if err != nil {
		return nil, err
	}

	prev := len(machine.Questions())
	for _, b := range blks {
		machine.Process(b)
	}
	return machine.Questions()[prev:], nil
}

// scanRaw records question anchors found in the page's raw text, before
// any normalization or structural parsing.
func (w *Worker) scanRaw(page *pdfsrc.Page, rawDetected map[int]int) {
	var sb strings.Builder
	for _, tb := range page.TextBlocks {
		for _, run := range tb.Runs {
			sb.WriteString(run.Text)
			sb.WriteByte('\n')
		}
	}
	for _, num := range fsm.ScanRawAnchors(sb.String()) {
		if _, seen := rawDetected[num]; !seen {
			rawDetected[num] = page.Number
		}
	}
}

// replay re-runs pages 1..upTo through the pipeline without persisting,
// reconstructing in-memory state as of the checkpoint boundary.
func (w *Worker) replay(
	ctx context.Context,
	normalizer *blocks.Normalizer,
	machine *fsm.Machine,
	rawDetected map[int]int,
	upTo int,
) error {
	w.logger.Info("replaying pages to rebuild parser state", "through", upTo)

	for pageNum := 1; pageNum <= upTo; pageNum++ {
		if _, err := w.processPage(ctx, normalizer, machine, rawDetected, pageNum); err != nil {
			return fmt.Errorf("replay page %d: %w", pageNum, err)
		}
	}

	w.logger.Info("replay complete", "questions", len(machine.Questions()))
	return nil
}

// persistQuestion writes one question idempotently: delete any existing
// row for (exam, number), then insert. Retried so a transiently busy
// database does not fail the whole run.
func (w *Worker) persistQuestion(ctx context.Context, q *model.ParsedQuestion) error {
	return retry.Do(
		func() error {
			if err := w.cfg.Store.DeleteQuestionByNumber(ctx, w.cfg.ExamID, q.QuestionNumber); err != nil {
				return err
			}
			return w.cfg.Store.InsertQuestion(ctx, w.cfg.ExamID, q)
		},
		retry.Attempts(persistAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// complete finalizes the in-flight question, runs validation with the
// raw-anchor cross-check, and marks the job completed.
func (w *Worker) complete(
	ctx context.Context,
	machine *fsm.Machine,
	rawDetected map[int]int,
	totalPages int,
) error {
	prev := len(machine.Questions())
	machine.Finalize()
	for i := prev; i < len(machine.Questions()); i++ {
		q := machine.Questions()[i]
		if err := w.persistQuestion(ctx, &q); err != nil {
			return err
		}
	}

	questions := machine.Questions()
	report := validate.Run(questions)
	detail := validate.BuildDetail(questions, rawDetected, report, totalPages)

	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode validation detail: %w", err)
	}

	if err := w.cfg.Store.UpdateExam(ctx, w.cfg.ExamID, map[string]any{
		"status":          string(model.JobCompleted),
		"current_page":    totalPages,
		"total_questions": len(questions),
		"validation_json": string(detailJSON),
	}); err != nil {
		return fmt.Errorf("failed to mark exam completed: %w", err)
	}

	w.logger.Info("parse completed",
		"questions", len(questions),
		"pages", totalPages,
		"success_rate", report.SuccessRate())
	return nil
}
