package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/libs/db"
	"github.com/JanselSanchez/bot-suite-sub000/services/scheduler-service/internal/outbox"
)

const (
	reminderEventType = "reminder"
	reminderTopic     = "booking.reminder.v1"
)

// Worker polls reminder_jobs and turns due jobs into reminder events on the
// outbox. A job that cannot be enqueued is retried with a fixed backoff
// until max_attempts, then marked failed; delivery itself is the
// notification collaborator's problem, not ours.
type Worker struct {
	pool      *db.Pool
	repo      *Repository
	outbox    *outbox.Repository
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	backoff   time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Minute
	}
	return &Worker{
		pool:      pool,
		repo:      repo,
		outbox:    outboxRepo,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	var processed []int64
	var failed []Job
	for _, job := range due {
		if err := w.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "reminder",
			AggregateID:   job.BookingID,
			EventType:     reminderEventType,
			Topic:         reminderTopic,
			Payload:       job.Payload,
		}); err != nil {
			failed = append(failed, job)
			continue
		}
		processed = append(processed, job.ID)
	}

	if err := w.repo.MarkProcessed(ctx, tx, processed); err != nil {
		return err
	}
	for _, job := range failed {
		attempts := job.Attempts + 1
		nextRunAt := time.Now().UTC().Add(w.backoff)
		if err := w.repo.MarkFailed(ctx, tx, job.ID, attempts, job.MaxAttempts, nextRunAt, "outbox enqueue failed"); err != nil {
			return err
		}
		if attempts >= job.MaxAttempts {
			w.logger.Error("reminder dropped after max attempts",
				"booking_id", job.BookingID, "job_id", job.ID)
		}
	}

	w.logger.Info("reminders dispatched", "count", len(processed), "failed", len(failed))
	return tx.Commit(ctx)
}
