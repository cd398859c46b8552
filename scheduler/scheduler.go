package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/entity"
	"github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/infra/produce"
	"github.com/auroramedia/gramflow/repository"
)

// accountNotConfiguredMsg is the terminal, non-retriable failure recorded
// for a job whose account key has no usable credentials. No remote call is
// made for such jobs.
const accountNotConfiguredMsg = "account not configured"

// JobStore is the slice of the job repository the scheduler needs.
type JobStore interface {
	FindDue(now time.Time, limit int) ([]entity.PostJob, error)
	ClaimForPublish(id uuid.UUID) (bool, error)
	Update(job *entity.PostJob) error
}

// Publisher drives one job's remote publish protocol to completion.
type Publisher interface {
	Publish(ctx context.Context, acc config.AccountConfig, job *entity.PostJob) (string, error)
}

// EventSink receives job lifecycle events. Optional.
type EventSink interface {
	PublishPostEvent(ctx context.Context, msg produce.PostEventMessage) error
}

// Lease serializes ticks across scheduler replicas. Optional; the in-process
// mutex already serializes ticks within one process.
type Lease interface {
	TryAcquire(ctx context.Context) (func(), bool, error)
}

// Scheduler is the only mutator of job state after creation. Each tick scans
// for due queued jobs and drives them through the publisher sequentially;
// done and failed are terminal, retry is an explicit re-enqueue elsewhere.
type Scheduler struct {
	Store     JobStore
	Publisher Publisher
	Accounts  config.AccountMap
	Logger    *infra.LoggerClient
	Events    EventSink
	Lease     Lease

	TickInterval time.Duration
	TickLimit    int

	// Now is the tick clock; tests bind a controlled one.
	Now func() time.Time

	mu sync.Mutex
}

// New wires the production scheduler from the shared infra and repository.
func New(cfg *config.Config, inf *infra.Infra, repo *repository.Repository) *Scheduler {
	return &Scheduler{
		Store:        repo.PostJobRepo,
		Publisher:    inf.Graph,
		Accounts:     cfg.Accounts,
		Logger:       inf.Logger,
		Events:       inf.Produce.SchedulerService,
		Lease:        infra.NewTickLease(inf.Redis, cfg.EnvConfig.Instagram.PollTimeout+time.Minute),
		TickInterval: cfg.EnvConfig.Scheduler.TickInterval,
		TickLimit:    cfg.EnvConfig.Scheduler.TickLimit,
		Now:          time.Now,
	}
}

// Start runs the fixed-interval tick loop until ctx is cancelled. A tick
// that is still running when the next interval fires makes the new tick a
// no-op (skip, not queue): overlapping ticks would double-process jobs.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	s.Logger.InfoWithContextf(ctx, "[Scheduler] Started, tick every %s, limit %d", s.TickInterval, s.TickLimit)

	for {
		if _, err := s.RunTick(ctx); err != nil {
			s.Logger.ErrorWithContextf(ctx, err, "[Scheduler] Tick failed")
		}

		select {
		case <-ctx.Done():
			s.Logger.InfoWithContextf(ctx, "[Scheduler] Shutting down")
			return
		case <-ticker.C:
		}
	}
}

// RunTick executes one due-scan-and-process cycle and returns how many jobs
// were persisted in a terminal state. It is safe to call from the HTTP run endpoint
// and the trigger consumer; concurrent callers are serialized by skipping.
func (s *Scheduler) RunTick(ctx context.Context) (int, error) {
	if !s.mu.TryLock() {
		s.Logger.WarningWithContextf(ctx, "[Scheduler] Tick still running, skipping")
		return 0, nil
	}
	defer s.mu.Unlock()

	if s.Lease != nil {
		release, ok, err := s.Lease.TryAcquire(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire tick lease: %w", err)
		}
		if !ok {
			s.Logger.WarningWithContextf(ctx, "[Scheduler] Tick lease held elsewhere, skipping")
			return 0, nil
		}
		defer release()
	}

	now := s.Now().UTC()
	due, err := s.Store.FindDue(now, s.TickLimit)
	if err != nil {
		return 0, fmt.Errorf("due scan failed: %w", err)
	}

	// Sequential on purpose: bounds outbound call concurrency against the
	// Graph API and keeps log attribution per job readable.
	processed := 0
	for i := range due {
		job := due[i]
		if s.processJob(ctx, &job) {
			processed++
		}
	}
	return processed, nil
}

// processJob drives one job through claim -> account lookup -> publish and
// writes the terminal state back. Every failure is absorbed here; nothing
// escapes to abort the tick or affect the next job. Reports whether a
// terminal state was persisted to the store, not just reached in memory.
func (s *Scheduler) processJob(ctx context.Context, job *entity.PostJob) bool {
	claimed, err := s.Store.ClaimForPublish(job.ID)
	if err != nil {
		s.Logger.ErrorWithContextf(ctx, err, "[Scheduler] Failed to claim job %s", job.ID)
		return false
	}
	if !claimed {
		// Advanced by someone else since the scan; leave it alone.
		return false
	}
	job.Status = entity.PostJobStatusPublishing
	job.Attempts++

	acc, ok := s.Accounts.Lookup(job.Account)
	if !ok {
		s.Logger.WarningWithContextf(ctx, "[Scheduler] Job %s: account %q not configured", job.ID, job.Account)
		return s.finishFailed(ctx, job, accountNotConfiguredMsg, nil)
	}

	s.Logger.InfoWithContextf(ctx, "[Scheduler] Job %s: publishing %s to %q (attempt %d)", job.ID, job.MediaType, job.Account, job.Attempts)

	mediaID, err := s.Publisher.Publish(ctx, acc, job)
	if err != nil {
		msg := err.Error()
		var payload datatypes.JSON
		var perr *infra.PublishError
		if errors.As(err, &perr) {
			if len(perr.Payload) > 0 {
				payload = datatypes.JSON(perr.Payload)
			}
			if perr.TokenExpired() {
				msg = fmt.Sprintf("access token expired or revoked for account %q, rotate token: %s", job.Account, msg)
			}
		}
		s.Logger.ErrorWithContextf(ctx, err, "[Scheduler] Job %s: publish failed", job.ID)
		return s.finishFailed(ctx, job, msg, payload)
	}

	job.Status = entity.PostJobStatusDone
	job.ExternalMediaID = mediaID
	job.LastError = ""
	job.LastErrorPayload = nil
	if err := s.Store.Update(job); err != nil {
		s.Logger.ErrorWithContextf(ctx, err, "[Scheduler] Job %s: failed to persist done state", job.ID)
		return false
	}

	s.Logger.InfoWithContextf(ctx, "[Scheduler] Job %s: published as %s", job.ID, mediaID)
	s.emit(ctx, job)
	return true
}

func (s *Scheduler) finishFailed(ctx context.Context, job *entity.PostJob, message string, payload datatypes.JSON) bool {
	job.Status = entity.PostJobStatusFailed
	job.LastError = message
	job.LastErrorPayload = payload
	if err := s.Store.Update(job); err != nil {
		s.Logger.ErrorWithContextf(ctx, err, "[Scheduler] Job %s: failed to persist failed state", job.ID)
		return false
	}
	s.emit(ctx, job)
	return true
}

func (s *Scheduler) emit(ctx context.Context, job *entity.PostJob) {
	if s.Events == nil {
		return
	}
	event := produce.PostEventMessage{
		JobID:           job.ID.String(),
		Account:         job.Account,
		Status:          job.Status,
		ExternalMediaID: job.ExternalMediaID,
		Error:           job.LastError,
	}
	if err := s.Events.PublishPostEvent(ctx, event); err != nil {
		s.Logger.WarningWithContextf(ctx, "[Scheduler] Job %s: failed to emit %s event: %v", job.ID, job.Status, err)
	}
}
