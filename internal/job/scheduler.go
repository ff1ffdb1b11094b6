package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/logging"
)

// Scheduler enqueues tasks onto Asynq and drives the periodic triggers
// that have no natural request to hang off of (the rollback monitor
// and the resilience snapshot), generalizing the teacher's
// JobScheduler (internal/job/scheduler.go: one *asynq.Client plus one
// Enqueue* method per job type) with a robfig/cron/v3 ticker the
// teacher's package doesn't need, since its jobs are all
// request-triggered imports rather than standing sweeps.
type Scheduler struct {
	client *asynq.Client
	cron   *cron.Cron
	log    *zap.SugaredLogger
}

// NewScheduler connects to Redis at redisAddr, failing fast the way
// the teacher's NewJobScheduler does with client.Ping.
func NewScheduler(redisAddr string) (*Scheduler, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Scheduler{client: client, cron: cron.New(), log: logging.Nop()}, nil
}

// SetLogger replaces the Scheduler's logging sink.
func (s *Scheduler) SetLogger(l *zap.SugaredLogger) { s.log = l }

// EnqueueGenerateSchedule enqueues a schedule generation run.
func (s *Scheduler) EnqueueGenerateSchedule(ctx context.Context, payload GenerateSchedulePayload) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(TypeGenerateSchedule, body),
		asynq.MaxRetry(1), asynq.Timeout(defaultGenerationTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue schedule generation job: %w", err)
	}
	return info, nil
}

// EnqueueSwapAutoDetect enqueues the post-commit check for swapID,
// delayed by delay (config.Config.AutoDetectDelay). asynq.ProcessIn
// gives us the delayed-delivery semantics spec.md §4.D's sweep needs
// without a separate timer goroutine per swap.
func (s *Scheduler) EnqueueSwapAutoDetect(ctx context.Context, swapID entity.SwapRecordID, delay time.Duration) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(SwapAutoDetectPayload{SwapRecordID: swapID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(TypeSwapAutoDetect, body),
		asynq.MaxRetry(2), asynq.Timeout(30*time.Second), asynq.ProcessIn(delay))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue swap auto-detect job: %w", err)
	}
	return info, nil
}

// EnqueueSwapRollbackMonitor enqueues one sweep of every Executed swap
// record.
func (s *Scheduler) EnqueueSwapRollbackMonitor(ctx context.Context) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(SwapRollbackMonitorPayload{})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(TypeSwapRollbackMonitor, body),
		asynq.MaxRetry(1), asynq.Timeout(2*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue swap rollback monitor job: %w", err)
	}
	return info, nil
}

// EnqueueResilienceSnapshot enqueues one resilience evaluation over the
// default 7-day window starting at windowStart (zero value means
// today; the handler applies resilience.DefaultWindow).
func (s *Scheduler) EnqueueResilienceSnapshot(ctx context.Context, windowStart entity.Date) (*asynq.TaskInfo, error) {
	body, err := json.Marshal(ResilienceSnapshotPayload{WindowStart: windowStart})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(TypeResilienceSnapshot, body),
		asynq.MaxRetry(1), asynq.Timeout(1*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue resilience snapshot job: %w", err)
	}
	return info, nil
}

// StartPeriodicSweeps registers the two standing cron triggers —
// rollback monitoring and resilience snapshots — at the given cron
// specs (e.g. "*/5 * * * *") and starts the scheduler's own goroutine.
// Call Stop to halt it. A failed enqueue is logged and skipped rather
// than crashing the cron loop, since a missed tick is recovered by the
// next one.
func (s *Scheduler) StartPeriodicSweeps(rollbackMonitorSpec, resilienceSnapshotSpec string) error {
	if _, err := s.cron.AddFunc(rollbackMonitorSpec, func() {
		if _, err := s.EnqueueSwapRollbackMonitor(context.Background()); err != nil {
			s.log.Errorw("failed to enqueue periodic rollback monitor sweep", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule rollback monitor sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(resilienceSnapshotSpec, func() {
		if _, err := s.EnqueueResilienceSnapshot(context.Background(), entity.Date{}); err != nil {
			s.log.Errorw("failed to enqueue periodic resilience snapshot", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule resilience snapshot: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the periodic sweeps, waiting for any in-flight run to
// finish (cron.Cron.Stop's documented behavior).
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Close releases the Asynq client's connection.
func (s *Scheduler) Close() error {
	return s.client.Close()
}
