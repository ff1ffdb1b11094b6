// Package job wires the engine's long-running and scheduled work onto
// Asynq (github.com/hibiken/asynq): schedule generation requests large
// enough to warrant running off the request path, the post-commit swap
// auto-detection sweep of spec.md §4.D, and the periodic resilience
// snapshot of spec.md §4.E. It generalizes the teacher's
// internal/job package (JobScheduler wrapping one *asynq.Client plus a
// fixed set of Enqueue* methods, JobHandlers wrapping the service layer
// and registering against an *asynq.ServeMux) onto this module's
// domain, and adds a robfig/cron/v3 driven periodic trigger the
// teacher's package never needed.
package job

import (
	"time"

	"github.com/schedcu/residency-engine/internal/entity"
)

// Task type names, namespaced the way the teacher's job package names
// TypeODSImport/TypeAmionScrape/TypeCoverageCalc.
const (
	TypeGenerateSchedule    = "schedule:generate"
	TypeSwapAutoDetect      = "swap:autodetect"
	TypeSwapRollbackMonitor = "swap:rollback_monitor"
	TypeResilienceSnapshot  = "resilience:snapshot"
)

// GenerateSchedulePayload is the payload for TypeGenerateSchedule,
// mirroring generator.GenerationRequest's fields except Timeout, which
// the handler takes from config.Config.DefaultTimeout (the payload is a
// plain copy the handler translates, the same way the teacher's ODSImportPayload is a plain
// copy of what ODSImportService.ImportODSFile wants).
type GenerateSchedulePayload struct {
	Start          entity.Date         `json:"start"`
	End            entity.Date         `json:"end"`
	PGYLevelFilter *int                `json:"pgy_level_filter,omitempty"`
	RotationIDs    []entity.RotationID `json:"rotation_ids,omitempty"`
	Algorithm      entity.Algorithm    `json:"algorithm"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	ActorID        entity.ActorID      `json:"actor_id"`
}

// SwapAutoDetectPayload is the payload for TypeSwapAutoDetect, which
// Scheduler.EnqueueSwapAutoDetect enqueues with a delay of
// config.Config.AutoDetectDelay. Nothing in this module calls
// EnqueueSwapAutoDetect when a swap commits; the periodic
// TypeSwapRollbackMonitor sweep runs the same check for recently
// executed swaps.
type SwapAutoDetectPayload struct {
	SwapRecordID entity.SwapRecordID `json:"swap_record_id"`
}

// SwapRollbackMonitorPayload carries no data: the handler re-scans
// every Executed swap record itself rather than being told which ones
// to check, so a missed or duplicated tick is harmless.
type SwapRollbackMonitorPayload struct{}

// ResilienceSnapshotPayload is the payload for TypeResilienceSnapshot.
// WindowStart defaults to today when zero.
type ResilienceSnapshotPayload struct {
	WindowStart entity.Date `json:"window_start,omitempty"`
}

// defaultGenerationTimeout bounds how long Asynq lets a schedule
// generation task run before it's considered failed and retried,
// mirroring the teacher's EnqueueAmionScrape's scaled-timeout comment
// but fixed rather than scaled, since generator.Orchestrator already
// enforces its own per-request solver deadline (config.DefaultTimeout)
// independent of Asynq's.
const defaultGenerationTimeout = 10 * time.Minute
