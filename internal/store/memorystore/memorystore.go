// Package memorystore is an in-memory store.Store implementation for
// tests and local development, grounded on the teacher's
// repository/memory package: one struct holding a map per entity type
// behind a shared mutex (lcgerke-schedCU/v2/internal/repository/memory/
// base.go), query-count instrumentation, and soft-delete-aware reads
// (schedule.go's GetScheduleByID/Count). Unlike the teacher, which gives
// each entity its own *sync.RWMutex inside its own repository struct,
// every accessor here shares one MemoryStore's mutex, because
// ApplyAssignments must touch Assignment, CallAssignment, and Person
// rows atomically in a way a per-repository lock cannot express.
package memorystore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store"
)

// MemoryStore is a shared in-memory store for every entity type the
// engine persists, mirroring the teacher's MemoryRepository.
type MemoryStore struct {
	mu sync.RWMutex

	people          map[entity.PersonID]*entity.Person
	rotations       map[entity.RotationID]*entity.Rotation
	blocks          map[entity.BlockID]*entity.Block
	assignments     map[entity.AssignmentID]*entity.Assignment
	callAssignments map[entity.CallAssignmentID]*entity.CallAssignment
	absences        map[entity.AbsenceID]*entity.Absence
	swapRecords     map[entity.SwapRecordID]*entity.SwapRecord
	snapshots       map[entity.SwapRecordID]*entity.Snapshot
	scheduleRuns    map[entity.ScheduleRunID]*entity.ScheduleRun
	auditEvents     []*entity.AuditEvent

	blockSeq   int
	nextTxID   int64
	queryCount int64
}

// New creates a new empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		people:          make(map[entity.PersonID]*entity.Person),
		rotations:       make(map[entity.RotationID]*entity.Rotation),
		blocks:          make(map[entity.BlockID]*entity.Block),
		assignments:     make(map[entity.AssignmentID]*entity.Assignment),
		callAssignments: make(map[entity.CallAssignmentID]*entity.CallAssignment),
		absences:        make(map[entity.AbsenceID]*entity.Absence),
		swapRecords:     make(map[entity.SwapRecordID]*entity.SwapRecord),
		snapshots:       make(map[entity.SwapRecordID]*entity.Snapshot),
		scheduleRuns:    make(map[entity.ScheduleRunID]*entity.ScheduleRun),
	}
}

// QueryCount returns the number of store operations executed so far,
// for test assertions (mirrors the teacher's ScheduleRepository.QueryCount).
func (s *MemoryStore) QueryCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryCount
}

// Reset clears all data, for test cleanup between cases (mirrors the
// teacher's ScheduleRepository.Reset).
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s = *New()
}

func (s *MemoryStore) touch() { s.queryCount++ }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Health(ctx context.Context) error { return nil }

// --- People ---------------------------------------------------------------

func (s *MemoryStore) People() store.PersonRepository { return personRepo{s} }

type personRepo struct{ s *MemoryStore }

func (r personRepo) Create(ctx context.Context, p *entity.Person) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if p == nil {
		return engineerr.New(engineerr.KindInvariant, "nil person", nil)
	}
	if _, exists := r.s.people[p.ID]; exists {
		return engineerr.New(engineerr.KindConflict, "person already exists", map[string]any{"id": p.ID})
	}
	r.s.people[p.ID] = p
	return nil
}

func (r personRepo) GetByID(ctx context.Context, id entity.PersonID) (*entity.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	p, ok := r.s.people[id]
	if !ok || p.IsDeleted() {
		return nil, engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"id": id})
	}
	return p, nil
}

func (r personRepo) GetByEmail(ctx context.Context, email string) (*entity.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	for _, p := range r.s.people {
		if p.Email == email && !p.IsDeleted() {
			return p, nil
		}
	}
	return nil, engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"email": email})
}

func (r personRepo) List(ctx context.Context) ([]*entity.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	out := make([]*entity.Person, 0, len(r.s.people))
	for _, p := range r.s.people {
		if !p.IsDeleted() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r personRepo) Update(ctx context.Context, p *entity.Person) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.people[p.ID]; !exists {
		return engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"id": p.ID})
	}
	p.UpdatedAt = entity.Now()
	r.s.people[p.ID] = p
	return nil
}

func (r personRepo) Delete(ctx context.Context, id entity.PersonID, deleterID entity.ActorID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	p, exists := r.s.people[id]
	if !exists {
		return engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"id": id})
	}
	p.SoftDelete()
	return nil
}

func (r personRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var n int64
	for _, p := range r.s.people {
		if !p.IsDeleted() {
			n++
		}
	}
	return n, nil
}

// --- Rotations --------------------------------------------------------------

func (s *MemoryStore) Rotations() store.RotationRepository { return rotationRepo{s} }

type rotationRepo struct{ s *MemoryStore }

func (r rotationRepo) Create(ctx context.Context, rot *entity.Rotation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.rotations[rot.ID]; exists {
		return engineerr.New(engineerr.KindConflict, "rotation already exists", map[string]any{"id": rot.ID})
	}
	r.s.rotations[rot.ID] = rot
	return nil
}

func (r rotationRepo) GetByID(ctx context.Context, id entity.RotationID) (*entity.Rotation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	rot, ok := r.s.rotations[id]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "rotation not found", map[string]any{"id": id})
	}
	return rot, nil
}

func (r rotationRepo) List(ctx context.Context) ([]*entity.Rotation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	out := make([]*entity.Rotation, 0, len(r.s.rotations))
	for _, rot := range r.s.rotations {
		out = append(out, rot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r rotationRepo) Update(ctx context.Context, rot *entity.Rotation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.rotations[rot.ID]; !exists {
		return engineerr.New(engineerr.KindNotFound, "rotation not found", map[string]any{"id": rot.ID})
	}
	r.s.rotations[rot.ID] = rot
	return nil
}

func (r rotationRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return int64(len(r.s.rotations)), nil
}

// --- Blocks -----------------------------------------------------------------

func (s *MemoryStore) Blocks() store.BlockRepository { return blockRepo{s} }

type blockRepo struct{ s *MemoryStore }

func (r blockRepo) GetByID(ctx context.Context, id entity.BlockID) (*entity.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	b, ok := r.s.blocks[id]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "block not found", map[string]any{"id": id})
	}
	return b, nil
}

func (r blockRepo) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return blocksInRange(r.s.blocks, start, end), nil
}

func blocksInRange(blocks map[entity.BlockID]*entity.Block, start, end entity.Date) []*entity.Block {
	out := make([]*entity.Block, 0)
	for _, b := range blocks {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out
}

func (r blockRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return int64(len(r.s.blocks)), nil
}

// --- Assignments --------------------------------------------------------------

func (s *MemoryStore) Assignments() store.AssignmentRepository { return assignmentRepo{s} }

type assignmentRepo struct{ s *MemoryStore }

func (r assignmentRepo) GetByID(ctx context.Context, id entity.AssignmentID) (*entity.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "assignment not found", map[string]any{"id": id})
	}
	return a, nil
}

func (r assignmentRepo) GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.Assignment
	for _, a := range r.s.assignments {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) GetByPersonAndDateRange(ctx context.Context, personID entity.PersonID, start, end entity.Date) ([]*entity.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.Assignment
	for _, a := range r.s.assignments {
		if a.PersonID != personID {
			continue
		}
		b := r.s.blocks[a.BlockID]
		if b != nil && !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.Assignment
	for _, a := range r.s.assignments {
		b := r.s.blocks[a.BlockID]
		if b != nil && !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) GetByBlockIDs(ctx context.Context, blockIDs []entity.BlockID) ([]*entity.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	want := make(map[entity.BlockID]bool, len(blockIDs))
	for _, id := range blockIDs {
		want[id] = true
	}
	var out []*entity.Assignment
	for _, a := range r.s.assignments {
		if want[a.BlockID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r assignmentRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return int64(len(r.s.assignments)), nil
}

// --- Call assignments ---------------------------------------------------------

func (s *MemoryStore) CallAssignments() store.CallAssignmentRepository { return callAssignmentRepo{s} }

type callAssignmentRepo struct{ s *MemoryStore }

func (r callAssignmentRepo) GetByID(ctx context.Context, id entity.CallAssignmentID) (*entity.CallAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	c, ok := r.s.callAssignments[id]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "call assignment not found", map[string]any{"id": id})
	}
	return c, nil
}

func (r callAssignmentRepo) GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.CallAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.CallAssignment
	for _, c := range r.s.callAssignments {
		if c.PersonID == personID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r callAssignmentRepo) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.CallAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.CallAssignment
	for _, c := range r.s.callAssignments {
		if !c.Date.Before(start) && !c.Date.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r callAssignmentRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return int64(len(r.s.callAssignments)), nil
}

// --- Absences -------------------------------------------------------------

func (s *MemoryStore) Absences() store.AbsenceRepository { return absenceRepo{s} }

type absenceRepo struct{ s *MemoryStore }

func (r absenceRepo) Create(ctx context.Context, a *entity.Absence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.absences[a.ID]; exists {
		return engineerr.New(engineerr.KindConflict, "absence already exists", map[string]any{"id": a.ID})
	}
	r.s.absences[a.ID] = a
	return nil
}

func (r absenceRepo) GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.Absence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.Absence
	for _, a := range r.s.absences {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r absenceRepo) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Absence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.Absence
	for _, a := range r.s.absences {
		if !a.End.Before(start) && !a.Start.After(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r absenceRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return int64(len(r.s.absences)), nil
}

// --- Swap records -----------------------------------------------------------

func (s *MemoryStore) SwapRecords() store.SwapRecordRepository { return swapRecordRepo{s} }

type swapRecordRepo struct{ s *MemoryStore }

func (r swapRecordRepo) Create(ctx context.Context, sw *entity.SwapRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.swapRecords[sw.ID]; exists {
		return engineerr.New(engineerr.KindConflict, "swap record already exists", map[string]any{"id": sw.ID})
	}
	r.s.swapRecords[sw.ID] = sw
	return nil
}

func (r swapRecordRepo) GetByID(ctx context.Context, id entity.SwapRecordID) (*entity.SwapRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	sw, ok := r.s.swapRecords[id]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "swap record not found", map[string]any{"id": id})
	}
	return sw, nil
}

func (r swapRecordRepo) GetByStatus(ctx context.Context, status entity.SwapStatus) ([]*entity.SwapRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.SwapRecord
	for _, sw := range r.s.swapRecords {
		if sw.Status == status {
			out = append(out, sw)
		}
	}
	return out, nil
}

func (r swapRecordRepo) Update(ctx context.Context, sw *entity.SwapRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.swapRecords[sw.ID]; !exists {
		return engineerr.New(engineerr.KindNotFound, "swap record not found", map[string]any{"id": sw.ID})
	}
	r.s.swapRecords[sw.ID] = sw
	return nil
}

func (r swapRecordRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	return int64(len(r.s.swapRecords)), nil
}

// --- Snapshots ------------------------------------------------------------

func (s *MemoryStore) Snapshots() store.SnapshotRepository { return snapshotRepo{s} }

type snapshotRepo struct{ s *MemoryStore }

func (r snapshotRepo) Create(ctx context.Context, snap *entity.Snapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	r.s.snapshots[snap.SwapRecordID] = snap
	return nil
}

func (r snapshotRepo) GetBySwapRecord(ctx context.Context, swapID entity.SwapRecordID) (*entity.Snapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	snap, ok := r.s.snapshots[swapID]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "snapshot not found", map[string]any{"swap_id": swapID})
	}
	return snap, nil
}

// --- Schedule runs ----------------------------------------------------------

func (s *MemoryStore) ScheduleRuns() store.ScheduleRunRepository { return scheduleRunRepo{s} }

type scheduleRunRepo struct{ s *MemoryStore }

func (r scheduleRunRepo) Create(ctx context.Context, run *entity.ScheduleRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.scheduleRuns[run.ID]; exists {
		return engineerr.New(engineerr.KindConflict, "schedule run already exists", map[string]any{"id": run.ID})
	}
	for _, existing := range r.s.scheduleRuns {
		if existing.IdempotencyKey == run.IdempotencyKey {
			return engineerr.New(engineerr.KindConflict, "idempotency key already in use", map[string]any{"idempotency_key": run.IdempotencyKey})
		}
	}
	r.s.scheduleRuns[run.ID] = run
	return nil
}

func (r scheduleRunRepo) GetByID(ctx context.Context, id entity.ScheduleRunID) (*entity.ScheduleRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	run, ok := r.s.scheduleRuns[id]
	if !ok {
		return nil, engineerr.New(engineerr.KindNotFound, "schedule run not found", map[string]any{"id": id})
	}
	return run, nil
}

func (r scheduleRunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.ScheduleRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	for _, run := range r.s.scheduleRuns {
		if run.IdempotencyKey == key {
			return run, nil
		}
	}
	return nil, engineerr.New(engineerr.KindNotFound, "schedule run not found", map[string]any{"idempotency_key": key})
}

func (r scheduleRunRepo) Update(ctx context.Context, run *entity.ScheduleRun) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	if _, exists := r.s.scheduleRuns[run.ID]; !exists {
		return engineerr.New(engineerr.KindNotFound, "schedule run not found", map[string]any{"id": run.ID})
	}
	r.s.scheduleRuns[run.ID] = run
	return nil
}

// --- Audit events -----------------------------------------------------------

func (s *MemoryStore) AuditEvents() store.AuditEventRepository { return auditEventRepo{s} }

type auditEventRepo struct{ s *MemoryStore }

func (r auditEventRepo) Create(ctx context.Context, e *entity.AuditEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touch()
	r.s.auditEvents = append(r.s.auditEvents, e)
	return nil
}

func (r auditEventRepo) GetByCorrelationID(ctx context.Context, correlationID string) ([]*entity.AuditEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	r.s.touch()
	var out []*entity.AuditEvent
	for _, e := range r.s.auditEvents {
		if e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

// --- Sole write paths --------------------------------------------------------

// ApplyAssignments is the sole write path for Assignment/CallAssignment
// rows. Because MemoryStore holds a single mutex across every map, the
// whole mutation set plus the Person counter recomputation it triggers
// happens under one critical section — the in-memory analogue of the
// Postgres implementation's single serializable transaction.
func (s *MemoryStore) ApplyAssignments(ctx context.Context, m store.MutationSet) (store.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if m.Empty() {
		return store.ApplyResult{}, nil
	}

	for _, id := range m.RemoveAssignmentIDs {
		if _, ok := s.assignments[id]; !ok {
			return store.ApplyResult{}, engineerr.New(engineerr.KindInvariant, "cannot remove assignment that does not exist", map[string]any{"id": id})
		}
	}
	for _, id := range m.RemoveCallAssignmentIDs {
		if _, ok := s.callAssignments[id]; !ok {
			return store.ApplyResult{}, engineerr.New(engineerr.KindInvariant, "cannot remove call assignment that does not exist", map[string]any{"id": id})
		}
	}
	for _, a := range m.NewAssignments {
		for _, existing := range s.assignments {
			if existing.BlockID == a.BlockID && existing.PersonID == a.PersonID && existing.ID != a.ID {
				return store.ApplyResult{}, engineerr.New(engineerr.KindConflict, "person already holds an assignment on this block", map[string]any{"person_id": a.PersonID, "block_id": a.BlockID})
			}
		}
	}
	for _, c := range m.NewCallAssignments {
		for _, existing := range s.callAssignments {
			if existing.Date.Equal(c.Date) && existing.CallType == c.CallType && existing.ID != c.ID {
				return store.ApplyResult{}, engineerr.New(engineerr.KindConflict, "call slot already filled", map[string]any{"date": c.Date, "call_type": c.CallType})
			}
		}
	}

	s.nextTxID++
	txID := s.nextTxID

	touched := map[entity.PersonID]bool{}

	for _, id := range m.RemoveAssignmentIDs {
		touched[s.assignments[id].PersonID] = true
		delete(s.assignments, id)
	}
	for i := range m.NewAssignments {
		a := m.NewAssignments[i]
		now := entity.Now()
		a.CreatedAt, a.UpdatedAt = now, now
		s.assignments[a.ID] = &a
		touched[a.PersonID] = true
	}
	for _, id := range m.RemoveCallAssignmentIDs {
		touched[s.callAssignments[id].PersonID] = true
		delete(s.callAssignments, id)
	}
	for i := range m.NewCallAssignments {
		c := m.NewCallAssignments[i]
		s.callAssignments[c.ID] = &c
		touched[c.PersonID] = true
	}

	result := store.ApplyResult{
		TransactionID:          txID,
		AssignmentsWritten:     len(m.NewAssignments),
		AssignmentsRemoved:     len(m.RemoveAssignmentIDs),
		CallAssignmentsWritten: len(m.NewCallAssignments),
		CallAssignmentsRemoved: len(m.RemoveCallAssignmentIDs),
	}
	for personID := range touched {
		s.recomputeCounters(personID)
		result.PersonCountersUpdated = append(result.PersonCountersUpdated, personID)
	}
	sort.Slice(result.PersonCountersUpdated, func(i, j int) bool {
		return result.PersonCountersUpdated[i].String() < result.PersonCountersUpdated[j].String()
	})
	return result, nil
}

// recomputeCounters rebuilds a Person's cached call-equity counters from
// the current CallAssignment rows. Caller must already hold s.mu.
func (s *MemoryStore) recomputeCounters(personID entity.PersonID) {
	p, ok := s.people[personID]
	if !ok {
		return
	}
	var sunday, weekday, fmitWeeks int
	fmitSeen := map[string]bool{}
	for _, c := range s.callAssignments {
		if c.PersonID != personID {
			continue
		}
		if c.Date.Weekday() == time.Sunday {
			sunday++
		} else if !c.Weekend {
			weekday++
		}
	}
	for _, a := range s.assignments {
		if a.PersonID != personID {
			continue
		}
		rot := s.rotations[a.RotationID]
		b := s.blocks[a.BlockID]
		if rot == nil || b == nil || !isFMITName(rot.Name) {
			continue
		}
		weekKey := fmt.Sprintf("%d-%d", b.Date.Year(), b.Date.YearDay()/7)
		if !fmitSeen[weekKey] {
			fmitSeen[weekKey] = true
			fmitWeeks++
		}
	}
	p.SundayCallCount = sunday
	p.WeekdayCallCount = weekday
	p.FMITWeekCount = fmitWeeks
	p.UpdatedAt = entity.Now()
}

func isFMITName(name string) bool {
	return strings.EqualFold(name, "FMIT")
}

// Snapshot captures the current occupant of every given row, tagged to
// swapID, for later Restore.
func (s *MemoryStore) Snapshot(ctx context.Context, swapID entity.SwapRecordID, assignmentIDs []entity.AssignmentID, callAssignmentIDs []entity.CallAssignmentID) (*entity.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	snap := &entity.Snapshot{
		ID:           uuid.New(),
		SwapRecordID: swapID,
		CapturedAt:   entity.Now(),
	}
	for _, id := range assignmentIDs {
		a, ok := s.assignments[id]
		if !ok {
			return nil, engineerr.New(engineerr.KindNotFound, "assignment not found for snapshot", map[string]any{"id": id})
		}
		snap.Assignments = append(snap.Assignments, entity.AssignmentSnapshotEntry{
			AssignmentID: id, BlockID: a.BlockID, RotationID: a.RotationID, PriorPersonID: a.PersonID,
		})
	}
	for _, id := range callAssignmentIDs {
		c, ok := s.callAssignments[id]
		if !ok {
			return nil, engineerr.New(engineerr.KindNotFound, "call assignment not found for snapshot", map[string]any{"id": id})
		}
		snap.CallAssignments = append(snap.CallAssignments, entity.CallSnapshotEntry{
			CallAssignmentID: id, Date: c.Date, CallType: c.CallType, PriorPersonID: c.PersonID,
		})
	}
	s.snapshots[swapID] = snap
	return snap, nil
}

// Restore reverts every row captured in snap to its prior occupant. A
// row still present is updated in place; a row an Absorb swap deleted
// is recreated from the snapshot's captured fields, since rollback must
// undo a give-away exactly as it undoes a reassignment.
func (s *MemoryStore) Restore(ctx context.Context, snap *entity.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.nextTxID++
	touched := map[entity.PersonID]bool{}
	for _, entry := range snap.Assignments {
		if a, ok := s.assignments[entry.AssignmentID]; ok {
			a.PersonID = entry.PriorPersonID
			a.UpdatedAt = entity.Now()
		} else {
			now := entity.Now()
			s.assignments[entry.AssignmentID] = &entity.Assignment{
				ID: entry.AssignmentID, BlockID: entry.BlockID, RotationID: entry.RotationID,
				PersonID: entry.PriorPersonID, CreatedAt: now, UpdatedAt: now,
			}
		}
		touched[entry.PriorPersonID] = true
	}
	for _, entry := range snap.CallAssignments {
		if c, ok := s.callAssignments[entry.CallAssignmentID]; ok {
			c.PersonID = entry.PriorPersonID
		} else {
			s.callAssignments[entry.CallAssignmentID] = entity.NewCallAssignment(
				entry.CallAssignmentID, entry.Date, entry.PriorPersonID, entry.CallType,
			)
		}
		touched[entry.PriorPersonID] = true
	}
	for personID := range touched {
		s.recomputeCounters(personID)
	}
	return nil
}

// InsertBlocksForRange creates two Blocks (AM, PM) per calendar day in
// [start, end], assigning a strictly increasing SequenceNumber.
func (s *MemoryStore) InsertBlocksForRange(ctx context.Context, start, end entity.Date) ([]entity.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if end.Before(start) {
		return nil, engineerr.New(engineerr.KindInvariant, "end precedes start", map[string]any{"start": start, "end": end})
	}

	var out []entity.Block
	for d := entity.CivilDate(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, session := range []entity.Session{entity.SessionAM, entity.SessionPM} {
			b := entity.NewBlock(uuid.New(), d, session)
			s.blockSeq++
			b.SequenceNumber = s.blockSeq
			s.blocks[b.ID] = b
			out = append(out, *b)
		}
	}
	return out, nil
}

// View builds a constraint.ScheduleView over [start, end].
func (s *MemoryStore) View(ctx context.Context, start, end entity.Date) (*constraint.ScheduleView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.touch()

	people := make(map[entity.PersonID]*entity.Person, len(s.people))
	for id, p := range s.people {
		if !p.IsDeleted() {
			people[id] = p
		}
	}
	rotations := make(map[entity.RotationID]*entity.Rotation, len(s.rotations))
	for id, r := range s.rotations {
		rotations[id] = r
	}
	blocks := make(map[entity.BlockID]*entity.Block)
	for id, b := range s.blocks {
		if !b.Date.Before(start) && !b.Date.After(end) {
			blocks[id] = b
		}
	}

	var assignments []entity.Assignment
	for _, a := range s.assignments {
		if _, ok := blocks[a.BlockID]; ok {
			assignments = append(assignments, *a)
		}
	}
	var calls []entity.CallAssignment
	for _, c := range s.callAssignments {
		if !c.Date.Before(start) && !c.Date.After(end) {
			calls = append(calls, *c)
		}
	}

	return constraint.NewScheduleView(start, end, people, rotations, blocks, assignments, calls), nil
}

var _ store.Store = (*MemoryStore)(nil)
