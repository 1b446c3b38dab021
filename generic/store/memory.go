// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/staff-hours/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	records   map[generic.RecordID]generic.Record
	summaries map[summaryKey]generic.WeeklySummary
	audit     []generic.AuditEntry
}

type summaryKey struct {
	UserID     generic.UserID
	CycleStart string
}

func keyOf(user generic.UserID, cycleStart generic.TimePoint) summaryKey {
	return summaryKey{UserID: user, CycleStart: cycleStart.String()}
}

func NewMemory() *Memory {
	return &Memory{
		records:   make(map[generic.RecordID]generic.Record),
		summaries: make(map[summaryKey]generic.WeeklySummary),
	}
}

// Locked wrappers. Each delegates to the unlocked implementation below so
// that the transactional view can reuse it while holding the lock.

func (m *Memory) Insert(ctx context.Context, r generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(r)
}

func (m *Memory) Get(ctx context.Context, id generic.RecordID) (*generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(id), nil
}

func (m *Memory) Find(ctx context.Context, f generic.RecordFilter) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.find(f), nil
}

func (m *Memory) Transition(ctx context.Context, id generic.RecordID, from generic.State, c generic.StateChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition(id, from, c)
}

func (m *Memory) Update(ctx context.Context, r generic.Record, expected generic.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(r, expected)
}

func (m *Memory) HardDelete(ctx context.Context, id generic.RecordID, expected generic.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hardDelete(id, expected)
}

func (m *Memory) SoftDelete(ctx context.Context, id generic.RecordID, expected generic.State, d generic.Deletion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.softDelete(id, expected, d)
}

func (m *Memory) AddSummaryMinutes(ctx context.Context, s generic.WeeklySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addSummary(s)
	return nil
}

func (m *Memory) PutSummary(ctx context.Context, s generic.WeeklySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[keyOf(s.UserID, s.CycleStart)] = s
	return nil
}

func (m *Memory) GetSummary(ctx context.Context, user generic.UserID, cycleStart generic.TimePoint) (*generic.WeeklySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSummary(user, cycleStart), nil
}

func (m *Memory) DeleteSummary(ctx context.Context, user generic.UserID, cycleStart generic.TimePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, keyOf(user, cycleStart))
	return nil
}

func (m *Memory) ListSummaries(ctx context.Context, cycleStart generic.TimePoint) ([]generic.WeeklySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSummaries(cycleStart), nil
}

func (m *Memory) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) ListAudit(ctx context.Context, id generic.RecordID) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAudit(id), nil
}

// =============================================================================
// UNLOCKED IMPLEMENTATION
// =============================================================================

func (m *Memory) insert(r generic.Record) error {
	if _, exists := m.records[r.ID]; exists {
		return generic.NewDatabaseError("insert record", generic.ErrConcurrentModification)
	}
	m.records[r.ID] = r
	return nil
}

func (m *Memory) get(id generic.RecordID) *generic.Record {
	r, ok := m.records[id]
	if !ok {
		return nil
	}
	return &r
}

func (m *Memory) find(f generic.RecordFilter) []generic.Record {
	var result []generic.Record
	for _, r := range m.records {
		if f.Matches(&r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// live returns the record when it exists, is not deleted and is in expected.
func (m *Memory) live(id generic.RecordID, expected generic.State) (generic.Record, error) {
	r, ok := m.records[id]
	if !ok {
		return r, generic.ErrNotFound
	}
	if r.Deleted || r.State != expected {
		return r, generic.ErrConcurrentModification
	}
	return r, nil
}

func (m *Memory) transition(id generic.RecordID, from generic.State, c generic.StateChange) error {
	r, err := m.live(id, from)
	if err != nil {
		return err
	}
	actor, at := c.Actor, c.At
	r.State = c.To
	r.IsDraft = c.To == generic.StateDraft
	r.UpdatedAt = at
	switch c.To {
	case generic.StateApproved:
		r.ApprovedBy, r.ApprovedAt = &actor, &at
	case generic.StateRejected:
		reason := c.Reason
		r.RejectedBy, r.RejectedAt, r.RejectionReason = &actor, &at, &reason
	case generic.StateCompleted:
		r.CompletedBy, r.CompletedAt = &actor, &at
	}
	m.records[id] = r
	return nil
}

func (m *Memory) update(next generic.Record, expected generic.State) error {
	r, err := m.live(next.ID, expected)
	if err != nil {
		return err
	}
	r.Date = next.Date
	r.EndDate = next.EndDate
	r.StartTime = next.StartTime
	r.EndTime = next.EndTime
	r.Hours = next.Hours
	r.Category = next.Category
	r.Notes = next.Notes
	r.UpdatedAt = next.UpdatedAt
	m.records[r.ID] = r
	return nil
}

func (m *Memory) hardDelete(id generic.RecordID, expected generic.State) error {
	if _, err := m.live(id, expected); err != nil {
		return err
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) softDelete(id generic.RecordID, expected generic.State, d generic.Deletion) error {
	r, err := m.live(id, expected)
	if err != nil {
		return err
	}
	actor, at, reason := d.Actor, d.At, d.Reason
	r.Deleted = true
	r.DeletedBy, r.DeletedAt, r.DeletionReason = &actor, &at, &reason
	r.UpdatedAt = at
	m.records[id] = r
	return nil
}

func (m *Memory) addSummary(s generic.WeeklySummary) {
	k := keyOf(s.UserID, s.CycleStart)
	existing, ok := m.summaries[k]
	if ok {
		existing.Minutes += s.Minutes
		existing.UpdatedAt = s.UpdatedAt
		m.summaries[k] = existing
		return
	}
	m.summaries[k] = s
}

func (m *Memory) getSummary(user generic.UserID, cycleStart generic.TimePoint) *generic.WeeklySummary {
	s, ok := m.summaries[keyOf(user, cycleStart)]
	if !ok {
		return nil
	}
	return &s
}

func (m *Memory) listSummaries(cycleStart generic.TimePoint) []generic.WeeklySummary {
	var result []generic.WeeklySummary
	for _, s := range m.summaries {
		if s.CycleStart.Equal(cycleStart) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}

func (m *Memory) listAudit(id generic.RecordID) []generic.AuditEntry {
	var result []generic.AuditEntry
	for _, e := range m.audit {
		if e.RecordID == id {
			result = append(result, e)
		}
	}
	return result
}

// Reset clears all data.
func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[generic.RecordID]generic.Record)
	m.summaries = make(map[summaryKey]generic.WeeklySummary)
	m.audit = nil
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	records   map[generic.RecordID]generic.Record
	summaries map[summaryKey]generic.WeeklySummary
	audit     []generic.AuditEntry
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		records:   make(map[generic.RecordID]generic.Record, len(tm.records)),
		summaries: make(map[summaryKey]generic.WeeklySummary, len(tm.summaries)),
		audit:     append([]generic.AuditEntry{}, tm.audit...),
	}
	for k, v := range tm.records {
		s.records[k] = v
	}
	for k, v := range tm.summaries {
		s.summaries[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.records = s.records
	tm.summaries = s.summaries
	tm.audit = s.audit
}

// txMemoryView runs against the parent while WithTx holds its lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Insert(_ context.Context, r generic.Record) error {
	return tv.parent.insert(r)
}

func (tv *txMemoryView) Get(_ context.Context, id generic.RecordID) (*generic.Record, error) {
	return tv.parent.get(id), nil
}

func (tv *txMemoryView) Find(_ context.Context, f generic.RecordFilter) ([]generic.Record, error) {
	return tv.parent.find(f), nil
}

func (tv *txMemoryView) Transition(_ context.Context, id generic.RecordID, from generic.State, c generic.StateChange) error {
	return tv.parent.transition(id, from, c)
}

func (tv *txMemoryView) Update(_ context.Context, r generic.Record, expected generic.State) error {
	return tv.parent.update(r, expected)
}

func (tv *txMemoryView) HardDelete(_ context.Context, id generic.RecordID, expected generic.State) error {
	return tv.parent.hardDelete(id, expected)
}

func (tv *txMemoryView) SoftDelete(_ context.Context, id generic.RecordID, expected generic.State, d generic.Deletion) error {
	return tv.parent.softDelete(id, expected, d)
}

func (tv *txMemoryView) AddSummaryMinutes(_ context.Context, s generic.WeeklySummary) error {
	tv.parent.addSummary(s)
	return nil
}

func (tv *txMemoryView) PutSummary(_ context.Context, s generic.WeeklySummary) error {
	tv.parent.summaries[keyOf(s.UserID, s.CycleStart)] = s
	return nil
}

func (tv *txMemoryView) GetSummary(_ context.Context, user generic.UserID, cycleStart generic.TimePoint) (*generic.WeeklySummary, error) {
	return tv.parent.getSummary(user, cycleStart), nil
}

func (tv *txMemoryView) DeleteSummary(_ context.Context, user generic.UserID, cycleStart generic.TimePoint) error {
	delete(tv.parent.summaries, keyOf(user, cycleStart))
	return nil
}

func (tv *txMemoryView) ListSummaries(_ context.Context, cycleStart generic.TimePoint) ([]generic.WeeklySummary, error) {
	return tv.parent.listSummaries(cycleStart), nil
}

func (tv *txMemoryView) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	tv.parent.audit = append(tv.parent.audit, e)
	return nil
}

func (tv *txMemoryView) ListAudit(_ context.Context, id generic.RecordID) ([]generic.AuditEntry, error) {
	return tv.parent.listAudit(id), nil
}
