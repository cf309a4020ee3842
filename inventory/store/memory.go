// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/booking-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	resources     map[inventory.ResourceID]inventory.Resource
	demand        map[inventory.DemandID]inventory.Demand
	demandOrder   []inventory.DemandID
	blocked       map[blockKey]inventory.BlockedDate
	cancellations map[inventory.DemandID]inventory.CancellationRecord
}

type blockKey struct {
	ResourceID inventory.ResourceID
	Date       inventory.Date
}

func NewMemory() *Memory {
	return &Memory{
		resources:     make(map[inventory.ResourceID]inventory.Resource),
		demand:        make(map[inventory.DemandID]inventory.Demand),
		blocked:       make(map[blockKey]inventory.BlockedDate),
		cancellations: make(map[inventory.DemandID]inventory.CancellationRecord),
	}
}

// =============================================================================
// RESOURCES
// =============================================================================

func (m *Memory) SaveResource(_ context.Context, r inventory.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.ID] = r
	return nil
}

func (m *Memory) GetResource(_ context.Context, id inventory.ResourceID) (*inventory.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getResourceLocked(id)
}

func (m *Memory) getResourceLocked(id inventory.ResourceID) (*inventory.Resource, error) {
	r, ok := m.resources[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) ListResources(_ context.Context) ([]inventory.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// DEMAND
// =============================================================================

func (m *Memory) InsertDemand(_ context.Context, d inventory.Demand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertDemandLocked(d)
}

func (m *Memory) insertDemandLocked(d inventory.Demand) error {
	if _, exists := m.demand[d.ID]; exists {
		return inventory.ErrConflict
	}
	m.demand[d.ID] = d
	m.demandOrder = append(m.demandOrder, d.ID)
	return nil
}

func (m *Memory) GetDemand(_ context.Context, id inventory.DemandID) (*inventory.Demand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getDemandLocked(id)
}

func (m *Memory) getDemandLocked(id inventory.DemandID) (*inventory.Demand, error) {
	d, ok := m.demand[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Memory) FindDemand(_ context.Context, f inventory.DemandFilter) ([]inventory.Demand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findDemandLocked(f)
}

func (m *Memory) findDemandLocked(f inventory.DemandFilter) ([]inventory.Demand, error) {
	var out []inventory.Demand
	for _, id := range m.demandOrder {
		d := m.demand[id]
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) TransitionDemand(_ context.Context, id inventory.DemandID, from, to inventory.DemandStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionDemandLocked(id, from, to)
}

func (m *Memory) transitionDemandLocked(id inventory.DemandID, from, to inventory.DemandStatus) error {
	d, ok := m.demand[id]
	if !ok {
		return inventory.ErrNotFound
	}
	if d.Status != from {
		return inventory.ErrConflict
	}
	d.Status = to
	m.demand[id] = d
	return nil
}

// =============================================================================
// BLOCKED DATES
// =============================================================================

func (m *Memory) SetBlockedDate(_ context.Context, b inventory.BlockedDate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[blockKey{ResourceID: b.ResourceID, Date: b.Date}] = b
	return nil
}

func (m *Memory) ClearBlockedDate(_ context.Context, id inventory.ResourceID, date inventory.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocked, blockKey{ResourceID: id, Date: date})
	return nil
}

func (m *Memory) BlockedDates(_ context.Context, id inventory.ResourceID, from, to inventory.Date) ([]inventory.BlockedDate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockedDatesLocked(id, from, to)
}

func (m *Memory) blockedDatesLocked(id inventory.ResourceID, from, to inventory.Date) ([]inventory.BlockedDate, error) {
	var out []inventory.BlockedDate
	for k, b := range m.blocked {
		if k.ResourceID != id {
			continue
		}
		if k.Date.Before(from) || k.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// CANCELLATIONS
// =============================================================================

func (m *Memory) InsertCancellation(_ context.Context, rec inventory.CancellationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCancellationLocked(rec)
}

func (m *Memory) insertCancellationLocked(rec inventory.CancellationRecord) error {
	if _, exists := m.cancellations[rec.BookingID]; exists {
		return inventory.ErrDuplicateCancellation
	}
	m.cancellations[rec.BookingID] = rec
	return nil
}

func (m *Memory) GetCancellation(_ context.Context, bookingID inventory.DemandID) (*inventory.CancellationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.cancellations[bookingID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

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

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot restored on error; the store mutex is held
// for the duration, which also gives readers a consistent snapshot.
func (tm *TxMemory) WithTx(_ context.Context, fn func(inventory.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}
	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	resources     map[inventory.ResourceID]inventory.Resource
	demand        map[inventory.DemandID]inventory.Demand
	demandOrder   []inventory.DemandID
	blocked       map[blockKey]inventory.BlockedDate
	cancellations map[inventory.DemandID]inventory.CancellationRecord
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		resources:     make(map[inventory.ResourceID]inventory.Resource, len(tm.resources)),
		demand:        make(map[inventory.DemandID]inventory.Demand, len(tm.demand)),
		demandOrder:   append([]inventory.DemandID(nil), tm.demandOrder...),
		blocked:       make(map[blockKey]inventory.BlockedDate, len(tm.blocked)),
		cancellations: make(map[inventory.DemandID]inventory.CancellationRecord, len(tm.cancellations)),
	}
	for k, v := range tm.resources {
		s.resources[k] = v
	}
	for k, v := range tm.demand {
		s.demand[k] = v
	}
	for k, v := range tm.blocked {
		s.blocked[k] = v
	}
	for k, v := range tm.cancellations {
		s.cancellations[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.resources = s.resources
	tm.demand = s.demand
	tm.demandOrder = s.demandOrder
	tm.blocked = s.blocked
	tm.cancellations = s.cancellations
}

// txMemoryView runs against the already-locked parent.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveResource(_ context.Context, r inventory.Resource) error {
	tv.parent.resources[r.ID] = r
	return nil
}

func (tv *txMemoryView) GetResource(_ context.Context, id inventory.ResourceID) (*inventory.Resource, error) {
	return tv.parent.getResourceLocked(id)
}

func (tv *txMemoryView) ListResources(_ context.Context) ([]inventory.Resource, error) {
	out := make([]inventory.Resource, 0, len(tv.parent.resources))
	for _, r := range tv.parent.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tv *txMemoryView) InsertDemand(_ context.Context, d inventory.Demand) error {
	return tv.parent.insertDemandLocked(d)
}

func (tv *txMemoryView) GetDemand(_ context.Context, id inventory.DemandID) (*inventory.Demand, error) {
	return tv.parent.getDemandLocked(id)
}

func (tv *txMemoryView) FindDemand(_ context.Context, f inventory.DemandFilter) ([]inventory.Demand, error) {
	return tv.parent.findDemandLocked(f)
}

func (tv *txMemoryView) TransitionDemand(_ context.Context, id inventory.DemandID, from, to inventory.DemandStatus) error {
	return tv.parent.transitionDemandLocked(id, from, to)
}

func (tv *txMemoryView) SetBlockedDate(_ context.Context, b inventory.BlockedDate) error {
	tv.parent.blocked[blockKey{ResourceID: b.ResourceID, Date: b.Date}] = b
	return nil
}

func (tv *txMemoryView) ClearBlockedDate(_ context.Context, id inventory.ResourceID, date inventory.Date) error {
	delete(tv.parent.blocked, blockKey{ResourceID: id, Date: date})
	return nil
}

func (tv *txMemoryView) BlockedDates(_ context.Context, id inventory.ResourceID, from, to inventory.Date) ([]inventory.BlockedDate, error) {
	return tv.parent.blockedDatesLocked(id, from, to)
}

func (tv *txMemoryView) InsertCancellation(_ context.Context, rec inventory.CancellationRecord) error {
	return tv.parent.insertCancellationLocked(rec)
}

func (tv *txMemoryView) GetCancellation(_ context.Context, bookingID inventory.DemandID) (*inventory.CancellationRecord, error) {
	rec, ok := tv.parent.cancellations[bookingID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
