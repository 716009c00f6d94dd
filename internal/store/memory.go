package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

// Memory is an in-process Store with the same conditional-write semantics
// as Postgres. One mutex serialises every call, so a transaction sees no
// concurrent writers; its writes are staged and applied only on success.
type Memory struct {
	mu  sync.Mutex
	now func() time.Time

	fish     map[int64]models.Fish
	segments map[int64]models.Segment
	orders   map[int64]models.Order

	nextFishID    int64
	nextSegmentID int64
	nextOrderID   int64
}

var _ allocation.Store = (*Memory)(nil)

// NewMemory returns an empty store. now stamps created_at/updated_at; nil
// means time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:      now,
		fish:     map[int64]models.Fish{},
		segments: map[int64]models.Segment{},
		orders:   map[int64]models.Order{},
	}
}

func (m *Memory) CreateFish(ctx context.Context, f models.Fish) (*models.Fish, error) {
	if err := validateFish(f); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextFishID++
	now := m.now()
	f.ID = m.nextFishID
	f.CreatedAt, f.UpdatedAt = now, now
	m.fish[f.ID] = f
	return &f, nil
}

func (m *Memory) CreateSegment(ctx context.Context, s models.Segment) (*models.Segment, error) {
	if err := validateSegment(s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fish[s.FishID]; !ok {
		return nil, allocation.ErrFishNotFound
	}
	m.nextSegmentID++
	now := m.now()
	s.ID = m.nextSegmentID
	s.CreatedAt, s.UpdatedAt = now, now
	s.ReservedUntil = copyTime(s.ReservedUntil)
	m.segments[s.ID] = s
	out := copySegment(s)
	return &out, nil
}

// GetSegment returns a segment regardless of availability.
func (m *Memory) GetSegment(ctx context.Context, id int64) (*models.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.segments[id]
	if !ok {
		return nil, fmt.Errorf("segment %d not found", id)
	}
	out := copySegment(s)
	return &out, nil
}

// SetFishAvailable toggles a fish in or out of the catalog.
func (m *Memory) SetFishAvailable(ctx context.Context, id int64, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fish[id]
	if !ok {
		return allocation.ErrFishNotFound
	}
	f.Available = available
	f.UpdatedAt = m.now()
	m.fish[id] = f
	return nil
}

func (m *Memory) ListAvailableFish(ctx context.Context) ([]models.Fish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Fish{}
	for _, f := range m.fish {
		if f.Available {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) GetFish(ctx context.Context, fishID int64) (*models.Fish, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fish[fishID]
	if !ok {
		return nil, allocation.ErrFishNotFound
	}
	return &f, nil
}

func (m *Memory) GetFishWithSegments(ctx context.Context, fishID int64) (*models.Fish, []models.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fish[fishID]
	if !ok || !f.Available {
		return nil, nil, allocation.ErrFishNotFound
	}

	segments := []models.Segment{}
	for _, s := range m.segments {
		if s.FishID == fishID {
			segments = append(segments, copySegment(s))
		}
	}
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].Name != segments[j].Name {
			return segments[i].Name < segments[j].Name
		}
		return segments[i].ID < segments[j].ID
	})
	return &f, segments, nil
}

func (m *Memory) GetSegmentsByIDs(ctx context.Context, ids []int64, fishID int64) ([]models.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return availableSegments(m.segments, nil, ids, fishID), nil
}

func (m *Memory) HoldSegment(ctx context.Context, segmentID int64, until, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.segments[segmentID]
	if !ok || !s.Purchasable(now) {
		return false, nil
	}
	s.ReservedUntil = &until
	s.UpdatedAt = m.now()
	m.segments[segmentID] = s
	return true, nil
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx allocation.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		m:           m,
		segments:    map[int64]models.Segment{},
		nextOrderID: m.nextOrderID,
	}
	if err := fn(tx); err != nil {
		return err
	}

	for id, s := range tx.segments {
		m.segments[id] = s
	}
	for _, o := range tx.orders {
		m.orders[o.ID] = o
	}
	m.nextOrderID = tx.nextOrderID
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, allocation.ErrOrderNotFound
	}
	out := copyOrder(o)
	return &out, nil
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return m.ListOrdersByUserBefore(ctx, userID, nil, 0)
}

// ListOrdersByUserBefore treats limit <= 0 as no limit.
func (m *Memory) ListOrdersByUserBefore(ctx context.Context, userID string, cursor *allocation.OrderCursor, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Order{}
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		if cursor != nil && !orderBefore(o, *cursor) {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		return orderBefore(out[j], allocation.OrderCursor{CreatedAt: out[i].CreatedAt, ID: out[i].ID})
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, version int) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, allocation.ErrOrderNotFound
	}
	if o.Status != from || o.Version != version {
		return nil, allocation.ErrOptimisticLockFailed
	}
	o.Status = to
	o.Version++
	o.UpdatedAt = m.now()
	m.orders[orderID] = o
	out := copyOrder(o)
	return &out, nil
}

type memoryTx struct {
	m           *Memory
	segments    map[int64]models.Segment
	orders      []models.Order
	nextOrderID int64
}

func (tx *memoryTx) LockSegments(ctx context.Context, ids []int64, fishID int64) ([]models.Segment, error) {
	return availableSegments(tx.m.segments, tx.segments, ids, fishID), nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, o *models.Order) error {
	tx.nextOrderID++
	now := tx.m.now()
	o.ID = tx.nextOrderID
	o.CreatedAt, o.UpdatedAt = now, now
	o.Version = 1
	tx.orders = append(tx.orders, copyOrder(*o))
	return nil
}

func (tx *memoryTx) MarkSegmentsSold(ctx context.Context, ids []int64, fishID int64) (int64, error) {
	var n int64
	now := tx.m.now()
	for _, s := range availableSegments(tx.m.segments, tx.segments, ids, fishID) {
		s.Available = false
		s.ReservedUntil = nil
		s.UpdatedAt = now
		tx.segments[s.ID] = s
		n++
	}
	return n, nil
}

// availableSegments resolves ids against base with staged overriding it,
// keeping only available rows of fishID in request order.
func availableSegments(base, staged map[int64]models.Segment, ids []int64, fishID int64) []models.Segment {
	out := []models.Segment{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		s, ok := staged[id]
		if !ok {
			s, ok = base[id]
		}
		if ok && s.FishID == fishID && s.Available {
			out = append(out, copySegment(s))
		}
	}
	return out
}

// orderBefore reports whether o sorts strictly after c in newest-first order.
func orderBefore(o models.Order, c allocation.OrderCursor) bool {
	if o.CreatedAt.Equal(c.CreatedAt) {
		return o.ID < c.ID
	}
	return o.CreatedAt.Before(c.CreatedAt)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copySegment(s models.Segment) models.Segment {
	s.ReservedUntil = copyTime(s.ReservedUntil)
	return s
}

func copyOrder(o models.Order) models.Order {
	o.SegmentIDs = append([]int64(nil), o.SegmentIDs...)
	o.DeliveryDate = copyTime(o.DeliveryDate)
	return o
}
