package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

type testStore interface {
	allocation.Store
	Catalog
}

// runStoreContract exercises the behaviour every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) testStore) {
	t.Run("HoldSegment", func(t *testing.T) { testHoldSegment(t, newStore(t)) })
	t.Run("WithinTxRollsBack", func(t *testing.T) { testWithinTxRollsBack(t, newStore(t)) })
	t.Run("CommitKeepsSegmentOrder", func(t *testing.T) { testCommitKeepsSegmentOrder(t, newStore(t)) })
	t.Run("GetSegmentsByIDs", func(t *testing.T) { testGetSegmentsByIDs(t, newStore(t)) })
	t.Run("UpdateOrderStatus", func(t *testing.T) { testUpdateOrderStatus(t, newStore(t)) })
	t.Run("ListOrdersByUserBefore", func(t *testing.T) { testListOrdersByUserBefore(t, newStore(t)) })
	t.Run("CreateSegmentUnknownFish", func(t *testing.T) { testCreateSegmentUnknownFish(t, newStore(t)) })
}

func loadTestFish(t *testing.T, st testStore, weights ...string) (*models.Fish, []models.Segment) {
	t.Helper()

	segments := make([]models.Segment, 0, len(weights))
	for i, w := range weights {
		segments = append(segments, models.Segment{
			Name:      string(rune('A' + i)),
			Type:      models.SegmentLeanBlock,
			WeightKg:  decimal.RequireFromString(w),
			PositionX: float64(i * 10),
			Width:     10,
			Height:    5,
			Available: true,
		})
	}

	fish, created, err := LoadCatalog(context.Background(), st, models.Fish{
		Name:       "Test Tuna",
		WeightKg:   decimal.NewFromInt(100),
		CatchDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Location:   "Oma",
		Grade:      models.GradePremium,
		PricePerKg: decimal.NewFromInt(100),
		Available:  true,
	}, segments)
	if err != nil {
		t.Fatalf("Load catalog: %v", err)
	}
	return fish, created
}

func insertTestOrder(t *testing.T, st testStore, userID string, fishID int64, ids ...int64) *models.Order {
	t.Helper()

	var order *models.Order
	err := st.WithinTx(context.Background(), func(tx allocation.Tx) error {
		o := &models.Order{
			OrderNumber:   "ORD-" + uuid.NewString(),
			UserID:        userID,
			FishID:        fishID,
			SegmentIDs:    ids,
			TotalWeightKg: decimal.NewFromInt(1),
			TotalPrice:    decimal.NewFromInt(100),
			Customer:      models.Customer{Name: "Test", Email: "test@example.com"},
			Status:        models.OrderStatusPending,
		}
		if err := tx.InsertOrder(context.Background(), o); err != nil {
			return err
		}
		if _, err := tx.MarkSegmentsSold(context.Background(), ids, fishID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		t.Fatalf("Insert order: %v", err)
	}
	return order
}

func testHoldSegment(t *testing.T, st testStore) {
	ctx := context.Background()
	fish, segs := loadTestFish(t, st, "2")
	id := segs[0].ID

	now := time.Now().UTC().Truncate(time.Microsecond)
	until := now.Add(10 * time.Minute)

	ok, err := st.HoldSegment(ctx, id, until, now)
	if err != nil || !ok {
		t.Fatalf("First hold: ok=%v err=%v", ok, err)
	}

	seg, err := st.GetSegment(ctx, id)
	if err != nil {
		t.Fatalf("Get segment: %v", err)
	}
	if seg.ReservedUntil == nil || !seg.ReservedUntil.Equal(until) {
		t.Errorf("Expected reserved until %s, got %v", until, seg.ReservedUntil)
	}

	if ok, _ := st.HoldSegment(ctx, id, until.Add(time.Minute), now.Add(time.Minute)); ok {
		t.Error("Active hold should reject a second hold")
	}
	if ok, _ := st.HoldSegment(ctx, id, until.Add(time.Hour), until); ok {
		t.Error("Hold should still be active at its expiry instant")
	}
	if ok, _ := st.HoldSegment(ctx, id, until.Add(time.Hour), until.Add(time.Second)); !ok {
		t.Error("Expired hold should be re-grantable")
	}

	insertTestOrder(t, st, "user-1", fish.ID, id)
	if ok, _ := st.HoldSegment(ctx, id, until.Add(2*time.Hour), until.Add(time.Hour+time.Second)); ok {
		t.Error("Sold segment should not be holdable")
	}
	if ok, err := st.HoldSegment(ctx, 999999, until, now); ok || err != nil {
		t.Errorf("Unknown segment: ok=%v err=%v", ok, err)
	}
}

func testWithinTxRollsBack(t *testing.T, st testStore) {
	ctx := context.Background()
	fish, segs := loadTestFish(t, st, "2")
	boom := errors.New("boom")

	err := st.WithinTx(ctx, func(tx allocation.Tx) error {
		o := &models.Order{
			OrderNumber:   "ORD-ROLLBACK",
			UserID:        "rollback-user",
			FishID:        fish.ID,
			SegmentIDs:    []int64{segs[0].ID},
			TotalWeightKg: decimal.NewFromInt(2),
			TotalPrice:    decimal.NewFromInt(200),
			Customer:      models.Customer{Name: "Test", Email: "test@example.com"},
			Status:        models.OrderStatusPending,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		n, err := tx.MarkSegmentsSold(ctx, []int64{segs[0].ID}, fish.ID)
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("Expected 1 row sold inside tx, got %d", n)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got: %v", err)
	}

	seg, err := st.GetSegment(ctx, segs[0].ID)
	if err != nil {
		t.Fatalf("Get segment: %v", err)
	}
	if !seg.Available {
		t.Error("Segment should be available after rollback")
	}
	orders, err := st.ListOrdersByUser(ctx, "rollback-user")
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("Expected no orders after rollback, got %d", len(orders))
	}
}

func testCommitKeepsSegmentOrder(t *testing.T, st testStore) {
	ctx := context.Background()
	fish, segs := loadTestFish(t, st, "1", "2", "3")
	ids := []int64{segs[2].ID, segs[0].ID, segs[1].ID}

	order := insertTestOrder(t, st, "user-1", fish.ID, ids...)
	if order.ID == 0 || order.Version != 1 || order.CreatedAt.IsZero() {
		t.Errorf("InsertOrder did not fill generated fields: %+v", order)
	}

	stored, err := st.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if len(stored.SegmentIDs) != 3 {
		t.Fatalf("Expected 3 segment ids, got %v", stored.SegmentIDs)
	}
	for i := range ids {
		if stored.SegmentIDs[i] != ids[i] {
			t.Errorf("Segment ids reordered: want %v, got %v", ids, stored.SegmentIDs)
			break
		}
	}
	if stored.Status != models.OrderStatusPending {
		t.Errorf("Expected pending, got %s", stored.Status)
	}

	var sold int64 = -1
	err = st.WithinTx(ctx, func(tx allocation.Tx) error {
		locked, err := tx.LockSegments(ctx, ids, fish.ID)
		if err != nil {
			return err
		}
		if len(locked) != 0 {
			t.Errorf("Sold segments should not lock, got %d", len(locked))
		}
		sold, err = tx.MarkSegmentsSold(ctx, ids, fish.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Second tx: %v", err)
	}
	if sold != 0 {
		t.Errorf("Expected 0 rows to flip on sold segments, got %d", sold)
	}
}

func testGetSegmentsByIDs(t *testing.T, st testStore) {
	ctx := context.Background()
	fish, segs := loadTestFish(t, st, "1", "2", "3")
	_, otherSegs := loadTestFish(t, st, "4")

	insertTestOrder(t, st, "user-1", fish.ID, segs[1].ID)

	got, err := st.GetSegmentsByIDs(ctx, []int64{segs[0].ID, segs[1].ID, segs[2].ID, otherSegs[0].ID}, fish.ID)
	if err != nil {
		t.Fatalf("Get segments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 available segments of the fish, got %d", len(got))
	}
	for _, s := range got {
		if s.ID == segs[1].ID || s.FishID != fish.ID {
			t.Errorf("Unexpected segment %+v", s)
		}
	}
}

func testUpdateOrderStatus(t *testing.T, st testStore) {
	ctx := context.Background()
	fish, segs := loadTestFish(t, st, "1")
	order := insertTestOrder(t, st, "user-1", fish.ID, segs[0].ID)

	updated, err := st.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusConfirmed, order.Version)
	if err != nil {
		t.Fatalf("Update status: %v", err)
	}
	if updated.Status != models.OrderStatusConfirmed || updated.Version != order.Version+1 {
		t.Errorf("Unexpected order after update: %s v%d", updated.Status, updated.Version)
	}

	_, err = st.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusConfirmed, order.Version)
	if !errors.Is(err, allocation.ErrOptimisticLockFailed) {
		t.Errorf("Expected ErrOptimisticLockFailed for stale version, got: %v", err)
	}
	_, err = st.UpdateOrderStatus(ctx, 999999, models.OrderStatusPending, models.OrderStatusConfirmed, 1)
	if !errors.Is(err, allocation.ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got: %v", err)
	}
}

func testListOrdersByUserBefore(t *testing.T, st testStore) {
	ctx := context.Background()
	fish, segs := loadTestFish(t, st, "1", "1", "1", "1", "1")

	var ids []int64
	for _, s := range segs[:4] {
		ids = append(ids, insertTestOrder(t, st, "pager-1", fish.ID, s.ID).ID)
	}
	insertTestOrder(t, st, "pager-2", fish.ID, segs[4].ID)

	first, err := st.ListOrdersByUserBefore(ctx, "pager-1", nil, 3)
	if err != nil {
		t.Fatalf("List first page: %v", err)
	}
	if len(first) != 3 || first[0].ID != ids[3] {
		t.Fatalf("Expected newest 3 orders starting at %d, got %d orders", ids[3], len(first))
	}

	last := first[len(first)-1]
	rest, err := st.ListOrdersByUserBefore(ctx, "pager-1", &allocation.OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID}, 3)
	if err != nil {
		t.Fatalf("List second page: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != ids[0] {
		t.Fatalf("Expected oldest order %d on second page, got %+v", ids[0], rest)
	}
}

func testCreateSegmentUnknownFish(t *testing.T, st testStore) {
	_, err := st.CreateSegment(context.Background(), models.Segment{
		FishID:    999999,
		Name:      "orphan",
		Type:      models.SegmentPremiumBelly,
		WeightKg:  decimal.NewFromInt(1),
		Available: true,
	})
	if !errors.Is(err, allocation.ErrFishNotFound) {
		t.Fatalf("Expected ErrFishNotFound, got: %v", err)
	}
}
