package allocation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

func TestListFish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.clock.Advance(time.Hour)
	newer, err := f.store.CreateFish(ctx, models.Fish{
		Name:       "Bluefin Tuna #2",
		WeightKg:   decimal.NewFromInt(80),
		Grade:      models.GradeSuperior,
		PricePerKg: decimal.NewFromInt(90),
		Available:  true,
	})
	if err != nil {
		t.Fatalf("Create fish: %v", err)
	}
	if _, err := f.store.CreateFish(ctx, models.Fish{
		Name:       "Sold out",
		WeightKg:   decimal.NewFromInt(80),
		Grade:      models.GradeB,
		PricePerKg: decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("Create fish: %v", err)
	}

	fish, err := f.svc.ListFish(ctx)
	if err != nil {
		t.Fatalf("List fish: %v", err)
	}
	if len(fish) != 2 {
		t.Fatalf("Expected 2 available fish, got %d", len(fish))
	}
	if fish[0].ID != newer.ID || fish[1].ID != f.fish.ID {
		t.Errorf("Expected newest first, got ids %d, %d", fish[0].ID, fish[1].ID)
	}
}

func TestGetFishDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Commit(ctx, f.commitRequest("user-1", f.segments[1].ID)); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	f.addSegment(t, "A0", "1")

	detail, err := f.svc.GetFishDetail(ctx, f.fish.ID)
	if err != nil {
		t.Fatalf("Get fish detail: %v", err)
	}
	if len(detail.Segments) != 3 {
		t.Fatalf("Expected 3 segments including the sold one, got %d", len(detail.Segments))
	}
	names := []string{detail.Segments[0].Name, detail.Segments[1].Name, detail.Segments[2].Name}
	if names[0] != "A0" || names[1] != "S1" || names[2] != "S2" {
		t.Errorf("Expected segments ordered by name, got %v", names)
	}
	if detail.Segments[2].Available {
		t.Error("Sold segment should be reported unavailable")
	}

	if err := f.store.SetFishAvailable(ctx, f.fish.ID, false); err != nil {
		t.Fatalf("Set fish unavailable: %v", err)
	}
	if _, err := f.svc.GetFishDetail(ctx, f.fish.ID); !errors.Is(err, allocation.ErrFishNotFound) {
		t.Errorf("Expected ErrFishNotFound for unavailable fish, got: %v", err)
	}
	if _, err := f.svc.GetFishDetail(ctx, -1); !errors.Is(err, allocation.ErrFishNotFound) {
		t.Errorf("Expected ErrFishNotFound for bad id, got: %v", err)
	}
}

func TestQuoteSegments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1, s2 := f.segments[0], f.segments[1]

	if _, err := f.svc.Commit(ctx, f.commitRequest("user-1", s1.ID)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	quote, err := f.svc.QuoteSegments(ctx, f.fish.ID, []int64{s1.ID, s2.ID})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(quote.SegmentIDs) != 1 || quote.SegmentIDs[0] != s2.ID {
		t.Errorf("Expected quoted [%d], got %v", s2.ID, quote.SegmentIDs)
	}
	if len(quote.Unavailable) != 1 || quote.Unavailable[0] != s1.ID {
		t.Errorf("Expected unavailable [%d], got %v", s1.ID, quote.Unavailable)
	}
	if !quote.TotalPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected price 150, got %s", quote.TotalPrice)
	}

	if _, err := f.svc.QuoteSegments(ctx, 999, []int64{s2.ID}); !errors.Is(err, allocation.ErrFishNotFound) {
		t.Errorf("Expected ErrFishNotFound, got: %v", err)
	}
}

func TestGetOrderOnlyForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Commit(ctx, f.commitRequest("user-1", f.segments[0].ID))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := f.svc.GetOrder(ctx, "user-1", order.ID); err != nil {
		t.Fatalf("Get own order: %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, "user-2", order.ID); !errors.Is(err, allocation.ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound for another user, got: %v", err)
	}
	if _, err := f.svc.GetOrder(ctx, "user-1", 999); !errors.Is(err, allocation.ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound for unknown order, got: %v", err)
	}
}

func TestListOrdersPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for _, seg := range []models.Segment{f.segments[0], f.segments[1], f.addSegment(t, "S3", "1"), f.addSegment(t, "S4", "1"), f.addSegment(t, "S5", "1")} {
		f.clock.Advance(time.Minute)
		order, err := f.svc.Commit(ctx, f.commitRequest("user-1", seg.ID))
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		ids = append(ids, order.ID)
	}
	if _, err := f.svc.Commit(ctx, f.commitRequest("user-2", f.addSegment(t, "S6", "1").ID)); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var (
		seen   []int64
		cursor string
		pages  int
	)
	for {
		page, err := f.svc.ListOrdersPage(ctx, "user-1", cursor, 2)
		if err != nil {
			t.Fatalf("List page: %v", err)
		}
		pages++
		for _, o := range page.Items {
			seen = append(seen, o.ID)
		}
		if !page.HasMore {
			if page.NextCursor != "" {
				t.Error("Last page should have no cursor")
			}
			break
		}
		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	if len(seen) != len(ids) {
		t.Fatalf("Expected %d orders, got %d", len(ids), len(seen))
	}
	for i := range seen {
		if want := ids[len(ids)-1-i]; seen[i] != want {
			t.Errorf("Position %d: expected order %d, got %d", i, want, seen[i])
		}
	}

	all, err := f.svc.ListOrdersForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if len(all) != len(ids) || all[0].ID != ids[len(ids)-1] {
		t.Errorf("Expected %d orders newest first, got %d", len(ids), len(all))
	}

	if _, err := f.svc.ListOrdersPage(ctx, "user-1", "%%%", 2); !errors.Is(err, allocation.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for malformed cursor, got: %v", err)
	}
}

func TestAdvanceOrderStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Commit(ctx, f.commitRequest("user-1", f.segments[0].ID))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	confirmed, err := f.svc.AdvanceOrderStatus(ctx, order.ID, models.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("Advance to confirmed: %v", err)
	}
	if confirmed.Status != models.OrderStatusConfirmed || confirmed.Version != order.Version+1 {
		t.Errorf("Unexpected order after advance: status %s version %d", confirmed.Status, confirmed.Version)
	}
	if !confirmed.TotalPrice.Equal(order.TotalPrice) {
		t.Errorf("Totals must not change with status: %s", confirmed.TotalPrice)
	}

	if _, err := f.svc.AdvanceOrderStatus(ctx, order.ID, models.OrderStatusPending); !errors.Is(err, allocation.ErrInvalidStatusTransition) {
		t.Errorf("Expected ErrInvalidStatusTransition, got: %v", err)
	}
	if _, err := f.svc.AdvanceOrderStatus(ctx, order.ID, models.OrderStatusDelivered); err != nil {
		t.Errorf("Advance to delivered: %v", err)
	}
	if _, err := f.svc.AdvanceOrderStatus(ctx, 999, models.OrderStatusConfirmed); !errors.Is(err, allocation.ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got: %v", err)
	}
}
