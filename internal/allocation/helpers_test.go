package allocation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
	"github.com/safar/fish-segments/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock    *fakeClock
	store    *store.Memory
	svc      *allocation.Service
	fish     *models.Fish
	segments []models.Segment
}

// newFixture loads one tuna at 100/kg with a 2kg and a 1.5kg segment.
func newFixture(t *testing.T, opts ...func(*allocation.Options)) *fixture {
	t.Helper()

	clock := newFakeClock()
	mem := store.NewMemory(clock.Now)

	fish, segments, err := store.LoadCatalog(context.Background(), mem, models.Fish{
		Name:       "Bluefin Tuna #1",
		WeightKg:   decimal.NewFromInt(120),
		CatchDate:  clock.Now().AddDate(0, 0, -1),
		Location:   "Oma, Aomori",
		Grade:      models.GradePremium,
		PricePerKg: decimal.NewFromInt(100),
		Available:  true,
	}, []models.Segment{
		{Name: "S1", Type: models.SegmentPremiumBelly, WeightKg: decimal.RequireFromString("2"), Available: true},
		{Name: "S2", Type: models.SegmentMediumBelly, WeightKg: decimal.RequireFromString("1.5"), Available: true},
	})
	if err != nil {
		t.Fatalf("Load catalog: %v", err)
	}

	o := allocation.DefaultOptions()
	o.Clock = clock.Now
	for _, fn := range opts {
		fn(&o)
	}

	return &fixture{
		clock:    clock,
		store:    mem,
		svc:      allocation.NewService(mem, o),
		fish:     fish,
		segments: segments,
	}
}

func (f *fixture) addSegment(t *testing.T, name string, weight string) models.Segment {
	t.Helper()
	seg, err := f.store.CreateSegment(context.Background(), models.Segment{
		FishID:    f.fish.ID,
		Name:      name,
		Type:      models.SegmentLeanBlock,
		WeightKg:  decimal.RequireFromString(weight),
		Available: true,
	})
	if err != nil {
		t.Fatalf("Create segment %s: %v", name, err)
	}
	return *seg
}

func (f *fixture) segment(t *testing.T, id int64) *models.Segment {
	t.Helper()
	seg, err := f.store.GetSegment(context.Background(), id)
	if err != nil {
		t.Fatalf("Get segment %d: %v", id, err)
	}
	return seg
}

func (f *fixture) commitRequest(userID string, ids ...int64) allocation.CommitRequest {
	return allocation.CommitRequest{
		UserID:     userID,
		FishID:     f.fish.ID,
		SegmentIDs: ids,
		Customer: models.Customer{
			Name:  "Hana Sato",
			Email: "hana@example.com",
		},
	}
}
