package allocation

import (
	"context"
	"time"

	"github.com/safar/fish-segments/internal/models"
)

// Store is the inventory contract the allocation core needs. Implementations
// must express every segment mutation as a conditional write.
type Store interface {
	ListAvailableFish(ctx context.Context) ([]models.Fish, error)
	// GetFish returns the fish regardless of its availability flag.
	GetFish(ctx context.Context, fishID int64) (*models.Fish, error)
	// GetFishWithSegments returns an available fish and all of its segments
	// ordered by name.
	GetFishWithSegments(ctx context.Context, fishID int64) (*models.Fish, []models.Segment, error)
	// GetSegmentsByIDs returns the subset of ids that belong to fishID and are
	// still available.
	GetSegmentsByIDs(ctx context.Context, ids []int64, fishID int64) ([]models.Segment, error)

	// HoldSegment sets reserved_until = until iff the segment is available and
	// has no hold ending at or after now. It reports whether the row changed.
	HoldSegment(ctx context.Context, segmentID int64, until, now time.Time) (bool, error)

	// WithinTx runs fn in a single transaction. Nothing fn wrote is visible
	// to anyone if fn returns an error.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	// ListOrdersByUserBefore pages newest-first, starting strictly after
	// cursor. A nil cursor starts at the newest order.
	ListOrdersByUserBefore(ctx context.Context, userID string, cursor *OrderCursor, limit int) ([]models.Order, error)
	// UpdateOrderStatus applies the change only if the row still has status
	// from and the given version.
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, version int) (*models.Order, error)
}

// Tx is the view of the store available inside a commit transaction.
type Tx interface {
	// LockSegments is GetSegmentsByIDs with row locks held until the
	// transaction ends.
	LockSegments(ctx context.Context, ids []int64, fishID int64) ([]models.Segment, error)
	// InsertOrder persists o and fills in ID, CreatedAt, UpdatedAt and Version.
	InsertOrder(ctx context.Context, o *models.Order) error
	// MarkSegmentsSold flips available to false for rows that are still
	// available and returns how many rows changed.
	MarkSegmentsSold(ctx context.Context, ids []int64, fishID int64) (int64, error)
}
