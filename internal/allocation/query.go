package allocation

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/fish-segments/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type FishDetail struct {
	Fish     models.Fish      `json:"fish"`
	Segments []models.Segment `json:"segments"`
}

func (s *Service) ListFish(ctx context.Context) (fish []models.Fish, err error) {
	ctx, span := s.startSpan(ctx, "allocation.ListFish")
	defer func() { endSpan(span, err) }()

	fish, err = s.store.ListAvailableFish(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fish: %w", err)
	}
	return fish, nil
}

// GetFishDetail returns an available fish with all of its segments, sold ones
// included. Selectability is the segment's Available flag; active holds do
// not hide a segment.
func (s *Service) GetFishDetail(ctx context.Context, fishID int64) (detail *FishDetail, err error) {
	ctx, span := s.startSpan(ctx, "allocation.GetFishDetail")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("fish.id", fishID))

	if fishID <= 0 {
		return nil, ErrFishNotFound
	}
	fish, segments, err := s.store.GetFishWithSegments(ctx, fishID)
	if err != nil {
		return nil, err
	}
	return &FishDetail{Fish: *fish, Segments: segments}, nil
}

func (s *Service) ListOrdersForUser(ctx context.Context, userID string) (orders []models.Order, err error) {
	ctx, span := s.startSpan(ctx, "allocation.ListOrdersForUser")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	orders, err = s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) ListOrdersPage(ctx context.Context, userID, cursor string, limit int) (page *OrderPage, err error) {
	ctx, span := s.startSpan(ctx, "allocation.ListOrdersPage")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampPageSize(limit)

	orders, err := s.store.ListOrdersByUserBefore(ctx, userID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	page = &OrderPage{Items: orders, HasMore: hasMore}
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		page.NextCursor = EncodeCursor(OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// GetOrder returns the order only to the user who placed it.
func (s *Service) GetOrder(ctx context.Context, userID string, orderID int64) (order *models.Order, err error) {
	ctx, span := s.startSpan(ctx, "allocation.GetOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	order, err = s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// AdvanceOrderStatus moves an order forward in the fulfillment workflow.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID int64, to models.OrderStatus) (order *models.Order, err error) {
	ctx, span := s.startSpan(ctx, "allocation.AdvanceOrderStatus")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.String("order.status", string(to)))

	current, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanAdvanceTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, to)
	}

	order, err = s.store.UpdateOrderStatus(ctx, orderID, current.Status, to, current.Version)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("order_id", orderID).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Msg("order status advanced")
	return order, nil
}

// Quote prices a selection without holding anything. Segments that are sold
// or belong to another fish are listed in Unavailable and left out of the
// totals.
type Quote struct {
	FishID        int64           `json:"fish_id"`
	SegmentIDs    []int64         `json:"segment_ids"`
	Unavailable   []int64         `json:"unavailable"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

func (s *Service) QuoteSegments(ctx context.Context, fishID int64, segmentIDs []int64) (quote *Quote, err error) {
	ctx, span := s.startSpan(ctx, "allocation.QuoteSegments")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("fish.id", fishID), attribute.Int64Slice("segment.ids", segmentIDs))

	if err := validateSegmentIDs(segmentIDs); err != nil {
		return nil, err
	}
	if fishID <= 0 {
		return nil, ErrFishNotFound
	}
	fish, err := s.store.GetFish(ctx, fishID)
	if err != nil {
		return nil, err
	}

	segments, err := s.store.GetSegmentsByIDs(ctx, segmentIDs, fishID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}

	found := make(map[int64]bool, len(segments))
	for _, seg := range segments {
		found[seg.ID] = true
	}
	quote = &Quote{FishID: fishID, SegmentIDs: []int64{}, Unavailable: []int64{}}
	for _, id := range segmentIDs {
		if found[id] {
			quote.SegmentIDs = append(quote.SegmentIDs, id)
		} else {
			quote.Unavailable = append(quote.Unavailable, id)
		}
	}
	quote.TotalWeightKg, quote.TotalPrice = Totals(segments, fish.PricePerKg)
	return quote, nil
}
