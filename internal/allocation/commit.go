package allocation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/fish-segments/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

type CommitRequest struct {
	UserID     string
	FishID     int64
	SegmentIDs []int64
	Customer   models.Customer
}

func generateOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString())
}

// Totals returns the summed weight and weight * pricePerKg.
func Totals(segments []models.Segment, pricePerKg decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	weight := decimal.Zero
	for _, seg := range segments {
		weight = weight.Add(seg.WeightKg)
	}
	return weight, weight.Mul(pricePerKg)
}

// Commit turns segmentIDs into a pending order and marks every segment sold,
// all or nothing. Holds are not consulted: any caller can buy a segment that
// is still available. Calling Commit twice with the same segments fails the
// second time with ErrSegmentUnavailable.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (order *models.Order, err error) {
	started := time.Now()
	ctx, span := s.startSpan(ctx, "allocation.Commit")
	defer func() {
		s.metrics.observeCommit(err, time.Since(started))
		endSpan(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("fish.id", req.FishID),
		attribute.Int64Slice("segment.ids", req.SegmentIDs),
	)

	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if req.FishID <= 0 {
		return nil, fmt.Errorf("%w: fish id %d", ErrInvalidInput, req.FishID)
	}
	if err := validateSegmentIDs(req.SegmentIDs); err != nil {
		return nil, err
	}
	customer, err := normalizeCustomer(req.Customer, calendarDay(s.now().UTC()))
	if err != nil {
		return nil, err
	}

	fish, err := s.store.GetFish(ctx, req.FishID)
	if err != nil {
		return nil, err
	}
	if !fish.Available {
		s.log.Warn().Int64("fish_id", fish.ID).Msg("committing against unavailable fish")
	}

	segmentIDs := append([]int64(nil), req.SegmentIDs...)

	err = s.store.WithinTx(ctx, func(tx Tx) error {
		segments, err := tx.LockSegments(ctx, segmentIDs, fish.ID)
		if err != nil {
			return fmt.Errorf("load segments: %w", err)
		}
		if len(segments) != len(segmentIDs) {
			return fmt.Errorf("%w: %d of %d segments can be sold",
				ErrSegmentUnavailable, len(segments), len(segmentIDs))
		}

		weight, price := Totals(segments, fish.PricePerKg)
		o := &models.Order{
			OrderNumber:   generateOrderNumber(),
			UserID:        req.UserID,
			FishID:        fish.ID,
			SegmentIDs:    segmentIDs,
			TotalWeightKg: weight,
			TotalPrice:    price,
			Customer:      customer,
			Status:        models.OrderStatusPending,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		sold, err := tx.MarkSegmentsSold(ctx, segmentIDs, fish.ID)
		if err != nil {
			return fmt.Errorf("mark segments sold: %w", err)
		}
		if sold != int64(len(segmentIDs)) {
			return fmt.Errorf("%w: %d of %d segments marked sold",
				ErrSegmentUnavailable, sold, len(segmentIDs))
		}

		order = o
		return nil
	})
	if err != nil {
		s.log.Info().
			Err(err).
			Int64("fish_id", req.FishID).
			Ints64("segment_ids", req.SegmentIDs).
			Msg("order commit rejected")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.log.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("fish_id", order.FishID).
		Ints64("segment_ids", order.SegmentIDs).
		Str("total_weight_kg", order.TotalWeightKg.String()).
		Str("total_price", order.TotalPrice.String()).
		Msg("order committed")

	return order, nil
}
