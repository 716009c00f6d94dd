package allocation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Hold is the outcome of a reserve call. Every granted segment shares
// ReservedUntil.
type Hold struct {
	ReservedUntil time.Time `json:"reserve_until"`
	Granted       []int64   `json:"granted"`
	Rejected      []int64   `json:"rejected"`
}

// Reserve places a best-effort hold on each segment. Each hold is an
// independent conditional write; a rejected segment does not undo its
// siblings. The user identity is required but not attached to the hold.
func (s *Service) Reserve(ctx context.Context, userID string, segmentIDs []int64) (hold *Hold, err error) {
	ctx, span := s.startSpan(ctx, "allocation.Reserve")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64Slice("segment.ids", segmentIDs))

	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if err := validateSegmentIDs(segmentIDs); err != nil {
		return nil, err
	}

	now := s.now()
	hold = &Hold{
		ReservedUntil: now.Add(s.holdDuration),
		Granted:       make([]int64, 0, len(segmentIDs)),
		Rejected:      []int64{},
	}

	for _, id := range segmentIDs {
		ok, err := s.store.HoldSegment(ctx, id, hold.ReservedUntil, now)
		if err != nil {
			s.metrics.observeHolds(len(hold.Granted), len(hold.Rejected))
			return nil, fmt.Errorf("hold segment %d: %w", id, err)
		}
		if ok {
			hold.Granted = append(hold.Granted, id)
		} else {
			hold.Rejected = append(hold.Rejected, id)
		}
	}

	s.metrics.observeHolds(len(hold.Granted), len(hold.Rejected))
	span.SetAttributes(
		attribute.Int("segment.granted", len(hold.Granted)),
		attribute.Int("segment.rejected", len(hold.Rejected)),
	)
	s.log.Info().
		Str("user_id", userID).
		Ints64("granted", hold.Granted).
		Ints64("rejected", hold.Rejected).
		Time("reserved_until", hold.ReservedUntil).
		Msg("segments reserved")

	return hold, nil
}
