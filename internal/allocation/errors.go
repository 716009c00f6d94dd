package allocation

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrFishNotFound            = errors.New("fish not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrSegmentUnavailable      = errors.New("segment unavailable")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOptimisticLockFailed    = errors.New("optimistic lock failed")
)
