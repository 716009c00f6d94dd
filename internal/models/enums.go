package models

type SegmentType string

const (
	SegmentPremiumBelly   SegmentType = "Otoro"
	SegmentMediumBelly    SegmentType = "Chutoro"
	SegmentLeanBelly      SegmentType = "Toro Akami"
	SegmentLeanBlock      SegmentType = "Akami Block"
	SegmentLeanTail       SegmentType = "Akami Tail"
	SegmentBellyTail      SegmentType = "Toro Tail"
	SegmentCollarShoulder SegmentType = "Kama Shoulder"
)

func (t SegmentType) Valid() bool {
	switch t {
	case SegmentPremiumBelly, SegmentMediumBelly, SegmentLeanBelly,
		SegmentLeanBlock, SegmentLeanTail, SegmentBellyTail, SegmentCollarShoulder:
		return true
	}
	return false
}

type Grade string

const (
	GradePremium  Grade = "Premium"
	GradeSuperior Grade = "Superior"
	GradeA        Grade = "Grade A"
	GradeB        Grade = "Grade B"
)

func (g Grade) Valid() bool {
	switch g {
	case GradePremium, GradeSuperior, GradeA, GradeB:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusUnknown   OrderStatus = "unknown"
)

// ParseOrderStatus maps unrecognised values to OrderStatusUnknown so rows
// written by newer versions still load.
func ParseOrderStatus(s string) OrderStatus {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered:
		return st
	}
	return OrderStatusUnknown
}

func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 1
	case OrderStatusConfirmed:
		return 2
	case OrderStatusDelivered:
		return 3
	}
	return 0
}

// CanAdvanceTo reports whether moving from s to next is a forward step.
// Unknown is neither a valid source nor a valid target.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	from, to := s.rank(), next.rank()
	return from > 0 && to > from
}
