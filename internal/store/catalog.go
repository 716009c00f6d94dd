package store

import (
	"context"
	"fmt"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

func validateFish(f models.Fish) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("%w: fish name is required", allocation.ErrInvalidInput)
	case !f.Grade.Valid():
		return fmt.Errorf("%w: unknown grade %q", allocation.ErrInvalidInput, f.Grade)
	case !f.PricePerKg.IsPositive():
		return fmt.Errorf("%w: price per kg must be positive", allocation.ErrInvalidInput)
	case !f.WeightKg.IsPositive():
		return fmt.Errorf("%w: fish weight must be positive", allocation.ErrInvalidInput)
	}
	return nil
}

func validateSegment(s models.Segment) error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: segment name is required", allocation.ErrInvalidInput)
	case !s.Type.Valid():
		return fmt.Errorf("%w: unknown segment type %q", allocation.ErrInvalidInput, s.Type)
	case !s.WeightKg.IsPositive():
		return fmt.Errorf("%w: segment weight must be positive", allocation.ErrInvalidInput)
	}
	return nil
}

// Catalog is the write side used at catalog-load time. Both stores
// implement it.
type Catalog interface {
	CreateFish(ctx context.Context, f models.Fish) (*models.Fish, error)
	CreateSegment(ctx context.Context, s models.Segment) (*models.Segment, error)
	GetSegment(ctx context.Context, id int64) (*models.Segment, error)
	SetFishAvailable(ctx context.Context, id int64, available bool) error
}

var (
	_ Catalog = (*Memory)(nil)
	_ Catalog = (*Postgres)(nil)
)

// LoadCatalog creates a fish and its segments, pointing each segment at the
// new fish.
func LoadCatalog(ctx context.Context, c Catalog, f models.Fish, segments []models.Segment) (*models.Fish, []models.Segment, error) {
	fish, err := c.CreateFish(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	created := make([]models.Segment, 0, len(segments))
	for _, s := range segments {
		s.FishID = fish.ID
		seg, err := c.CreateSegment(ctx, s)
		if err != nil {
			return nil, nil, fmt.Errorf("load segment %q: %w", s.Name, err)
		}
		created = append(created, *seg)
	}
	return fish, created, nil
}
