package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

const fishColumns = `id, name, weight_kg, catch_date, location, grade, price_per_kg, is_available, created_at, updated_at`

func scanFish(row rowScanner) (*models.Fish, error) {
	f := &models.Fish{}
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.WeightKg,
		&f.CatchDate,
		&f.Location,
		&f.Grade,
		&f.PricePerKg,
		&f.Available,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFish loads a fish into the catalog.
func (p *Postgres) CreateFish(ctx context.Context, f models.Fish) (*models.Fish, error) {
	if err := validateFish(f); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO fish (name, weight_kg, catch_date, location, grade, price_per_kg, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + fishColumns

	created, err := scanFish(p.db.QueryRowContext(ctx, query,
		f.Name, f.WeightKg, f.CatchDate, f.Location, f.Grade, f.PricePerKg, f.Available))
	if err != nil {
		return nil, fmt.Errorf("create fish: %w", err)
	}
	return created, nil
}

// SetFishAvailable toggles a fish in or out of the catalog.
func (p *Postgres) SetFishAvailable(ctx context.Context, id int64, available bool) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE fish SET is_available = $1, updated_at = NOW() WHERE id = $2`,
		available, id)
	if err != nil {
		return fmt.Errorf("update fish availability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return allocation.ErrFishNotFound
	}
	return nil
}

func (p *Postgres) ListAvailableFish(ctx context.Context) ([]models.Fish, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+fishColumns+`
		FROM fish
		WHERE is_available
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list fish: %w", err)
	}
	defer rows.Close()

	fish := []models.Fish{}
	for rows.Next() {
		f, err := scanFish(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fish: %w", err)
		}
		fish = append(fish, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return fish, nil
}

func (p *Postgres) GetFish(ctx context.Context, fishID int64) (*models.Fish, error) {
	return getFish(ctx, p.db, `SELECT `+fishColumns+` FROM fish WHERE id = $1`, fishID)
}

func (p *Postgres) GetFishWithSegments(ctx context.Context, fishID int64) (*models.Fish, []models.Segment, error) {
	f, err := getFish(ctx, p.db, `SELECT `+fishColumns+` FROM fish WHERE id = $1 AND is_available`, fishID)
	if err != nil {
		return nil, nil, err
	}

	segments, err := querySegments(ctx, p.db, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE fish_id = $1
		ORDER BY name, id`,
		fishID)
	if err != nil {
		return nil, nil, err
	}

	return f, segments, nil
}

func getFish(ctx context.Context, q querier, query string, fishID int64) (*models.Fish, error) {
	f, err := scanFish(q.QueryRowContext(ctx, query, fishID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, allocation.ErrFishNotFound
		}
		return nil, fmt.Errorf("get fish: %w", err)
	}
	return f, nil
}
