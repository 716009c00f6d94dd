package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

const foreignKeyViolation = "23503"

const segmentColumns = `id, fish_id, name, segment_type, weight_kg, position_x, position_y, width, height, is_available, reserved_until, created_at, updated_at`

func scanSegment(row rowScanner) (*models.Segment, error) {
	s := &models.Segment{}
	var reservedUntil sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.FishID,
		&s.Name,
		&s.Type,
		&s.WeightKg,
		&s.PositionX,
		&s.PositionY,
		&s.Width,
		&s.Height,
		&s.Available,
		&reservedUntil,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reservedUntil.Valid {
		t := reservedUntil.Time
		s.ReservedUntil = &t
	}
	return s, nil
}

func querySegments(ctx context.Context, q querier, query string, args ...any) ([]models.Segment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	segments := []models.Segment{}
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return segments, nil
}

// CreateSegment loads a segment of an existing fish into the catalog.
func (p *Postgres) CreateSegment(ctx context.Context, s models.Segment) (*models.Segment, error) {
	if err := validateSegment(s); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO segments (fish_id, name, segment_type, weight_kg, position_x, position_y, width, height,
		                      is_available, reserved_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING ` + segmentColumns

	created, err := scanSegment(p.db.QueryRowContext(ctx, query,
		s.FishID, s.Name, s.Type, s.WeightKg, s.PositionX, s.PositionY, s.Width, s.Height,
		s.Available, s.ReservedUntil))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return nil, allocation.ErrFishNotFound
		}
		return nil, fmt.Errorf("create segment: %w", err)
	}
	return created, nil
}

// GetSegment returns a segment regardless of availability.
func (p *Postgres) GetSegment(ctx context.Context, id int64) (*models.Segment, error) {
	s, err := scanSegment(p.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get segment %d: %w", id, err)
	}
	return s, nil
}

func (p *Postgres) GetSegmentsByIDs(ctx context.Context, ids []int64, fishID int64) ([]models.Segment, error) {
	return querySegments(ctx, p.db, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE id = ANY($1) AND fish_id = $2 AND is_available
		ORDER BY id`,
		pq.Array(ids), fishID)
}

func (p *Postgres) HoldSegment(ctx context.Context, segmentID int64, until, now time.Time) (bool, error) {
	result, err := p.db.ExecContext(ctx,
		`UPDATE segments
		 SET reserved_until = $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND is_available
		   AND (reserved_until IS NULL OR reserved_until < $3)`,
		until, segmentID, now)
	if err != nil {
		return false, fmt.Errorf("hold segment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}
