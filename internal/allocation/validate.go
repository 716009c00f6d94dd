package allocation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/safar/fish-segments/internal/models"
)

var reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const maxEmailLength = 254

func validateSegmentIDs(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: segment ids must not be empty", ErrInvalidInput)
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: segment id %d", ErrInvalidInput, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate segment id %d", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// normalizeCustomer trims the contact fields and checks them against today,
// which must be a UTC midnight.
func normalizeCustomer(c models.Customer, today time.Time) (models.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.DeliveryAddress = strings.TrimSpace(c.DeliveryAddress)

	if c.Name == "" {
		return c, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if len(c.Email) > maxEmailLength || !reEmail.MatchString(c.Email) {
		return c, fmt.Errorf("%w: customer email is invalid", ErrInvalidInput)
	}
	if c.DeliveryDate != nil {
		d := calendarDay(*c.DeliveryDate)
		if d.Before(today) {
			return c, fmt.Errorf("%w: delivery date %s is in the past", ErrInvalidInput, d.Format(time.DateOnly))
		}
		c.DeliveryDate = &d
	}
	return c, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
