package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate is returned when a write collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = "23505"

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
