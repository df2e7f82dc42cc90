package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

// clampPage applies the default and maximum page sizes.
func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
