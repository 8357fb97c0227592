package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// nullIfEmpty maps "" to SQL NULL so that empty ids never reach uuid columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
