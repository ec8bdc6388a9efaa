package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/medflow/picking-service/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError.
// Returns nil if the error is not a pq.Error or has no specific mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	code := string(pqErr.Code)
	switch {
	// invalid_text_representation, e.g. a malformed uuid literal
	case code == "22P02":
		return errors.BadRequest("malformed identifier")

	// connection_exception class
	case strings.HasPrefix(code, "08"):
		return errors.Unavailable("database connection failed", err)

	// insufficient_resources class
	case strings.HasPrefix(code, "53"):
		return errors.Unavailable("database is overloaded", err)

	// admin_shutdown, crash_shutdown, cannot_connect_now
	case code == "57P01" || code == "57P02" || code == "57P03":
		return errors.Unavailable("database is restarting", err)

	// query_canceled (statement_timeout)
	case code == "57014":
		return errors.Unavailable("database query timed out", err)

	default:
		return nil
	}
}
