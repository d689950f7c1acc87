package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure, on postgres or sqlite3.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Cause(err) == sql.ErrNoRows
}
