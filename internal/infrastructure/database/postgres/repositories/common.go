// Package repositories provides the PostgreSQL-backed implementations of
// the citation domain's repository interfaces.  Every method takes a
// context, scopes queries by tenant and project, and uses parameterised
// SQL exclusively.
package repositories

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the postgres SQLSTATE for a unique-constraint breach.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

//Personal.AI order the ending
