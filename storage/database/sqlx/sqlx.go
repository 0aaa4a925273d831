// Package sqlxrepos implements the repositories on top of PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Executor is a *sqlx.DB or a *sqlx.Tx.
type Executor interface {
	sqlx.ExtContext
}

func newID() string {
	return uuid.New().String()
}

// isUUID reports whether id can be compared against a UUID column.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps "no rows" errors to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// placeholder returns the nth positional parameter.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}
