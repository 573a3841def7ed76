package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means the row changed state between read and write.
	ErrConflict = errors.New("concurrent update conflict")
)

const uniqueViolationCode = "23505"

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint violation on
// a constraint whose name contains column. It needs the driver error, so the
// gorm connection must keep TranslateError off.
func isUniqueViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolationCode && strings.Contains(pgErr.ConstraintName, column)
}
