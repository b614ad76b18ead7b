// Package sqlrepo implements the repository interfaces over database/sql.
// The same queries serve MySQL and SQLite; only error classification is
// dialect specific.
package sqlrepo

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/duongquang05/marathon-portal/internal/database"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// New wires every repository to db. The returned Stores owns db and
// closes it.
func New(db *sql.DB, dialect string) (*repository.Stores, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if dialect != database.MySQL && dialect != database.SQLite {
		return nil, fmt.Errorf("unknown sql dialect %q", dialect)
	}
	return &repository.Stores{
		Marathons:      &MarathonRepo{DB: db},
		Users:          &UserRepo{DB: db},
		Participations: &ParticipationRepo{DB: db},
		PassingPoints:  &PassingPointRepo{DB: db},
		Tokens:         &TokenRepo{DB: db},
		Closer:         db,
		Pinger:         db.PingContext,
	}, nil
}

// mapWriteErr folds driver constraint failures into repository sentinels.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) || isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// mapInsertErr is mapWriteErr for inserts, where a foreign key failure
// means the parent row is missing rather than still referenced.
func mapInsertErr(err error) error {
	if err != nil && !isUniqueViolation(err) && isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", repository.ErrMissingReference, err)
	}
	return mapWriteErr(err)
}

// 1451/1452: row is referenced / parent row missing.
func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1451 || myErr.Number == 1452
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// expectOne turns a zero-row UPDATE/DELETE into ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
