package sink

import (
	"database/sql"
	"fmt"
	"regexp"

	"github.com/scrinium/bibrange/core/errors"
)

// The SQLite store works with both the pure Go driver (modernc.org/sqlite,
// the default) and the CGO driver (mattn/go-sqlite3, behind the cgo_sqlite
// build tag). Use OpenDB instead of sql.Open so the registered driver for
// this build is used.

// DriverName returns the SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3, "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// DriverInfo describes the SQLite driver configuration.
type DriverInfo struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetDriverInfo returns information about the current SQLite configuration.
func GetDriverInfo() DriverInfo {
	return DriverInfo{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}

// OpenDB opens a SQLite database using whichever driver this binary carries.
func OpenDB(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSink stores ranges in a private table. All writes run inside one
// transaction committed on Close.
type SQLiteSink struct {
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// range table and its indexes exist.
func OpenSQLite(path, table string) (*SQLiteSink, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, errors.NewConfig("", 0, fmt.Sprintf("table name %q is not a plain identifier", table))
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}

	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id     TEXT NOT NULL,
			record_id  TEXT NOT NULL,
			field      TEXT NOT NULL,
			input      TEXT NOT NULL,
			start_code TEXT NOT NULL,
			end_code   TEXT NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_record_idx ON %s (record_id)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_code_idx ON %s (start_code, end_code)`, table, table),
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "create table %s", table)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "begin transaction")
	}
	insert, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO %s (run_id, record_id, field, input, start_code, end_code) VALUES (?, ?, ?, ?, ?, ?)`,
		table,
	))
	if err != nil {
		tx.Rollback()
		db.Close()
		return nil, errors.Wrap(err, "prepare insert")
	}

	return &SQLiteSink{db: db, tx: tx, stmt: insert}, nil
}

// Write inserts one entry.
func (s *SQLiteSink) Write(e Entry) error {
	_, err := s.stmt.Exec(e.RunID, e.RecordID, e.Field, e.Input, e.Range.Start, e.Range.End)
	if err != nil {
		return errors.Wrap(err, "insert range")
	}
	return nil
}

// Close commits the transaction and closes the database.
func (s *SQLiteSink) Close() error {
	commitErr := s.tx.Commit()
	closeErr := s.db.Close()
	if commitErr != nil {
		return errors.Wrap(commitErr, "commit ranges")
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "close database")
	}
	return nil
}
