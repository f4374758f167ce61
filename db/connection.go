package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

// writerConnection opens the single connection all writes go through.
// SQLite only supports one writer at a time.
func writerConnection(database string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", fmt.Sprintf("%s?%s", database, pragmas))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	return db, nil
}

// readerConnection opens a pool of query-only connections. WAL mode lets
// them read while the writer holds its lock.
func readerConnection(database string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", fmt.Sprintf("%s?%s&_pragma=query_only(1)", database, pragmas))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	return db, nil
}
