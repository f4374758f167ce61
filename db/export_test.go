package db

import "time"

// SetNow replaces the clock used for created_at
func (db *DB) SetNow(now func() time.Time) {
	db.now = now
}
