package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsroom/models"
	"newsroom/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no news item has the requested id
var ErrNotFound = errors.New("news not found")

// timeLayout sorts lexically in time order as long as every value is UTC
const timeLayout = "2006-01-02T15:04:05.000Z"

const insertNews = `INSERT OR IGNORE INTO news
	(title, link, summary, source, language, category, published_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// DB is the news store. Writes go through a single connection, reads through
// a separate pool.
type DB struct {
	path   string
	writer *sqlx.DB
	reader *sqlx.DB
	now    func() time.Time
}

type newsRow struct {
	Id          int64          `db:"id"`
	Title       string         `db:"title"`
	Link        string         `db:"link"`
	Summary     string         `db:"summary"`
	Source      string         `db:"source"`
	Language    sql.NullString `db:"language"`
	Category    sql.NullString `db:"category"`
	PublishedAt sql.NullString `db:"published_at"`
	CreatedAt   string         `db:"created_at"`
}

// Open migrates the database at path, creating it and its directory when
// missing, and opens the connection pools.
func Open(path string) (*DB, error) {
	if err := Migrate(path); err != nil {
		return nil, err
	}

	writer, err := writerConnection(path)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	reader, err := readerConnection(path)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	log.WithField("database", path).Info("Opened news database")

	return &DB{
		path:   path,
		writer: writer,
		reader: reader,
		now:    time.Now,
	}, nil
}

func (db *DB) Close() error {
	return errors.Join(db.writer.Close(), db.reader.Close())
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if err := db.reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// UpsertMany inserts items whose link is not stored yet and returns how many
// rows were added. Items without a title or link are dropped. The batch is
// written in one transaction, so either all new rows land or none do.
func (db *DB) UpsertMany(ctx context.Context, items []models.RawItem) (int, error) {
	valid := make([]models.RawItem, 0, len(items))
	for _, item := range items {
		if item.Valid() {
			valid = append(valid, item)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	tx, err := db.writer.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, insertNews)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := formatTime(db.now())
	inserted := 0
	for _, item := range valid {
		res, err := stmt.ExecContext(ctx,
			strings.TrimSpace(item.Title),
			strings.TrimSpace(item.Link),
			item.Summary,
			item.Source,
			nullString(item.Language),
			nullString(item.Category),
			nullTime(item.PublishedAt),
			createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", item.Link, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	log.WithFields(log.Fields{
		"items":    len(items),
		"dropped":  len(items) - len(valid),
		"inserted": inserted,
	}).Debug("Stored news batch")

	return inserted, nil
}

// List returns a page of news items, newest first by effective time. The
// filter is normalized before use.
func (db *DB) List(ctx context.Context, filter models.Filter) ([]models.StoredItem, error) {
	filter = filter.Normalize()
	q, args := query.FromFilter(filter).Build(filter.Limit, filter.Offset)

	log.WithFields(log.Fields{
		"sql":  q,
		"args": args,
	}).Trace("Listing news")

	var rows []newsRow
	if err := db.reader.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}

	items := make([]models.StoredItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetByID returns the item with id or ErrNotFound
func (db *DB) GetByID(ctx context.Context, id int64) (models.StoredItem, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(query.Columns...).From("news").Where(sb.Equal("news.id", id))
	q, args := sb.Build()

	var row newsRow
	if err := db.reader.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StoredItem{}, ErrNotFound
		}
		return models.StoredItem{}, fmt.Errorf("get news %d: %w", id, err)
	}
	return row.toItem()
}

// Count returns the number of stored items
func (db *DB) Count(ctx context.Context) (int64, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("news")
	q, args := sb.Build()

	var count int64
	if err := db.reader.GetContext(ctx, &count, q, args...); err != nil {
		return 0, fmt.Errorf("count news: %w", err)
	}
	return count, nil
}

// Stats returns the total number of items and the count per source
func (db *DB) Stats(ctx context.Context) (models.Stats, error) {
	total, err := db.Count(ctx)
	if err != nil {
		return models.Stats{}, err
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("source", "COUNT(*) AS count").From("news").GroupBy("source")
	q, args := sb.Build()

	var rows []struct {
		Source string `db:"source"`
		Count  int64  `db:"count"`
	}
	if err := db.reader.SelectContext(ctx, &rows, q, args...); err != nil {
		return models.Stats{}, fmt.Errorf("count news by source: %w", err)
	}

	stats := models.Stats{
		TotalNews: total,
		BySource:  make(map[string]int64, len(rows)),
	}
	for _, row := range rows {
		stats.BySource[row.Source] = row.Count
	}
	return stats, nil
}

func (row newsRow) toItem() (models.StoredItem, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return models.StoredItem{}, fmt.Errorf("news %d created_at: %w", row.Id, err)
	}

	item := models.StoredItem{
		Id: row.Id,
		RawItem: models.RawItem{
			Title:    row.Title,
			Link:     row.Link,
			Summary:  row.Summary,
			Source:   row.Source,
			Language: row.Language.String,
			Category: row.Category.String,
		},
		CreatedAt: createdAt,
	}

	if row.PublishedAt.Valid {
		publishedAt, err := parseTime(row.PublishedAt.String)
		if err != nil {
			return models.StoredItem{}, fmt.Errorf("news %d published_at: %w", row.Id, err)
		}
		item.PublishedAt = &publishedAt
	}

	return item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC(), err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// Path is the database file the store was opened on
func (db *DB) Path() string {
	return db.path
}
