package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"newsroom/db"
	"newsroom/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "data", "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func at(t time.Time) *time.Time {
	return &t
}

func item(title, link, source string, published *time.Time) models.RawItem {
	return models.RawItem{
		Title:       title,
		Link:        link,
		Summary:     "summary of " + title,
		Source:      source,
		PublishedAt: published,
	}
}

func TestUpsertManyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	items := []models.RawItem{
		item("One", "https://example.com/1", "Test", at(epoch)),
		item("Two", "https://example.com/2", "Test", nil),
	}

	inserted, err := store.UpsertMany(ctx, items)
	assert.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = store.UpsertMany(ctx, items)
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := store.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpsertManyKeepsFirstVersionOfLink(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	_, err := store.UpsertMany(ctx, []models.RawItem{item("Original", "https://example.com/a", "First", nil)})
	require.NoError(t, err)

	inserted, err := store.UpsertMany(ctx, []models.RawItem{
		item("Changed", "https://example.com/a", "Second", at(epoch)),
		item("Changed again", "https://example.com/a", "Third", nil),
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)

	items, err := store.List(ctx, models.NewFilter())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Original", items[0].Title)
	assert.Equal(t, "First", items[0].Source)
	assert.Nil(t, items[0].PublishedAt)
}

func TestUpsertManyDropsItemsWithoutTitleOrLink(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	inserted, err := store.UpsertMany(ctx, []models.RawItem{
		item("", "https://example.com/no-title", "Test", nil),
		item("   ", "https://example.com/blank-title", "Test", nil),
		item("No link", "", "Test", nil),
		item("Valid", "https://example.com/valid", "Test", nil),
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, inserted)

	count, err := store.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertManyEmptyBatch(t *testing.T) {
	store := openTestDB(t)

	inserted, err := store.UpsertMany(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestListOrdersByEffectiveTime(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	store.SetNow(func() time.Time { return epoch.Add(36 * time.Hour) })

	_, err := store.UpsertMany(ctx, []models.RawItem{
		item("Oldest", "https://example.com/oldest", "Test", at(epoch)),
		item("Undated", "https://example.com/undated", "Test", nil),
		item("Newest", "https://example.com/newest", "Test", at(epoch.Add(48*time.Hour))),
		item("Middle", "https://example.com/middle", "Test", at(epoch.Add(24*time.Hour))),
	})
	require.NoError(t, err)

	items, err := store.List(ctx, models.NewFilter())
	require.NoError(t, err)

	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	// Undated sorts by its insertion time, 36h after epoch
	assert.Equal(t, []string{"Newest", "Undated", "Middle", "Oldest"}, titles)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].EffectiveTime().After(items[i-1].EffectiveTime()))
	}
}

func TestListRoundTripsFields(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	store.SetNow(func() time.Time { return epoch })

	published := time.Date(2024, 2, 3, 10, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	_, err := store.UpsertMany(ctx, []models.RawItem{{
		Title:       "  Padded title  ",
		Link:        " https://example.com/padded ",
		Summary:     "A summary",
		Source:      "Test",
		Language:    "en",
		Category:    "AI",
		PublishedAt: &published,
	}})
	require.NoError(t, err)

	items, err := store.List(ctx, models.NewFilter())
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.NotZero(t, got.Id)
	assert.Equal(t, "Padded title", got.Title)
	assert.Equal(t, "https://example.com/padded", got.Link)
	assert.Equal(t, "A summary", got.Summary)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, "AI", got.Category)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(*got.PublishedAt))
	assert.Equal(t, time.UTC, got.PublishedAt.Location())
	assert.True(t, epoch.Equal(got.CreatedAt))
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	items := make([]models.RawItem, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, item(
			fmt.Sprintf("Item %d", i),
			fmt.Sprintf("https://example.com/%d", i),
			"Test",
			at(epoch.Add(time.Duration(i)*time.Hour)),
		))
	}
	_, err := store.UpsertMany(ctx, items)
	require.NoError(t, err)

	seen := map[int64]bool{}
	for offset := 0; offset < 25; offset += 10 {
		page, err := store.List(ctx, models.Filter{Limit: 10, Offset: offset})
		require.NoError(t, err)
		for _, it := range page {
			assert.False(t, seen[it.Id], "item %d returned twice", it.Id)
			seen[it.Id] = true
		}
	}
	assert.Len(t, seen, 25)

	page, err := store.List(ctx, models.Filter{Limit: 10, Offset: 100})
	assert.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)
}

func TestListClampsLimit(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	items := make([]models.RawItem, 0, 120)
	for i := 0; i < 120; i++ {
		items = append(items, item(fmt.Sprintf("Item %d", i), fmt.Sprintf("https://example.com/%d", i), "Test", nil))
	}
	_, err := store.UpsertMany(ctx, items)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter models.Filter
		want   int
	}{
		{name: "default", filter: models.NewFilter(), want: 50},
		{name: "above maximum", filter: models.Filter{Limit: 500}, want: 100},
		{name: "zero", filter: models.Filter{Limit: 0}, want: 1},
		{name: "negative", filter: models.Filter{Limit: -5}, want: 1},
		{name: "negative offset", filter: models.Filter{Limit: 10, Offset: -3}, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.List(ctx, tt.filter)
			assert.NoError(t, err)
			assert.Len(t, page, tt.want)
		})
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	_, err := store.UpsertMany(ctx, []models.RawItem{
		{Title: "New LLM released", Link: "https://a.example/1", Source: "A", Language: "en"},
		{Title: "Robots everywhere", Link: "https://a.example/2", Source: "A", Language: "en"},
		{Title: "大模型 llm 进展", Link: "https://b.example/1", Source: "B", Language: "zh"},
		{Title: "100% accuracy", Link: "https://b.example/2", Source: "B"},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter models.Filter
		want   []string
	}{
		{name: "query is case insensitive", filter: models.Filter{Query: "llm"}, want: []string{"https://a.example/1", "https://b.example/1"}},
		{name: "query and source", filter: models.Filter{Query: "LLM", Source: "A"}, want: []string{"https://a.example/1"}},
		{name: "language", filter: models.Filter{Language: "zh"}, want: []string{"https://b.example/1"}},
		{name: "percent is literal", filter: models.Filter{Query: "100%"}, want: []string{"https://b.example/2"}},
		{name: "underscore is literal", filter: models.Filter{Query: "_"}, want: []string{}},
		{name: "unknown source", filter: models.Filter{Source: "C"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Limit = models.DefaultLimit
			page, err := store.List(ctx, tt.filter)
			require.NoError(t, err)

			links := make([]string, 0, len(page))
			for _, it := range page {
				links = append(links, it.Link)
			}
			assert.ElementsMatch(t, tt.want, links)
		})
	}
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	_, err := store.UpsertMany(ctx, []models.RawItem{item("One", "https://example.com/1", "Test", nil)})
	require.NoError(t, err)

	items, err := store.List(ctx, models.NewFilter())
	require.NoError(t, err)
	require.Len(t, items, 1)

	got, err := store.GetByID(ctx, items[0].Id)
	assert.NoError(t, err)
	assert.Equal(t, items[0], got)

	_, err = store.GetByID(ctx, items[0].Id+1000)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalNews)
	assert.NotNil(t, stats.BySource)
	assert.Empty(t, stats.BySource)

	_, err = store.UpsertMany(ctx, []models.RawItem{
		item("One", "https://a.example/1", "A", nil),
		item("Two", "https://a.example/2", "A", nil),
		item("Three", "https://b.example/1", "B", nil),
	})
	require.NoError(t, err)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalNews)
	assert.Equal(t, map[string]int64{"A": 2, "B": 1}, stats.BySource)
}

func TestClosedDatabaseReturnsErrors(t *testing.T) {
	ctx := context.Background()
	store, err := db.Open(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.UpsertMany(ctx, []models.RawItem{item("One", "https://example.com/1", "Test", nil)})
	assert.Error(t, err)

	_, err = store.List(ctx, models.NewFilter())
	assert.Error(t, err)

	_, err = store.Count(ctx)
	assert.Error(t, err)

	assert.Error(t, store.Ping(ctx))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "news.db")

	store, err := db.Open(path)
	require.NoError(t, err)
	_, err = store.UpsertMany(ctx, []models.RawItem{item("One", "https://example.com/1", "Test", nil)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = db.Open(path)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, path, store.Path())
}

func TestMigrateAndRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.db")

	assert.NoError(t, db.Migrate(path))
	assert.NoError(t, db.Migrate(path))
	assert.NoError(t, db.Rollback(path))
	assert.NoError(t, db.Migrate(path))
}
