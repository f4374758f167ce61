package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"newsroom/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNormalize(t *testing.T) {
	tests := []struct {
		name     string
		filter   models.Filter
		expected models.Filter
	}{
		{name: "default", filter: models.NewFilter(), expected: models.Filter{Limit: 50}},
		{name: "above maximum", filter: models.Filter{Limit: 500}, expected: models.Filter{Limit: 100}},
		{name: "zero", filter: models.Filter{Limit: 0}, expected: models.Filter{Limit: 1}},
		{name: "negative", filter: models.Filter{Limit: -1, Offset: -10}, expected: models.Filter{Limit: 1}},
		{name: "in range", filter: models.Filter{Query: "ai", Limit: 20, Offset: 40}, expected: models.Filter{Query: "ai", Limit: 20, Offset: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Normalize())
		})
	}
}

func TestSourceEnabledDefaultsToTrue(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected bool
	}{
		{name: "missing", data: `{"name":"A","url":"https://a.example/feed"}`, expected: true},
		{name: "true", data: `{"name":"A","url":"https://a.example/feed","enabled":true}`, expected: true},
		{name: "false", data: `{"name":"A","url":"https://a.example/feed","enabled":false}`, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var source models.Source
			require.NoError(t, json.Unmarshal([]byte(tt.data), &source))
			assert.Equal(t, "A", source.Name)
			assert.Equal(t, tt.expected, source.Enabled)
		})
	}
}

func TestRawItemValid(t *testing.T) {
	assert.True(t, models.RawItem{Title: "t", Link: "l"}.Valid())
	assert.False(t, models.RawItem{Title: " ", Link: "l"}.Valid())
	assert.False(t, models.RawItem{Title: "t", Link: "\n"}.Valid())
}

func TestEffectiveTime(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	published := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	undated := models.StoredItem{CreatedAt: created}
	assert.Equal(t, created, undated.EffectiveTime())

	dated := models.StoredItem{CreatedAt: created, RawItem: models.RawItem{PublishedAt: &published}}
	assert.Equal(t, published, dated.EffectiveTime())
}

func TestStoredItemJSON(t *testing.T) {
	item := models.StoredItem{
		Id:        7,
		RawItem:   models.RawItem{Title: "Hello", Link: "https://x/1", Source: "Test"},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"title": "Hello",
		"link": "https://x/1",
		"summary": "",
		"source": "Test",
		"published_at": null,
		"created_at": "2024-01-01T00:00:00Z"
	}`, string(data))
}
