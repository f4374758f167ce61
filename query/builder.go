package query

import (
	"newsroom/models"

	"github.com/huandu/go-sqlbuilder"
)

// Columns selected for a stored news item
var Columns = []string{
	"news.id",
	"news.title",
	"news.link",
	"news.summary",
	"news.source",
	"news.language",
	"news.category",
	"news.published_at",
	"news.created_at",
}

// EffectiveTime is the ordering key of every listing
const EffectiveTime = "COALESCE(news.published_at, news.created_at)"

// NewsQueryBuilder builds news listing queries from filters
type NewsQueryBuilder struct {
	filters []FilterStrategy
}

func NewNewsQueryBuilder() *NewsQueryBuilder {
	return &NewsQueryBuilder{
		filters: make([]FilterStrategy, 0),
	}
}

// FromFilter creates a builder with the filters selected by f
func FromFilter(f models.Filter) Builder {
	b := NewNewsQueryBuilder()
	b.AddFilter(&TitleFilter{Query: f.Query})
	b.AddFilter(&SourceFilter{Source: f.Source})
	b.AddFilter(&LanguageFilter{Language: f.Language})
	return b
}

func (b *NewsQueryBuilder) AddFilter(filter FilterStrategy) {
	b.filters = append(b.filters, filter)
}

// Build returns the newest items first by effective time. The id breaks ties
// so that offset pagination is stable.
func (b *NewsQueryBuilder) Build(limit int, offset int) (string, []interface{}) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(Columns...).From("news")

	for _, filter := range b.filters {
		filter.ApplyFilter(sb)
	}

	sb.OrderBy(EffectiveTime+" DESC", "news.id DESC")
	sb.Limit(limit).Offset(offset)

	return sb.Build()
}
