package query

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// TitleFilter keeps items whose title contains Query. SQLite LIKE makes the
// match case-insensitive for ASCII letters only.
type TitleFilter struct {
	Query string
}

func (f *TitleFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if f.Query == "" {
		return
	}
	pattern := "%" + escapeLike(f.Query) + "%"
	sb.Where(fmt.Sprintf(`news.title LIKE %s ESCAPE '\'`, sb.Var(pattern)))
}

// SourceFilter keeps items from one source
type SourceFilter struct {
	Source string
}

func (f *SourceFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if f.Source != "" {
		sb.Where(sb.Equal("news.source", f.Source))
	}
}

// LanguageFilter keeps items tagged with one language
type LanguageFilter struct {
	Language string
}

func (f *LanguageFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	if f.Language != "" {
		sb.Where(sb.Equal("news.language", f.Language))
	}
}

// escapeLike makes % and _ match literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ FilterStrategy = (*TitleFilter)(nil)
var _ FilterStrategy = (*SourceFilter)(nil)
var _ FilterStrategy = (*LanguageFilter)(nil)
