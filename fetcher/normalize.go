package fetcher

import (
	"html"
	"strings"
	"time"

	"newsroom/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// Normalizer turns parsed feed entries into RawItems
type Normalizer struct {
	policy *bluemonday.Policy
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Items normalizes every entry of the feed and drops entries without a title or link
func (n *Normalizer) Items(feed *gofeed.Feed, source models.Source) []models.RawItem {
	items := make([]models.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if item, ok := n.Item(entry, source); ok {
			items = append(items, item)
		}
	}
	return items
}

// Item normalizes one entry. The second return value is false when the entry
// must be dropped.
func (n *Normalizer) Item(entry *gofeed.Item, source models.Source) (models.RawItem, bool) {
	if entry == nil {
		return models.RawItem{}, false
	}

	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return models.RawItem{}, false
	}

	return models.RawItem{
		Title:       title,
		Link:        link,
		Summary:     n.Summary(entry.Description, entry.Content),
		Source:      source.Name,
		Language:    source.Language,
		Category:    source.Category,
		PublishedAt: PublishedAt(entry),
	}, true
}

// Summary prefers the short description over the full content and reduces it to plain text
func (n *Normalizer) Summary(description, content string) string {
	raw := StripCDATA(description)
	if strings.TrimSpace(raw) == "" {
		raw = StripCDATA(content)
	}
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := html.UnescapeString(n.policy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

// StripCDATA removes CDATA wrapper markers and surrounding whitespace
func StripCDATA(s string) string {
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	s = strings.ReplaceAll(s, "]]>", "")
	return strings.TrimSpace(s)
}

// PublishedAt returns the entry publish time in UTC, falling back to the
// update time. It is nil when neither could be parsed.
func PublishedAt(entry *gofeed.Item) *time.Time {
	for _, t := range []*time.Time{entry.PublishedParsed, entry.UpdatedParsed} {
		if t != nil && !t.IsZero() {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
