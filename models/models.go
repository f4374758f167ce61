package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
	MinLimit     = 1
)

// Source is one configured feed endpoint
type Source struct {
	Name     string `json:"name" toml:"name"`
	Url      string `json:"url" toml:"url"`
	Language string `json:"language,omitempty" toml:"language"`
	Category string `json:"category,omitempty" toml:"category"`
	Enabled  bool   `json:"enabled" toml:"enabled"`
}

// UnmarshalJSON treats a missing enabled field as enabled
func (s *Source) UnmarshalJSON(data []byte) error {
	type source Source
	aux := source{Enabled: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Source(aux)
	return nil
}

// RawItem is a normalized feed entry that has not been stored yet
type RawItem struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary"`
	Source      string     `json:"source"`
	Language    string     `json:"language,omitempty"`
	Category    string     `json:"category,omitempty"`
	PublishedAt *time.Time `json:"published_at"`
}

// Valid reports whether the item has both a title and a link
func (i RawItem) Valid() bool {
	return strings.TrimSpace(i.Title) != "" && strings.TrimSpace(i.Link) != ""
}

// StoredItem is a persisted news item
type StoredItem struct {
	Id int64 `json:"id"`
	RawItem
	CreatedAt time.Time `json:"created_at"`
}

// EffectiveTime is the publish time if known, otherwise the insertion time.
// Lists are ordered by it.
func (i StoredItem) EffectiveTime() time.Time {
	if i.PublishedAt != nil {
		return *i.PublishedAt
	}
	return i.CreatedAt
}

// Filter narrows and pages a news listing.
// Title matching is a substring match, case-insensitive for ASCII letters only.
type Filter struct {
	Query    string
	Source   string
	Language string
	Limit    int
	Offset   int
}

func NewFilter() Filter {
	return Filter{Limit: DefaultLimit}
}

// Normalize clamps limit into [MinLimit, MaxLimit] and offset to >= 0
func (f Filter) Normalize() Filter {
	if f.Limit < MinLimit {
		f.Limit = MinLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type Stats struct {
	TotalNews int64            `json:"total_news"`
	BySource  map[string]int64 `json:"by_source"`
}

// SourceFailure records why one source failed during a pass
type SourceFailure struct {
	Source string `json:"source"`
	Url    string `json:"url"`
	Error  string `json:"error"`
}

// PassResult summarizes one ingestion pass
type PassResult struct {
	Id         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Sources    int             `json:"sources"`
	Enabled    int             `json:"enabled"`
	Succeeded  int             `json:"succeeded"`
	Fetched    int             `json:"fetched"`
	Inserted   int             `json:"inserted"`
	Failures   []SourceFailure `json:"failures,omitempty"`
}

func (r PassResult) Failed() int {
	return len(r.Failures)
}
