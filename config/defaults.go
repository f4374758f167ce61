package config

import "newsroom/models"

// DefaultSources is the built-in source list used when no sources file is available
func DefaultSources() []models.Source {
	return []models.Source{
		{
			Name:     "WIRED AI",
			Url:      "https://www.wired.com/feed/tag/ai/latest/rss",
			Language: "en",
			Category: "media",
			Enabled:  true,
		},
		{
			Name:     "The Guardian AI",
			Url:      "https://www.theguardian.com/technology/artificialintelligenceai/rss",
			Language: "en",
			Category: "media",
			Enabled:  true,
		},
		{
			Name:     "ScienceDaily AI",
			Url:      "https://www.sciencedaily.com/rss/computers_math/artificial_intelligence.xml",
			Language: "en",
			Category: "research",
			Enabled:  true,
		},
		{
			Name:     "BBC Technology",
			Url:      "https://feeds.bbci.co.uk/news/technology/rss.xml",
			Language: "en",
			Category: "media",
			Enabled:  true,
		},
		{
			Name:     "Google AI Blog",
			Url:      "https://ai.googleblog.com/feeds/posts/default",
			Language: "en",
			Category: "official",
			Enabled:  true,
		},
		{
			Name:     "Hugging Face Blog",
			Url:      "https://huggingface.co/blog/feed.xml",
			Language: "en",
			Category: "official",
			Enabled:  true,
		},
		{
			Name:     "机器之心",
			Url:      "https://www.jiqizhixin.com/rss",
			Language: "zh",
			Category: "media",
			Enabled:  true,
		},
	}
}
