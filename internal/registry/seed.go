package registry

import (
	"time"

	"novasynth/internal/core"
)

// DefaultSeed is the static catalog compiled into the binary (4.A: "Created
// statically at compile time or dynamically by F; never destroyed").
// Selectors and rate limits are grounded on the original source's
// WORLD_NEWS_SOURCES table; auto-discovered sources (4.F) are appended at
// runtime via Registry.Add and never appear here.
func DefaultSeed() []core.Source {
	return []core.Source{
		{
			Domain:        "lemonde.fr",
			Name:          "Le Monde",
			BaseURL:       "https://www.lemonde.fr",
			LinkSelectors: map[string]string{"article_links": "article a[href*='/article/']"},
			TitleSelector: "h1.article__title",
			BodySelector:  "div.article__content p",
			RateLimit:     time.Second,
			Tier:          core.TierMajor,
			Language:      "fr",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractRSSFull, core.ExtractScrapeFull},
		},
		{
			Domain:        "lefigaro.fr",
			Name:          "Le Figaro",
			BaseURL:       "https://www.lefigaro.fr",
			LinkSelectors: map[string]string{"article_links": "article a.fig-profile__link"},
			TitleSelector: "h1",
			BodySelector:  "div.fig-content__body p",
			RateLimit:     time.Second,
			Tier:          core.TierMajor,
			Language:      "fr",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
		{
			Domain:        "liberation.fr",
			Name:          "Libération",
			BaseURL:       "https://www.liberation.fr",
			LinkSelectors: map[string]string{"article_links": "article a"},
			TitleSelector: "h1",
			BodySelector:  "div.article-body p",
			RateLimit:     time.Second,
			Tier:          core.TierStandard,
			Language:      "fr",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
		{
			Domain:        "lesechos.fr",
			Name:          "Les Echos",
			BaseURL:       "https://www.lesechos.fr",
			LinkSelectors: map[string]string{"article_links": "article a"},
			TitleSelector: "h1",
			BodySelector:  "div.post-content p",
			RateLimit:     1500 * time.Millisecond,
			Tier:          core.TierStandard,
			Language:      "fr",
			CategoryHint:  "business",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
		{
			Domain:        "nytimes.com",
			Name:          "The New York Times",
			BaseURL:       "https://www.nytimes.com",
			LinkSelectors: map[string]string{"article_links": "article a"},
			TitleSelector: "h1[data-testid='headline']",
			BodySelector:  "section[name='articleBody'] p",
			RateLimit:     2 * time.Second,
			Tier:          core.TierMajor,
			Language:      "en",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractRSSFull, core.ExtractScrapeFull},
		},
		{
			Domain:        "theguardian.com",
			Name:          "The Guardian",
			BaseURL:       "https://www.theguardian.com/international",
			LinkSelectors: map[string]string{"article_links": "a[data-link-name='article']"},
			TitleSelector: "h1",
			BodySelector:  "div[data-gu-name='body'] p",
			RateLimit:     time.Second,
			Tier:          core.TierMajor,
			Language:      "en",
			CategoryHint:  "general",
			RSSFeeds:      []string{"https://www.theguardian.com/international/rss"},
			Strategies:    []core.ExtractionMethod{core.ExtractRSSFull, core.ExtractScrapeFull},
		},
		{
			Domain:        "bbc.com",
			Name:          "BBC News",
			BaseURL:       "https://www.bbc.com/news",
			LinkSelectors: map[string]string{"article_links": "a[data-testid='internal-link']"},
			TitleSelector: "h1",
			BodySelector:  "article p",
			RateLimit:     time.Second,
			Tier:          core.TierMajor,
			Language:      "en",
			CategoryHint:  "general",
			RSSFeeds:      []string{"https://feeds.bbci.co.uk/news/rss.xml"},
			Strategies:    []core.ExtractionMethod{core.ExtractRSSFull, core.ExtractScrapeFull},
		},
		{
			Domain:        "reuters.com",
			Name:          "Reuters",
			BaseURL:       "https://www.reuters.com/world/",
			LinkSelectors: map[string]string{"article_links": "a[href*='/world/']"},
			TitleSelector: "h1",
			BodySelector:  "div[data-testid='paragraph'] p",
			RateLimit:     1500 * time.Millisecond,
			Tier:          core.TierMajor,
			Language:      "en",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
		{
			Domain:        "spiegel.de",
			Name:          "Der Spiegel",
			BaseURL:       "https://www.spiegel.de",
			LinkSelectors: map[string]string{"article_links": "article a"},
			TitleSelector: "h2.article-title",
			BodySelector:  "div.article-section p",
			RateLimit:     1500 * time.Millisecond,
			Tier:          core.TierStandard,
			Language:      "de",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
		{
			Domain:        "elpais.com",
			Name:          "El País",
			BaseURL:       "https://elpais.com",
			LinkSelectors: map[string]string{"article_links": "article a"},
			TitleSelector: "h1",
			BodySelector:  "div.article_body p",
			RateLimit:     1500 * time.Millisecond,
			Tier:          core.TierStandard,
			Language:      "es",
			CategoryHint:  "general",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
		{
			Domain:        "aljazeera.com",
			Name:          "Al Jazeera",
			BaseURL:       "https://www.aljazeera.com",
			LinkSelectors: map[string]string{"article_links": "a.u-clickable-card__link"},
			TitleSelector: "h1",
			BodySelector:  "div.wysiwyg p",
			RateLimit:     1500 * time.Millisecond,
			Tier:          core.TierStandard,
			Language:      "en",
			CategoryHint:  "world",
			Strategies:    []core.ExtractionMethod{core.ExtractScrapeFull},
		},
	}
}
