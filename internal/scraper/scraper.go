// Package scraper implements the scraper fan-out (4.E): bounded
// concurrent article collection across a set of candidate sources,
// RSS-first/HTML-fallback extraction, and the health/broker
// side-effects that drive auto-discovery and blacklisting.
//
// Grounded on internal/fetch (HTML extraction via goquery) and
// internal/sources.Manager.Aggregate's semaphore+WaitGroup+mutex
// concurrency pattern, generalized to two nested bounds (sources,
// then articles within a source) instead of one.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"novasynth/internal/broker"
	"novasynth/internal/core"
	"novasynth/internal/health"
)

// Config tunes the fan-out per 4.E.
type Config struct {
	SourceDeadline      time.Duration // default 45s
	ArticleDeadline     time.Duration // default 15s
	MaxSourceConcurrency int          // default 5 (K)
	MaxArticleConcurrency int         // default 5 (M)
	HardBlockFraction   float64       // default 0.60
	ConsecutiveEmptyRuns int          // default 2
	UserAgent           string
}

func DefaultConfig() Config {
	return Config{
		SourceDeadline:        45 * time.Second,
		ArticleDeadline:       15 * time.Second,
		MaxSourceConcurrency:  5,
		MaxArticleConcurrency: 5,
		HardBlockFraction:     0.60,
		ConsecutiveEmptyRuns:  2,
		UserAgent:             "novasynth-scraper/1.0",
	}
}

// DiscoveryScheduler is implemented by internal/discovery and invoked
// as a non-blocking background task, never awaited by the fan-out.
type DiscoveryScheduler interface {
	ScheduleDiscovery(domain string)
}

// Scraper runs the bounded fan-out across sources.
type Scraper struct {
	cfg       Config
	health    *health.Store
	broker    *broker.Broker
	discovery DiscoveryScheduler
	robots    *robotsCache
	client    *http.Client
}

func New(cfg Config, healthStore *health.Store, b *broker.Broker, discovery DiscoveryScheduler) *Scraper {
	return &Scraper{
		cfg:       cfg,
		health:    healthStore,
		broker:    b,
		discovery: discovery,
		robots:    newRobotsCache(cfg.UserAgent),
		client:    &http.Client{},
	}
}

// Result is one source's outcome, folded into health updates by the
// caller via RunFor's return value.
type sourceOutcome struct {
	domain   string
	articles []core.Article
	status   string // success, empty, timeout, blocked, error
	errMsg   string
}

// Run scrapes every source, honoring K-way source concurrency and
// M-way per-source article concurrency, and returns the combined
// article list. Health and broker side effects happen per source as
// it completes, not batched at the end.
func (s *Scraper) Run(ctx context.Context, sources []core.Source, maxArticlesPerSource int) []core.Article {
	sem := make(chan struct{}, s.cfg.MaxSourceConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var all []core.Article

	for _, src := range sources {
		select {
		case <-ctx.Done():
			return all
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(src core.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := s.scrapeSource(ctx, src, maxArticlesPerSource)
			s.applyOutcome(ctx, outcome)

			mu.Lock()
			all = append(all, outcome.articles...)
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return all
}

func (s *Scraper) applyOutcome(ctx context.Context, o sourceOutcome) {
	switch o.status {
	case "success":
		_ = s.health.RecordSuccess(ctx, o.domain)
		s.broker.SourceUpdate(o.domain, broker.SourceSuccess, len(o.articles), "")
	case "empty":
		_ = s.health.RecordSuccess(ctx, o.domain)
		count, _ := s.health.RecordEmptyRun(ctx, o.domain)
		s.broker.SourceUpdate(o.domain, broker.SourceEmpty, 0, "")
		if count >= s.cfg.ConsecutiveEmptyRuns && s.discovery != nil {
			s.discovery.ScheduleDiscovery(o.domain)
		}
	case "timeout":
		_ = s.health.RecordFailure(ctx, o.domain, o.errMsg)
		_ = s.health.Blacklist(ctx, o.domain, fmt.Sprintf("Timeout after %ds", int(s.cfg.SourceDeadline.Seconds())))
		s.broker.SourceUpdate(o.domain, broker.SourceTimeout, 0, o.errMsg)
		if s.discovery != nil {
			s.discovery.ScheduleDiscovery(o.domain)
		}
	case "blocked":
		_ = s.health.RecordFailure(ctx, o.domain, o.errMsg)
		_ = s.health.Blacklist(ctx, o.domain, "HTTP blocked")
		s.broker.SourceUpdate(o.domain, broker.SourceBlocked, 0, o.errMsg)
		if s.discovery != nil {
			s.discovery.ScheduleDiscovery(o.domain)
		}
	default:
		_ = s.health.RecordFailure(ctx, o.domain, o.errMsg)
		s.broker.SourceUpdate(o.domain, broker.SourceError, 0, o.errMsg)
	}
}

func (s *Scraper) scrapeSource(parent context.Context, src core.Source, maxArticles int) sourceOutcome {
	ctx, cancel := context.WithTimeout(parent, s.cfg.SourceDeadline)
	defer cancel()

	links, err := s.discoverLinks(ctx, src, maxArticles)
	if err != nil {
		if ctx.Err() != nil {
			return sourceOutcome{domain: src.Domain, status: "timeout", errMsg: err.Error()}
		}
		return sourceOutcome{domain: src.Domain, status: "error", errMsg: err.Error()}
	}
	if len(links) == 0 {
		return sourceOutcome{domain: src.Domain, status: "empty"}
	}

	articles, blockedCount, total := s.fetchArticles(ctx, src, links)
	if ctx.Err() != nil {
		return sourceOutcome{domain: src.Domain, status: "timeout", errMsg: "source deadline exceeded"}
	}
	if total > 0 && float64(blockedCount)/float64(total) >= s.cfg.HardBlockFraction {
		return sourceOutcome{domain: src.Domain, status: "blocked", errMsg: "hard-block status codes exceeded threshold"}
	}
	if len(articles) == 0 {
		return sourceOutcome{domain: src.Domain, status: "empty"}
	}
	return sourceOutcome{domain: src.Domain, articles: articles, status: "success"}
}

// discoverLinks returns candidate article URLs, preferring RSS feeds
// when the source registers them.
func (s *Scraper) discoverLinks(ctx context.Context, src core.Source, maxArticles int) ([]string, error) {
	if len(src.RSSFeeds) > 0 {
		links, err := s.discoverFromRSS(ctx, src, maxArticles)
		if err == nil && len(links) > 0 {
			return links, nil
		}
	}
	return s.discoverFromHTML(ctx, src, maxArticles)
}

func (s *Scraper) discoverFromRSS(ctx context.Context, src core.Source, maxArticles int) ([]string, error) {
	var links []string
	for _, feedURL := range src.RSSFeeds {
		if !s.robots.Allowed(ctx, feedURL) {
			continue
		}
		doc, err := s.fetchDocument(ctx, feedURL)
		if err != nil {
			continue
		}
		doc.Find("item link, entry link, link").Each(func(_ int, sel *goquery.Selection) {
			href := strings.TrimSpace(sel.Text())
			if href == "" {
				href, _ = sel.Attr("href")
			}
			if href != "" {
				links = append(links, href)
			}
		})
		if maxArticles > 0 && len(links) >= maxArticles {
			links = links[:maxArticles]
			break
		}
	}
	return links, nil
}

func (s *Scraper) discoverFromHTML(ctx context.Context, src core.Source, maxArticles int) ([]string, error) {
	if !s.robots.Allowed(ctx, src.BaseURL) {
		return nil, nil
	}
	doc, err := s.fetchDocument(ctx, src.BaseURL)
	if err != nil {
		return nil, err
	}

	selectors := src.LinkSelectors
	if len(selectors) == 0 {
		selectors = map[string]string{"default": "a[href]"}
	}

	seen := map[string]bool{}
	var links []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok || href == "" || seen[href] {
				return
			}
			seen[href] = true
			links = append(links, href)
		})
	}
	if maxArticles > 0 && len(links) > maxArticles {
		links = links[:maxArticles]
	}
	return links, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// fetchArticles fetches links with M-way concurrency within a source,
// returning accepted articles plus a count of hard-block responses
// for the 4.E blocked-source heuristic.
func (s *Scraper) fetchArticles(ctx context.Context, src core.Source, links []string) ([]core.Article, int, int) {
	sem := make(chan struct{}, s.cfg.MaxArticleConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var articles []core.Article
	blocked := 0
	total := 0

	for _, link := range links {
		select {
		case <-ctx.Done():
			wg.Wait()
			return articles, blocked, total
		default:
		}

		if !s.robots.Allowed(ctx, link) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(link string) {
			defer wg.Done()
			defer func() { <-sem }()

			art, isBlock, err := s.fetchOneArticle(ctx, src, link)
			mu.Lock()
			defer mu.Unlock()
			total++
			if isBlock {
				blocked++
			}
			if err == nil {
				articles = append(articles, art)
			}
		}(link)
	}
	wg.Wait()
	return articles, blocked, total
}

func (s *Scraper) fetchOneArticle(parent context.Context, src core.Source, link string) (core.Article, bool, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.ArticleDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return core.Article{}, false, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return core.Article{}, false, err
	}
	defer resp.Body.Close()

	if isHardBlockStatus(resp.StatusCode) {
		return core.Article{}, true, fmt.Errorf("hard-block status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return core.Article{}, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Article{}, false, err
	}

	article, err := extractArticle(raw, link, src)
	if err != nil {
		return core.Article{}, false, err
	}
	if !article.PassesExtractionRule() {
		return core.Article{}, false, fmt.Errorf("extraction rule rejected article")
	}
	return article, false, nil
}

func isHardBlockStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusNotAcceptable || code == http.StatusTooManyRequests
}

// extractArticle parses raw HTML into a core.Article, preferring full
// body text and falling back to the title+meta-description synthesis
// from 4.E when the body is too short (handles paywalls gracefully).
func extractArticle(raw []byte, link string, src core.Source) (core.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return core.Article{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner").Remove()

	title := extractTitle(doc, src)
	metaDesc := extractMetaDescription(doc)
	body := extractBody(doc, src)
	method := core.ExtractScrapeFull

	if len(body) < 200 && len(title) >= 10 && len(metaDesc) >= 30 {
		body = title + ". " + metaDesc
		method = core.ExtractScrapePartial
	}

	article := core.Article{
		ID:              uuid.NewString(),
		URL:             link,
		SourceDomain:    src.Domain,
		SourceName:      src.Name,
		Title:           title,
		Body:            body,
		MetaDescription: metaDesc,
		PublishedAt:     time.Now().UTC(),
		Language:        src.Language,
		Method:          method,
		Tier:            src.Tier,
		CategoryHint:    src.CategoryHint,
	}
	return article, nil
}

func extractTitle(doc *goquery.Document, src core.Source) string {
	sel := src.TitleSelector
	if sel != "" {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if t := strings.TrimSpace(doc.Find("head title").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && og != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractMetaDescription(doc *goquery.Document) string {
	if c, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		return strings.TrimSpace(c)
	}
	if c, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
		return strings.TrimSpace(c)
	}
	return ""
}

var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content",
	".post-body", ".article-body", "[role='main']", ".content", "#content",
}

func extractBody(doc *goquery.Document, src core.Source) string {
	var b strings.Builder
	selectors := mainContentSelectors
	if src.BodySelector != "" {
		selectors = append([]string{src.BodySelector}, selectors...)
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
				b.WriteString(strings.TrimSpace(item.Text()))
				b.WriteString("\n\n")
			})
		})
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		doc.Find("body").Find("p").Each(func(_ int, item *goquery.Selection) {
			b.WriteString(strings.TrimSpace(item.Text()))
			b.WriteString("\n\n")
		})
	}
	return strings.TrimSpace(b.String())
}
