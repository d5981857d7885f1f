// Package discovery implements Auto-Discovery (4.F): when a source is
// blocked or goes quiet, ask the language model for replacement
// candidates, validate each one against robots.txt and basic markup
// shape, infer CSS selectors for the survivor, and persist it to the
// registry and health store.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"novasynth/internal/broker"
	"novasynth/internal/core"
	"novasynth/internal/health"
	"novasynth/internal/llmclient"
	"novasynth/internal/registry"
)

const (
	// GlobalDiscoveredCap bounds the total number of auto-discovered
	// sources the registry will ever hold.
	GlobalDiscoveredCap = 10
	// MaxAttemptsPerDomain bounds retries of the discovery algorithm for
	// the same blocked domain.
	MaxAttemptsPerDomain = 3

	minLinksOnCandidate = 10
	htmlSampleBytes     = 15 * 1024
)

// Discoverer runs 4.F's algorithm.
type Discoverer struct {
	registry *registry.Registry
	health   *health.Store
	broker   *broker.Broker
	llm      llmclient.LLM
	client   *http.Client

	mu       sync.Mutex
	attempts map[string]int
}

// New creates a Discoverer wired to the shared registry, health store and
// broker.
func New(reg *registry.Registry, healthStore *health.Store, b *broker.Broker, llm llmclient.LLM) *Discoverer {
	return &Discoverer{
		registry: reg,
		health:   healthStore,
		broker:   b,
		llm:      llm,
		client:   &http.Client{Timeout: 15 * time.Second},
		attempts: make(map[string]int),
	}
}

// suggestion is one LLM-proposed replacement source.
type suggestion struct {
	Domain  string `json:"domain"`
	BaseURL string `json:"base_url"`
	Name    string `json:"name"`
}

// selectorSet is the LLM-proposed CSS selectors for a discovered source.
type selectorSet struct {
	ArticleLink string `json:"article_link"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

var genericSelectors = selectorSet{ArticleLink: "a", Title: "h1, meta[property='og:title']", Body: "article, .article-body, main"}

// ScheduleDiscovery implements scraper.DiscoveryScheduler: it launches
// Discover as a detached goroutine with its own timeout, never blocking
// the caller.
func (d *Discoverer) ScheduleDiscovery(domain string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		d.Discover(ctx, domain)
	}()
}

// Discover runs 4.F for one blocked/quiet domain. It is meant to be run
// as a detached goroutine by the caller so the in-progress pipeline is
// never blocked on it.
func (d *Discoverer) Discover(ctx context.Context, blockedDomain string) {
	count, err := d.health.DiscoveredCount(ctx)
	if err != nil || count >= GlobalDiscoveredCap {
		d.broker.Log(broker.LevelInfo, "discovery skipped: global cap reached", blockedDomain, nil)
		return
	}
	d.mu.Lock()
	if d.attempts[blockedDomain] >= MaxAttemptsPerDomain {
		d.mu.Unlock()
		d.broker.Log(broker.LevelInfo, "discovery skipped: attempt cap reached", blockedDomain, nil)
		return
	}
	d.attempts[blockedDomain]++
	d.mu.Unlock()

	category, language, region := inferMetadata(blockedDomain)

	suggestions, err := d.askForSuggestions(ctx, blockedDomain, category, language, region)
	if err != nil || len(suggestions) == 0 {
		d.broker.Log(broker.LevelWarn, "discovery: no suggestions", blockedDomain, err)
		return
	}

	for _, s := range suggestions {
		if candidate, ok := d.validateCandidate(ctx, s); ok {
			d.persistCandidate(ctx, candidate, blockedDomain)
			return
		}
	}
	d.broker.Log(broker.LevelWarn, "discovery: all candidates failed validation", blockedDomain, nil)
}

// inferMetadata infers category from domain keywords and language/region
// from the TLD, per 4.F step 1.
func inferMetadata(domain string) (category, language, region string) {
	lower := strings.ToLower(domain)
	switch {
	case strings.Contains(lower, "sport"):
		category = "sports"
	case strings.Contains(lower, "tech"):
		category = "technology"
	case strings.Contains(lower, "biz") || strings.Contains(lower, "business") || strings.Contains(lower, "econ"):
		category = "business"
	case strings.Contains(lower, "health"):
		category = "health"
	default:
		category = "world"
	}

	switch {
	case strings.HasSuffix(lower, ".fr"):
		language, region = "fr", "FR"
	case strings.HasSuffix(lower, ".ca"):
		language, region = "en", "CA"
	case strings.HasSuffix(lower, ".de"):
		language, region = "de", "DE"
	default:
		language, region = "en", "US"
	}
	return
}

func (d *Discoverer) askForSuggestions(ctx context.Context, blockedDomain, category, language, region string) ([]suggestion, error) {
	prompt := fmt.Sprintf(
		"Suggest up to 3 replacement news sources for a blocked source (%s), category=%s, language=%s, region=%s. "+
			"Avoid well-known blocked domains. Reply with a strict JSON array of objects with fields domain, base_url, name.",
		blockedDomain, category, language, region)

	resp, err := d.llm.Complete(ctx, llmclient.CompletionRequest{
		Messages:       []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		Temperature:    0.3,
		MaxTokens:      512,
		ResponseFormat: "json",
	})
	if err != nil {
		return nil, err
	}

	var suggestions []suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &suggestions); err != nil {
		return nil, fmt.Errorf("discovery: malformed suggestion JSON: %w", err)
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions, nil
}

// candidate is a suggestion that has cleared validation and been fitted
// with selectors.
type candidate struct {
	suggestion
	selectors selectorSet
}

// validateCandidate runs 4.F step 3: robots.txt, HTTP 200 + text/html,
// and a minimum-links/article-ish-markup shape check, abandoning on the
// first failing check.
func (d *Discoverer) validateCandidate(ctx context.Context, s suggestion) (candidate, bool) {
	if s.BaseURL == "" {
		return candidate{}, false
	}
	if !d.robotsAllows(ctx, s.BaseURL) {
		return candidate{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL, nil)
	if err != nil {
		return candidate{}, false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return candidate{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return candidate{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*htmlSampleBytes))
	if err != nil {
		return candidate{}, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return candidate{}, false
	}
	if doc.Find("a").Length() < minLinksOnCandidate {
		return candidate{}, false
	}
	if doc.Find("article, .article, main, [role='article']").Length() == 0 {
		return candidate{}, false
	}

	selectors := d.inferSelectors(ctx, body)
	return candidate{suggestion: s, selectors: selectors}, true
}

func (d *Discoverer) robotsAllows(ctx context.Context, baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return true
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(line, "Disallow:")), "/") &&
			strings.HasPrefix(strings.ToLower(line), "disallow:") {
			return false
		}
	}
	return true
}

// inferSelectors asks the LLM for article-link/title/body selectors given
// a 15 KB HTML sample, falling back to a generic selector set on any
// failure per 4.F step 4.
func (d *Discoverer) inferSelectors(ctx context.Context, html []byte) selectorSet {
	sample := html
	if len(sample) > htmlSampleBytes {
		sample = sample[:htmlSampleBytes]
	}

	prompt := fmt.Sprintf(
		"Given this HTML sample, reply with strict JSON {article_link, title, body} giving CSS selectors "+
			"for the article-link list, the title element, and the body element.\n\n%s", string(sample))

	resp, err := d.llm.Complete(ctx, llmclient.CompletionRequest{
		Messages:       []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		Temperature:    0.2,
		MaxTokens:      256,
		ResponseFormat: "json",
	})
	if err != nil {
		return genericSelectors
	}

	var sel selectorSet
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &sel); err != nil {
		return genericSelectors
	}
	if sel.ArticleLink == "" || sel.Title == "" || sel.Body == "" {
		return genericSelectors
	}
	return sel
}

// persistCandidate writes the new source to the registry and health
// store (step 5), recording the replaces link and publishing a log event.
func (d *Discoverer) persistCandidate(ctx context.Context, c candidate, replaces string) {
	src := core.Source{
		Domain:         c.Domain,
		Name:           c.Name,
		BaseURL:        c.BaseURL,
		LinkSelectors:  map[string]string{"article": c.selectors.ArticleLink},
		TitleSelector:  c.selectors.Title,
		BodySelector:   c.selectors.Body,
		AutoDiscovered: true,
		Strategies:     []core.ExtractionMethod{core.ExtractScrapeFull},
	}
	d.registry.Add(src)

	if err := d.health.SaveDiscovered(ctx, c.Domain, "auto_discovery", replaces); err != nil {
		d.broker.Log(broker.LevelError, "discovery: failed to persist health record", c.Domain, err)
		return
	}
	d.broker.Log(broker.LevelInfo, fmt.Sprintf("discovered replacement for %s", replaces), c.Domain, nil)
}
