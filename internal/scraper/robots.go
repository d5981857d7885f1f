package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// robotsCache fetches and caches robots.txt per domain. There is no
// third-party robots parser anywhere in the example pack, so this is
// a deliberately small stdlib-only implementation: it only needs to
// answer "is this path disallowed for our user agent", not the full
// robots.txt grammar (crawl-delay, sitemaps, wildcards).
type robotsCache struct {
	mu       sync.Mutex
	rules    map[string][]string // domain -> disallowed path prefixes for our agent
	fetched  map[string]bool
	client   *http.Client
	userAgent string
}

func newRobotsCache(userAgent string) *robotsCache {
	return &robotsCache{
		rules:     make(map[string][]string),
		fetched:   make(map[string]bool),
		client:    &http.Client{Timeout: 5 * time.Second},
		userAgent: userAgent,
	}
}

// Allowed reports whether targetURL may be fetched, fetching and caching
// robots.txt for its host on first use. Network failures fail open
// (allowed), matching "skip silently on disallow" rather than "skip
// silently on robots-fetch error".
func (r *robotsCache) Allowed(ctx context.Context, targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return true
	}
	host := u.Host

	r.mu.Lock()
	if !r.fetched[host] {
		r.mu.Unlock()
		r.fetch(ctx, u)
		r.mu.Lock()
	}
	disallows := r.rules[host]
	r.mu.Unlock()

	for _, prefix := range disallows {
		if prefix != "" && strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}
	return true
}

func (r *robotsCache) fetch(ctx context.Context, u *url.URL) {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		r.markFetched(u.Host, nil)
		return
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.markFetched(u.Host, nil)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.markFetched(u.Host, nil)
		return
	}

	r.markFetched(u.Host, parseRobots(resp.Body, r.userAgent))
}

func (r *robotsCache) markFetched(host string, disallows []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetched[host] = true
	r.rules[host] = disallows
}

// parseRobots extracts Disallow lines applying to our user agent, or to
// "*" when no agent-specific block matches.
func parseRobots(body io.Reader, userAgent string) []string {
	raw, _ := io.ReadAll(io.LimitReader(body, 64*1024))
	lines := strings.Split(string(raw), "\n")

	var disallowsAll, disallowsOurs []string
	currentAgent := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch key {
		case "user-agent":
			currentAgent = strings.ToLower(value)
		case "disallow":
			if currentAgent == "*" {
				disallowsAll = append(disallowsAll, value)
			} else if currentAgent == strings.ToLower(userAgent) {
				disallowsOurs = append(disallowsOurs, value)
			}
		}
	}
	if len(disallowsOurs) > 0 {
		return disallowsOurs
	}
	return disallowsAll
}
