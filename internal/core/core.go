// Package core holds the domain types shared across the pipeline: sources,
// articles, embeddings, clusters and syntheses. None of these types own a
// persistence mechanism - storage is the job of internal/kv, internal/health
// and internal/vectorstore.
package core

import (
	"strings"
	"time"
)

// SourceTier ranks a source's editorial weight; it gates web-enrichment
// policy in the context builder.
type SourceTier int

const (
	TierMajor    SourceTier = 1
	TierStandard SourceTier = 2
	TierMinor    SourceTier = 3
)

// ExtractionMethod records how an Article's body was obtained.
type ExtractionMethod string

const (
	ExtractRSSFull       ExtractionMethod = "rss_full"
	ExtractRSSMetadata   ExtractionMethod = "rss_metadata"
	ExtractScrapeFull    ExtractionMethod = "scrape_full"
	ExtractScrapePartial ExtractionMethod = "scrape_partial"
	ExtractAPI           ExtractionMethod = "api"
)

// Source is a registered collection point: a website, RSS feed, or API.
// Domain is the natural key and must be unique in the registry.
type Source struct {
	Domain         string             `json:"domain" yaml:"domain"`
	Name           string             `json:"name" yaml:"name"`
	BaseURL        string             `json:"base_url" yaml:"base_url"`
	LinkSelectors  map[string]string  `json:"link_selectors" yaml:"link_selectors"`
	TitleSelector  string             `json:"title_selector" yaml:"title_selector"`
	BodySelector   string             `json:"body_selector" yaml:"body_selector"`
	RSSFeeds       []string           `json:"rss_feeds" yaml:"rss_feeds"`
	RateLimit      time.Duration      `json:"rate_limit" yaml:"rate_limit"`
	Tier           SourceTier         `json:"tier" yaml:"tier"`
	Language       string             `json:"language" yaml:"language"`
	CategoryHint   string             `json:"category_hint" yaml:"category_hint"`
	AutoDiscovered bool               `json:"auto_discovered" yaml:"auto_discovered"`
	Strategies     []ExtractionMethod `json:"strategies" yaml:"strategies"`
}

// HealthStatus is the lifecycle state of a Source.
type HealthStatus string

const (
	HealthActive      HealthStatus = "active"
	HealthDegraded     HealthStatus = "degraded"
	HealthBlocked      HealthStatus = "blocked"
	HealthBlacklisted  HealthStatus = "blacklisted"
	HealthDiscovered   HealthStatus = "discovered"
)

// SourceHealth is the persisted success/failure record for one domain.
type SourceHealth struct {
	Domain           string       `json:"domain"`
	Status           HealthStatus `json:"status"`
	Total            int64        `json:"total"`
	Successful       int64        `json:"successful"`
	Failed           int64        `json:"failed"`
	Rolling7dSucc    int64        `json:"rolling_7d_success"`
	Rolling7dFail    int64        `json:"rolling_7d_fail"`
	LastSuccess      time.Time    `json:"last_success,omitempty"`
	LastFailure      time.Time    `json:"last_failure,omitempty"`
	LastError        string       `json:"last_error,omitempty"`
	DiscoveredBy     string       `json:"discovered_by,omitempty"`
	ReplacesDomain   string       `json:"replaces_domain,omitempty"`
	ConsecutiveEmpty int          `json:"consecutive_empty"`
}

// SuccessRate returns Successful/Total, or 1.0 when there is no data yet.
func (h SourceHealth) SuccessRate() float64 {
	if h.Total == 0 {
		return 1.0
	}
	return float64(h.Successful) / float64(h.Total)
}

// Article is one fetched item. It is never durably stored in full -
// only UsedInSynthesisID survives, inside the vector-store payload.
type Article struct {
	ID                string           `json:"id"`
	URL               string           `json:"url"`
	SourceDomain      string           `json:"source_domain"`
	SourceName        string           `json:"source_name"`
	Title             string           `json:"title"`
	Body              string           `json:"body"`
	MetaDescription   string           `json:"meta_description,omitempty"`
	PublishedAt       time.Time        `json:"published_at"`
	Authors           []string         `json:"authors,omitempty"`
	ImageURL          string           `json:"image_url,omitempty"`
	Language          string           `json:"language"`
	Method            ExtractionMethod `json:"method"`
	Tier              SourceTier       `json:"tier"`
	CategoryHint      string           `json:"category_hint,omitempty"`
	UsedInSynthesisID string           `json:"used_in_synthesis_id,omitempty"`
	Embedding         []float64        `json:"-"`
	CoveredBySources  []string         `json:"covered_by_sources,omitempty"`
	DuplicateCount    int              `json:"duplicate_count,omitempty"`
}

// PassesExtractionRule implements the spec's invariant: body length >= 50
// chars OR (title >= 10 chars AND meta-description >= 30 chars).
func (a Article) PassesExtractionRule() bool {
	if len(a.Body) >= 50 {
		return true
	}
	return len(a.Title) >= 10 && len(a.MetaDescription) >= 30
}

// NormalizedURL lowercases the URL and strips a trailing slash, the
// normalization used by URL-overlap comparisons (4.G, 4.K).
func NormalizedURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimSuffix(s, "/")
}

// ClusterType tags whether a Cluster continues an existing story.
type ClusterType string

const (
	ClusterNew    ClusterType = "new"
	ClusterUpdate ClusterType = "update"
)

// Cluster is a transient grouping of new articles and, optionally, past
// syntheses believed to be about the same story. It never survives past
// one pipeline run; Synthesis is the durable artifact.
type Cluster struct {
	ID            string
	Articles      []Article
	PastSyntheses []Synthesis
	Type          ClusterType
	Centroid      []float64
}

// IsEmpty reports whether the cluster should be discarded: a cluster with
// zero new articles brings no news.
func (c Cluster) IsEmpty() bool {
	return len(c.Articles) == 0
}

// NarrativeArc captures where a story is in its lifecycle.
type NarrativeArc string

const (
	ArcEmerging   NarrativeArc = "emerging"
	ArcDeveloping NarrativeArc = "developing"
	ArcPeak       NarrativeArc = "peak"
	ArcDeclining  NarrativeArc = "declining"
	ArcResolved   NarrativeArc = "resolved"
)

// ModerationFlag is the outcome of moderation screening.
type ModerationFlag string

const (
	ModerationSafe    ModerationFlag = "safe"
	ModerationWarning ModerationFlag = "warning"
	ModerationBlocked ModerationFlag = "blocked"
)

// Sentiment is the overall tone a synthesis conveys.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// TopicIntensity is how urgently a story is developing.
type TopicIntensity string

const (
	IntensityBreaking   TopicIntensity = "breaking"
	IntensityHot        TopicIntensity = "hot"
	IntensityDeveloping TopicIntensity = "developing"
	IntensityStandard   TopicIntensity = "standard"
)

// EnrichmentStatus records whether web/social enrichment succeeded.
type EnrichmentStatus string

const (
	EnrichmentOK       EnrichmentStatus = "ok"
	EnrichmentPartial  EnrichmentStatus = "partial"
	EnrichmentSkipped  EnrichmentStatus = "skipped"
	EnrichmentDisabled EnrichmentStatus = "disabled"
)

// CausalEdgeType is the relation type between two nodes of a causal graph.
type CausalEdgeType string

const (
	CausalCauses   CausalEdgeType = "causes"
	CausalTriggers CausalEdgeType = "triggers"
	CausalEnables  CausalEdgeType = "enables"
	CausalPrevents CausalEdgeType = "prevents"
)

// CausalEdge is one cause -> effect relation extracted for a synthesis.
type CausalEdge struct {
	Cause   string         `json:"cause"`
	Effect  string         `json:"effect"`
	Type    CausalEdgeType `json:"type"`
	Sources []string       `json:"sources,omitempty"`
}

// PredictionTimeframe is the horizon of a forward-looking claim.
type PredictionTimeframe string

const (
	TimeframeShort  PredictionTimeframe = "court_terme"
	TimeframeMedium PredictionTimeframe = "moyen_terme"
	TimeframeLong   PredictionTimeframe = "long_terme"
)

// Prediction is one forward-looking claim extracted from a synthesis.
type Prediction struct {
	Prediction  string              `json:"prediction"`
	Probability float64             `json:"probability"`
	Type        string              `json:"type"`
	Timeframe   PredictionTimeframe `json:"timeframe"`
	Rationale   string              `json:"rationale"`
}

// CausalGraph is the structured causal-chain output attached to a synthesis.
type CausalGraph struct {
	Nodes         []string     `json:"nodes"`
	Edges         []CausalEdge `json:"edges"`
	CentralEntity string       `json:"central_entity,omitempty"`
	NarrativeFlow string       `json:"narrative_flow,omitempty"`
	Predictions   []Prediction `json:"predictions,omitempty"`
	FallbackNote  string       `json:"fallback_note,omitempty"`
}

// TimelineEvent is one chronological entry in a synthesis's timeline.
type TimelineEvent struct {
	Date    time.Time `json:"date"`
	Title   string    `json:"title"`
	Summary string    `json:"summary"`
}

// SourceRef is one contributing article, reduced to what the synthesis
// retains (the article body itself is never stored).
type SourceRef struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url"`
	Title      string `json:"title"`
}

// PersonaIdentity is the editorial voice applied to a persona variant.
type PersonaIdentity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tagline string `json:"tagline,omitempty"`
}

// Synthesis is the durable unit of output: a multi-paragraph AI-generated
// article with structured metadata, persisted in the vector store.
type Synthesis struct {
	ID              string      `json:"id"`
	BaseSynthesisID string      `json:"base_synthesis_id,omitempty"`
	Title           string      `json:"title"`
	Introduction    string      `json:"introduction"`
	Body            string      `json:"body"`
	Analysis        string      `json:"analysis"`
	KeyPoints       []string    `json:"key_points"`
	Sources         []SourceRef `json:"sources"`
	NumSources      int         `json:"num_sources"`
	ClusterID       string      `json:"cluster_id"`
	ComplianceScore float64     `json:"compliance_score"`
	ReadingTime     int         `json:"reading_time"`
	CreatedAt       time.Time   `json:"created_at"`

	NarrativeArc       NarrativeArc    `json:"narrative_arc"`
	Timeline           []TimelineEvent `json:"timeline,omitempty"`
	HasContradictions  bool            `json:"has_contradictions"`
	ContradictionCount int             `json:"contradiction_count"`
	KeyEntities        []string        `json:"key_entities,omitempty"`
	CausalGraph        CausalGraph     `json:"causal_graph"`

	Category           string  `json:"category,omitempty"`
	CategoryConfidence float64 `json:"category_confidence,omitempty"`

	Persona          PersonaIdentity `json:"persona"`
	IsPersonaVersion bool            `json:"is_persona_version"`
	QualityFallback  bool            `json:"quality_fallback,omitempty"`

	UpdateCount       int       `json:"update_count"`
	FirstSeen         time.Time `json:"first_seen"`
	LastUpdatedAt     time.Time `json:"last_updated_at,omitempty"`
	ParentSynthesisID string    `json:"parent_synthesis_id,omitempty"`
	StoryID           string    `json:"story_id"`
	UpdateNotice      string    `json:"update_notice,omitempty"`

	IsPublished    bool           `json:"is_published"`
	ModerationFlag ModerationFlag `json:"moderation_flag"`

	EnrichmentStatus  EnrichmentStatus `json:"enrichment_status"`
	GenerationCostUSD float64          `json:"generation_cost_usd"`

	Sentiment      Sentiment      `json:"sentiment"`
	TopicIntensity TopicIntensity `json:"topic_intensity"`

	Embedding []float64 `json:"-"`
}

// URLSet returns the normalized set of source URLs, used for Jaccard
// overlap comparisons in the continuity decider.
func (s Synthesis) URLSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Sources))
	for _, src := range s.Sources {
		set[NormalizedURL(src.URL)] = struct{}{}
	}
	return set
}

// Entity is a named thing (person, organization, location) tracked by the
// knowledge hub and surfaced here only as an opaque id attached to a
// synthesis.
type Entity struct {
	ID             string    `json:"id"`
	CanonicalName  string    `json:"canonical_name"`
	Type           string    `json:"type"`
	Aliases        []string  `json:"aliases,omitempty"`
	MentionCount   int       `json:"mention_count"`
	CoOccurrences  []string  `json:"co_occurrences,omitempty"`
	Embedding      []float64 `json:"-"`
	FirstSeen      time.Time `json:"first_seen"`
	LastMentioned  time.Time `json:"last_mentioned"`
}

// Topic is a cluster of syntheses sharing a semantic centroid.
type Topic struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Centroid    []float64 `json:"-"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
