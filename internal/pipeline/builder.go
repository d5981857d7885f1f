package pipeline

import (
	"math/rand"

	"novasynth/internal/broker"
	"novasynth/internal/circuit"
	"novasynth/internal/clustering"
	"novasynth/internal/continuity"
	"novasynth/internal/ctxbuilder"
	"novasynth/internal/dedup"
	"novasynth/internal/discovery"
	"novasynth/internal/embedbatch"
	"novasynth/internal/health"
	"novasynth/internal/knowledgehub"
	"novasynth/internal/llmclient"
	"novasynth/internal/lock"
	"novasynth/internal/persister"
	"novasynth/internal/persistsel"
	"novasynth/internal/persona"
	"novasynth/internal/registry"
	"novasynth/internal/scraper"
	"novasynth/internal/synthesis"
	"novasynth/internal/vectorstore"
)

// Builder wires every stage's dependencies into a Pipeline, following the
// teacher's fluent construction pattern: each With* call returns the
// Builder so construction reads as one chained expression.
type Builder struct {
	p *Pipeline
}

// NewBuilder starts a Builder with its context-building tunables defaulted
// to the values 4.L names.
func NewBuilder() *Builder {
	return &Builder{p: &Pipeline{
		topK:         8,
		chunkWords:   200,
		overlapWords: 40,
		dedupThresh:  dedup.DefaultSimilarityThreshold,
		rng:          rand.New(rand.NewSource(1)),
		current:      RunResult{Status: StatusIdle},
	}}
}

func (b *Builder) WithRegistry(r *registry.Registry) *Builder {
	b.p.registry = r
	return b
}

func (b *Builder) WithHealth(h *health.Store) *Builder {
	b.p.health = h
	return b
}

func (b *Builder) WithLock(l *lock.Lock) *Builder {
	b.p.lock = l
	return b
}

func (b *Builder) WithBroker(br *broker.Broker) *Builder {
	b.p.broker = br
	return b
}

func (b *Builder) WithScraper(s *scraper.Scraper) *Builder {
	b.p.scraper = s
	return b
}

func (b *Builder) WithDiscovery(d *discovery.Discoverer) *Builder {
	b.p.discovery = d
	return b
}

func (b *Builder) WithDedupThreshold(threshold float64) *Builder {
	b.p.dedupThresh = threshold
	return b
}

func (b *Builder) WithEmbedder(batcher *embedbatch.Batcher) *Builder {
	b.p.embedder = batcher
	return b
}

func (b *Builder) WithClustering(engine *clustering.Engine) *Builder {
	b.p.clustering = engine
	return b
}

func (b *Builder) WithPersistSel(sel *persistsel.Selector) *Builder {
	b.p.persistSel = sel
	return b
}

func (b *Builder) WithContinuity(d *continuity.Decider) *Builder {
	b.p.continuity = d
	return b
}

func (b *Builder) WithContextTuning(topK, chunkWords, overlapWords int) *Builder {
	b.p.topK = topK
	b.p.chunkWords = chunkWords
	b.p.overlapWords = overlapWords
	return b
}

func (b *Builder) WithCircuitBreakers(m *circuit.Manager) *Builder {
	b.p.breakers = m
	return b
}

func (b *Builder) WithWebResearch(r llmclient.WebResearch) *Builder {
	b.p.webResearch = r
	return b
}

func (b *Builder) WithSocialSentiment(s llmclient.SocialSentiment) *Builder {
	b.p.socialSentiment = s
	return b
}

func (b *Builder) WithGenerator(g *synthesis.Generator) *Builder {
	b.p.generator = g
	return b
}

func (b *Builder) WithPersonaLearner(l *persona.Learner) *Builder {
	b.p.learner = l
	return b
}

func (b *Builder) WithPersister(p *persister.Persister) *Builder {
	b.p.persister = p
	return b
}

func (b *Builder) WithKnowledgeHub(h *knowledgehub.Hub) *Builder {
	b.p.hub = h
	return b
}

func (b *Builder) WithVectorStore(store vectorstore.Store) *Builder {
	b.p.store = store
	return b
}

// WithRNG overrides the persona-selection random source; tests use this
// to make persona selection deterministic.
func (b *Builder) WithRNG(rng *rand.Rand) *Builder {
	b.p.rng = rng
	return b
}

// Build returns the assembled Pipeline.
func (b *Builder) Build() *Pipeline {
	return b.p
}
