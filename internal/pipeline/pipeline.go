package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"novasynth/internal/broker"
	"novasynth/internal/circuit"
	"novasynth/internal/clustering"
	"novasynth/internal/continuity"
	"novasynth/internal/core"
	"novasynth/internal/ctxbuilder"
	"novasynth/internal/dedup"
	"novasynth/internal/discovery"
	"novasynth/internal/embedbatch"
	"novasynth/internal/health"
	"novasynth/internal/knowledgehub"
	"novasynth/internal/llmclient"
	"novasynth/internal/lock"
	"novasynth/internal/logger"
	"novasynth/internal/persister"
	"novasynth/internal/persistsel"
	"novasynth/internal/persona"
	"novasynth/internal/registry"
	"novasynth/internal/scraper"
	"novasynth/internal/synthesis"
	"novasynth/internal/vectorstore"
)

// Pipeline runs one stage sequence (4.E, 4.G-4.P) per triggered pass,
// enforcing the single-run lock (4.C) and reporting through the broker
// (4.D). Assemble one with Builder.
type Pipeline struct {
	registry   *registry.Registry
	health     *health.Store
	lock       *lock.Lock
	broker     *broker.Broker
	scraper    *scraper.Scraper
	discovery  *discovery.Discoverer
	dedupThresh float64
	embedder   *embedbatch.Batcher
	clustering *clustering.Engine
	persistSel *persistsel.Selector
	continuity *continuity.Decider
	breakers   *circuit.Manager
	webResearch llmclient.WebResearch
	socialSentiment llmclient.SocialSentiment
	generator  *synthesis.Generator
	learner    *persona.Learner
	persister  *persister.Persister
	hub        *knowledgehub.Hub
	store      vectorstore.Store
	rng        *rand.Rand

	topK, chunkWords, overlapWords int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	current RunResult
}

// Start launches one run in the background and returns immediately.
// Returns lock.ErrPipelineBusy if a run is already in flight (409).
func (p *Pipeline) Start(req RunRequest) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return lock.ErrPipelineBusy
	}
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	token, err := p.lock.Acquire(ctx)
	if err != nil {
		cancel()
		return err
	}

	p.mu.Lock()
	p.running = true
	p.cancel = cancel
	p.current = RunResult{Mode: req.Mode, Status: StatusRunning, StartedAt: time.Now().UTC()}
	p.mu.Unlock()

	go func() {
		defer cancel()
		defer func() {
			_ = p.lock.Release(context.Background(), token)
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
		}()
		p.runOnce(ctx, req)
	}()

	return nil
}

// Stop cancels the in-flight run, if any. Cancellation is cooperative:
// runOnce checks ctx between stages and between cluster iterations, never
// mid-write of an in-progress synthesis.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.cancel == nil {
		return fmt.Errorf("pipeline: no run in flight")
	}
	p.cancel()
	return nil
}

// Status reports the current or most recently finished run.
func (p *Pipeline) Status() RunResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Logs delegates to the broker's ring buffer.
func (p *Pipeline) Logs(limit, offset int) []broker.Event {
	return p.broker.Logs(limit, offset)
}

func (p *Pipeline) setResult(mutate func(*RunResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mutate(&p.current)
}

// runOnce is the full stage sequence for one triggered pass.
func (p *Pipeline) runOnce(ctx context.Context, req RunRequest) {
	sources, err := p.selectSources(ctx, req)
	if err != nil {
		p.finishError(err)
		return
	}

	p.broker.Progress(5, "scraping", "in_progress")
	articles := p.scraper.Run(ctx, sources, req.MaxArticlesPerSource)
	p.setResult(func(r *RunResult) { r.ArticlesFetched = len(articles) })
	if p.cancelled(ctx) {
		return
	}

	simulate := req.Mode == ModeSimulation
	if !simulate {
		p.persistArticleStubs(ctx, articles)
	}

	p.broker.Progress(25, "dedup", "in_progress")
	survivors := dedup.PassOne(articles)
	if p.cancelled(ctx) {
		return
	}

	p.broker.Progress(35, "embedding", "in_progress")
	survivors, err = p.embedder.EmbedArticles(ctx, survivors)
	if err != nil {
		if p.cancelled(ctx) {
			return
		}
		// resource unavailable (embedding backend down): stage aborts,
		// no syntheses produced this run, but it is not a fatal error.
		p.broker.Log(broker.LevelError, "embedding backend unavailable, aborting run", "", err)
		p.finishError(err)
		return
	}

	// Pass 2 of 4.G needs embeddings to compute cosine similarity, so it
	// runs after the embedding stage rather than as part of dedup.Run.
	deduped := dedup.PassTwo(survivors, p.dedupThresh)
	p.setResult(func(r *RunResult) { r.ArticlesDeduped = len(deduped) })
	if p.cancelled(ctx) {
		return
	}

	now := time.Now().UTC()
	p.broker.Progress(45, "persistence-select", "in_progress")
	pastSyntheses, err := p.persistSel.Select(ctx, now)
	if err != nil {
		p.broker.Log(broker.LevelWarn, "persistence selector failed, continuing without continuity candidates", "", err)
	}
	if p.cancelled(ctx) {
		return
	}

	p.broker.Progress(55, "clustering", "in_progress")
	clusters, err := p.clustering.Cluster(deduped, pastSyntheses)
	if err != nil {
		p.finishError(err)
		return
	}
	p.setResult(func(r *RunResult) { r.ClustersFound = len(clusters) })

	created := 0
	for i, cluster := range clusters {
		if p.cancelled(ctx) {
			return
		}
		if cluster.IsEmpty() {
			continue
		}
		p.broker.Progress(60+30*i/max(1, len(clusters)), fmt.Sprintf("synthesizing cluster %d/%d", i+1, len(clusters)), "in_progress")
		if p.processCluster(ctx, cluster, now, simulate) {
			created++
		}
	}
	p.setResult(func(r *RunResult) { r.SynthesesCreated = created })

	if p.cancelled(ctx) {
		return
	}

	if !simulate {
		_ = p.health.MaybeSnapshot(ctx, p.registry.Domains())
	}

	p.broker.Progress(100, "done", "completed")
	p.broker.Completed(fmt.Sprintf("%d articles, %d clusters, %d syntheses", len(articles), len(clusters), created))
	p.setResult(func(r *RunResult) {
		r.Status = StatusCompleted
		r.FinishedAt = time.Now().UTC()
	})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// cancelled checks ctx at a suspension-point boundary; if cancelled, it
// records the cancelled status and publishes the status{cancelled} event.
// It is never called mid-write of an in-progress synthesis.
func (p *Pipeline) cancelled(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	p.broker.Progress(0, "cancelled", "cancelled")
	p.setResult(func(r *RunResult) {
		r.Status = StatusCancelled
		r.FinishedAt = time.Now().UTC()
	})
	return true
}

func (p *Pipeline) finishError(err error) {
	p.broker.Error(err)
	p.setResult(func(r *RunResult) {
		r.Status = StatusError
		r.Error = err.Error()
		r.FinishedAt = time.Now().UTC()
	})
}

// selectSources applies the mode filter plus any explicit source/topic
// narrowing, then excludes every blacklisted domain.
func (p *Pipeline) selectSources(ctx context.Context, req RunRequest) ([]core.Source, error) {
	var candidates []core.Source
	switch req.Mode {
	case ModeTopic:
		seen := map[string]bool{}
		for _, topic := range req.Topics {
			for _, s := range p.registry.List(registry.Filters{Category: topic}) {
				if !seen[s.Domain] {
					seen[s.Domain] = true
					candidates = append(candidates, s)
				}
			}
		}
	default:
		candidates = p.registry.List(registry.Filters{})
	}

	if len(req.Sources) > 0 {
		wanted := make(map[string]bool, len(req.Sources))
		for _, d := range req.Sources {
			wanted[d] = true
		}
		filtered := candidates[:0:0]
		for _, s := range candidates {
			if wanted[s.Domain] {
				filtered = append(filtered, s)
			}
		}
		candidates = filtered
	}

	blacklisted, err := p.health.Blacklisted(ctx)
	if err != nil {
		return nil, err
	}
	out := candidates[:0:0]
	for _, s := range candidates {
		if _, blocked := blacklisted[s.Domain]; blocked {
			p.broker.SourceUpdate(s.Domain, broker.SourceSkipped, 0, "blacklisted")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// persistArticleStubs records just enough of each article for later
// used_in_synthesis_id marking (4.O): no full body, per the non-goal
// against storing full article text.
func (p *Pipeline) persistArticleStubs(ctx context.Context, articles []core.Article) {
	for _, a := range articles {
		err := p.store.Upsert(ctx, vectorstore.CollectionArticles, a.ID, a.Embedding, map[string]any{
			"url":          core.NormalizedURL(a.URL),
			"domain":       a.SourceDomain,
			"title":        a.Title,
			"published_at": a.PublishedAt.Unix(),
		})
		if err != nil {
			p.broker.Log(broker.LevelWarn, "failed to persist article stub", a.SourceDomain, err)
		}
	}
}

// processCluster runs 4.K through 4.P for one cluster, returning whether
// a base synthesis was created (always true unless skipped or cancelled).
func (p *Pipeline) processCluster(ctx context.Context, cluster core.Cluster, now time.Time, simulate bool) bool {
	decision, err := p.continuity.Decide(ctx, cluster, now)
	if err != nil {
		p.broker.Log(broker.LevelWarn, "continuity decision failed, treating as new", cluster.ID, err)
		decision = continuity.Decision{Mode: continuity.ModeNew}
	}
	if decision.Mode == continuity.ModeSkip {
		p.broker.Log(broker.LevelInfo, "cluster is a pure duplicate, skipped", cluster.ID, nil)
		return false
	}

	historical, priorText, reuseID, firstSeen, updateCount, storyID := p.loadContinuityState(ctx, decision, cluster, now)

	synCtx := ctxbuilder.Build(cluster, p.topK, p.chunkWords, p.overlapWords, historical, p.enrichFor(ctx, cluster, decision), priorText)

	neutral, err := p.generator.Generate(ctx, cluster, synCtx, "")
	if err != nil {
		p.broker.Log(broker.LevelError, "synthesis generation failed", cluster.ID, err)
		return false
	}

	category := deriveCategory(cluster)
	neutral.Category = category
	// Carries the cluster's mean-pooled vector forward so the persisted
	// synthesis stays in the same article/synthesis embedding space
	// continuity and clustering read back against.
	neutral.Embedding = cluster.Centroid
	if reuseID != "" {
		neutral.ID = reuseID
		neutral.FirstSeen = firstSeen
		neutral.UpdateCount = updateCount + 1
		neutral.UpdateNotice = decision.UpdateNotice
	} else {
		neutral.ID = uuid.NewString()
		neutral.FirstSeen = now
		neutral.UpdateCount = 0
	}
	if storyID != "" {
		neutral.StoryID = storyID
	} else {
		neutral.StoryID = neutral.ID
	}
	neutral.LastUpdatedAt = now
	neutral.Sources = sourceRefs(cluster)

	variant := p.buildPersonaVariant(ctx, cluster, synCtx, neutral, category)

	if simulate {
		return true
	}

	if err := p.persister.Persist(ctx, &neutral, ""); err != nil {
		p.broker.Log(broker.LevelError, "synthesis persist failed", cluster.ID, err)
		return false
	}
	if variant != nil {
		if err := p.persister.PersistPersonaVariant(ctx, variant, &neutral); err != nil {
			p.broker.Log(broker.LevelWarn, "persona variant persist failed", cluster.ID, err)
		}
	}

	p.recordKnowledge(ctx, cluster, synCtx, neutral, now)
	return true
}

// loadContinuityState resolves what the lightweight continuity.Decision
// doesn't carry (first_seen, update_count, story_id) by reading the
// target base synthesis's own persisted payload.
func (p *Pipeline) loadContinuityState(ctx context.Context, decision continuity.Decision, cluster core.Cluster, now time.Time) (historical *ctxbuilder.HistoricalContext, priorText, reuseID string, firstSeen time.Time, updateCount int, storyID string) {
	if decision.Mode != continuity.ModeUpdate || decision.TargetSynthesis == nil {
		return nil, "", "", time.Time{}, 0, ""
	}
	reuseID = decision.TargetSynthesis.ID
	firstSeen = now

	points, err := p.store.Retrieve(ctx, vectorstore.CollectionSyntheses, []string{reuseID})
	if err == nil && len(points) > 0 {
		payload := points[0].Payload
		if v, ok := payload["first_seen"].(int64); ok {
			firstSeen = time.Unix(v, 0).UTC()
		}
		if v, ok := payload["update_count"].(int); ok {
			updateCount = v
		}
		if v, ok := payload["story_id"].(string); ok {
			storyID = v
		}
	}

	hc := ctxbuilder.BuildHistoricalContext(cluster.PastSyntheses, len(cluster.Articles), now)
	priorText = decision.TargetSynthesis.Body
	if priorText == "" && len(cluster.PastSyntheses) > 0 {
		priorText = cluster.PastSyntheses[len(cluster.PastSyntheses)-1].Body
	}
	return &hc, priorText, reuseID, firstSeen, updateCount, storyID
}

// enrichFor runs 4.L step 6's gate and, if it fires, the enrichment fan-out.
// Either external collaborator being unconfigured degrades to no
// enrichment rather than failing the cluster.
func (p *Pipeline) enrichFor(ctx context.Context, cluster core.Cluster, decision continuity.Decision) *ctxbuilder.EnrichmentResult {
	if p.webResearch == nil || p.socialSentiment == nil {
		return nil
	}
	minTier := core.TierMinor
	var titles string
	for _, a := range cluster.Articles {
		if a.Tier != 0 && a.Tier < minTier {
			minTier = a.Tier
		}
		titles += a.Title + " "
	}
	gate := ctxbuilder.GateInput{
		ScrapeSucceeded: len(cluster.Articles) > 0,
		MinTier:         minTier,
		IsBreaking:      ctxbuilder.IsBreakingNews(titles),
		TopicIntensity:  "standard",
	}
	query := ""
	if len(cluster.Articles) > 0 {
		query = cluster.Articles[0].Title
	}
	return ctxbuilder.EnrichForCluster(ctx, p.breakers, p.webResearch, p.socialSentiment, gate, query, query)
}

// buildPersonaVariant runs 4.N: select a persona for the neutral synthesis
// and, if non-neutral, generate a second persona-prefixed pass, gated by
// the quality scorer. On rejection the neutral synthesis is kept and
// flagged qualityFallback, and nil is returned (no separate variant row).
func (p *Pipeline) buildPersonaVariant(ctx context.Context, cluster core.Cluster, synCtx ctxbuilder.SynthesisContext, neutral core.Synthesis, category string) *core.Synthesis {
	var overrides []persona.KeywordOverride
	if p.learner != nil {
		overrides = p.learner.Overrides()
	}

	chosen := persona.Select(category, neutral.Sentiment, neutral.TopicIntensity, neutral.Title, neutral.KeyEntities, overrides, p.rng)
	if chosen.ID == persona.Neutral.ID {
		return nil
	}

	prefix := fmt.Sprintf("Write this synthesis in the voice of %s: %s", chosen.Name, chosen.Tagline)
	variant, err := p.generator.Generate(ctx, cluster, synCtx, prefix)
	if err != nil {
		p.broker.Log(broker.LevelWarn, "persona generation failed, keeping neutral", cluster.ID, err)
		return nil
	}

	score := persona.ScoreText(chosen, variant.Body)
	accepted := persona.Passes(score)
	if p.learner != nil {
		for _, entity := range neutral.KeyEntities {
			p.learner.Reinforce(entity, chosen.ID, accepted)
		}
	}
	if !accepted {
		return nil
	}

	variant.Category = category
	variant.Persona = core.PersonaIdentity{ID: chosen.ID, Name: chosen.Name, Tagline: chosen.Tagline}
	variant.StoryID = neutral.StoryID
	variant.ClusterID = neutral.ClusterID
	variant.Sources = neutral.Sources
	variant.Embedding = neutral.Embedding
	return &variant
}

// recordKnowledge runs 4.P: entity resolution, co-occurrence bookkeeping,
// topic assignment and the causal-graph rollup for the synthesis's story.
func (p *Pipeline) recordKnowledge(ctx context.Context, cluster core.Cluster, synCtx ctxbuilder.SynthesisContext, syn core.Synthesis, now time.Time) {
	if p.hub == nil {
		return
	}

	var resolved []core.Entity
	resolveAll := func(mentions []string, entityType string) {
		for _, mention := range mentions {
			entity, err := p.hub.Resolve(ctx, mention, entityType, cluster.Centroid, now)
			if err != nil {
				p.broker.Log(broker.LevelWarn, "entity resolution failed", mention, err)
				continue
			}
			resolved = append(resolved, entity)
		}
	}
	resolveAll(synCtx.KeyEntities.Persons, "person")
	resolveAll(synCtx.KeyEntities.Organizations, "organization")
	resolveAll(synCtx.KeyEntities.Locations, "location")

	ids := make([]string, len(resolved))
	for i, e := range resolved {
		ids[i] = e.ID
	}
	for _, e := range resolved {
		if err := p.hub.RecordCoOccurrence(ctx, e, ids); err != nil {
			p.broker.Log(broker.LevelWarn, "co-occurrence update failed", e.CanonicalName, err)
		}
	}

	if len(syn.Embedding) > 0 {
		if _, ok, err := p.hub.AssignTopic(ctx, syn.Embedding, now); err != nil {
			p.broker.Log(broker.LevelWarn, "topic assignment failed", syn.ID, err)
		} else if !ok {
			logger.Get().Debug("pipeline: synthesis left unassigned, awaiting periodic topic detection", "synthesis_id", syn.ID)
		}
	}

	graph := knowledgehub.AggregateCausalGraph(append(append([]core.Synthesis{}, cluster.PastSyntheses...), syn))
	p.broker.Log(broker.LevelDebug, "causal graph aggregated", syn.StoryID, graph)
}

func deriveCategory(cluster core.Cluster) string {
	counts := map[string]int{}
	best, bestCount := "", 0
	for _, a := range cluster.Articles {
		if a.CategoryHint == "" {
			continue
		}
		counts[a.CategoryHint]++
		if counts[a.CategoryHint] > bestCount {
			best, bestCount = a.CategoryHint, counts[a.CategoryHint]
		}
	}
	return best
}

func sourceRefs(cluster core.Cluster) []core.SourceRef {
	refs := make([]core.SourceRef, 0, len(cluster.Articles))
	for _, a := range cluster.Articles {
		refs = append(refs, core.SourceRef{SourceName: a.SourceName, URL: a.URL, Title: a.Title})
	}
	return refs
}
