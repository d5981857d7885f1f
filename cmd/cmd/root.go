package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"novasynth/internal/broker"
	"novasynth/internal/circuit"
	"novasynth/internal/clustering"
	"novasynth/internal/config"
	"novasynth/internal/continuity"
	"novasynth/internal/discovery"
	"novasynth/internal/embedbatch"
	"novasynth/internal/health"
	"novasynth/internal/knowledgehub"
	"novasynth/internal/kv"
	"novasynth/internal/llmclient"
	"novasynth/internal/lock"
	"novasynth/internal/logger"
	"novasynth/internal/persister"
	"novasynth/internal/persistsel"
	"novasynth/internal/persona"
	"novasynth/internal/pipeline"
	"novasynth/internal/registry"
	"novasynth/internal/scraper"
	"novasynth/internal/synthesis"
	"novasynth/internal/trigger"
	"novasynth/internal/trigger/httpapi"
	"novasynth/internal/vectorstore"
)

var cfgFile string

// rootCmd is the base command when novasynth is called without any
// subcommands. Every subcommand shares the components app() builds: one
// registry, one pipeline, one trigger, wired from config the first time
// any subcommand needs them.
var rootCmd = &cobra.Command{
	Use:   "novasynth",
	Short: "novasynth runs the news-intelligence synthesis pipeline",
	Long: `novasynth scrapes a registry of news sources, deduplicates and
clusters their articles, and synthesizes persona-styled narrative updates
that track a story across multiple runs.

A run is triggered with "novasynth run"; "status", "logs" and "sources"
inspect or steer a pipeline wired the same way "serve" exposes over HTTP.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./novasynth.yaml or $HOME/novasynth.yaml)")
}

// app bundles every component a subcommand might need. It is assembled
// fresh per process: state that must survive across CLI invocations
// (health, the single-run lock, discovered sources) lives in Redis when
// configured, or degrades to an in-process store for local runs.
type app struct {
	cfg       *config.Config
	registry  *registry.Registry
	health    *health.Store
	broker    *broker.Broker
	discovery *discovery.Discoverer
	trigger   *trigger.Trigger
}

// buildApp loads configuration and wires every stage collaborator,
// following the teacher's single construction point (cmd/cmd/root.go)
// generalized from one global rootCmd into an app value each command
// pulls from.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := kvStore(cfg)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.DefaultSeed())
	healthStore := health.NewStore(store, cfg.Pipeline.SnapshotPath)
	b := broker.New()
	lk := lock.New(store, cfg.Pipeline.LockTTL)

	llm, err := anthropicClient(cfg)
	if err != nil {
		logger.Get().Warn("anthropic client unavailable, synthesis generation will fall back to skeletons", "error", err)
	}
	embedder, err := geminiEmbedder(cfg)
	if err != nil {
		logger.Get().Warn("gemini embedder unavailable, embeddings will be zero vectors", "error", err)
	}

	disc := discovery.New(reg, healthStore, b, llm)
	scr := scraper.New(scraper.Config{
		SourceDeadline:        cfg.Pipeline.PerSourceTimeout,
		ArticleDeadline:       cfg.Pipeline.PerArticleTimeout,
		MaxSourceConcurrency:  cfg.Scraper.MaxConcurrentSources,
		MaxArticleConcurrency: scraper.DefaultConfig().MaxArticleConcurrency,
		HardBlockFraction:     scraper.DefaultConfig().HardBlockFraction,
		ConsecutiveEmptyRuns:  cfg.Scraper.EmptyRunBlacklistLimit,
		UserAgent:             cfg.Scraper.UserAgent,
	}, healthStore, b, disc)

	vstore := vectorstore.NewMemory()
	breakers := circuit.NewManager(circuit.Settings{
		FailureThreshold: uint32(cfg.CircuitBreaker.FailureThreshold),
		Window:           cfg.CircuitBreaker.Interval,
		Cooldown:         cfg.CircuitBreaker.OpenTimeout,
	})

	var webResearch llmclient.WebResearch
	var socialSentiment llmclient.SocialSentiment
	if url := os.Getenv("NOVASYNTH_WEB_RESEARCH_URL"); url != "" {
		webResearch = llmclient.NewWebResearchHTTP(url, os.Getenv("NOVASYNTH_WEB_RESEARCH_API_KEY"))
	}
	if url := os.Getenv("NOVASYNTH_SOCIAL_SENTIMENT_URL"); url != "" {
		socialSentiment = llmclient.NewSocialSentimentHTTP(url, os.Getenv("NOVASYNTH_SOCIAL_SENTIMENT_API_KEY"))
	}

	var generator *synthesis.Generator
	if llm != nil {
		generator = synthesis.New(llm, breakers, "anthropic", synthesis.PricePerMillion{
			Input:  cfg.LLM.PriceUSD.Input,
			Output: cfg.LLM.PriceUSD.Output,
		})
	}

	var batcher *embedbatch.Batcher
	if embedder != nil {
		batcher = embedbatch.New(embedder, b, cfg.Pipeline.EmbeddingBatchSize)
	}

	p := pipeline.NewBuilder().
		WithRegistry(reg).
		WithHealth(healthStore).
		WithLock(lk).
		WithBroker(b).
		WithScraper(scr).
		WithDiscovery(disc).
		WithDedupThreshold(cfg.Pipeline.DedupThreshold).
		WithEmbedder(batcher).
		WithClustering(clustering.New(clustering.DefaultConfig())).
		WithPersistSel(persistsel.New(vstore)).
		WithContinuity(continuity.New(vstore)).
		WithCircuitBreakers(breakers).
		WithWebResearch(webResearch).
		WithSocialSentiment(socialSentiment).
		WithGenerator(generator).
		WithPersonaLearner(persona.NewLearner()).
		WithPersister(persister.New(vstore)).
		WithKnowledgeHub(knowledgehub.New(vstore)).
		WithVectorStore(vstore).
		Build()

	trig := trigger.New(p, reg, healthStore, disc, b, cfg.Server.OperatorToken)

	return &app{cfg: cfg, registry: reg, health: healthStore, broker: b, discovery: disc, trigger: trig}, nil
}

func kvStore(cfg *config.Config) (kv.Store, error) {
	if cfg.Redis.Addr == "" {
		return kv.NewLocal(), nil
	}
	redisStore, err := kv.NewRedis(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Get().Warn("redis unreachable, degrading to an in-process store", "addr", cfg.Redis.Addr, "error", err)
		return kv.NewLocal(), nil
	}
	return redisStore, nil
}

// anthropicClient returns a nil interface (not a typed-nil one) whenever
// construction is skipped or fails, so callers can rely on a plain
// "llm != nil" check.
func anthropicClient(cfg *config.Config) (llmclient.LLM, error) {
	if cfg.LLM.Anthropic.APIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, fmt.Errorf("no anthropic API key configured")
	}
	client, err := llmclient.NewAnthropic(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func geminiEmbedder(cfg *config.Config) (llmclient.Embedder, error) {
	if cfg.LLM.Gemini.APIKey == "" && os.Getenv("GEMINI_API_KEY") == "" {
		return nil, fmt.Errorf("no gemini API key configured")
	}
	client, err := llmclient.NewGeminiEmbedder(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// httpRouter builds the admin HTTP router over app's trigger, for "serve".
func (a *app) httpRouter() *httpapi.Router {
	return httpapi.New(a.trigger, a.cfg.Server)
}
