package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartline/heartline/internal/adapter"
	"github.com/heartline/heartline/internal/compose"
	"github.com/heartline/heartline/internal/config"
	"github.com/heartline/heartline/internal/db"
	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/prompt"
	"github.com/heartline/heartline/internal/reply"
	"github.com/heartline/heartline/internal/telemetry"
)

// setupLogging installs the default slog logger from config and flags.
func setupLogging(w io.Writer) error {
	gcfg, err := config.LoadGlobal()
	if err != nil {
		return err
	}
	levelName := gcfg.Log.Level
	if logLevelFlag != "" {
		levelName = logLevelFlag
	}
	if verboseFlag {
		levelName = "debug"
	}
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(w, level, gcfg.Log.Format))
	return nil
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q; valid: debug, info, warn, error", s)
	}
}

// runtime bundles what most commands open: config, database, store and the
// memory orchestrator.
type runtime struct {
	cfg     config.GlobalConfig
	dbPath  string
	db      *db.DB
	store   *memory.Store
	vectors *memory.VectorStore
	orch    *memory.Orchestrator
	logger  *slog.Logger
}

// openRuntime loads config and opens the database. It fails with a hint when
// heartline has not been initialised.
func openRuntime() (*runtime, error) {
	gcfg, err := config.LoadGlobal()
	if err != nil {
		return nil, err
	}
	dbPath, err := config.DBPath(gcfg)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("heartline not initialized. Run `heartline init` first")
	}
	return openRuntimeAt(gcfg, dbPath)
}

func openRuntimeAt(gcfg config.GlobalConfig, dbPath string) (*runtime, error) {
	logger := slog.Default()
	embedder := buildEmbedder(gcfg)

	opts := []db.Option{db.WithLogger(logger)}
	if dim := embeddingDimension(embedder); dim > 0 {
		opts = append(opts, db.WithEmbeddingDimension(dim))
	}
	database, err := db.Open(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := memory.NewStore(database)
	vectors := memory.NewVectorStore(database)
	return &runtime{
		cfg:     gcfg,
		dbPath:  dbPath,
		db:      database,
		store:   store,
		vectors: vectors,
		orch:    memory.NewOrchestrator(store, vectors, embedder, gcfg.Reply.MinRelevance, logger),
		logger:  logger,
	}, nil
}

func (r *runtime) Close() error {
	return r.db.Close()
}

// buildEmbedder creates the configured embedder (returns nil on failure).
func buildEmbedder(gcfg config.GlobalConfig) adapter.Embedder {
	emb, err := adapter.NewEmbedder(adapter.Options{
		Provider:   gcfg.Embedder,
		APIKey:     gcfg.APIKey(gcfg.Embedder),
		OllamaHost: gcfg.Ollama.Host,
		EmbedModel: gcfg.Ollama.EmbedModel,
	})
	if err != nil {
		slog.Debug("embedder unavailable, semantic recall off", "embedder", gcfg.Embedder, "err", err)
		return nil
	}
	return emb
}

func embeddingDimension(e adapter.Embedder) int {
	if llm, ok := e.(adapter.LLMAdapter); ok {
		return llm.Info().EmbeddingDimension
	}
	return 0
}

// buildLLM creates the adapter for the configured completion provider.
func buildLLM(gcfg config.GlobalConfig) (adapter.LLMAdapter, error) {
	model := gcfg.Model
	if model == "" && gcfg.Provider == adapter.ProviderOllama {
		model = gcfg.Ollama.CompletionModel
	}
	return adapter.New(adapter.Options{
		Provider:   gcfg.Provider,
		Model:      model,
		APIKey:     gcfg.APIKey(gcfg.Provider),
		OllamaHost: gcfg.Ollama.Host,
		EmbedModel: gcfg.Ollama.EmbedModel,
		BaseURL:    providerBaseURL(gcfg),
		Referer:    gcfg.OpenRouter.Referer,
		Title:      gcfg.OpenRouter.Title,
	})
}

func providerBaseURL(gcfg config.GlobalConfig) string {
	if gcfg.Provider == adapter.ProviderOpenRouter {
		return gcfg.OpenRouter.BaseURL
	}
	return ""
}

// buildTiers assembles the ordered reply tiers from config. The generative
// tier is included only when enabled and its adapter can be built.
func buildTiers(gcfg config.GlobalConfig, recaller reply.Recaller, logger *slog.Logger) []reply.Responder {
	var composerOpts []compose.Option
	if gcfg.Reply.Seed != 0 {
		composerOpts = append(composerOpts, compose.WithSeed(gcfg.Reply.Seed))
	}
	rule := reply.NewRuleTier(
		compose.New(composerOpts...),
		memory.NewIndex(gcfg.Reply.MinRelevance),
		gcfg.Reply.TopKMemories,
		logger,
	)

	if !gcfg.Reply.GenerativeEnabled {
		return []reply.Responder{rule}
	}

	llm, err := buildLLM(gcfg)
	if err != nil {
		logger.Warn("generative tier disabled", "provider", gcfg.Provider, "err", err)
		return []reply.Responder{rule}
	}

	tokenizer, err := prompt.NewTokenizer()
	if err != nil {
		logger.Debug("tokenizer unavailable, estimating prompt size", "err", err)
		tokenizer = nil
	}

	opts := []reply.GenerativeOption{
		reply.WithTimeout(gcfg.Reply.Timeout()),
		reply.WithRateLimit(gcfg.Reply.RatePerMinute),
		reply.WithLengthBounds(gcfg.Reply.MinLength, gcfg.Reply.MaxLength),
		reply.WithPromptBuilder(prompt.NewBuilder(prompt.NewFormatter(), tokenizer), gcfg.Prompt.MaxTokens, gcfg.Prompt.HistoryTurns),
		reply.WithMemoryTopK(gcfg.Prompt.SemanticRecall),
		reply.WithGenerativeLogger(logger),
	}
	if recaller != nil {
		opts = append(opts, reply.WithRecaller(recaller))
	}
	gen := adapter.NewGenerator(llm, gcfg.Reply.MaxTokens, gcfg.Reply.Temperature)
	return []reply.Responder{reply.NewGenerativeTier(gen, opts...), rule}
}

// buildEmitter creates the telemetry sink, falling back to Nop when the
// configured sink cannot be created.
func buildEmitter(gcfg config.GlobalConfig, logger *slog.Logger) telemetry.Emitter {
	path := ""
	if gcfg.Telemetry.Sink == "jsonl" {
		path, _ = config.TelemetryPath(gcfg)
	}
	e, err := telemetry.New(gcfg.Telemetry.Sink, path, logger)
	if err != nil {
		logger.Warn("telemetry disabled", "err", err)
		return telemetry.Nop{}
	}
	return e
}

// newPipeline builds a reply pipeline from config.
func newPipeline(gcfg config.GlobalConfig, recaller reply.Recaller, logger *slog.Logger) *reply.Pipeline {
	return reply.New(
		reply.WithTiers(buildTiers(gcfg, recaller, logger)...),
		reply.WithCache(gcfg.Reply.CacheSize, gcfg.Reply.CacheEvictBatch),
		reply.WithWindowSize(gcfg.Reply.WindowSize),
		reply.WithEmitter(buildEmitter(gcfg, logger)),
		reply.WithLogger(logger),
	)
}

// pipeline builds a reply pipeline whose generative tier recalls through the
// runtime's orchestrator.
func (r *runtime) pipeline() *reply.Pipeline {
	return newPipeline(r.cfg, r.orch, r.logger)
}

// resolveProfile resolves ref as an id or name with a friendly error.
func (r *runtime) resolveProfile(ctx context.Context, ref string) (memory.Profile, error) {
	p, err := r.store.ResolveProfile(ctx, ref)
	if err != nil {
		return p, fmt.Errorf("profile %q: %w", ref, err)
	}
	return p, nil
}
