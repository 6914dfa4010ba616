package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/cold-emailer/internal/ai"
	"github.com/spigell/cold-emailer/internal/ai/gemini"
	"github.com/spigell/cold-emailer/internal/email"
	"github.com/spigell/cold-emailer/internal/fetch"
	"github.com/spigell/cold-emailer/internal/jobs"
	"github.com/spigell/cold-emailer/internal/logger"
	"github.com/spigell/cold-emailer/internal/pipeline"
	"github.com/spigell/cold-emailer/internal/portfolio"
	"github.com/spigell/cold-emailer/internal/secrets"
	"github.com/spigell/cold-emailer/internal/textclean"
)

const (
	embedderGemini = "gemini"
	embedderHashed = "hashed"
)

// deps holds the clients shared by commands. The genai client is created on
// first use so offline commands need no API key.
type deps struct {
	ctx    context.Context
	config *Config
	logger *zap.Logger
	client *genai.Client
}

func newDeps(ctx context.Context, config *Config, logger *zap.Logger) *deps {
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Portfolio == nil {
		config.Portfolio = &PortfolioConfig{}
	}
	if config.Defaults == nil {
		config.Defaults = &DefaultsConfig{}
	}
	if config.Email == nil {
		config.Email = &EmailConfig{}
	}
	return &deps{ctx: ctx, config: config, logger: logger}
}

func (d *deps) genaiClient() (*genai.Client, error) {
	if d.client != nil {
		return d.client, nil
	}

	provider := strings.TrimSpace(strings.ToLower(d.config.AI.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", d.config.AI.Provider)
	}

	cfg := d.config.AI.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	client, err := gemini.NewClient(d.ctx, apiKey)
	if err != nil {
		return nil, err
	}
	d.client = client
	return client, nil
}

func (d *deps) languageModel() (ai.LanguageModel, error) {
	client, err := d.genaiClient()
	if err != nil {
		return nil, err
	}

	cfg := d.config.AI.Gemini
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = gemini.DefaultModel
	}

	genLogger := logger.WithModel(d.logger, gemini.Provider, model).
		With(zap.Int("ai_retry_attempts", max(cfg.MaxRetries, 1)))

	return gemini.NewGenerator(client, gemini.Options{
		Model:       model,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
	}, genLogger), nil
}

func (d *deps) embedder() (ai.Embedder, error) {
	cfg := d.config.Portfolio
	switch strings.TrimSpace(strings.ToLower(cfg.Embedder)) {
	case embedderHashed:
		d.logger.Debug("using hashed embedder", zap.Int("dimensions", cfg.HashedDimensions))
		return portfolio.NewHashedEmbedder(cfg.HashedDimensions), nil
	case embedderGemini, "":
		client, err := d.genaiClient()
		if err != nil {
			return nil, err
		}
		e := gemini.NewEmbedder(client, d.config.AI.Gemini.EmbeddingModel)
		d.logger.Debug("using gemini embedder", zap.String(logger.FieldModel, e.Model()))
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported portfolio embedder: %s", cfg.Embedder)
	}
}

func (d *deps) portfolioIndex() (*portfolio.Index, error) {
	path := strings.TrimSpace(d.config.Portfolio.Path)
	if path == "" {
		return nil, errors.New("portfolio.path is required")
	}

	entries, err := portfolio.ReadCSV(path)
	if err != nil {
		return nil, err
	}

	embedder, err := d.embedder()
	if err != nil {
		return nil, err
	}

	vectors, err := portfolio.NewChromemIndex(embedder)
	if err != nil {
		return nil, err
	}

	d.logger.Info("portfolio read", zap.String("path", path), zap.Int("entries", len(entries)))
	return portfolio.New(entries, vectors, d.logger.Named("portfolio")), nil
}

// pageCacheDir returns the colly cache location, or "" when page caching is off.
func (d *deps) pageCacheDir() string {
	if !d.config.CachePages {
		return ""
	}

	base, err := os.UserCacheDir()
	if err != nil {
		d.logger.Warn("page cache disabled", zap.Error(err))
		return ""
	}

	dir := filepath.Join(base, app, "pages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.logger.Warn("page cache disabled", zap.String("dir", dir), zap.Error(err))
		return ""
	}
	return dir
}

func (d *deps) fetcher() *fetch.Fetcher {
	userAgent := strings.TrimSpace(d.config.UserAgent)
	cacheDir := d.pageCacheDir()

	d.logger.Debug("fetcher configured",
		zap.String("user_agent", userAgent),
		zap.String("cache_dir", cacheDir),
	)

	return fetch.New(
		fetch.NewPageLoader(userAgent, cacheDir),
		fetch.NewRawHTTP(userAgent, fetch.FallbackTimeout),
		d.logger.Named("fetch"),
	)
}

func (d *deps) pipeline() (*pipeline.Pipeline, error) {
	index, err := d.portfolioIndex()
	if err != nil {
		return nil, fmt.Errorf("prepare portfolio: %w", err)
	}

	model, err := d.languageModel()
	if err != nil {
		return nil, fmt.Errorf("prepare language model: %w", err)
	}

	maxLogLength := d.config.AI.Gemini.MaxLogLength
	extractor := jobs.NewExtractor(model, d.logger.Named("jobs"), maxLogLength)
	composer := email.NewComposer(model, d.config.Sender, email.Options{
		Languages:    d.config.Email.Languages,
		MinWords:     d.config.Email.MinWords,
		MaxWords:     d.config.Email.MaxWords,
		MaxLogLength: maxLogLength,
	}, d.logger.Named("email"))

	return pipeline.New(
		d.fetcher(),
		textclean.Clean,
		index,
		extractor,
		composer,
		d.logger,
		maxLogLength,
	), nil
}
