package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/config"
	"alfredoptarigan/ats-scanner/internal/logger"
	"alfredoptarigan/ats-scanner/internal/repositories"
	"alfredoptarigan/ats-scanner/internal/services"
)

// components holds everything a command needs to run workflows.
type components struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     repositories.KeyValueStore
	catalog   *services.RoleCatalog
	gemini    services.GeminiService
	index     services.RoleIndex
	storage   services.StorageService
	validator services.FileValidator
	analyzer  services.Analyzer
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func loadConfig(l *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(nil, l)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newStore(cfg *config.Config, l *zap.Logger) (repositories.KeyValueStore, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return repositories.NewMemoryStore(), nil
	case config.StoragePostgres:
		db, err := config.InitDatabase(cfg, l)
		if err != nil {
			return nil, err
		}
		return repositories.NewKVEntryRepository(db), nil
	default:
		return repositories.NewFileStore(cfg.Storage.FilePath), nil
	}
}

func newGemini(ctx context.Context, cfg *config.Config, l *zap.Logger) (services.GeminiService, error) {
	apiKey, err := cfg.GeminiAPIKey()
	if err != nil {
		return nil, err
	}
	return services.NewGeminiService(ctx, services.GeminiOptions{
		APIKey:       apiKey,
		Model:        cfg.Gemini.Model,
		EmbedModel:   cfg.Gemini.EmbedModel,
		MaxLogLength: cfg.Gemini.MaxLogLength,
		Logger:       l,
	})
}

func newRoleIndex(ctx context.Context, cfg *config.Config, l *zap.Logger) (services.RoleIndex, error) {
	index, err := services.NewQdrantRoleIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, l)
	if err != nil {
		return nil, err
	}
	if err := index.InitCollection(ctx); err != nil {
		return nil, err
	}
	return index, nil
}

// bootstrap wires the analysis stack from configuration. The role index and
// report rendering are optional and degrade to warnings.
func bootstrap(ctx context.Context, l *zap.Logger) (*components, error) {
	cfg, err := loadConfig(l)
	if err != nil {
		return nil, err
	}

	store, err := newStore(cfg, l)
	if err != nil {
		return nil, err
	}

	catalog, err := services.DefaultRoleCatalog()
	if err != nil {
		return nil, err
	}

	gemini, err := newGemini(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("initializing analysis engine: %w", err)
	}

	c := &components{
		cfg:       cfg,
		logger:    l,
		store:     store,
		catalog:   catalog,
		gemini:    gemini,
		storage:   services.NewStorageService(cfg.Report.Dir),
		validator: services.NewFileValidator(cfg.Storage.MaxFileSize),
	}

	if cfg.Qdrant.Enabled {
		index, err := newRoleIndex(ctx, cfg, l)
		if err != nil {
			l.Warn("role index unavailable, using keyword detection", zap.Error(err))
		} else {
			c.index = index
		}
	}

	var reports services.ReportService
	if cfg.Report.Enabled {
		if err := c.storage.EnsureDir(); err != nil {
			return nil, err
		}
		reports = services.NewReportService(services.NewChromedpRenderer(cfg.Report.ChromePath), c.storage, l)
	}

	var embedder services.Embedder
	if c.index != nil {
		embedder = gemini
	}

	c.analyzer = services.NewResumeAnalyzer(services.ResumeAnalyzerOptions{
		Generator:    gemini,
		Detector:     services.NewRoleDetector(catalog, c.index, embedder, l),
		Reports:      reports,
		Logger:       l,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	})

	return c, nil
}

// newWorkflow builds a workflow whose saved analysis is scoped to clientID.
func (c *components) newWorkflow(id, clientID string, events *services.EventBus) *services.Workflow {
	persistence := services.NewSessionPersistence(repositories.NewScopedStore(c.store, clientID), c.logger)
	return services.NewWorkflow(id, c.validator, c.analyzer, persistence, services.WorkflowOptions{
		TickInterval: c.cfg.Workflow.TickInterval,
		GracePeriod:  c.cfg.Workflow.GracePeriod,
		Events:       events,
		Logger:       c.logger,
	})
}

var errAborted = errors.New("aborted")
