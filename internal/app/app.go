// Package app assembles adapters, use cases and infrastructure from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/embedding"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/filewatcher"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/llm"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/loader"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/parser"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/resilient"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/splitter"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/store"
	"github.com/prathap024-ctrl/pdf-rag/internal/adapters/vectordb"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/usecases"
	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/config"
	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/http"
	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/scheduler"
)

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger arbor.ILogger

	Store    *store.SQLiteStore
	Index    ports.VectorIndex
	Embedder ports.EmbeddingService
	LLM      ports.LLMService
	Service  *usecases.Service

	closers []func() error
}

// New builds every component named by cfg. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Str("index", cfg.Index.Backend).
		Str("embedding", a.Embedder.ModelName()).
		Str("llm", a.LLM.ModelName()).
		Str("data_dir", cfg.Storage.DataDir).
		Msg("Application initialized")
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	metadata, err := store.NewSQLiteStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	a.Store = metadata
	a.closers = append(a.closers, metadata.Close)

	index, err := a.newIndex()
	if err != nil {
		return err
	}
	a.Index = resilient.NewIndex(index, resilient.Policy{
		Timeout:     config.Seconds(cfg.Index.TimeoutSecs),
		MaxAttempts: cfg.Index.MaxAttempts,
	}, a.Logger)

	embedder, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}
	a.Embedder = resilient.NewEmbedder(embedder, resilient.Policy{
		Timeout:     config.Seconds(cfg.Embedding.TimeoutSecs),
		MaxAttempts: cfg.Embedding.MaxAttempts,
	}, cfg.Embedding.RequestsPerSecond, a.Logger)

	model, err := a.newLLM(ctx)
	if err != nil {
		return err
	}
	a.LLM = resilient.NewLLM(model, resilient.Policy{
		Timeout:     config.Seconds(cfg.LLM.TimeoutSecs),
		MaxAttempts: cfg.LLM.MaxAttempts,
	}, a.Logger)

	textSplitter := splitter.New(
		splitter.WithChunkSize(cfg.Splitter.ChunkSize),
		splitter.WithOverlap(cfg.Splitter.ChunkOverlap),
	)
	pdfParser := parser.NewPDFParser(filepath.Join(cfg.Storage.DataDir, "tmp"), a.Logger)

	ingest := usecases.NewIngestUseCase(pdfParser, textSplitter, a.Embedder, a.Index, a.Store, a.Logger)
	pipeline := usecases.NewPipeline(
		usecases.NewRetrieveStage(a.Embedder, a.Index, cfg.Index.TopK, a.Logger),
		usecases.NewGenerateStage(a.LLM, a.Logger),
		a.Logger,
	)
	a.Service = usecases.NewService(ingest, pipeline, a.Index, a.Store, usecases.ServiceOptions{
		LinkToLatestDocument: cfg.QA.LinkToLatestDocument,
	}, a.Logger)
	return nil
}

func (a *App) newIndex() (ports.VectorIndex, error) {
	cfg := a.Config.Index
	switch cfg.Backend {
	case "memory":
		return vectordb.NewInMemoryStore(), nil
	case "qdrant":
		return vectordb.NewQdrantStore(vectordb.QdrantConfig{
			URL:     cfg.Qdrant.URL,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: config.Seconds(cfg.TimeoutSecs),
		}, a.Logger), nil
	case "sqlite", "":
		index, err := vectordb.NewSQLiteStore(a.Config.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening vector index: %w", err)
		}
		a.closers = append(a.closers, index.Close)
		return index, nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

func (a *App) newEmbedder(ctx context.Context) (ports.EmbeddingService, error) {
	cfg := a.Config.Embedding
	switch cfg.Provider {
	case "gemini":
		return embedding.NewGeminiAdapter(ctx, embedding.GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BaseURL:    cfg.BaseURL,
		}, a.Logger)
	case "ollama":
		return embedding.NewOllamaAdapter(cfg.BaseURL, cfg.Model, cfg.Concurrency, a.Logger), nil
	case "local", "":
		return embedding.NewLocalEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func (a *App) newLLM(ctx context.Context) (ports.LLMService, error) {
	cfg := a.Config.LLM
	switch cfg.Provider {
	case "gemini":
		return llm.NewGeminiAdapter(ctx, llm.GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			BaseURL:     cfg.BaseURL,
		}, a.Logger)
	case "claude":
		return llm.NewClaudeAdapter(llm.ClaudeConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
			BaseURL:     cfg.BaseURL,
		}, a.Logger)
	case "ollama":
		return llm.NewOllamaLLMAdapter(cfg.BaseURL, cfg.Model, float32(cfg.Temperature), a.Logger), nil
	case "local", "":
		return llm.NewLocalAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewReconciler builds a reconciler from config, with overrides from the caller.
func (a *App) NewReconciler(dryRun bool, removeStale bool) *usecases.Reconciler {
	return usecases.NewReconciler(a.Index, a.Store, usecases.ReconcileOptions{
		RemoveStaleDocuments: removeStale || a.Config.Reconcile.RemoveStaleDocuments,
		Grace:                time.Duration(a.Config.Reconcile.GraceMinutes) * time.Minute,
		DryRun:               dryRun,
	}, a.Logger)
}

// NewScheduler builds the cron scheduler around a non-dry-run reconciler.
func (a *App) NewScheduler() *scheduler.Scheduler {
	return scheduler.NewScheduler(a.NewReconciler(false, false), 0, a.Logger)
}

// NewInboxWatcher builds the fsnotify-backed inbox watcher.
func (a *App) NewInboxWatcher() (*usecases.InboxWatcher, error) {
	fileLoader := loader.NewPDFFileLoader(
		time.Duration(a.Config.Inbox.SettleMillis)*time.Millisecond,
		int64(a.Config.Server.MaxUploadMB)<<20,
		a.Logger,
	)
	watcher, err := filewatcher.NewFSNotifyWatcher(fileLoader.SupportedExtensions(), a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return usecases.NewInboxWatcher(watcher, fileLoader, a.Service, a.Logger), nil
}

// NewServer builds the HTTP server over the service.
func (a *App) NewServer() *http.Server {
	return http.NewServer(a.Service, http.Options{
		Addr:            a.Config.Server.Addr(),
		MaxUploadBytes:  int64(a.Config.Server.MaxUploadMB) << 20,
		ShutdownTimeout: config.Seconds(a.Config.Server.ShutdownTimeoutSecs),
		Info: map[string]string{
			"index":     a.Config.Index.Backend,
			"embedding": a.Embedder.ModelName(),
			"llm":       a.LLM.ModelName(),
		},
	}, a.Logger)
}

// Close releases stores in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
