package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursemate/internal/app"
	"github.com/abhisek/coursemate/internal/config"
	"github.com/abhisek/coursemate/internal/llm"
	"github.com/abhisek/coursemate/internal/store"
	"github.com/abhisek/coursemate/internal/vectorindex"
)

// llmConfig uses COURSEMATE_* settings when a provider is named explicitly,
// then any standard API key found in the environment, then the local
// Ollama defaults.
func llmConfig() (llm.Config, error) {
	cfg := llm.ConfigFromEnv()
	if os.Getenv("COURSEMATE_LLM_PROVIDER") == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg = discovered
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("llm config: %w", err)
	}
	return cfg, nil
}

// session is an opened store plus the service built on it.
type session struct {
	cfg   config.Config
	store *store.Store
	svc   *app.Service
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads config, opens the store and builds the service.
// An ephemeral session keeps the vector index in memory only.
func openSession(cmd *cobra.Command, ephemeral bool) (*session, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	lc, err := llmConfig()
	if err != nil {
		return nil, err
	}
	splitter, err := cfg.Splitter()
	if err != nil {
		return nil, err
	}

	st, err := openStore(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	logger := slog.Default()
	provider, err := llm.NewProvider(ctx, lc, st.EventRepo(), logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	embedder, err := llm.NewEmbedder(ctx, lc)
	if err != nil {
		st.Close()
		return nil, err
	}

	var index vectorindex.Index = vectorindex.NewSQLIndex(st.ChunkRepo(), embedder)
	if ephemeral {
		index = vectorindex.NewMemoryIndex(embedder)
	}

	svc, err := app.New(app.Options{
		Store:              st,
		Index:              index,
		Provider:           provider,
		Splitter:           splitter,
		Retrieval:          cfg.RetrievalConfig(),
		Quiz:               cfg.QuizConfig(),
		Adaptive:           cfg.AdaptiveConfig(),
		SummaryMaterialCap: cfg.Summary.MaterialCap,
		HalfLife:           cfg.Analytics.HalfLife,
		UploadDir:          cfg.Storage.UploadDir,
		Logger:             logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	logger.Debug("session ready",
		"llm_provider", lc.Provider,
		"embedding_provider", lc.Embedding.Provider,
		"storage", cfg.Storage.Driver,
		"ephemeral", ephemeral,
	)
	return &session{cfg: cfg, store: st, svc: svc}, nil
}
