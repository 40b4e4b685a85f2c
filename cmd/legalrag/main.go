package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"legalrag/internal/chatstore"
	"legalrag/internal/config"
	"legalrag/internal/corpus"
	"legalrag/internal/domain"
	"legalrag/internal/embedding"
	"legalrag/internal/generation"
	"legalrag/internal/ranking"
	"legalrag/internal/service"
	"legalrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, userID string
	var debug bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/legalrag/config.yaml if not provided)")
	flag.StringVar(&userID, "user", "local", "User id recorded with chat messages")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	idx := corpus.Load(cfg.Corpus.DocstorePath, cfg.Corpus.EmbeddingsPath, cfg.Corpus.VocabPath, logger)

	var embedder domain.EmbeddingProvider
	switch cfg.Embedder.Type {
	case "tfidf", "":
		embedder = embedding.NewTFIDFProvider(idx.Vocab())
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			logger.Fatal("openai embedder config missing")
		}
		embedder = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:  os.Getenv(oc.APIKeyEnv),
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		})
	case "none":
		// lexical ranking only
	default:
		logger.Fatal("unknown embedder", "type", cfg.Embedder.Type)
	}

	var provider domain.GenerationProvider
	switch cfg.Generator.Type {
	case "openai":
		oc := cfg.Generator.OpenAI
		if oc == nil {
			logger.Fatal("openai generator config missing")
		}
		provider = generation.NewOpenAIProvider(generation.OpenAIConfig{
			APIKey:      os.Getenv(oc.APIKeyEnv),
			BaseURL:     oc.BaseURL,
			Model:       oc.Model,
			Temperature: oc.Temperature,
		})
	case "none", "":
		// extractive answers only
	default:
		logger.Fatal("unknown generator", "type", cfg.Generator.Type)
	}

	genCfg := generation.DefaultConfig()
	if oc := cfg.Generator.OpenAI; oc != nil {
		genCfg.MaxOutputTokens = oc.MaxTokens
		genCfg.Timeout = time.Duration(oc.TimeoutSecs) * time.Second
	}

	store, err := chatstore.Open(cfg.Chat.DBPath)
	if err != nil {
		logger.Fatal("failed to open chat store", "err", err)
	}
	defer store.Close()

	ranker := ranking.New(idx, ranking.Boosts{
		Phrase:            *cfg.Retrieval.PhraseBoost,
		Statutory:         *cfg.Retrieval.StatutoryBoost,
		StatutoryCategory: cfg.Retrieval.StatutoryCategory,
	})
	generator := generation.New(provider, genCfg, logger)
	assistant := service.New(idx, ranker, generator, logger,
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithEmbedder(embedder),
		service.WithStore(store),
	)

	header := fmt.Sprintf("Knowledge base: %d legal documents loaded.", idx.Len())
	m := tui.New(assistant, userID, header)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("tui failed", "err", err)
	}
}
