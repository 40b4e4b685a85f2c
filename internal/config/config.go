package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the static snapshot files.
type CorpusConfig struct {
	DocstorePath   string `yaml:"docstore_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
	VocabPath      string `yaml:"vocab_path"`
}

// OpenAIConfig holds settings shared by the OpenAI-compatible providers.
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// EmbedderConfig selects and configures the query embedder.
type EmbedderConfig struct {
	Type   string        `yaml:"type"` // openai | tfidf | none
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeneratorConfig selects and configures the answer generator backend.
type GeneratorConfig struct {
	Type   string        `yaml:"type"` // openai | none
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig tunes ranking behavior. The boost weights are pointers so
// that an explicit zero in the file disables a boost instead of being
// mistaken for "unset" and overwritten with the default.
type RetrievalConfig struct {
	TopK              int      `yaml:"top_k"`
	PhraseBoost       *float64 `yaml:"phrase_boost"`
	StatutoryBoost    *float64 `yaml:"statutory_boost"`
	StatutoryCategory string   `yaml:"statutory_category"`
}

// ChatConfig configures message persistence.
type ChatConfig struct {
	DBPath       string `yaml:"db_path"`
	HistoryLimit int    `yaml:"history_limit"`
}

// IndexConfig tunes the snapshot builder.
type IndexConfig struct {
	ChunkChars       int `yaml:"chunk_chars"`
	OverlapChars     int `yaml:"overlap_chars"`
	SummarySentences int `yaml:"summary_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chat      ChatConfig      `yaml:"chat"`
	Index     IndexConfig     `yaml:"index"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/legalrag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write config")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "legalrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus: CorpusConfig{
			DocstorePath:   "data/docstore.json",
			EmbeddingsPath: "data/embeddings.json",
			VocabPath:      "data/vocab.json",
		},
		Embedder:  EmbedderConfig{Type: "tfidf"},
		Generator: GeneratorConfig{Type: "none"},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.PhraseBoost == nil {
		cfg.Retrieval.PhraseBoost = ptr(0.3)
	}
	if cfg.Retrieval.StatutoryBoost == nil {
		cfg.Retrieval.StatutoryBoost = ptr(0.2)
	}
	if cfg.Retrieval.StatutoryCategory == "" {
		cfg.Retrieval.StatutoryCategory = "IPC"
	}
	if cfg.Chat.DBPath == "" {
		cfg.Chat.DBPath = "legalrag.db"
	}
	if cfg.Chat.HistoryLimit == 0 {
		cfg.Chat.HistoryLimit = 50
	}
	if cfg.Index.ChunkChars == 0 {
		cfg.Index.ChunkChars = 800
	}
	if cfg.Index.OverlapChars == 0 {
		cfg.Index.OverlapChars = 50
	}
	if cfg.Index.SummarySentences == 0 {
		cfg.Index.SummarySentences = 5
	}
	applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small", 8)
	applyOpenAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini", 12)
}

func ptr(v float64) *float64 { return &v }

func applyOpenAIDefaults(c *OpenAIConfig, model string, timeoutSecs int) {
	if c == nil {
		return
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = timeoutSecs
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 256
	}
}
