// Command legalrag-index builds the static corpus snapshots consumed by the
// assistant: docstore.json, embeddings.json, and (for the local embedder)
// vocab.json. Input is the IPC section dataset plus a directory of legal
// guide documents.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"legalrag/internal/chunker"
	"legalrag/internal/config"
	"legalrag/internal/corpus"
	"legalrag/internal/domain"
	"legalrag/internal/embedding"
	"legalrag/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, csvPath, guidesDir, outDir string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file")
	flag.StringVar(&csvPath, "csv", "ipc_dataset.csv", "IPC sections dataset (CSV)")
	flag.StringVar(&guidesDir, "guides", "data/legal", "Directory of legal guide documents (.md/.txt)")
	flag.StringVar(&outDir, "out", "data", "Output directory for snapshot files")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

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

	var docs []domain.Document
	ipcDocs, err := loadIPCDataset(csvPath)
	if err != nil {
		logger.Warn("skipping IPC dataset", "path", csvPath, "err", err)
	} else {
		logger.Info("loaded IPC dataset", "documents", len(ipcDocs))
		docs = append(docs, ipcDocs...)
	}

	guideDocs, err := loadGuides(guidesDir, chunker.New(cfg.Index.ChunkChars, cfg.Index.OverlapChars))
	if err != nil {
		logger.Warn("skipping legal guides", "dir", guidesDir, "err", err)
	} else {
		logger.Info("loaded legal guides", "chunks", len(guideDocs))
		docs = append(docs, guideDocs...)
	}

	if len(docs) == 0 {
		logger.Fatal("no documents to index")
	}
	// Ids are positional: vectors[i] must belong to docs[i] at query time.
	for i := range docs {
		docs[i].ID = i
	}

	texts := make([]string, len(docs))
	var allText strings.Builder
	for i, d := range docs {
		texts[i] = d.Title + " " + d.Text
		allText.WriteString(d.Text)
		allText.WriteString("\n")
	}

	var vectors [][]float64
	var vocab *corpus.Vocabulary
	switch cfg.Embedder.Type {
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			logger.Fatal("openai embedder config missing")
		}
		provider := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:  os.Getenv(oc.APIKeyEnv),
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		})
		vectors = make([][]float64, len(texts))
		for i, text := range texts {
			vec, err := provider.Embed(context.Background(), text)
			if err != nil {
				logger.Fatal("embedding failed", "document", i, "err", err)
			}
			vectors[i] = vec
		}
	case "tfidf", "":
		vocab, vectors, err = embedding.FitTFIDF(texts)
		if err != nil {
			logger.Fatal("TF-IDF fit failed", "err", err)
		}
	case "none":
		logger.Info("no embedder configured, writing docstore only")
	default:
		logger.Fatal("unknown embedder", "type", cfg.Embedder.Type)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Fatal("failed to create output dir", "err", err)
	}
	if err := writeDocstore(filepath.Join(outDir, "docstore.json"), docs); err != nil {
		logger.Fatal("failed to write docstore", "err", err)
	}
	if vectors != nil {
		if err := writeJSON(filepath.Join(outDir, "embeddings.json"), vectors); err != nil {
			logger.Fatal("failed to write embeddings", "err", err)
		}
	}
	if vocab != nil {
		if err := writeJSON(filepath.Join(outDir, "vocab.json"), vocab); err != nil {
			logger.Fatal("failed to write vocabulary", "err", err)
		}
	}

	digest := summarizer.NewFrequency().Summarize(allText.String(), cfg.Index.SummarySentences)
	logger.Info("index built", "documents", len(docs), "vectors", len(vectors), "out", outDir)
	fmt.Println(digest)
}

// loadIPCDataset reads the penal-code CSV and renders one document per
// section in the layout the retrieval heuristics expect ("IPC Section N"
// in the title, category "IPC").
func loadIPCDataset(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"section_number", "section_title", "description", "example_use_cases", "punishment"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var docs []domain.Document
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		number := row[col["section_number"]]
		title := row[col["section_title"]]
		docs = append(docs, domain.Document{
			Title: fmt.Sprintf("IPC Section %s: %s", number, title),
			Text: fmt.Sprintf("IPC Section %s: %s\n\nDescription: %s\n\nExample Use Cases: %s\n\nPunishment: %s",
				number, title, row[col["description"]], row[col["example_use_cases"]], row[col["punishment"]]),
			Source:   "IPC Dataset",
			Category: "IPC",
		})
	}
	return docs, nil
}

// loadGuides chunks every guide file in dir into corpus documents.
func loadGuides(dir string, ch *chunker.GuideChunker) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var docs []domain.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".md" && ext != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		stem := strings.TrimSuffix(entry.Name(), ext)
		for i, chunk := range ch.Chunk(string(data)) {
			docs = append(docs, domain.Document{
				Title:    fmt.Sprintf("%s - Part %d", titleCase(stem), i+1),
				Text:     chunk,
				Source:   entry.Name(),
				Category: "Legal Guide",
			})
		}
	}
	return docs, nil
}

func titleCase(stem string) string {
	words := strings.Fields(strings.ReplaceAll(stem, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// writeDocstore serializes documents keyed by stringified positional id,
// the shape the corpus loader reads back.
func writeDocstore(path string, docs []domain.Document) error {
	out := make(map[string]map[string]string, len(docs))
	for _, d := range docs {
		out[strconv.Itoa(d.ID)] = map[string]string{
			"title":    d.Title,
			"text":     d.Text,
			"source":   d.Source,
			"category": d.Category,
		}
	}
	return writeJSON(path, out)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
