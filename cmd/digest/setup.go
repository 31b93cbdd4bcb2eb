package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/liao/wa-digest/internal/ai"
	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/config"
	"github.com/liao/wa-digest/internal/rag"
)

// filterFlags 各子命令共用的过滤参数
type filterFlags struct {
	from        string
	to          string
	recent      int
	oldestFirst bool
	dropMedia   bool
	tz          string
	decryptKey  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last day to include (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.recent, "recent", 0, "only messages from the last N days")
	cmd.Flags().BoolVar(&f.oldestFirst, "oldest-first", false, "sort oldest message first")
	cmd.Flags().BoolVar(&f.dropMedia, "drop-media", false, "skip <Media omitted> placeholder lines")
	cmd.Flags().StringVar(&f.tz, "tz", "", "timezone of the export timestamps (default filter.timezone)")
	cmd.Flags().StringVar(&f.decryptKey, "decrypt-key", "", "password for .enc exports (or DECRYPT_KEY env)")
}

// options 命令行参数覆盖配置文件中的默认值
func (f *filterFlags) options(cmd *cobra.Command, cfg *config.Config) (analyzer.Options, error) {
	fc := cfg.Filter
	if f.tz != "" {
		fc.Timezone = f.tz
	}
	loc, err := fc.Location()
	if err != nil {
		return analyzer.Options{}, err
	}

	opts := analyzer.Options{
		RecencyDays: fc.RecencyDays,
		NewestFirst: fc.NewestFirst,
		DropMedia:   fc.DropMedia || f.dropMedia,
		Location:    loc,
	}
	if cmd.Flags().Changed("oldest-first") {
		opts.NewestFirst = !f.oldestFirst
	}

	r, err := analyzer.ParseDateRange(f.from, f.to)
	if err != nil {
		return analyzer.Options{}, err
	}
	if r != nil {
		opts.Range = r
		opts.RecencyDays = 0
	}
	if cmd.Flags().Changed("recent") {
		opts.RecencyDays = f.recent
	}
	return opts, nil
}

func (f *filterFlags) password() string {
	if f.decryptKey != "" {
		return f.decryptKey
	}
	return os.Getenv("DECRYPT_KEY")
}

// loadConfig 读取配置并设置默认 logger
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
	return cfg, nil
}

// newAnalyzer 创建 Gemini 客户端，按配置接入 RAG
func newAnalyzer(ctx context.Context, cfg *config.Config) (*analyzer.Analyzer, error) {
	if err := cfg.RequireGemini(); err != nil {
		return nil, err
	}

	client, err := ai.NewClient(ctx,
		cfg.Gemini.APIKey,
		cfg.Gemini.ChatModels,
		cfg.Gemini.EmbeddingModel,
		cfg.Gemini.Temperature,
		cfg.Gemini.MaxOutputTokens,
		cfg.Gemini.RPMLimit,
	)
	if err != nil {
		return nil, err
	}

	var retriever analyzer.Retriever
	if cfg.RAG.Enabled {
		store, err := rag.NewStore(cfg.RAG.VectorsDir, client.EmbedFunc())
		if err != nil {
			return nil, err
		}
		retriever = rag.NewPipeline(store, cfg.RAG.TopK, cfg.RAG.MinSimilarity, cfg.RAG.Gap())
	}
	return analyzer.New(client, retriever, cfg.RAG.MinMessages), nil
}
