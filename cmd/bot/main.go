package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/liao/wa-digest/internal/ai"
	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/bot"
	"github.com/liao/wa-digest/internal/chat"
	"github.com/liao/wa-digest/internal/config"
	"github.com/liao/wa-digest/internal/rag"
	"github.com/liao/wa-digest/internal/source"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	chatFile := flag.String("chat", "", "WhatsApp export to answer questions about (overrides bot.chat_file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	if *chatFile != "" {
		cfg.Bot.ChatFile = *chatFile
	}
	if cfg.Bot.ChatFile == "" {
		slog.Error("bot.chat_file is required (or -chat)")
		os.Exit(1)
	}
	if err := cfg.RequireGemini(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini 客户端
	aiClient, err := ai.NewClient(ctx,
		cfg.Gemini.APIKey,
		cfg.Gemini.ChatModels,
		cfg.Gemini.EmbeddingModel,
		cfg.Gemini.Temperature,
		cfg.Gemini.MaxOutputTokens,
		cfg.Gemini.RPMLimit,
	)
	if err != nil {
		slog.Error("create AI client failed", "error", err)
		os.Exit(1)
	}
	slog.Info("AI client initialized", "models", cfg.Gemini.ChatModels)

	src, err := source.Open(cfg.Bot.ChatFile, cfg.Bot.DecryptKey)
	if err != nil {
		slog.Error("open chat file failed", "error", err)
		os.Exit(1)
	}

	loc, _ := cfg.Filter.Location()
	opts := analyzer.Options{
		RecencyDays: cfg.Filter.RecencyDays,
		NewestFirst: cfg.Filter.NewestFirst,
		DropMedia:   cfg.Filter.DropMedia,
		Location:    loc,
	}

	// 问答历史
	chatMgr, err := chat.NewManager(cfg.Bot.MaxContextTurns, cfg.Bot.SessionsDir, cfg.Bot.ChatFile)
	if err != nil {
		slog.Error("create chat manager failed", "error", err)
		os.Exit(1)
	}

	// 向量存储 + RAG
	var retriever analyzer.Retriever
	if cfg.RAG.Enabled {
		store, err := rag.NewStore(cfg.RAG.VectorsDir, aiClient.EmbedFunc())
		if err != nil {
			slog.Warn("load vector store failed, RAG disabled", "error", err)
		} else {
			retriever = rag.NewPipeline(store, cfg.RAG.TopK, cfg.RAG.MinSimilarity, cfg.RAG.Gap())
		}
	}

	a := analyzer.New(aiClient, retriever, cfg.RAG.MinMessages)
	b := bot.New(cfg, aiClient, a, chatMgr, src, opts)

	// 优雅关闭
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		slog.Info("shutting down...")
		b.Stop()
		cancel()
		os.Exit(0)
	}()

	b.Run(ctx)
}
