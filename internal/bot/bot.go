package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	zero "github.com/wdvxdr1123/ZeroBot"
	"github.com/wdvxdr1123/ZeroBot/driver"
	"github.com/wdvxdr1123/ZeroBot/message"
	"google.golang.org/genai"

	"github.com/liao/wa-digest/internal/ai"
	"github.com/liao/wa-digest/internal/analyzer"
	"github.com/liao/wa-digest/internal/chat"
	"github.com/liao/wa-digest/internal/config"
	"github.com/liao/wa-digest/internal/source"
)

// ChatModel 多轮问答需要的模型能力
type ChatModel interface {
	analyzer.Summarizer
	GenerateChat(ctx context.Context, systemPrompt string, history []*genai.Content, userMsg string) (string, error)
}

// Bot 通过 QQ 私聊和一份 WhatsApp 聊天记录对话
type Bot struct {
	cfg      *config.Config
	llm      ChatModel
	analyzer *analyzer.Analyzer
	chat     *chat.Manager
	src      source.ChatSource
	opts     analyzer.Options
	cancel   context.CancelFunc
}

func New(cfg *config.Config, llm ChatModel, a *analyzer.Analyzer, chatMgr *chat.Manager, src source.ChatSource, opts analyzer.Options) *Bot {
	return &Bot{
		cfg:      cfg,
		llm:      llm,
		analyzer: a,
		chat:     chatMgr,
		src:      src,
		opts:     opts,
	}
}

func (b *Bot) Run(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)

	ws := driver.NewWebSocketClient(
		b.cfg.NapCat.WSURL,
		b.cfg.NapCat.AccessToken,
	)

	zero.OnCommand("summary", zero.OnlyPrivate, b.ownerFilter()).SetBlock(true).Handle(func(zctx *zero.Ctx) {
		zctx.Send(message.Text(b.handleSummary(ctx, commandArgs(zctx))))
	})

	zero.OnCommand("reset", zero.OnlyPrivate, b.ownerFilter()).SetBlock(true).Handle(func(zctx *zero.Ctx) {
		b.chat.Reset()
		zctx.Send(message.Text("history cleared"))
	})

	zero.OnCommand("status", zero.OnlyPrivate, b.ownerFilter()).SetBlock(true).Handle(func(zctx *zero.Ctx) {
		zctx.Send(message.Text(fmt.Sprintf("wa-digest running, chat=%s, history=%d", b.cfg.Bot.ChatFile, b.chat.Len())))
	})

	// 其他私聊消息当作问题
	zero.OnMessage(zero.OnlyPrivate, b.ownerFilter()).Handle(func(zctx *zero.Ctx) {
		question := strings.TrimSpace(zctx.ExtractPlainText())
		if question == "" || strings.HasPrefix(question, "/") {
			return
		}
		zctx.Send(message.Text(b.handleQuestion(ctx, question)))
	})

	slog.Info("bot starting",
		"owner_qq", b.cfg.Bot.OwnerQQ,
		"ws_url", b.cfg.NapCat.WSURL,
		"chat_file", b.cfg.Bot.ChatFile,
	)

	zero.RunAndBlock(&zero.Config{
		NickName:      []string{"wa-digest"},
		CommandPrefix: "/",
		SuperUsers:    []int64{b.cfg.Bot.OwnerQQ},
		Driver:        []zero.Driver{ws},
	}, nil)
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.chat.Save(); err != nil {
		slog.Error("save session failed", "error", err)
	}
}

// handleQuestion 带问答历史回答问题，每次重新读取聊天文件以便拿到最新导出
func (b *Bot) handleQuestion(ctx context.Context, question string) string {
	slog.Info("received question", "text", question)

	p, err := analyzer.Prepare(ctx, b.src, b.opts)
	if err != nil {
		return userMessage(err)
	}
	chatText, retrieved := b.analyzer.Context(ctx, p, question)

	history := b.chat.History()
	reply, err := b.llm.GenerateChat(ctx, ai.QASystemPrompt(chatText), history, question)
	if err != nil {
		slog.Error("generate answer failed, retrying without history", "error", err)
		// 兜底：清掉历史重试一次（可能是历史数据有问题）
		reply, err = b.llm.GenerateChat(ctx, ai.QASystemPrompt(chatText), nil, question)
		if err != nil {
			slog.Error("fallback also failed", "error", err)
			return "Sorry, I could not reach the model. Try again later."
		}
	}
	reply = strings.TrimSpace(reply)
	slog.Debug("answered", "messages", len(p.Messages), "retrieved", retrieved)

	b.chat.AddQuestion(question)
	b.chat.AddAnswer(reply)

	// 异步保存会话
	go func() {
		if err := b.chat.Save(); err != nil {
			slog.Error("save session failed", "error", err)
		}
	}()
	return reply
}

// handleSummary "/summary [days]" 最近 N 天的提醒摘要
func (b *Bot) handleSummary(ctx context.Context, args string) string {
	opts := b.opts
	opts.Range = nil
	opts.RecencyDays = analyzer.DefaultReminderDays
	if args = strings.TrimSpace(args); args != "" {
		days, err := strconv.Atoi(args)
		if err != nil || days <= 0 {
			return "usage: /summary [days]"
		}
		opts.RecencyDays = days
	}
	opts.Now = time.Now()

	res, err := b.analyzer.Summarize(ctx, b.src, analyzer.ModeReminders, opts)
	if err != nil {
		return userMessage(err)
	}
	return res.Markdown
}

// userMessage 空结果给出提示，其他错误不暴露细节
func userMessage(err error) string {
	switch {
	case errors.Is(err, analyzer.ErrNoRecentMessages):
		return "No recent messages."
	case errors.Is(err, analyzer.ErrNoMessages):
		return "No valid messages found in the chat file."
	default:
		slog.Error("request failed", "error", err)
		return "Something went wrong, check the logs."
	}
}

func commandArgs(zctx *zero.Ctx) string {
	if args, ok := zctx.State["args"].(string); ok {
		return args
	}
	return ""
}

func (b *Bot) ownerFilter() zero.Rule {
	return func(ctx *zero.Ctx) bool {
		if b.cfg.Bot.OwnerQQ == 0 {
			return true // 不限制
		}
		return ctx.Event.UserID == b.cfg.Bot.OwnerQQ
	}
}
