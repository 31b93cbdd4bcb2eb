package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/liao/wa-digest/internal/ai"
	"github.com/liao/wa-digest/internal/parser"
	"github.com/liao/wa-digest/internal/report"
	"github.com/liao/wa-digest/internal/source"
)

var (
	// ErrNoMessages 聊天文本中没有任何可识别的消息行
	ErrNoMessages = errors.New("no valid messages found")
	// ErrNoRecentMessages 最近 N 天内没有消息
	ErrNoRecentMessages = errors.New("no recent messages")
	ErrEmptyQuestion    = errors.New("question is empty")
)

// DefaultReminderDays reminders 模式未指定范围时的时间窗口
const DefaultReminderDays = 7

// Summarizer 外部大模型，一次调用一个 prompt
type Summarizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Retriever 从聊天中挑出和问题相关的片段
type Retriever interface {
	Retrieve(ctx context.Context, msgs []parser.Message, question string) ([]string, error)
}

type Mode string

const (
	ModeSummary    Mode = "summary"
	ModeReminders  Mode = "reminders"
	ModeStructured Mode = "structured"
)

// ParseMode 空串视为 summary
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSummary, nil
	case ModeSummary, ModeReminders, ModeStructured:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (summary, reminders, structured)", s)
	}
}

type Result struct {
	Mode     Mode
	Messages int // 发给模型的消息条数，抓取来源为 0
	Markdown string
	Report   *report.Report // 仅 structured 模式
}

type Answer struct {
	Text      string
	Messages  int
	Retrieved int // 使用 RAG 时选中的片段数
}

type Analyzer struct {
	llm            Summarizer
	retriever      Retriever
	ragMinMessages int
}

// New retriever 可以为 nil；消息数超过 ragMinMessages 时问答只发送检索到的片段
func New(llm Summarizer, retriever Retriever, ragMinMessages int) *Analyzer {
	return &Analyzer{
		llm:            llm,
		retriever:      retriever,
		ragMinMessages: ragMinMessages,
	}
}

// Summarize 按模式生成摘要
func (a *Analyzer) Summarize(ctx context.Context, src source.ChatSource, mode Mode, opts Options) (*Result, error) {
	if mode == ModeReminders && opts.RecencyDays <= 0 && opts.Range == nil {
		opts.RecencyDays = DefaultReminderDays
	}

	p, err := Prepare(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	var prompt string
	switch mode {
	case ModeReminders:
		prompt = ai.RemindersPrompt(p.Transcript, opts.RecencyDays)
	case ModeStructured:
		prompt = ai.StructuredPrompt(p.Transcript)
	default:
		mode = ModeSummary
		prompt = ai.SummaryPrompt(p.Transcript)
	}

	slog.Info("analyzing chat", "mode", mode, "source", p.Kind, "messages", len(p.Messages))
	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", mode, err)
	}

	res := &Result{Mode: mode, Messages: len(p.Messages), Markdown: strings.TrimSpace(text)}
	if mode == ModeStructured {
		r, err := report.Decode(ai.StripCodeFence(text))
		if err != nil {
			slog.Warn("model output is not valid JSON, extracting links locally", "error", err)
			r = &report.Report{Links: report.ExtractLinks(p.Transcript)}
		} else {
			res.Markdown = r.Markdown()
		}
		res.Report = r
	}
	return res, nil
}

// Ask 针对聊天内容回答一个问题
func (a *Analyzer) Ask(ctx context.Context, src source.ChatSource, question string, opts Options) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	p, err := Prepare(ctx, src, opts)
	if err != nil {
		return nil, err
	}

	chatText, retrieved := a.Context(ctx, p, question)
	text, err := a.llm.Generate(ctx, ai.QuestionPrompt(question, chatText))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{Text: strings.TrimSpace(text), Messages: len(p.Messages), Retrieved: retrieved}, nil
}

// Context 返回问答时发给模型的聊天内容。
// 长聊天且配置了检索时只取相关片段；检索失败或没有命中时退回完整内容。
func (a *Analyzer) Context(ctx context.Context, p *Prepared, question string) (string, int) {
	if a.retriever == nil || p.Kind != source.KindExport || len(p.Messages) <= a.ragMinMessages {
		return p.Transcript, 0
	}

	chunks, err := a.retriever.Retrieve(ctx, p.Messages, question)
	if err != nil {
		slog.Warn("RAG retrieve failed, sending full chat", "error", err)
		return p.Transcript, 0
	}
	if len(chunks) == 0 {
		return p.Transcript, 0
	}
	return strings.Join(chunks, "\n\n"), len(chunks)
}
