package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/genai"
)

type Client struct {
	client     *genai.Client
	chatModels []string // 多模型轮换
	modelIdx   atomic.Int64
	embedModel string
	temp       float32
	maxTokens  int32

	// 限流
	rpmLimit int
	mu       sync.Mutex
	tokens   int
	lastTick time.Time
}

func NewClient(ctx context.Context, apiKey string, chatModels []string, embedModel string, temp float32, maxTokens int32, rpmLimit int) (*Client, error) {
	if len(chatModels) == 0 {
		return nil, fmt.Errorf("at least one chat model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c := &Client{
		client:     client,
		chatModels: chatModels,
		embedModel: embedModel,
		temp:       temp,
		maxTokens:  maxTokens,
		rpmLimit:   rpmLimit,
		tokens:     rpmLimit,
		lastTick:   time.Now(),
	}
	return c, nil
}

// currentModel 获取当前模型
func (c *Client) currentModel() string {
	idx := c.modelIdx.Load() % int64(len(c.chatModels))
	return c.chatModels[idx]
}

// rotateModel 切换到下一个模型
func (c *Client) rotateModel() string {
	newIdx := c.modelIdx.Add(1) % int64(len(c.chatModels))
	model := c.chatModels[newIdx]
	slog.Info("rotating to next model", "model", model)
	return model
}

// Generate 单轮生成，用于摘要和问答
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	return c.generate(ctx, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temp),
		MaxOutputTokens: c.maxTokens,
	})
}

// GenerateChat 带系统提示和历史的多轮生成
func (c *Client) GenerateChat(ctx context.Context, systemPrompt string, history []*genai.Content, userMsg string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, genai.NewContentFromText(userMsg, genai.RoleUser))

	return c.generate(ctx, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(c.temp),
		MaxOutputTokens:   c.maxTokens,
	})
}

// generate 429 时自动切换模型，其他错误指数退避
func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if err := c.waitForToken(ctx); err != nil {
		return "", err
	}

	// 尝试所有模型，每个模型最多重试 2 次
	totalAttempts := len(c.chatModels) * 2
	var lastErr error
	for attempt := 0; attempt < totalAttempts; attempt++ {
		model := c.currentModel()
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			lastErr = err
			wait := time.Duration(1<<attempt) * time.Second
			if isQuotaError(err) {
				slog.Warn("model quota exceeded, switching", "model", model, "attempt", attempt+1)
				c.rotateModel()
				wait = time.Second
			} else {
				slog.Warn("generate failed, retrying", "model", model, "attempt", attempt+1, "error", err)
			}
			if err := sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}
		text := resp.Text()
		slog.Debug("generated reply", "model", model, "chars", len(text))
		return text, nil
	}
	return "", fmt.Errorf("all models exhausted after %d attempts: %w", totalAttempts, lastErr)
}

// Embed 生成文本嵌入向量
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.waitForToken(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := c.client.Models.EmbedContent(ctx, c.embedModel,
			[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
		if err != nil {
			lastErr = err
			slog.Warn("embed failed, retrying", "attempt", attempt+1, "error", err)
			if err := sleep(ctx, time.Duration(1<<attempt)*time.Second); err != nil {
				return nil, err
			}
			continue
		}
		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("empty embedding response")
		}
		return resp.Embeddings[0].Values, nil
	}
	return nil, fmt.Errorf("embed failed after 3 attempts: %w", lastErr)
}

// EmbedFunc 返回一个可用于 chromem-go 的 embedding 函数
func (c *Client) EmbedFunc() func(ctx context.Context, text string) ([]float32, error) {
	return c.Embed
}

// waitForToken 简单令牌桶限流，rpmLimit <= 0 时不限流
func (c *Client) waitForToken(ctx context.Context) error {
	if c.rpmLimit <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(c.lastTick)
	if elapsed >= time.Minute {
		c.tokens = c.rpmLimit
		c.lastTick = now
	}

	if c.tokens > 0 {
		c.tokens--
		return nil
	}

	wait := time.Minute - elapsed
	c.mu.Unlock()
	slog.Info("rate limit reached, waiting", "duration", wait)
	err := sleep(ctx, wait)
	c.mu.Lock()
	if err != nil {
		return err
	}
	c.tokens = c.rpmLimit - 1
	c.lastTick = time.Now()
	return nil
}

func isQuotaError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "RESOURCE_EXHAUSTED")
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
