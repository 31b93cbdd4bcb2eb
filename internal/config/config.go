package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	Filter FilterConfig `mapstructure:"filter"`
	RAG    RAGConfig    `mapstructure:"rag"`
	Server ServerConfig `mapstructure:"server"`
	Bot    BotConfig    `mapstructure:"bot"`
	NapCat NapCatConfig `mapstructure:"napcat"`
	Log    LogConfig    `mapstructure:"log"`
}

type GeminiConfig struct {
	APIKey          string   `mapstructure:"api_key"`
	ChatModels      []string `mapstructure:"chat_models"`
	EmbeddingModel  string   `mapstructure:"embedding_model"`
	Temperature     float32  `mapstructure:"temperature"`
	MaxOutputTokens int32    `mapstructure:"max_output_tokens"`
	RPMLimit        int      `mapstructure:"rpm_limit"`
}

// FilterConfig 默认的过滤和排序设置，命令行参数可以覆盖
type FilterConfig struct {
	RecencyDays int    `mapstructure:"recency_days"`
	NewestFirst bool   `mapstructure:"newest_first"`
	Timezone    string `mapstructure:"timezone"`
	DropMedia   bool   `mapstructure:"drop_media"`
}

type RAGConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	VectorsDir    string  `mapstructure:"vectors_dir"`
	TopK          int     `mapstructure:"top_k"`
	MinSimilarity float32 `mapstructure:"min_similarity"`
	GapMinutes    int     `mapstructure:"gap_minutes"`
	MinMessages   int     `mapstructure:"min_messages"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

type BotConfig struct {
	OwnerQQ         int64  `mapstructure:"owner_qq"`
	ChatFile        string `mapstructure:"chat_file"`
	DecryptKey      string `mapstructure:"decrypt_key"`
	MaxContextTurns int    `mapstructure:"max_context_turns"`
	SessionsDir     string `mapstructure:"sessions_dir"`
}

type NapCatConfig struct {
	WSURL       string `mapstructure:"ws_url"`
	AccessToken string `mapstructure:"access_token"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.chat_models", []string{"gemini-2.0-flash"})
	v.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.max_output_tokens", 8192)
	v.SetDefault("gemini.rpm_limit", 15)

	v.SetDefault("filter.recency_days", 0)
	v.SetDefault("filter.newest_first", true)
	v.SetDefault("filter.timezone", "Local")
	v.SetDefault("filter.drop_media", false)

	v.SetDefault("rag.enabled", false)
	v.SetDefault("rag.top_k", 8)
	v.SetDefault("rag.min_similarity", 0.3)
	v.SetDefault("rag.gap_minutes", 30)
	v.SetDefault("rag.min_messages", 2000)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 20)

	v.SetDefault("bot.max_context_turns", 10)
	v.SetDefault("bot.sessions_dir", "./data/sessions")

	v.SetDefault("napcat.ws_url", "ws://127.0.0.1:3001")

	v.SetDefault("log.level", "info")
}

// Load 读取配置文件，path 为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WA_DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 环境变量覆盖
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		v.Set("gemini.api_key", key)
	}
	if token := os.Getenv("NAPCAT_ACCESS_TOKEN"); token != "" {
		v.Set("napcat.access_token", token)
	}
	if key := os.Getenv("DECRYPT_KEY"); key != "" {
		v.Set("bot.decrypt_key", key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if _, err := cfg.Filter.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireGemini 调用模型的命令需要 API key
func (c *Config) RequireGemini() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (set in config or GEMINI_API_KEY env)")
	}
	if len(c.Gemini.ChatModels) == 0 {
		return fmt.Errorf("gemini.chat_models must list at least one model")
	}
	return nil
}

// Location 导出文本中时间所在的时区
func (f FilterConfig) Location() (*time.Location, error) {
	switch f.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("filter.timezone: %w", err)
	}
	return loc, nil
}

// Gap 对话切分的空闲间隔
func (r RAGConfig) Gap() time.Duration {
	return time.Duration(r.GapMinutes) * time.Minute
}

// SlogLevel 解析日志级别，未知值按 info
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
