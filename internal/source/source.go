package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind 决定文本是否经过导出行解析
type Kind string

const (
	// KindExport WhatsApp "导出聊天" 生成的带时间头文本
	KindExport Kind = "export"
	// KindScrape 从 WhatsApp Web 页面抓取的消息文本，没有时间头，直接交给模型
	KindScrape Kind = "scrape"
)

// ChatSource 提供一份完整的聊天原文
type ChatSource interface {
	FetchRawText(ctx context.Context) (string, error)
	Kind() Kind
}

// Text 内存中的导出文本（例如 HTTP 上传）
type Text struct {
	Name string
	Body string
}

func (t Text) FetchRawText(ctx context.Context) (string, error) {
	return t.Body, nil
}

func (t Text) Kind() Kind { return KindExport }

// File 磁盘上的纯文本导出文件
type File struct {
	Path string
}

func (f File) FetchRawText(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func (f File) Kind() Kind { return KindExport }

// Open 按扩展名选择来源: .enc 加密导出, .html/.htm WhatsApp Web 页面快照, 其余按纯文本
func Open(path string, password string) (ChatSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".enc":
		if password == "" {
			return nil, fmt.Errorf("decrypt key required for %s", path)
		}
		return Encrypted{Path: path, Password: password}, nil
	case ".html", ".htm":
		return WebSnapshot{Path: path, MaxChats: DefaultMaxChats}, nil
	default:
		return File{Path: path}, nil
	}
}
