package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxChats 一次最多读取的会话数
const DefaultMaxChats = 5

// WhatsApp Web 的类名经常变，这里同时保留旧类名和较稳定的属性选择器
const (
	chatPaneSelector = "[data-testid='conversation-panel-messages'], #main"
	messageSelector  = "._21Ahp, div.copyable-text[data-pre-plain-text], span.selectable-text"
)

// WebSnapshot 保存下来的 WhatsApp Web 页面 (HTML)
// 抓取到的文本没有时间头，不经过解析直接交给模型
type WebSnapshot struct {
	Path     string
	MaxChats int
}

func (w WebSnapshot) FetchRawText(ctx context.Context) (string, error) {
	f, err := os.Open(w.Path)
	if err != nil {
		return "", fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	return strings.Join(ExtractMessages(doc, w.MaxChats), "\n"), nil
}

func (w WebSnapshot) Kind() Kind { return KindScrape }

// ExtractMessages 依次读取最多 maxChats 个会话面板中的非空消息文本
func ExtractMessages(doc *goquery.Document, maxChats int) []string {
	if maxChats <= 0 {
		maxChats = DefaultMaxChats
	}

	panes := doc.Find(chatPaneSelector).FilterFunction(func(i int, s *goquery.Selection) bool {
		return s.ParentsFiltered(chatPaneSelector).Length() == 0
	})
	if panes.Length() == 0 {
		// 没有会话面板时把整页当作一个会话
		panes = doc.Selection
	}

	var msgs []string
	panes.Slice(0, min(maxChats, panes.Length())).Each(func(i int, pane *goquery.Selection) {
		pane.Find(messageSelector).Each(func(j int, s *goquery.Selection) {
			// 嵌套的 selectable-text 已经包含在外层消息里
			if s.ParentsFiltered(messageSelector).Length() > 0 {
				return
			}
			text := strings.TrimSpace(s.Text())
			if text != "" {
				msgs = append(msgs, text)
			}
		})
	})
	return msgs
}
