package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/philippgille/chromem-go"

	"github.com/liao/wa-digest/internal/parser"
)

// 单个片段写入向量库的最大长度
const maxDocChars = 2000

type Pipeline struct {
	store         *Store
	topK          int
	minSimilarity float32
	gap           time.Duration
}

func NewPipeline(store *Store, topK int, minSimilarity float32, gap time.Duration) *Pipeline {
	return &Pipeline{
		store:         store,
		topK:          topK,
		minSimilarity: minSimilarity,
		gap:           gap,
	}
}

// Retrieve 把聊天按空闲间隔切成片段建索引，返回与问题最相关的片段原文，按时间先后排列
func (p *Pipeline) Retrieve(ctx context.Context, msgs []parser.Message, question string) ([]string, error) {
	if p.store == nil || len(msgs) == 0 {
		slog.Debug("no vector store, skipping RAG")
		return nil, nil
	}

	ordered := parser.Sort(msgs, false)
	conversations := parser.SplitConversations(ordered, p.gap, 1)

	docs := make([]chromem.Document, 0, len(conversations))
	for i, conv := range conversations {
		text := conv.Transcript()
		if len(text) > maxDocChars {
			n := maxDocChars
			for n > 0 && !utf8.RuneStart(text[n]) {
				n--
			}
			text = text[:n]
		}
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("conv_%05d", i),
			Content: text,
			Metadata: map[string]string{
				"index":     strconv.Itoa(i),
				"msg_count": strconv.Itoa(len(conv.Messages)),
				"start":     conv.StartAt.Format(time.RFC3339),
			},
		})
	}

	col, err := p.store.Collection(ctx, collectionName(ordered), docs)
	if err != nil {
		return nil, err
	}

	results, err := p.store.Query(ctx, col, question, p.topK, p.minSimilarity)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int {
		ai, _ := strconv.Atoi(a.Metadata["index"])
		bi, _ := strconv.Atoi(b.Metadata["index"])
		return ai - bi
	})

	examples := make([]string, 0, len(results))
	for _, r := range results {
		examples = append(examples, r.Content)
	}

	slog.Debug("RAG retrieved conversations", "question", question, "count", len(examples), "of", len(docs))
	return examples, nil
}

// collectionName 同一份聊天内容得到同一个集合名
func collectionName(msgs []parser.Message) string {
	sum := sha256.Sum256([]byte(parser.Transcript(msgs)))
	return "chat_" + hex.EncodeToString(sum[:8])
}
