package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/philippgille/chromem-go"
)

type Store struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// NewStore 创建或加载向量存储，vectorsDir 为空时只在内存中
func NewStore(vectorsDir string, embedFunc chromem.EmbeddingFunc) (*Store, error) {
	embedFunc = normalized(embedFunc)
	if vectorsDir == "" {
		return &Store{db: chromem.NewDB(), embed: embedFunc}, nil
	}

	db, err := chromem.NewPersistentDB(vectorsDir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	slog.Info("vector store loaded", "dir", vectorsDir, "collections", len(db.ListCollections()))
	return &Store{db: db, embed: embedFunc}, nil
}

// Collection 每份聊天一个集合，已有向量时直接复用，不再调用 embedding
func (s *Store) Collection(ctx context.Context, name string, docs []chromem.Document) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(name, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("get/create collection: %w", err)
	}
	if col.Count() > 0 || len(docs) == 0 {
		return col, nil
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	slog.Debug("indexed conversations", "collection", name, "count", col.Count())
	return col, nil
}

// Query 检索相似对话
func (s *Store) Query(ctx context.Context, col *chromem.Collection, text string, topK int, minSimilarity float32) ([]Result, error) {
	if col.Count() == 0 {
		return nil, nil
	}

	k := topK
	if k > col.Count() {
		k = col.Count()
	}

	docs, err := col.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	var results []Result
	for _, d := range docs {
		if d.Similarity < minSimilarity {
			continue
		}
		results = append(results, Result{
			ID:         d.ID,
			Content:    d.Content,
			Similarity: d.Similarity,
			Metadata:   d.Metadata,
		})
	}
	return results, nil
}

type Result struct {
	ID         string
	Content    string
	Similarity float32
	Metadata   map[string]string
}

// normalized chromem 用点积算相似度，embedding 函数算出的向量不会被它归一化
func normalized(embed chromem.EmbeddingFunc) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		v, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum == 0 {
			return v, nil
		}
		norm := float32(math.Sqrt(sum))
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = x / norm
		}
		return out, nil
	}
}
