package rag

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liao/wa-digest/internal/parser"
)

// keywordEmbed 按关键词计数得到向量，足够区分测试里的话题
func keywordEmbed(calls *atomic.Int64) func(ctx context.Context, text string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		calls.Add(1)
		text = strings.ToLower(text)
		return []float32{
			float32(strings.Count(text, "meeting")),
			float32(strings.Count(text, "pizza")),
			0.1,
		}, nil
	}
}

const chat = `01/03/2024, 09:00 - Ana: meeting moved to 10
01/03/2024, 09:05 - Ben: ok, meeting at 10 then
02/03/2024, 19:00 - Ana: pizza tonight?
02/03/2024, 19:02 - Ben: pizza yes`

func TestRetrieve(t *testing.T) {
	var calls atomic.Int64
	store, err := NewStore("", keywordEmbed(&calls))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	p := NewPipeline(store, 1, 0.5, 30*time.Minute)
	msgs := parser.ParseInLocation(chat, time.UTC)

	got, err := p.Retrieve(context.Background(), msgs, "when is the meeting?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0], "meeting moved") {
		t.Fatalf("Retrieve() = %q, want the meeting conversation", got)
	}

	before := calls.Load()
	if _, err := p.Retrieve(context.Background(), msgs, "pizza?"); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	// 第二次只需要为问题算一次向量
	if calls.Load()-before != 1 {
		t.Errorf("second Retrieve() made %d embedding calls, want 1", calls.Load()-before)
	}
}

func TestRetrieveKeepsChronologicalOrder(t *testing.T) {
	var calls atomic.Int64
	store, err := NewStore("", keywordEmbed(&calls))
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(store, 5, 0, 30*time.Minute)

	got, err := p.Retrieve(context.Background(), parser.ParseInLocation(chat, time.UTC), "pizza meeting")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 || !strings.HasPrefix(got[0], "01/03/2024") {
		t.Errorf("Retrieve() = %q, want both conversations oldest first", got)
	}
}

func TestRetrieveWithoutStore(t *testing.T) {
	p := NewPipeline(nil, 3, 0, time.Hour)
	got, err := p.Retrieve(context.Background(), parser.ParseInLocation(chat, time.UTC), "x")
	if err != nil || got != nil {
		t.Errorf("Retrieve() = %v, %v, want nil, nil", got, err)
	}
}

func TestNormalized(t *testing.T) {
	embed := normalized(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{3, 4}, nil
	})
	v, err := embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("normalized() = %v, want [0.6 0.8]", v)
	}
}
