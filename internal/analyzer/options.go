package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liao/wa-digest/internal/parser"
	"github.com/liao/wa-digest/internal/source"
)

// DateLayout 日期范围参数的格式
const DateLayout = "2006-01-02"

type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange from/to 都可以为空，空的一端取 min/max；两端都为空返回 nil
func ParseDateRange(from, to string) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	r := &DateRange{
		Start: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return nil, fmt.Errorf("parse start date: %w", err)
		}
		r.Start = t
	}
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return nil, fmt.Errorf("parse end date: %w", err)
		}
		r.End = t
	}
	return r, nil
}

// Options 过滤和排序设置：先按日期范围，再按最近 N 天，最后排序
type Options struct {
	RecencyDays int // 0 表示不限
	Range       *DateRange
	NewestFirst bool
	DropMedia   bool
	Location    *time.Location // 导出文本中时间所在时区，默认本地
	Now         time.Time      // 最近 N 天的参照时间，默认当前时间
}

// Prepared 经过解析、过滤、排序后的聊天
type Prepared struct {
	Kind       source.Kind
	Messages   []parser.Message // 抓取来源为 nil
	Transcript string
}

// Prepare 读取来源并执行 parse -> filter -> sort。
// 结果为空时返回 ErrNoMessages 或 ErrNoRecentMessages。
func Prepare(ctx context.Context, src source.ChatSource, opts Options) (*Prepared, error) {
	raw, err := src.FetchRawText(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chat: %w", err)
	}

	// 抓取的文本没有时间头，直接交给模型
	if src.Kind() == source.KindScrape {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, ErrNoMessages
		}
		return &Prepared{Kind: source.KindScrape, Transcript: raw}, nil
	}

	msgs, err := Select(parser.ParseInLocation(raw, opts.Location), opts)
	if err != nil {
		return nil, err
	}
	return &Prepared{
		Kind:       source.KindExport,
		Messages:   msgs,
		Transcript: parser.Transcript(msgs),
	}, nil
}

// Select 对已解析的消息执行过滤和排序
func Select(msgs []parser.Message, opts Options) ([]parser.Message, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	if opts.DropMedia {
		msgs = parser.DropMedia(msgs)
	}
	if opts.Range != nil {
		msgs = parser.FilterByDateRange(msgs, opts.Range.Start, opts.Range.End)
		if len(msgs) == 0 {
			return nil, fmt.Errorf("%w between %s and %s", ErrNoMessages,
				opts.Range.Start.Format(DateLayout), opts.Range.End.Format(DateLayout))
		}
	}
	if opts.RecencyDays > 0 {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		msgs = parser.FilterByRecency(msgs, opts.RecencyDays, now)
		if len(msgs) == 0 {
			return nil, fmt.Errorf("%w in the last %d days", ErrNoRecentMessages, opts.RecencyDays)
		}
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	return parser.Sort(msgs, opts.NewestFirst), nil
}
