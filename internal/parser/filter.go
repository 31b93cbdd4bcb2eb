package parser

import (
	"cmp"
	"slices"
	"time"
)

// Sort 返回按时间排序的新切片，newestFirst 为 true 时倒序。
// 时间相同的按原始行号升序，两个方向都一样，所以结果是确定的。
func Sort(msgs []Message, newestFirst bool) []Message {
	sorted := slices.Clone(msgs)
	slices.SortStableFunc(sorted, func(a, b Message) int {
		c := a.Timestamp.Compare(b.Timestamp)
		if newestFirst {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Line, b.Line)
	})
	return sorted
}

// FilterByDateRange 保留日期落在 [start, end] 内的消息，两端都包含，只比较日历日期。
// start 晚于 end 时返回空结果。
func FilterByDateRange(msgs []Message, start, end time.Time) []Message {
	from, to := civilDate(start), civilDate(end)
	var out []Message
	for _, m := range msgs {
		d := civilDate(m.Timestamp)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// FilterByRecency 保留 timestamp >= now - days 的消息，没有上限（未来的消息也保留）
func FilterByRecency(msgs []Message, days int, now time.Time) []Message {
	cutoff := now.AddDate(0, 0, -days)
	var out []Message
	for _, m := range msgs {
		if !m.Timestamp.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// DateBounds 返回最早和最晚的消息日期，空输入返回零值
func DateBounds(msgs []Message) (first, last time.Time) {
	for i, m := range msgs {
		if i == 0 || m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if i == 0 || m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return civilDate(first), civilDate(last)
}

// civilDate 只保留年月日，统一到 UTC 以便跨时区比较日历日期
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
