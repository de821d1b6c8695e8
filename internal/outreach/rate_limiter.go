// Package outreach 为候选人生成个性化触达消息和配套的筛选问题
package outreach

import (
	"fmt"
	"sync"
	"time"

	"recruit-agent-go/internal/processor"
)

const (
	defaultRateLimit  = 5
	defaultRateWindow = time.Hour
)

// rateEntry 单个候选人的窗口计数
// last记录最近一次放行的时间，被拒绝的请求不刷新窗口
type rateEntry struct {
	count int
	last  time.Time
}

// RateLimiter 按候选人限制触达生成频率
// 距该候选人上一次放行超过窗口时长后计数归零
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*rateEntry
	now     func() time.Time
}

// NewRateLimiter 创建候选人级别的频率限制器
// limit或window非正时使用默认值（5次/1小时）
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*rateEntry),
		now:     time.Now,
	}
}

// Allow 为一次生成请求记账
// 超出窗口配额时返回 ErrRateLimitExceeded 类错误，且不计入窗口
func (l *RateLimiter) Allow(candidateID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[candidateID]
	if !ok {
		entry = &rateEntry{}
		l.entries[candidateID] = entry
	}

	if entry.count > 0 && now.Sub(entry.last) > l.window {
		entry.count = 0
	}
	if entry.count >= l.limit {
		return processor.NewRateLimitError(candidateID,
			fmt.Sprintf("窗口内已达%d次生成上限", l.limit))
	}

	entry.count++
	entry.last = now
	return nil
}
