package risk

import (
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	// BreakerClosed 正常交易
	BreakerClosed BreakerState = iota
	// BreakerOpen 熔断中，拒绝新开仓
	BreakerOpen
	// BreakerProbing 冷却结束后的试探期，限量放行
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerProbing:
		return "PROBING"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	LossThreshold int           // 触发熔断的连续亏损次数
	Cooldown      time.Duration // 熔断后的冷却时间
	ProbeTrades   int           // 试探期允许的最大交易数
}

// Breaker 连续止损熔断器：连续亏损达到阈值后暂停新开仓，
// 冷却期过后进入试探期，试探期内再亏立即重新熔断，
// 试探期全胜则恢复正常。已有仓位的保护单与平仓不受影响。
type Breaker struct {
	threshold   int
	cooldown    time.Duration
	probeTrades int

	state      BreakerState
	lossStreak int
	probeCount int
	openedAt   time.Time

	mu sync.RWMutex
}

// NewBreaker 创建熔断器；非法配置回落到默认值。
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.LossThreshold <= 0 {
		cfg.LossThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	if cfg.ProbeTrades <= 0 {
		cfg.ProbeTrades = 1
	}
	return &Breaker{
		threshold:   cfg.LossThreshold,
		cooldown:    cfg.Cooldown,
		probeTrades: cfg.ProbeTrades,
	}
}

// AllowEntry 判断是否允许新开仓，并在冷却结束时推进到试探期。
func (b *Breaker) AllowEntry() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerProbing
		b.probeCount = 0
		return true
	case BreakerProbing:
		return b.probeCount < b.probeTrades
	default:
		return false
	}
}

// RecordLoss 登记一笔止损出场。
func (b *Breaker) RecordLoss() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lossStreak++
	switch b.state {
	case BreakerClosed:
		if b.lossStreak >= b.threshold {
			b.trip()
		}
	case BreakerProbing:
		// 试探期亏损：立即重新熔断
		b.probeCount++
		b.trip()
	}
}

// RecordWin 登记一笔止盈出场。
func (b *Breaker) RecordWin() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lossStreak = 0
	if b.state == BreakerProbing {
		b.probeCount++
		if b.probeCount >= b.probeTrades {
			b.state = BreakerClosed
			b.probeCount = 0
		}
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = time.Now()
}

// State 当前状态。
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// LossStreak 当前连续亏损次数。
func (b *Breaker) LossStreak() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lossStreak
}

// Reset 重置到正常状态（人工干预用）。
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.lossStreak = 0
	b.probeCount = 0
	b.openedAt = time.Time{}
}

// ForceOpen 强制熔断（人工干预用）。
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trip()
}
