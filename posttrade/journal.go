package posttrade

import (
	"sync"
	"time"

	"wavelet-trader-go/position"
)

// Trade 一笔完整的回合交易（开仓到平仓）。
type Trade struct {
	IsLong     bool
	EntryPrice float64
	ExitPrice  float64 // 0 表示市价平仓、成交价未知
	StopPrice  float64
	Quantity   float64
	Reason     string // stop / target / flatten / reverse_exit
	OpenTime   time.Time
	CloseTime  time.Time
	PnLPoints  float64
	RMultiple  float64 // 盈亏 / 初始风险距离
}

// Stats contains statistics computed over closed trades.
type Stats struct {
	TotalTrades  int
	Wins         int
	Losses       int
	Scratches    int // 盈亏为零或成交价未知
	WinRate      float64
	AvgRMultiple float64
	NetPoints    float64
	ProfitFactor float64
}

// Journal 记录仓位生命周期并汇总回合统计。
// 由 manager 的生命周期钩子驱动，本身线程安全。
type Journal struct {
	mu     sync.RWMutex
	open   *Trade
	trades []Trade
}

func NewJournal() *Journal {
	return &Journal{}
}

// PositionOpened 登记新开仓；上一笔未关闭的回合被丢弃（反手时先到 close）。
func (j *Journal) PositionOpened(p position.Position) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.open = &Trade{
		IsLong:     p.Direction == position.Long,
		EntryPrice: p.EntryPrice,
		StopPrice:  p.StopPrice,
		Quantity:   p.Quantity,
		OpenTime:   time.Now(),
	}
}

// PositionClosed 结束当前回合。exitPrice 为 0 表示成交价未知（市价平仓），
// 该回合按 scratch 记账。
func (j *Journal) PositionClosed(exitPrice float64, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.open == nil {
		return
	}
	t := *j.open
	j.open = nil

	t.ExitPrice = exitPrice
	t.Reason = reason
	t.CloseTime = time.Now()
	if exitPrice > 0 {
		if t.IsLong {
			t.PnLPoints = (exitPrice - t.EntryPrice) * t.Quantity
		} else {
			t.PnLPoints = (t.EntryPrice - exitPrice) * t.Quantity
		}
		risk := t.EntryPrice - t.StopPrice
		if !t.IsLong {
			risk = t.StopPrice - t.EntryPrice
		}
		if risk > 0 {
			t.RMultiple = t.PnLPoints / (risk * t.Quantity)
		}
	}
	j.trades = append(j.trades, t)
}

// Trades 返回已关闭回合的副本。
func (j *Journal) Trades() []Trade {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Trade, len(j.trades))
	copy(out, j.trades)
	return out
}

// HasOpenTrade 当前是否有未关闭的回合。
func (j *Journal) HasOpenTrade() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.open != nil
}

// Stats computes and returns statistics over closed trades.
func (j *Journal) Stats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stats := Stats{TotalTrades: len(j.trades)}
	if len(j.trades) == 0 {
		return stats
	}

	var sumR, grossWin, grossLoss float64
	for _, t := range j.trades {
		switch {
		case t.ExitPrice == 0 || t.PnLPoints == 0:
			stats.Scratches++
		case t.PnLPoints > 0:
			stats.Wins++
			grossWin += t.PnLPoints
		default:
			stats.Losses++
			grossLoss += -t.PnLPoints
		}
		stats.NetPoints += t.PnLPoints
		sumR += t.RMultiple
	}

	decided := stats.Wins + stats.Losses
	if decided > 0 {
		stats.WinRate = float64(stats.Wins) / float64(decided)
	}
	stats.AvgRMultiple = sumR / float64(len(j.trades))
	if grossLoss > 0 {
		stats.ProfitFactor = grossWin / grossLoss
	}
	return stats
}

// CleanOldTrades removes closed trades older than maxAge to bound memory.
func (j *Journal) CleanOldTrades(maxAge time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	kept := j.trades[:0]
	for _, t := range j.trades {
		if now.Sub(t.CloseTime) <= maxAge {
			kept = append(kept, t)
		}
	}
	j.trades = kept
}
