package signal

import "math"

// WATREstimator 用滚动价格窗口估计小波 ATR：
// 对窗口做一层 Haar 分解，细节系数的 RMS 能量即短周期波动幅度（点）。
// 方向评估事件没带 WATR 时由本估计器兜底。
type WATREstimator struct {
	window int
	prices []float64
}

// NewWATREstimator 创建估计器；窗口过小时回落到 16。
func NewWATREstimator(window int) *WATREstimator {
	if window < 4 {
		window = 16
	}
	return &WATREstimator{
		window: window,
		prices: make([]float64, 0, window),
	}
}

// AddPrice 喂入最新价格。
func (e *WATREstimator) AddPrice(price float64) {
	e.prices = append(e.prices, price)
	if len(e.prices) > e.window {
		e.prices = e.prices[1:]
	}
}

// Ready 是否有足够样本。
func (e *WATREstimator) Ready() bool {
	return len(e.prices) >= 4
}

// WATR 当前估计值（点）；样本不足时返回 0。
func (e *WATREstimator) WATR() float64 {
	if !e.Ready() {
		return 0
	}

	// Haar 细节系数：相邻价格对的半差
	n := len(e.prices) / 2
	sumSq := 0.0
	for i := 0; i < n; i++ {
		d := (e.prices[2*i+1] - e.prices[2*i]) / math.Sqrt2
		sumSq += d * d
	}
	rms := math.Sqrt(sumSq / float64(n))

	// 还原到价格点幅度
	return rms * math.Sqrt2
}

// Reset 清空窗口。
func (e *WATREstimator) Reset() {
	e.prices = e.prices[:0]
}
