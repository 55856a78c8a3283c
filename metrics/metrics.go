// Package metrics provides Prometheus metrics for the position manager
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersSubmitted 按角色统计已提交订单
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_submitted_total",
		Help: "提交到执行网关的订单数量",
	}, []string{"role"})

	// OrdersRejected 按角色统计被网关拒绝的订单
	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_rejected_total",
		Help: "执行网关拒绝的订单数量",
	}, []string{"role"})

	// Fills 按角色统计成交回报
	Fills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_fills_total",
		Help: "收到的成交回报数量",
	}, []string{"role"})

	// Reversals 反手次数
	Reversals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_reversals_total",
		Help: "仓位反手次数",
	})

	// Exits 主动平仓次数
	Exits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_exits_total",
		Help: "主动平仓次数",
	})

	// PositionDirection 当前方向(-1=short,0=flat,1=long)
	PositionDirection = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trader_position_direction",
		Help: "当前仓位方向(-1=short,0=flat,1=long)",
	})

	// PositionQuantity 当前仓位数量
	PositionQuantity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trader_position_quantity",
		Help: "当前仓位数量",
	})

	// UnrealizedPnL 当前未实现盈亏（货币）
	UnrealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trader_unrealized_pnl",
		Help: "当前未实现盈亏",
	})
)

// IncrementSubmitted 记录一笔已提交订单。
func IncrementSubmitted(role string) { OrdersSubmitted.WithLabelValues(role).Inc() }

// IncrementRejected 记录一笔被拒订单。
func IncrementRejected(role string) { OrdersRejected.WithLabelValues(role).Inc() }

// IncrementFill 记录一笔成交回报。
func IncrementFill(role string) { Fills.WithLabelValues(role).Inc() }

// UpdatePosition 更新仓位方向/数量指标。
func UpdatePosition(direction, quantity float64) {
	PositionDirection.Set(direction)
	PositionQuantity.Set(quantity)
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
