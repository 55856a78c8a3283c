package position

import "math"

// Direction 表示净仓方向。
type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position 是仓位状态的值快照，供查询方使用。
type Position struct {
	Direction   Direction
	EntryPrice  float64
	StopPrice   float64
	TargetPrice float64
	Quantity    float64
}

// Tracker 维护当前净仓位的标量状态（方向/开仓价/止损/止盈/数量）。
// 本身不加锁：字段会被信号线程与成交回调线程共同触达，
// 串行化由 manager.PositionManager 的互斥区负责。
type Tracker struct {
	direction   Direction
	entryPrice  float64
	stopPrice   float64
	targetPrice float64
	quantity    float64
	initialRisk float64 // 开仓时的 |entry-stop|，IsNearStop 的参照距离
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// UpdatePosition 一次性覆盖全部字段；除 Reset 外这是唯一改变方向的入口。
// 同时记录开仓时刻的风险距离，后续 trailing 不会改变该参照值。
func (t *Tracker) UpdatePosition(entry, stop, target, qty float64, isLong bool) {
	t.entryPrice = entry
	t.stopPrice = stop
	t.targetPrice = target
	t.quantity = qty
	t.initialRisk = math.Abs(entry - stop)
	if isLong {
		t.direction = Long
	} else {
		t.direction = Short
	}
}

// UpdateStopPrice 在网关确认改价后更新记录的止损价。
func (t *Tracker) UpdateStopPrice(p float64) { t.stopPrice = p }

// UpdateTargetPrice 在网关确认改价后更新记录的止盈价。
func (t *Tracker) UpdateTargetPrice(p float64) { t.targetPrice = p }

// UnrealizedPnL 返回以点数计的浮动盈亏，货币换算（点值）由调用方处理。
func (t *Tracker) UnrealizedPnL(currentPrice, quantity float64) float64 {
	switch t.direction {
	case Long:
		return (currentPrice - t.entryPrice) * quantity
	case Short:
		return (t.entryPrice - currentPrice) * quantity
	default:
		return 0
	}
}

// IsNearStop 判断价格是否逼近止损。
// 参照距离是开仓时的初始风险 |entry-stop|，不是当前止损距离：
// trailing 把止损推向开仓价后，该参照不随之收缩。
func (t *Tracker) IsNearStop(currentPrice, fractionOfRisk float64) bool {
	if t.direction == Flat || t.initialRisk <= 0 {
		return false
	}
	return math.Abs(currentPrice-t.stopPrice) <= fractionOfRisk*t.initialRisk
}

// Reset 清空回到 FLAT。
func (t *Tracker) Reset() {
	*t = Tracker{}
}

func (t *Tracker) Direction() Direction  { return t.direction }
func (t *Tracker) EntryPrice() float64   { return t.entryPrice }
func (t *Tracker) StopPrice() float64    { return t.stopPrice }
func (t *Tracker) TargetPrice() float64  { return t.targetPrice }
func (t *Tracker) Quantity() float64     { return t.quantity }
func (t *Tracker) InitialRisk() float64  { return t.initialRisk }
func (t *Tracker) HasPosition() bool     { return t.direction != Flat }

// Snapshot 返回值拷贝，避免调用方拿到内部指针。
func (t *Tracker) Snapshot() Position {
	return Position{
		Direction:   t.direction,
		EntryPrice:  t.entryPrice,
		StopPrice:   t.stopPrice,
		TargetPrice: t.targetPrice,
		Quantity:    t.quantity,
	}
}
