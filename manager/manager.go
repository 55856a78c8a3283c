package manager

import (
	"errors"
	"fmt"
	"sync"

	"wavelet-trader-go/infrastructure/logger"
	"wavelet-trader-go/metrics"
	"wavelet-trader-go/order"
	"wavelet-trader-go/position"
)

var (
	ErrNoGateway        = errors.New("gateway is required")
	ErrNoPosition       = errors.New("no position")
	ErrStopNotImproved  = errors.New("trailing stop would retreat")
	ErrEntryRejected    = errors.New("entry submission rejected")
	ErrBracketRejected  = errors.New("bracket submission rejected")
	// 反手是两段式 saga：exit 失败则原仓保留；exit 成功而再入场失败则停留在 FLAT，
	// 两种结局必须让调用方可区分。
	ErrReversalExitFailed  = errors.New("reversal aborted: exit rejected")
	ErrReversalEntryFailed = errors.New("reversal left flat: re-entry rejected")
)

// 默认 bracket tag；多止损/多止盈的扩展单由调用方带自己的 tag 登记。
const (
	tagEntry  = "entry"
	tagStop   = "stop"
	tagTarget = "target"
)

// PositionInfo 开仓/反手成功后返回的只读快照，仅供调用方日志/诊断使用。
type PositionInfo struct {
	EntryOrderID  string
	StopOrderID   string
	TargetOrderID string
	EntryPrice    float64
	StopPrice     float64
	TargetPrice   float64
	Quantity      float64
	IsLong        bool
}

// PositionManager 编排仓位全生命周期：入场挂 bracket、改价、trailing、
// 反手、平仓，以及网关回调线程送达的成交回报。
//
// tracker 与 bundle 是仅有的跨线程共享可变状态（信号线程 + 回调线程），
// 每个复合读改写都在同一把 mu 下执行。网关调用按约定不阻塞，
// 因此保持在临界区内，保证 trailing 与成交回调之间不会丢失更新。
type PositionManager struct {
	mu       sync.Mutex
	symbol   string
	gw       order.Gateway
	tracker  *position.Tracker
	bundle   *order.Bundle
	log      *logger.Logger
	recorder TradeRecorder
}

// TradeRecorder 接收仓位生命周期事件，用于回合记账。
// 回调在管理器的临界区内执行，实现必须快速且不得回调管理器。
type TradeRecorder interface {
	PositionOpened(pos position.Position)
	// exitPrice 为 0 表示市价平仓、成交价未知。
	PositionClosed(exitPrice float64, reason string)
}

// New 创建 PositionManager；每个合约上下文独占一个 tracker 与一个 bundle。
func New(symbol string, gw order.Gateway, log *logger.Logger) (*PositionManager, error) {
	if gw == nil {
		return nil, ErrNoGateway
	}
	return &PositionManager{
		symbol:  symbol,
		gw:      gw,
		tracker: position.NewTracker(),
		bundle:  order.NewBundle(gw),
		log:     log,
	}, nil
}

// SetTradeRecorder 注册回合记账器；传 nil 关闭。
func (m *PositionManager) SetTradeRecorder(r TradeRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// EnterLong 提交多头 bracket（入场 + 止损 + 止盈）。
// 前置条件（当前是否已有冲突仓位）由调用方负责检查。
func (m *PositionManager) EnterLong(entry, stop, target, qty float64) (*PositionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enterLocked(entry, stop, target, qty, true)
}

// EnterShort 提交空头 bracket。
func (m *PositionManager) EnterShort(entry, stop, target, qty float64) (*PositionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enterLocked(entry, stop, target, qty, false)
}

// enterLocked 全有或全无：任何一腿提交失败，已提交的腿立即补偿撤销，
// bundle/tracker 不留下半套状态。
func (m *PositionManager) enterLocked(entry, stop, target, qty float64, isLong bool) (*PositionInfo, error) {
	entrySide, exitSide := "BUY", "SELL"
	if !isLong {
		entrySide, exitSide = "SELL", "BUY"
	}

	entrySpec := order.Spec{
		Symbol: m.symbol, Side: entrySide, Role: order.RoleEntry,
		Price: entry, Quantity: qty, Tag: tagEntry, Market: true,
	}
	entryID, err := m.gw.Submit(entrySpec)
	if err != nil {
		metrics.IncrementRejected(order.RoleEntry.String())
		return nil, fmt.Errorf("%w: %v", ErrEntryRejected, err)
	}
	metrics.IncrementSubmitted(order.RoleEntry.String())

	stopSpec := order.Spec{
		Symbol: m.symbol, Side: exitSide, Role: order.RoleStop,
		Price: stop, Quantity: qty, Tag: tagStop,
	}
	stopID, err := m.gw.Submit(stopSpec)
	if err != nil {
		metrics.IncrementRejected(order.RoleStop.String())
		m.gw.Cancel(entryID)
		return nil, fmt.Errorf("%w: stop leg: %v", ErrBracketRejected, err)
	}
	metrics.IncrementSubmitted(order.RoleStop.String())

	targetSpec := order.Spec{
		Symbol: m.symbol, Side: exitSide, Role: order.RoleTarget,
		Price: target, Quantity: qty, Tag: tagTarget,
	}
	targetID, err := m.gw.Submit(targetSpec)
	if err != nil {
		metrics.IncrementRejected(order.RoleTarget.String())
		m.gw.Cancel(entryID)
		m.gw.Cancel(stopID)
		return nil, fmt.Errorf("%w: target leg: %v", ErrBracketRejected, err)
	}
	metrics.IncrementSubmitted(order.RoleTarget.String())

	m.bundle.AddEntryOrder(entryID, entrySpec, tagEntry)
	m.bundle.AddStopOrder(stopID, stopSpec, tagStop)
	m.bundle.AddTargetOrder(targetID, targetSpec, tagTarget)
	m.tracker.UpdatePosition(entry, stop, target, qty, isLong)
	metrics.UpdatePosition(directionValue(m.tracker.Direction()), qty)
	if m.recorder != nil {
		m.recorder.PositionOpened(m.tracker.Snapshot())
	}

	m.logPosition("enter", map[string]interface{}{
		"symbol": m.symbol, "direction": m.tracker.Direction().String(),
		"entry": entry, "stop": stop, "target": target, "qty": qty,
	})

	return &PositionInfo{
		EntryOrderID:  entryID,
		StopOrderID:   stopID,
		TargetOrderID: targetID,
		EntryPrice:    entry,
		StopPrice:     stop,
		TargetPrice:   target,
		Quantity:      qty,
		IsLong:        isLong,
	}, nil
}

// ModifyStopPrice 对全部在途止损单改价，至少一腿成功即更新 tracker 并返回 true。
func (m *PositionManager) ModifyStopPrice(newPrice float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modifyStopLocked(newPrice)
}

// ModifyTargetPrice 同上，针对止盈单。
func (m *PositionManager) ModifyTargetPrice(newPrice float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modifyTargetLocked(newPrice)
}

// ModifyBracket 同时改止损与止盈；仅当两腿都成功才返回 true。
// 止损成功而止盈失败时，止损改价已生效且不回滚，调用方需自行重查状态。
func (m *PositionManager) ModifyBracket(newStop, newTarget float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	okStop := m.modifyStopLocked(newStop)
	okTarget := m.modifyTargetLocked(newTarget)
	return okStop && okTarget
}

func (m *PositionManager) modifyStopLocked(newPrice float64) bool {
	if !m.tracker.HasPosition() {
		return false
	}
	if m.bundle.ModifyAllStops(newPrice) == 0 {
		m.logRisk("modify_stop_failed", map[string]interface{}{"symbol": m.symbol, "price": newPrice})
		return false
	}
	m.tracker.UpdateStopPrice(newPrice)
	return true
}

func (m *PositionManager) modifyTargetLocked(newPrice float64) bool {
	if !m.tracker.HasPosition() {
		return false
	}
	if m.bundle.ModifyAllTargets(newPrice) == 0 {
		m.logRisk("modify_target_failed", map[string]interface{}{"symbol": m.symbol, "price": newPrice})
		return false
	}
	m.tracker.UpdateTargetPrice(newPrice)
	return true
}

// TrailStop 单调收紧止损：多头只许上移、空头只许下移（允许持平）。
// 违反前置条件在本地拒绝，不接触网关，tracker 不变。
func (m *PositionManager) TrailStop(newPrice float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.tracker.Direction() {
	case position.Flat:
		return ErrNoPosition
	case position.Long:
		if newPrice < m.tracker.StopPrice() {
			return ErrStopNotImproved
		}
	case position.Short:
		if newPrice > m.tracker.StopPrice() {
			return ErrStopNotImproved
		}
	}

	if m.bundle.ModifyAllStops(newPrice) == 0 {
		return fmt.Errorf("%w: trail stop", ErrBracketRejected)
	}
	m.tracker.UpdateStopPrice(newPrice)
	return nil
}

// ReversePosition 两段式反手：先平掉现仓，再反向开新 bracket。
// exit 失败 => 原仓不变，ErrReversalExitFailed。
// exit 成功而再入场失败 => 停留在 FLAT（旧仓确实已平），ErrReversalEntryFailed，
// 本层不重试。整个 saga 在一个临界区内，不会与成交回调交错。
func (m *PositionManager) ReversePosition(newEntry, newStop, newTarget, newQty float64) (*PositionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tracker.HasPosition() {
		return nil, ErrNoPosition
	}
	wasLong := m.tracker.Direction() == position.Long

	if !m.exitLocked("reverse_exit") {
		return nil, ErrReversalExitFailed
	}

	info, err := m.enterLocked(newEntry, newStop, newTarget, newQty, !wasLong)
	if err != nil {
		m.logRisk("reversal_left_flat", map[string]interface{}{
			"symbol": m.symbol, "cause": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrReversalEntryFailed, err)
	}

	metrics.Reversals.Inc()
	return info, nil
}

// ExitPosition 平仓回到 FLAT；已经 FLAT 时是返回 false 的 no-op（无仓可平）。
func (m *PositionManager) ExitPosition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitLocked("exit")
}

func (m *PositionManager) exitLocked(event string) bool {
	if !m.tracker.HasPosition() {
		return false
	}

	side := "SELL"
	if m.tracker.Direction() == position.Short {
		side = "BUY"
	}
	flatten := order.Spec{
		Symbol: m.symbol, Side: side, Role: order.RoleEntry,
		Quantity: m.tracker.Quantity(), Tag: "flatten", Market: true,
	}
	if _, err := m.gw.Submit(flatten); err != nil {
		m.logError(fmt.Errorf("flatten rejected: %w", err))
		return false
	}

	if m.recorder != nil {
		m.recorder.PositionClosed(0, event)
	}
	m.cancelActiveProtectiveLocked("")
	m.bundle.Clear()
	m.tracker.Reset()
	metrics.Exits.Inc()
	metrics.UpdatePosition(0, 0)

	m.logPosition(event, map[string]interface{}{"symbol": m.symbol})
	return true
}

// OnOrderFilled 由网关回调线程送达。保护单成交意味着仓位已平：
// 撤掉兄弟保护单（网关不原生支持 OCO 时的模拟），清 bundle、重置 tracker。
// 同一订单的回报按网关送达顺序处理，不重排不合并。
// 未登记的订单号不动任何状态，返回 order.ErrUnknownOrder 由调用方记录。
func (m *PositionManager) OnOrderFilled(orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.bundle.OrderByID(orderID)
	if !ok {
		return fmt.Errorf("%w: fill for %s", order.ErrUnknownOrder, orderID)
	}
	m.bundle.MarkFilled(orderID)
	metrics.IncrementFill(o.Role.String())

	if o.Role == order.RoleEntry {
		m.logOrder("entry_filled", orderID)
		return nil
	}

	if m.recorder != nil {
		// tracker 的止损/止盈价跟随改价，是成交时的有效触发价
		exitPrice := m.tracker.StopPrice()
		reason := "stop"
		if o.Role == order.RoleTarget {
			exitPrice = m.tracker.TargetPrice()
			reason = "target"
		}
		m.recorder.PositionClosed(exitPrice, reason)
	}
	m.cancelActiveProtectiveLocked(orderID)
	m.bundle.Clear()
	m.tracker.Reset()
	metrics.UpdatePosition(0, 0)
	m.logPosition("protective_fill_flat", map[string]interface{}{
		"symbol": m.symbol, "order_id": orderID, "role": o.Role.String(),
	})
	return nil
}

// cancelActiveProtectiveLocked 撤销除 exceptID 外的全部在途保护单。
func (m *PositionManager) cancelActiveProtectiveLocked(exceptID string) {
	for _, o := range append(m.bundle.ActiveStopOrders(), m.bundle.ActiveTargetOrders()...) {
		if o.ID == exceptID {
			continue
		}
		if !m.gw.Cancel(o.ID) {
			m.logRisk("protective_cancel_rejected", map[string]interface{}{
				"symbol": m.symbol, "order_id": o.ID, "role": o.Role.String(),
			})
		}
		m.bundle.MarkCancelled(o.ID)
	}
}

// HasPosition 当前是否持仓。
func (m *PositionManager) HasPosition() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.HasPosition()
}

// IsLong 当前是否多头。
func (m *PositionManager) IsLong() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Direction() == position.Long
}

// IsShort 当前是否空头。
func (m *PositionManager) IsShort() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Direction() == position.Short
}

// CurrentPosition 返回仓位值快照。
func (m *PositionManager) CurrentPosition() position.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Snapshot()
}

// UnrealizedPnL 以点数计的浮动盈亏（按当前仓位数量），货币换算由调用方做。
func (m *PositionManager) UnrealizedPnL(currentPrice float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.UnrealizedPnL(currentPrice, m.tracker.Quantity())
}

// IsNearStop 价格是否逼近止损（参照开仓时的初始风险距离）。
func (m *PositionManager) IsNearStop(currentPrice, fractionOfRisk float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.IsNearStop(currentPrice, fractionOfRisk)
}

// ActiveOrderCount 在途订单数，供对账/诊断。
func (m *PositionManager) ActiveOrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bundle.ActiveCount()
}

// OrderSnapshot 按 id 查询登记的订单快照。
func (m *PositionManager) OrderSnapshot(orderID string) (order.TrackedOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bundle.OrderByID(orderID)
}

func directionValue(d position.Direction) float64 {
	switch d {
	case position.Long:
		return 1
	case position.Short:
		return -1
	default:
		return 0
	}
}

func (m *PositionManager) logPosition(event string, fields map[string]interface{}) {
	if m.log != nil {
		m.log.LogPosition(event, fields)
	}
}

func (m *PositionManager) logRisk(event string, fields map[string]interface{}) {
	if m.log != nil {
		m.log.LogRisk(event, fields)
	}
}

func (m *PositionManager) logOrder(event, orderID string) {
	if m.log != nil {
		m.log.LogOrder(event, orderID, map[string]interface{}{"symbol": m.symbol})
	}
}

func (m *PositionManager) logError(err error) {
	if m.log != nil {
		m.log.LogError(err, map[string]interface{}{"symbol": m.symbol})
	}
}
