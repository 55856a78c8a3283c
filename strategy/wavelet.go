package strategy

import (
	"errors"
	"fmt"
	"sync"

	"wavelet-trader-go/infrastructure/alert"
	"wavelet-trader-go/infrastructure/logger"
	"wavelet-trader-go/manager"
	"wavelet-trader-go/risk"
	"wavelet-trader-go/signal"
)

// Positioner 是策略对仓位管理器的依赖面。
// 入场前置检查（是否已有冲突仓位）是策略的职责，不是管理器的。
type Positioner interface {
	EnterLong(entry, stop, target, qty float64) (*manager.PositionInfo, error)
	EnterShort(entry, stop, target, qty float64) (*manager.PositionInfo, error)
	ReversePosition(newEntry, newStop, newTarget, newQty float64) (*manager.PositionInfo, error)
	TrailStop(newPrice float64) error
	HasPosition() bool
	IsLong() bool
	IsShort() bool
	IsNearStop(currentPrice, fractionOfRisk float64) bool
}

// Params 策略参数；可经配置热更新整体替换。
type Params struct {
	BaseQty          float64 // 标准下单数量
	Multiplier       float64 // 信号强度倍数
	MaxRiskDollars   float64 // 单笔最大风险（货币）
	StopMultiplier   float64 // 止损距离 = WATR * StopMultiplier
	MinStopPoints    float64 // 止损距离下限（点）
	MaxStopPoints    float64 // 止损距离上限（点）
	TrailPoints      float64 // trailing 距离（点），0 表示关闭
	NearStopFraction float64 // 逼近止损告警阈值（初始风险的比例）
}

func (p Params) validate() error {
	if p.BaseQty <= 0 {
		return errors.New("baseQty must be > 0")
	}
	if p.Multiplier <= 0 {
		return errors.New("multiplier must be > 0")
	}
	if p.MaxRiskDollars <= 0 {
		return errors.New("maxRiskDollars must be > 0")
	}
	if p.StopMultiplier <= 0 {
		return errors.New("stopMultiplier must be > 0")
	}
	if p.MinStopPoints <= 0 || p.MaxStopPoints < p.MinStopPoints {
		return errors.New("stop distance bounds invalid")
	}
	return nil
}

// Reversal 消费小波方向信号的反转策略：
// FLAT 时顺边沿开仓，持仓中遇到反向边沿则反手，同方向边沿忽略。
type Reversal struct {
	mu      sync.Mutex
	pos     Positioner
	sizer   *risk.Sizer
	params  Params
	alerts  *alert.Manager
	log     *logger.Logger
	breaker *risk.Breaker
}

func NewReversal(pos Positioner, sizer *risk.Sizer, params Params, alerts *alert.Manager, log *logger.Logger) (*Reversal, error) {
	if pos == nil || sizer == nil {
		return nil, errors.New("positioner and sizer are required")
	}
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return &Reversal{
		pos:    pos,
		sizer:  sizer,
		params: params,
		alerts: alerts,
		log:    log,
	}, nil
}

// ApplyParams 热更新参数；校验失败时保留旧参数。
func (s *Reversal) ApplyParams(p Params) error {
	if err := p.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	return nil
}

// SetBreaker 挂上连续止损熔断器；熔断期间忽略新边沿，在途仓位不受影响。
func (s *Reversal) SetBreaker(b *risk.Breaker) {
	s.mu.Lock()
	s.breaker = b
	s.mu.Unlock()
}

// OnSignal 处理一次方向边沿事件。
func (s *Reversal) OnSignal(ev signal.Event) error {
	s.mu.Lock()
	p := s.params
	breaker := s.breaker
	s.mu.Unlock()

	if breaker != nil && !breaker.AllowEntry() {
		s.logRisk("entries_halted", map[string]interface{}{
			"direction": ev.Direction.String(), "loss_streak": breaker.LossStreak(),
		})
		return nil
	}

	plan, err := s.sizer.CalculatePositionWithWATR(
		p.BaseQty, p.Multiplier, p.MaxRiskDollars,
		ev.WATR, p.StopMultiplier, p.MinStopPoints, p.MaxStopPoints,
	)
	if err != nil {
		return fmt.Errorf("sizing: %w", err)
	}
	if plan.WasRiskAdjusted {
		s.logRisk("qty_risk_capped", map[string]interface{}{
			"requested": p.BaseQty * p.Multiplier, "final": plan.Quantity,
		})
	}

	long := ev.Direction == signal.Long
	entry := ev.Price
	stop := plan.StopPrice(entry, long)
	target := plan.TargetPrice(entry, long)

	switch {
	case !s.pos.HasPosition():
		var info *manager.PositionInfo
		if long {
			info, err = s.pos.EnterLong(entry, stop, target, plan.Quantity)
		} else {
			info, err = s.pos.EnterShort(entry, stop, target, plan.Quantity)
		}
		if err != nil {
			return fmt.Errorf("enter: %w", err)
		}
		s.logPosition("entered", info)
		return nil

	case s.pos.IsLong() == long:
		// 同方向重复边沿：不加仓
		return nil

	default:
		info, err := s.pos.ReversePosition(entry, stop, target, plan.Quantity)
		if err != nil {
			if errors.Is(err, manager.ErrReversalEntryFailed) {
				// 旧仓已平、新仓没进：必须立刻让人知道
				s.alert(alert.LevelCritical, "reversal left flat", map[string]interface{}{
					"price": entry, "direction": ev.Direction.String(),
				})
			}
			return fmt.Errorf("reverse: %w", err)
		}
		s.logPosition("reversed", info)
		return nil
	}
}

// OnPrice 处理行情心跳：逼近止损告警 + trailing。
func (s *Reversal) OnPrice(price float64) {
	s.mu.Lock()
	p := s.params
	s.mu.Unlock()

	if !s.pos.HasPosition() {
		return
	}

	if p.NearStopFraction > 0 && s.pos.IsNearStop(price, p.NearStopFraction) {
		s.alert(alert.LevelWarning, "price near stop", map[string]interface{}{"price": price})
	}

	if p.TrailPoints <= 0 {
		return
	}
	candidate := price - p.TrailPoints
	if s.pos.IsShort() {
		candidate = price + p.TrailPoints
	}
	err := s.pos.TrailStop(candidate)
	switch {
	case err == nil:
	case errors.Is(err, manager.ErrStopNotImproved):
		// 价格回撤阶段的正常拒绝
	case errors.Is(err, manager.ErrNoPosition):
		// 成交回调线程刚刚平掉了仓位
	default:
		s.logRisk("trail_failed", map[string]interface{}{"price": price, "error": err.Error()})
	}
}

func (s *Reversal) alert(level alert.Level, msg string, fields map[string]interface{}) {
	if s.alerts != nil {
		s.alerts.Send(level, msg, fields)
	}
}

func (s *Reversal) logPosition(event string, info *manager.PositionInfo) {
	if s.log == nil || info == nil {
		return
	}
	s.log.LogPosition(event, map[string]interface{}{
		"entry": info.EntryPrice, "stop": info.StopPrice,
		"target": info.TargetPrice, "qty": info.Quantity, "is_long": info.IsLong,
	})
}

func (s *Reversal) logRisk(event string, fields map[string]interface{}) {
	if s.log != nil {
		s.log.LogRisk(event, fields)
	}
}
