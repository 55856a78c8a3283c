package risk

import "math"

// Sizer 将风险预算换算为下单数量与止损/止盈距离。
// 纯函数实现：无 I/O、无共享状态，任意 goroutine 可直接调用。
type Sizer struct {
	pointValue     float64 // 每点价值（货币/点），来自合约元数据
	qtyStep        float64 // 最小可交易数量颗粒度
	rewardMultiple float64 // 止盈距离 = 止损距离 * rewardMultiple
}

// NewSizer 构造 Sizer；pointValue <= 0 的合约在此即拒绝，而不是在计算时兜底。
func NewSizer(pointValue, qtyStep, rewardMultiple float64) (*Sizer, error) {
	if pointValue <= 0 {
		return nil, ErrInvalidPointValue
	}
	if qtyStep <= 0 {
		qtyStep = 1
	}
	if rewardMultiple <= 0 {
		rewardMultiple = 1
	}
	return &Sizer{
		pointValue:     pointValue,
		qtyStep:        qtyStep,
		rewardMultiple: rewardMultiple,
	}, nil
}

// PositionPlan 是一次仓位计算的结果。
type PositionPlan struct {
	Quantity        float64
	StopDistance    float64 // 止损距离（点）
	TargetDistance  float64 // 止盈距离（点）
	UnitRisk        float64 // 单位数量的风险（货币）
	WasRiskAdjusted bool    // 风险上限是否压缩了请求数量
}

// StopPrice 基于开仓价与方向计算止损价。
func (p PositionPlan) StopPrice(entry float64, isLong bool) float64 {
	if isLong {
		return entry - p.StopDistance
	}
	return entry + p.StopDistance
}

// TargetPrice 基于开仓价与方向计算止盈价。
func (p PositionPlan) TargetPrice(entry float64, isLong bool) float64 {
	if isLong {
		return entry + p.TargetDistance
	}
	return entry - p.TargetDistance
}

// CalculatePosition 按固定止损距离计算数量：
// unitRisk = stopDistancePoints * pointValue
// riskCappedQty = floor(maxRiskDollars / unitRisk)
// finalQty = max(1, min(baseQty*multiplier, riskCappedQty))
func (s *Sizer) CalculatePosition(baseQty, multiplier, maxRiskDollars, stopDistancePoints float64) (PositionPlan, error) {
	unitRisk := stopDistancePoints * s.pointValue
	if unitRisk <= 0 {
		return PositionPlan{}, ErrNonPositiveUnitRisk
	}
	if maxRiskDollars <= 0 {
		return PositionPlan{}, ErrInvalidRiskBudget
	}

	requested := baseQty * multiplier
	riskCapped := math.Floor(maxRiskDollars / unitRisk)

	qty := math.Min(requested, riskCapped)
	qty = math.Floor(qty/s.qtyStep) * s.qtyStep
	if qty < 1 {
		qty = 1
	}

	return PositionPlan{
		Quantity:        qty,
		StopDistance:    stopDistancePoints,
		TargetDistance:  stopDistancePoints * s.rewardMultiple,
		UnitRisk:        unitRisk,
		WasRiskAdjusted: riskCapped < requested,
	}, nil
}

// CalculatePositionWithWATR 用外部波动率估计推导止损距离后委托给 CalculatePosition。
// stopDistance = clamp(watr*stopMultiplier, minStopPoints, maxStopPoints)
func (s *Sizer) CalculatePositionWithWATR(baseQty, multiplier, maxRiskDollars, watr, stopMultiplier, minStopPoints, maxStopPoints float64) (PositionPlan, error) {
	dist := watr * stopMultiplier
	if dist < minStopPoints {
		dist = minStopPoints
	}
	if maxStopPoints > 0 && dist > maxStopPoints {
		dist = maxStopPoints
	}
	return s.CalculatePosition(baseQty, multiplier, maxRiskDollars, dist)
}

// PointValue 返回合约每点价值，供上层换算货币盈亏。
func (s *Sizer) PointValue() float64 { return s.pointValue }
