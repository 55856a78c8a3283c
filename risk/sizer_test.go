package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wavelet-trader-go/risk"
)

func TestNewSizer_RejectsBadPointValue(t *testing.T) {
	_, err := risk.NewSizer(0, 1, 2)
	assert.ErrorIs(t, err, risk.ErrInvalidPointValue)

	_, err = risk.NewSizer(-50, 1, 2)
	assert.ErrorIs(t, err, risk.ErrInvalidPointValue)
}

// TestCalculatePosition_RiskCap 验证风险上限压缩数量的典型场景：
// pointValue=50, maxRisk=500, stop=10 点 => unitRisk=500，请求 3 手只允许 1 手。
func TestCalculatePosition_RiskCap(t *testing.T) {
	s, err := risk.NewSizer(50, 1, 2)
	assert.NoError(t, err)

	plan, err := s.CalculatePosition(3, 1, 500, 10)
	assert.NoError(t, err)
	assert.Equal(t, 500.0, plan.UnitRisk)
	assert.Equal(t, 1.0, plan.Quantity)
	assert.True(t, plan.WasRiskAdjusted)
}

func TestCalculatePosition_Table(t *testing.T) {
	s, err := risk.NewSizer(50, 1, 2)
	assert.NoError(t, err)

	testCases := []struct {
		name         string
		baseQty      float64
		multiplier   float64
		maxRisk      float64
		stopPoints   float64
		expectQty    float64
		expectTarget float64
		expectAdj    bool
	}{
		{
			name:       "预算充足 - 按请求数量",
			baseQty:    2,
			multiplier: 1,
			maxRisk:    2000,
			stopPoints: 10,
			expectQty:  2, expectTarget: 20, expectAdj: false,
		},
		{
			name:       "倍数放大后仍在预算内",
			baseQty:    1,
			multiplier: 3,
			maxRisk:    2000,
			stopPoints: 10,
			expectQty:  3, expectTarget: 20, expectAdj: false,
		},
		{
			name:       "预算压缩到 2 手",
			baseQty:    5,
			multiplier: 1,
			maxRisk:    1250,
			stopPoints: 10,
			expectQty:  2, expectTarget: 20, expectAdj: true,
		},
		{
			name:       "预算不足一手 - 保底 1 手",
			baseQty:    1,
			multiplier: 1,
			maxRisk:    100,
			stopPoints: 10,
			expectQty:  1, expectTarget: 20, expectAdj: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := s.CalculatePosition(tc.baseQty, tc.multiplier, tc.maxRisk, tc.stopPoints)
			assert.NoError(t, err)
			assert.Equal(t, tc.expectQty, plan.Quantity)
			assert.Equal(t, tc.expectTarget, plan.TargetDistance)
			assert.Equal(t, tc.expectAdj, plan.WasRiskAdjusted)
		})
	}
}

// TestCalculatePosition_RiskCapInvariant 只要预算至少覆盖一个单位风险，
// finalQty * stopDistance * pointValue 不得超过 maxRisk。
func TestCalculatePosition_RiskCapInvariant(t *testing.T) {
	s, err := risk.NewSizer(50, 1, 2)
	assert.NoError(t, err)

	for _, maxRisk := range []float64{500, 750, 1000, 5000, 12345} {
		for _, stop := range []float64{1, 2.5, 10, 17} {
			unitRisk := stop * 50
			if maxRisk < unitRisk {
				continue
			}
			plan, err := s.CalculatePosition(100, 1, maxRisk, stop)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, plan.Quantity, 1.0)
			assert.LessOrEqual(t, plan.Quantity*stop*50, maxRisk+1e-9,
				"maxRisk=%v stop=%v", maxRisk, stop)
		}
	}
}

func TestCalculatePosition_Errors(t *testing.T) {
	s, err := risk.NewSizer(50, 1, 2)
	assert.NoError(t, err)

	_, err = s.CalculatePosition(1, 1, 500, 0)
	assert.ErrorIs(t, err, risk.ErrNonPositiveUnitRisk)

	_, err = s.CalculatePosition(1, 1, 500, -3)
	assert.ErrorIs(t, err, risk.ErrNonPositiveUnitRisk)

	_, err = s.CalculatePosition(1, 1, 0, 10)
	assert.ErrorIs(t, err, risk.ErrInvalidRiskBudget)
}

func TestCalculatePositionWithWATR_Clamp(t *testing.T) {
	s, err := risk.NewSizer(50, 1, 2)
	assert.NoError(t, err)

	// watr*mult = 2*2.5 = 5 点，低于下限 8 点
	plan, err := s.CalculatePositionWithWATR(1, 1, 2000, 2, 2.5, 8, 20)
	assert.NoError(t, err)
	assert.Equal(t, 8.0, plan.StopDistance)

	// watr*mult = 12*2.5 = 30 点，高于上限 20 点
	plan, err = s.CalculatePositionWithWATR(1, 1, 2000, 12, 2.5, 8, 20)
	assert.NoError(t, err)
	assert.Equal(t, 20.0, plan.StopDistance)

	// 区间内按原值
	plan, err = s.CalculatePositionWithWATR(1, 1, 2000, 6, 2.5, 8, 20)
	assert.NoError(t, err)
	assert.Equal(t, 15.0, plan.StopDistance)
}

func TestPositionPlan_BracketPrices(t *testing.T) {
	plan := risk.PositionPlan{StopDistance: 10, TargetDistance: 20}

	assert.Equal(t, 4490.0, plan.StopPrice(4500, true))
	assert.Equal(t, 4520.0, plan.TargetPrice(4500, true))
	assert.Equal(t, 4510.0, plan.StopPrice(4500, false))
	assert.Equal(t, 4480.0, plan.TargetPrice(4500, false))
}
