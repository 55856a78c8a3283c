package config

import "fmt"

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and numeric bounds hold.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if cfg.Instrument.Symbol == "" {
		return ErrInvalid("instrument.symbol is required")
	}
	if cfg.Instrument.PointValue <= 0 {
		return ErrInvalid("instrument.pointValue must be > 0")
	}
	if cfg.Instrument.QtyStep < 0 {
		return ErrInvalid("instrument.qtyStep must be >= 0")
	}
	if cfg.Instrument.RewardMultiple <= 0 {
		return ErrInvalid("instrument.rewardMultiple must be > 0")
	}

	s := cfg.Strategy
	if s.BaseQty <= 0 {
		return ErrInvalid("strategy.baseQty must be > 0")
	}
	if s.Multiplier <= 0 {
		return ErrInvalid("strategy.multiplier must be > 0")
	}
	if s.MaxRiskDollars <= 0 {
		return ErrInvalid("strategy.maxRiskDollars must be > 0")
	}
	if s.StopMultiplier <= 0 {
		return ErrInvalid("strategy.stopMultiplier must be > 0")
	}
	if s.MinStopPoints <= 0 {
		return ErrInvalid("strategy.minStopPoints must be > 0")
	}
	if s.MaxStopPoints < s.MinStopPoints {
		return ErrInvalid(fmt.Sprintf("strategy.maxStopPoints must be >= minStopPoints (%v)", s.MinStopPoints))
	}
	if s.TrailPoints < 0 {
		return ErrInvalid("strategy.trailPoints must be >= 0")
	}
	if s.NearStopFraction < 0 || s.NearStopFraction >= 1 {
		return ErrInvalid("strategy.nearStopFraction must be in [0, 1)")
	}

	if cfg.Alert.ThrottleSeconds < 0 {
		return ErrInvalid("alert.throttleSeconds must be >= 0")
	}
	if cfg.Breaker.LossThreshold < 0 || cfg.Breaker.CooldownSeconds < 0 || cfg.Breaker.ProbeTrades < 0 {
		return ErrInvalid("breaker settings must be >= 0")
	}
	return nil
}
