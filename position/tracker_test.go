package position

import (
	"math"
	"testing"
)

func TestTrackerUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker()
	tr.UpdatePosition(4500, 4490, 4520, 2, true)

	if tr.Direction() != Long {
		t.Fatalf("expected LONG, got %s", tr.Direction())
	}
	snap := tr.Snapshot()
	if snap.EntryPrice != 4500 || snap.StopPrice != 4490 || snap.TargetPrice != 4520 || snap.Quantity != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTrackerUnrealizedPnL(t *testing.T) {
	tr := NewTracker()
	tr.UpdatePosition(4500, 4490, 4520, 2, true)
	if got := tr.UnrealizedPnL(4510, 2); got != 20 {
		t.Fatalf("long pnl: expected 20, got %v", got)
	}

	tr.UpdatePosition(4500, 4510, 4480, 1, false)
	if got := tr.UnrealizedPnL(4510, 1); got != -10 {
		t.Fatalf("short pnl: expected -10, got %v", got)
	}

	tr.Reset()
	if got := tr.UnrealizedPnL(4510, 1); got != 0 {
		t.Fatalf("flat pnl: expected 0, got %v", got)
	}
}

// 参照距离是开仓时的初始风险：trailing 推高止损后不收缩。
func TestTrackerIsNearStopUsesInitialRisk(t *testing.T) {
	tr := NewTracker()
	tr.UpdatePosition(4500, 4490, 4520, 1, true) // 初始风险 10 点

	if !tr.IsNearStop(4492, 0.25) { // 距止损 2 点 <= 0.25*10
		t.Fatalf("expected near stop at 4492")
	}
	if tr.IsNearStop(4495, 0.25) { // 5 点 > 2.5 点
		t.Fatalf("did not expect near stop at 4495")
	}

	// 止损上移到 4505 后参照距离仍是 10 点
	tr.UpdateStopPrice(4505)
	if !tr.IsNearStop(4507, 0.25) {
		t.Fatalf("expected near stop relative to trailed stop with initial risk reference")
	}
	if tr.InitialRisk() != 10 {
		t.Fatalf("initial risk changed: %v", tr.InitialRisk())
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.UpdatePosition(4500, 4490, 4520, 2, true)
	tr.Reset()

	if tr.HasPosition() || tr.Direction() != Flat {
		t.Fatalf("expected flat after reset")
	}
	if tr.EntryPrice() != 0 || tr.StopPrice() != 0 || tr.TargetPrice() != 0 || tr.Quantity() != 0 {
		t.Fatalf("expected zeroed fields after reset")
	}
	if tr.IsNearStop(4500, 1) {
		t.Fatalf("flat tracker must never report near stop")
	}
}

func TestTrackerSingleFieldMutators(t *testing.T) {
	tr := NewTracker()
	tr.UpdatePosition(4500, 4490, 4520, 2, true)

	tr.UpdateStopPrice(4495)
	tr.UpdateTargetPrice(4525)
	if tr.StopPrice() != 4495 || tr.TargetPrice() != 4525 {
		t.Fatalf("mutators not applied: stop=%v target=%v", tr.StopPrice(), tr.TargetPrice())
	}
	if tr.EntryPrice() != 4500 {
		t.Fatalf("entry must be untouched, got %v", tr.EntryPrice())
	}
	if math.Abs(tr.InitialRisk()-10) > 1e-12 {
		t.Fatalf("initial risk must be untouched, got %v", tr.InitialRisk())
	}
}
