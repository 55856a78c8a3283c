package gateway

import (
	"testing"
	"time"

	"wavelet-trader-go/order"
)

func collectFills(g *PaperGateway) chan Fill {
	ch := make(chan Fill, 16)
	g.SetFillHandler(func(f Fill) { ch <- f })
	return ch
}

func waitFill(t *testing.T, ch chan Fill) Fill {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fill")
		return Fill{}
	}
}

func TestPaperGatewayMarketOrderFillsAsync(t *testing.T) {
	g := NewPaperGateway()
	defer g.Close()
	ch := collectFills(g)

	id, err := g.Submit(order.Spec{
		Symbol: "ES", Side: "BUY", Role: order.RoleEntry,
		Price: 4500, Quantity: 2, Market: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	f := waitFill(t, ch)
	if f.OrderID != id || f.Price != 4500 || f.Quantity != 2 {
		t.Fatalf("unexpected fill: %+v", f)
	}
}

func TestPaperGatewayValidation(t *testing.T) {
	g := NewPaperGateway()
	defer g.Close()

	if _, err := g.Submit(order.Spec{Side: "BUY", Quantity: 1}); err == nil {
		t.Fatalf("expected symbol validation error")
	}
	if _, err := g.Submit(order.Spec{Symbol: "ES", Side: "BUY"}); err == nil {
		t.Fatalf("expected quantity validation error")
	}

	g.FailNextSubmit()
	if _, err := g.Submit(order.Spec{Symbol: "ES", Side: "BUY", Quantity: 1}); err == nil {
		t.Fatalf("expected simulated rejection")
	}
	if _, err := g.Submit(order.Spec{Symbol: "ES", Side: "BUY", Quantity: 1}); err != nil {
		t.Fatalf("rejection must apply once: %v", err)
	}
}

// SELL 止损在价格跌破触发价时成交。
func TestPaperGatewayStopTrigger(t *testing.T) {
	g := NewPaperGateway()
	defer g.Close()
	ch := collectFills(g)

	stopID, err := g.Submit(order.Spec{
		Symbol: "ES", Side: "SELL", Role: order.RoleStop,
		Price: 4490, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("submit stop: %v", err)
	}

	g.OnPrice(4495) // 未触发
	select {
	case f := <-ch:
		t.Fatalf("premature fill: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}

	g.OnPrice(4489)
	f := waitFill(t, ch)
	if f.OrderID != stopID || f.Price != 4490 {
		t.Fatalf("unexpected stop fill: %+v", f)
	}
	if g.ActiveOrders() != 0 {
		t.Fatalf("triggered order must leave the book")
	}
}

func TestPaperGatewayTargetTrigger(t *testing.T) {
	g := NewPaperGateway()
	defer g.Close()
	ch := collectFills(g)

	targetID, err := g.Submit(order.Spec{
		Symbol: "ES", Side: "SELL", Role: order.RoleTarget,
		Price: 4520, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("submit target: %v", err)
	}

	g.OnPrice(4521)
	if f := waitFill(t, ch); f.OrderID != targetID {
		t.Fatalf("unexpected target fill: %+v", f)
	}
}

// 停机后到达的行情必须被忽略：分发队列已关闭，触发成交会 panic 整个进程。
func TestPaperGatewayPriceAfterCloseIsNoop(t *testing.T) {
	g := NewPaperGateway()
	ch := collectFills(g)

	_, err := g.Submit(order.Spec{
		Symbol: "ES", Side: "SELL", Role: order.RoleStop,
		Price: 4490, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("submit stop: %v", err)
	}

	g.Close()
	g.OnPrice(4480) // 本会触发止损

	select {
	case f := <-ch:
		t.Fatalf("fill after close: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
	if _, err := g.Submit(order.Spec{Symbol: "ES", Side: "BUY", Quantity: 1}); err != ErrGatewayDown {
		t.Fatalf("submit after close must fail with ErrGatewayDown, got %v", err)
	}
}

func TestPaperGatewayCancelAndModify(t *testing.T) {
	g := NewPaperGateway()
	defer g.Close()
	ch := collectFills(g)

	id, err := g.Submit(order.Spec{
		Symbol: "ES", Side: "SELL", Role: order.RoleStop,
		Price: 4490, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !g.Modify(id, 4485) {
		t.Fatalf("modify active order failed")
	}
	g.OnPrice(4488) // 原价会触发，新价不会
	select {
	case f := <-ch:
		t.Fatalf("modified stop fired at old price: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}

	if !g.Cancel(id) {
		t.Fatalf("cancel active order failed")
	}
	if g.Cancel(id) {
		t.Fatalf("second cancel must return false")
	}
	if g.Modify(id, 1) {
		t.Fatalf("modify cancelled order must return false")
	}
}
