package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"wavelet-trader-go/order"
)

var (
	ErrEmptySymbol = errors.New("symbol required")
	ErrBadQuantity = errors.New("quantity must be > 0")
	ErrGatewayDown = errors.New("gateway closed")
)

// Fill 一笔成交回报。
type Fill struct {
	OrderID  string
	Price    float64
	Quantity float64
	Time     time.Time
}

// FillHandler 成交回调；由网关自己的分发 goroutine 调用。
type FillHandler func(fill Fill)

type paperOrder struct {
	id     string
	spec   order.Spec
	active bool
}

// PaperGateway 模拟执行网关：提交/撤销/改价同步确认（不阻塞），
// 成交由独立的分发 goroutine 异步回调。
// 同一订单的回报严格按触发顺序送达，不重排不合并。
type PaperGateway struct {
	mu      sync.Mutex
	orders  map[string]*paperOrder
	handler FillHandler
	queue   chan Fill
	done    chan struct{}
	closed  bool

	// 测试注入
	failNextSubmit bool
}

func NewPaperGateway() *PaperGateway {
	g := &PaperGateway{
		orders: make(map[string]*paperOrder),
		queue:  make(chan Fill, 256),
		done:   make(chan struct{}),
	}
	go g.dispatchLoop()
	return g
}

// SetFillHandler 注册成交回调；必须在开始交易前设置。
func (g *PaperGateway) SetFillHandler(h FillHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = h
}

// FailNextSubmit 让下一次 Submit 被拒（测试/演练用）。
func (g *PaperGateway) FailNextSubmit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNextSubmit = true
}

// Submit 同步确认并登记订单；市价单立即产生成交回报（异步送达）。
func (g *PaperGateway) Submit(spec order.Spec) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return "", ErrGatewayDown
	}
	if g.failNextSubmit {
		g.failNextSubmit = false
		return "", errors.New("simulated rejection")
	}
	if spec.Symbol == "" {
		return "", ErrEmptySymbol
	}
	if spec.Quantity <= 0 {
		return "", ErrBadQuantity
	}

	id := uuid.NewString()
	o := &paperOrder{id: id, spec: spec, active: true}
	g.orders[id] = o

	if spec.Market {
		o.active = false
		g.enqueueLocked(Fill{OrderID: id, Price: spec.Price, Quantity: spec.Quantity, Time: time.Now()})
	}
	return id, nil
}

// Cancel 撤销在途订单；未知或已终态返回 false。
func (g *PaperGateway) Cancel(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok || !o.active {
		return false
	}
	o.active = false
	return true
}

// Modify 修改在途订单触发价；未知或已终态返回 false。
func (g *PaperGateway) Modify(orderID string, newPrice float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok || !o.active {
		return false
	}
	o.spec.Price = newPrice
	return true
}

// OnPrice 喂入最新成交价，触发保护单：
// SELL 止损在价格跌破触发价时成交，BUY 止损反之；止盈方向相反。
func (g *PaperGateway) OnPrice(price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	for _, o := range g.orders {
		if !o.active || !triggered(o.spec, price) {
			continue
		}
		o.active = false
		g.enqueueLocked(Fill{OrderID: o.id, Price: o.spec.Price, Quantity: o.spec.Quantity, Time: time.Now()})
	}
}

func triggered(spec order.Spec, price float64) bool {
	switch spec.Role {
	case order.RoleStop:
		if spec.Side == "SELL" {
			return price <= spec.Price
		}
		return price >= spec.Price
	case order.RoleTarget:
		if spec.Side == "SELL" {
			return price >= spec.Price
		}
		return price <= spec.Price
	default:
		return false
	}
}

// ActiveOrders 在途订单数，供对账/测试。
func (g *PaperGateway) ActiveOrders() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, o := range g.orders {
		if o.active {
			n++
		}
	}
	return n
}

// Close 停止分发 goroutine；排队中的回报仍会送达。
func (g *PaperGateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	close(g.queue)
	<-g.done
}

func (g *PaperGateway) enqueueLocked(f Fill) {
	if g.closed {
		return
	}
	select {
	case g.queue <- f:
	default:
		// 队列满时丢弃，不能在持锁状态下阻塞
	}
}

func (g *PaperGateway) dispatchLoop() {
	defer close(g.done)
	for f := range g.queue {
		g.mu.Lock()
		h := g.handler
		g.mu.Unlock()
		if h != nil {
			h(f)
		}
	}
}
