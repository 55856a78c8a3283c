package order

import "errors"

var ErrUnknownOrder = errors.New("unknown order")

// Spec 描述一笔待提交订单。
type Spec struct {
	Symbol   string
	Side     string // BUY/SELL
	Role     Role
	Price    float64 // 市价单忽略
	Quantity float64
	Tag      string
	Market   bool // true 表示市价（入场/平仓），false 表示触发/限价（保护单）
}

// Gateway 抽象执行网关。提交/撤销/改价都是同步确认的 bookkeeping 调用，
// 约定不得阻塞；真正的成交确认稍后经网关自己的回调线程送达。
type Gateway interface {
	Submit(spec Spec) (string, error)
	Cancel(orderID string) bool
	Modify(orderID string, newPrice float64) bool
}
