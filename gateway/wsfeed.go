package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// fillMessage 成交回报流的线缆格式。
type fillMessage struct {
	Type     string      `json:"type"`
	OrderID  string      `json:"orderId"`
	Status   string      `json:"status"`
	Price    json.Number `json:"price"`
	Quantity json.Number `json:"qty"`
	Ts       int64       `json:"ts"`
}

// ParseFillMessage 解析一条流消息。第二个返回值表示是否为成交事件
// （其他状态事件合法但被跳过）。
func ParseFillMessage(raw []byte) (Fill, bool, error) {
	var msg fillMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Fill{}, false, fmt.Errorf("parse fill message: %w", err)
	}
	if msg.Type != "execution" || msg.Status != "FILLED" {
		return Fill{}, false, nil
	}
	if msg.OrderID == "" {
		return Fill{}, false, fmt.Errorf("fill message without orderId")
	}
	price, _ := msg.Price.Float64()
	qty, _ := msg.Quantity.Float64()
	return Fill{
		OrderID:  msg.OrderID,
		Price:    price,
		Quantity: qty,
		Time:     time.UnixMilli(msg.Ts),
	}, true, nil
}

// FillFeed 通过 websocket 订阅网关的成交回报流，按到达顺序分发给 handler。
// 不做重连：连接断开即返回错误，重连策略由调用方决定。
type FillFeed struct {
	Endpoint string
	Dialer   *websocket.Dialer
}

func NewFillFeed(endpoint string) *FillFeed {
	return &FillFeed{
		Endpoint: endpoint,
		Dialer:   websocket.DefaultDialer,
	}
}

// Run 连接并读取消息直到 ctx 取消或连接出错。
// handler 在读取 goroutine 上按送达顺序同步调用，不并发、不重排。
func (f *FillFeed) Run(ctx context.Context, handler func(Fill)) error {
	if f.Endpoint == "" {
		return fmt.Errorf("feed endpoint required")
	}
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, f.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial fill feed: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read fill feed: %w", err)
		}
		fill, ok, err := ParseFillMessage(raw)
		if err != nil {
			// 坏消息跳过，不中断流
			continue
		}
		if ok && handler != nil {
			handler(fill)
		}
	}
}
