package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestParseFillMessage(t *testing.T) {
	fill, ok, err := ParseFillMessage([]byte(
		`{"type":"execution","orderId":"o-1","status":"FILLED","price":"4490.25","qty":"2","ts":1700000000000}`))
	if err != nil || !ok {
		t.Fatalf("expected fill, got ok=%v err=%v", ok, err)
	}
	if fill.OrderID != "o-1" || fill.Price != 4490.25 || fill.Quantity != 2 {
		t.Fatalf("unexpected fill: %+v", fill)
	}

	// 非成交状态：合法但跳过
	if _, ok, err := ParseFillMessage([]byte(
		`{"type":"execution","orderId":"o-1","status":"NEW"}`)); ok || err != nil {
		t.Fatalf("non-fill status must be skipped, ok=%v err=%v", ok, err)
	}
	if _, ok, err := ParseFillMessage([]byte(`{"type":"heartbeat"}`)); ok || err != nil {
		t.Fatalf("heartbeat must be skipped, ok=%v err=%v", ok, err)
	}

	// 坏消息
	if _, _, err := ParseFillMessage([]byte(`{garbage`)); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, _, err := ParseFillMessage([]byte(
		`{"type":"execution","status":"FILLED"}`)); err == nil {
		t.Fatalf("expected missing orderId error")
	}
}

// 成交回报按送达顺序分发，不重排。
func TestFillFeedDeliveryOrder(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		msgs := []string{
			`{"type":"execution","orderId":"o-1","status":"FILLED","price":"4490","qty":"1","ts":1}`,
			`{"type":"heartbeat"}`,
			`{"type":"execution","orderId":"o-2","status":"FILLED","price":"4520","qty":"1","ts":2}`,
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// 等客户端读完再关
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	feed := NewFillFeed("ws" + strings.TrimPrefix(srv.URL, "http"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = feed.Run(ctx, func(f Fill) {
			got = append(got, f.OrderID)
			if len(got) == 2 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("feed did not finish")
	}
	if len(got) != 2 || got[0] != "o-1" || got[1] != "o-2" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestFillFeedRequiresEndpoint(t *testing.T) {
	feed := &FillFeed{}
	if err := feed.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected endpoint error")
	}
}
