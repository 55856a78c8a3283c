package alert

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockChannel 记录收到的告警
type mockChannel struct {
	name string
	sent []Alert
	err  error
}

func (c *mockChannel) Send(a Alert) error {
	c.sent = append(c.sent, a)
	return c.err
}

func (c *mockChannel) Name() string { return c.name }

func TestManagerSend(t *testing.T) {
	ch := &mockChannel{name: "mock"}
	m := NewManager([]Channel{ch}, time.Hour)

	if err := m.Send(LevelWarning, "price near stop", map[string]interface{}{"price": 4492.0}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(ch.sent) != 1 || ch.sent[0].Level != LevelWarning {
		t.Fatalf("unexpected alerts: %+v", ch.sent)
	}
	if ch.sent[0].Timestamp.IsZero() {
		t.Fatalf("timestamp must be set")
	}
}

// 同一 (级别,消息) 在限流间隔内只发一次。
func TestManagerThrottle(t *testing.T) {
	ch := &mockChannel{name: "mock"}
	m := NewManager([]Channel{ch}, time.Hour)

	_ = m.Send(LevelWarning, "price near stop", nil)
	_ = m.Send(LevelWarning, "price near stop", nil)
	if len(ch.sent) != 1 {
		t.Fatalf("expected throttled send, got %d", len(ch.sent))
	}

	// 不同消息不受影响
	_ = m.Send(LevelCritical, "reversal left flat", nil)
	if len(ch.sent) != 2 {
		t.Fatalf("different message must pass, got %d", len(ch.sent))
	}

	m.ResetThrottle()
	_ = m.Send(LevelWarning, "price near stop", nil)
	if len(ch.sent) != 3 {
		t.Fatalf("after reset the message must pass again, got %d", len(ch.sent))
	}
}

// 文件通道把级别、消息与字段写成一行纯文本。
func TestLogChannelWritesAlert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	ch := NewLogChannel("file", f)
	if ch.Name() != "file" {
		t.Fatalf("unexpected name %q", ch.Name())
	}
	err = ch.Send(Alert{
		Level:   LevelCritical,
		Message: "reversal left flat",
		Fields:  map[string]interface{}{"qty": 2},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	line := string(raw)
	for _, want := range []string{"[ALERT]", "CRITICAL", "reversal left flat", "qty=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("alert line missing %q: %s", want, line)
		}
	}
}

func TestManagerAllChannelsFailed(t *testing.T) {
	bad := &mockChannel{name: "bad", err: errors.New("boom")}
	m := NewManager([]Channel{bad}, time.Hour)

	if err := m.Send(LevelError, "x", nil); err == nil {
		t.Fatalf("expected error when every channel fails")
	}

	// 有一个成功即视为送达
	good := &mockChannel{name: "good"}
	m.AddChannel(good)
	m.ResetThrottle()
	if err := m.Send(LevelError, "x", nil); err != nil {
		t.Fatalf("one healthy channel must be enough: %v", err)
	}
}
