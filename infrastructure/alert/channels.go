package alert

import (
	"fmt"
	"log"
	"os"

	"wavelet-trader-go/infrastructure/logger"
)

// LogChannel 日志告警通道
type LogChannel struct {
	logger *log.Logger
	name   string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, output *os.File) *LogChannel {
	if output == nil {
		output = os.Stdout
	}
	return &LogChannel{
		logger: log.New(output, "[ALERT] ", log.LstdFlags),
		name:   name,
	}
}

// Send 发送告警到日志
func (c *LogChannel) Send(alert Alert) error {
	msg := fmt.Sprintf("[%s] %s", alert.Level, alert.Message)
	if len(alert.Fields) > 0 {
		msg += " |"
		for k, v := range alert.Fields {
			msg += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	c.logger.Println(msg)
	return nil
}

// Name 返回通道名称
func (c *LogChannel) Name() string { return c.name }

// ZapChannel 将告警写入结构化日志器
type ZapChannel struct {
	log  *logger.Logger
	name string
}

// NewZapChannel 创建结构化日志告警通道
func NewZapChannel(name string, log *logger.Logger) *ZapChannel {
	return &ZapChannel{log: log, name: name}
}

// Send 发送告警到结构化日志
func (c *ZapChannel) Send(alert Alert) error {
	fields := alert.Fields
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["level"] = string(alert.Level)
	c.log.LogRisk(alert.Message, fields)
	return nil
}

// Name 返回通道名称
func (c *ZapChannel) Name() string { return c.name }
