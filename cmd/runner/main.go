package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"wavelet-trader-go/config"
	"wavelet-trader-go/gateway"
	"wavelet-trader-go/infrastructure/alert"
	"wavelet-trader-go/infrastructure/logger"
	"wavelet-trader-go/manager"
	"wavelet-trader-go/metrics"
	"wavelet-trader-go/order"
	"wavelet-trader-go/posttrade"
	"wavelet-trader-go/risk"
	"wavelet-trader-go/signal"
	"wavelet-trader-go/strategy"
)

// marketEvent 输入流的线缆格式：direction 为方向评估（价格+WATR 随行），
// price 为纯行情心跳。
type marketEvent struct {
	Type      string  `json:"type"`      // direction 或 price
	Direction string  `json:"direction"` // LONG / SHORT / NONE
	Price     float64 `json:"price"`
	WATR      float64 `json:"watr"`
}

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	envFile := flag.String("envFile", ".env", "环境变量文件，不存在时忽略")
	input := flag.String("input", "-", "信号事件输入（JSON lines），- 表示 stdin")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("加载环境变量失败: %v", err)
	}

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Close()

	if cfg.MetricsAddr != "" {
		metrics.StartMetricsServer(cfg.MetricsAddr)
	}

	channels := []alert.Channel{alert.NewZapChannel("zap", zl)}
	if cfg.Alert.LogFile != "" {
		f, err := os.OpenFile(cfg.Alert.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("打开告警日志失败: %v", err)
		}
		defer f.Close()
		channels = append(channels, alert.NewLogChannel("file", f))
	}
	alerts := alert.NewManager(channels, cfg.Alert.ThrottleInterval())

	gw := gateway.NewPaperGateway()
	defer gw.Close()

	mgr, err := manager.New(cfg.Instrument.Symbol, gw, zl)
	if err != nil {
		log.Fatalf("初始化仓位管理器失败: %v", err)
	}
	journal := posttrade.NewJournal()
	mgr.SetTradeRecorder(journal)

	var breaker *risk.Breaker
	if cfg.Breaker.LossThreshold > 0 {
		breaker = risk.NewBreaker(risk.BreakerConfig{
			LossThreshold: cfg.Breaker.LossThreshold,
			Cooldown:      time.Duration(cfg.Breaker.CooldownSeconds) * time.Second,
			ProbeTrades:   cfg.Breaker.ProbeTrades,
		})
	}

	gw.SetFillHandler(func(f gateway.Fill) {
		if breaker != nil {
			if o, ok := mgr.OrderSnapshot(f.OrderID); ok {
				switch o.Role {
				case order.RoleStop:
					breaker.RecordLoss()
				case order.RoleTarget:
					breaker.RecordWin()
				}
			}
		}
		if err := mgr.OnOrderFilled(f.OrderID); err != nil {
			zl.LogError(err, map[string]interface{}{"component": "fill_handler"})
		}
	})

	sizer, err := risk.NewSizer(cfg.Instrument.PointValue, cfg.Instrument.QtyStep, cfg.Instrument.RewardMultiple)
	if err != nil {
		log.Fatalf("初始化仓位计算器失败: %v", err)
	}

	strat, err := strategy.NewReversal(mgr, sizer, strategyParams(cfg.Strategy), alerts, zl)
	if err != nil {
		log.Fatalf("初始化策略失败: %v", err)
	}
	if breaker != nil {
		strat.SetBreaker(breaker)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置热更新：只有策略参数允许在线替换
	watcher, err := config.NewWatcher(*cfgPath, 2*time.Second)
	if err != nil {
		log.Fatalf("初始化配置监听失败: %v", err)
	}
	go func() {
		err := watcher.Run(ctx,
			func(next config.AppConfig) {
				if err := strat.ApplyParams(strategyParams(next.Strategy)); err != nil {
					zl.LogRisk("params_rejected", map[string]interface{}{"error": err.Error()})
					return
				}
				zl.LogPosition("params_reloaded", nil)
			},
			func(err error) {
				zl.LogError(err, map[string]interface{}{"component": "config_watcher"})
			},
		)
		if err != nil && err != context.Canceled {
			zl.LogError(err, map[string]interface{}{"component": "config_watcher"})
		}
	}()

	// 外部成交回报流（可选）：与本地撮合回报走同一个入口
	if cfg.Feed.Endpoint != "" {
		go runFillFeed(ctx, cfg.Feed.Endpoint, mgr, zl)
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx)

	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	events := make(chan marketEvent)
	go readEvents(ctx, *input, events, zl)

	detector := signal.NewDetector()
	watr := signal.NewWATREstimator(64)
	for {
		select {
		case <-quit:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			// 停机前清仓，避免留下无人看护的保护单
			if mgr.HasPosition() {
				mgr.ExitPosition()
			}
			logSessionStats(zl, journal)
			zl.LogPosition("runner_exit", map[string]interface{}{"symbol": cfg.Instrument.Symbol})
			return
		case ev, ok := <-events:
			if !ok {
				zl.LogPosition("input_closed", nil)
				if mgr.HasPosition() {
					mgr.ExitPosition()
				}
				logSessionStats(zl, journal)
				return
			}
			handleEvent(ev, detector, watr, strat, gw, mgr, zl)
		}
	}
}

func logSessionStats(zl *logger.Logger, journal *posttrade.Journal) {
	stats := journal.Stats()
	zl.LogPosition("session_stats", map[string]interface{}{
		"trades": stats.TotalTrades, "wins": stats.Wins, "losses": stats.Losses,
		"win_rate": stats.WinRate, "avg_r": stats.AvgRMultiple,
		"net_points": stats.NetPoints, "profit_factor": stats.ProfitFactor,
	})
}

func handleEvent(ev marketEvent, detector *signal.Detector, watr *signal.WATREstimator, strat *strategy.Reversal, gw *gateway.PaperGateway, mgr *manager.PositionManager, zl *logger.Logger) {
	switch ev.Type {
	case "direction":
		// 事件没带 WATR 时用本地估计兜底
		w := ev.WATR
		if w <= 0 {
			w = watr.WATR()
		}
		edge, fired := detector.Update(parseDirection(ev.Direction), ev.Price, w)
		if !fired {
			return
		}
		if err := strat.OnSignal(edge); err != nil {
			zl.LogError(err, map[string]interface{}{"component": "strategy", "price": ev.Price})
		}
	case "price":
		watr.AddPrice(ev.Price)
		gw.OnPrice(ev.Price)
		strat.OnPrice(ev.Price)
		if mgr.HasPosition() {
			metrics.UnrealizedPnL.Set(mgr.UnrealizedPnL(ev.Price))
		}
	default:
		zl.LogRisk("unknown_event_type", map[string]interface{}{"type": ev.Type})
	}
}

func readEvents(ctx context.Context, input string, out chan<- marketEvent, zl *logger.Logger) {
	defer close(out)

	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			zl.LogError(err, map[string]interface{}{"component": "input"})
			return
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ev marketEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			zl.LogRisk("bad_input_line", map[string]interface{}{"error": err.Error()})
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		zl.LogError(err, map[string]interface{}{"component": "input"})
	}
}

// runFillFeed 带退避重连地消费外部成交回报流。
func runFillFeed(ctx context.Context, endpoint string, mgr *manager.PositionManager, zl *logger.Logger) {
	backoff := time.Second
	for {
		feed := gateway.NewFillFeed(endpoint)
		err := feed.Run(ctx, func(f gateway.Fill) {
			if err := mgr.OnOrderFilled(f.OrderID); err != nil {
				zl.LogError(err, map[string]interface{}{"component": "fill_feed"})
			}
		})
		if ctx.Err() != nil {
			return
		}
		zl.LogError(err, map[string]interface{}{"component": "fill_feed", "endpoint": endpoint})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func watchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func parseDirection(s string) signal.Direction {
	switch strings.ToUpper(s) {
	case "LONG":
		return signal.Long
	case "SHORT":
		return signal.Short
	default:
		return signal.None
	}
}

func strategyParams(s config.StrategyConfig) strategy.Params {
	return strategy.Params{
		BaseQty:          s.BaseQty,
		Multiplier:       s.Multiplier,
		MaxRiskDollars:   s.MaxRiskDollars,
		StopMultiplier:   s.StopMultiplier,
		MinStopPoints:    s.MinStopPoints,
		MaxStopPoints:    s.MaxStopPoints,
		TrailPoints:      s.TrailPoints,
		NearStopFraction: s.NearStopFraction,
	}
}
