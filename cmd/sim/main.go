package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"wavelet-trader-go/config"
	"wavelet-trader-go/gateway"
	"wavelet-trader-go/infrastructure/logger"
	"wavelet-trader-go/manager"
	"wavelet-trader-go/posttrade"
	"wavelet-trader-go/risk"
	"wavelet-trader-go/signal"
	"wavelet-trader-go/strategy"
)

// 离线演练：合成一段带趋势切换的价格序列，
// 驱动 paper 网关 + 仓位管理器 + 反转策略跑完整个生命周期。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	steps := flag.Int("steps", 2000, "模拟步数")
	seed := flag.Int64("seed", 42, "随机种子")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logCfg := cfg.Logger
	logCfg.Format = "console"
	zl, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zl.Close()

	gw := gateway.NewPaperGateway()
	defer gw.Close()

	mgr, err := manager.New(cfg.Instrument.Symbol, gw, zl)
	if err != nil {
		log.Fatalf("初始化仓位管理器失败: %v", err)
	}
	journal := posttrade.NewJournal()
	mgr.SetTradeRecorder(journal)
	gw.SetFillHandler(func(f gateway.Fill) {
		if err := mgr.OnOrderFilled(f.OrderID); err != nil {
			zl.LogError(err, nil)
		}
	})

	sizer, err := risk.NewSizer(cfg.Instrument.PointValue, cfg.Instrument.QtyStep, cfg.Instrument.RewardMultiple)
	if err != nil {
		log.Fatalf("初始化仓位计算器失败: %v", err)
	}
	strat, err := strategy.NewReversal(mgr, sizer, strategy.Params{
		BaseQty:          cfg.Strategy.BaseQty,
		Multiplier:       cfg.Strategy.Multiplier,
		MaxRiskDollars:   cfg.Strategy.MaxRiskDollars,
		StopMultiplier:   cfg.Strategy.StopMultiplier,
		MinStopPoints:    cfg.Strategy.MinStopPoints,
		MaxStopPoints:    cfg.Strategy.MaxStopPoints,
		TrailPoints:      cfg.Strategy.TrailPoints,
		NearStopFraction: cfg.Strategy.NearStopFraction,
	}, nil, zl)
	if err != nil {
		log.Fatalf("初始化策略失败: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	detector := signal.NewDetector()
	watr := signal.NewWATREstimator(64)

	price := 4500.0
	trend := 1.0
	signals, reversals := 0, 0
	for i := 0; i < *steps; i++ {
		// 趋势项 + 噪声；周期性反转趋势
		if i > 0 && i%400 == 0 {
			trend = -trend
		}
		price += trend*0.05 + rng.NormFloat64()*0.5

		watr.AddPrice(price)
		gw.OnPrice(price)
		strat.OnPrice(price)

		// 每 50 步评估一次方向
		if i%50 == 0 && watr.Ready() {
			dir := signal.Long
			if trend < 0 {
				dir = signal.Short
			}
			if edge, fired := detector.Update(dir, price, watr.WATR()); fired {
				signals++
				hadPos := mgr.HasPosition()
				if err := strat.OnSignal(edge); err != nil {
					zl.LogError(err, map[string]interface{}{"step": i})
				} else if hadPos {
					reversals++
				}
			}
		}
		// 让异步成交回报有机会送达
		if i%100 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if mgr.HasPosition() {
		pos := mgr.CurrentPosition()
		fmt.Printf("final position: %s qty=%.0f entry=%.2f stop=%.2f pnl=%.2f\n",
			pos.Direction, pos.Quantity, pos.EntryPrice, pos.StopPrice, mgr.UnrealizedPnL(price))
		mgr.ExitPosition()
	} else {
		fmt.Println("final position: FLAT")
	}
	fmt.Printf("steps=%d signals=%d reversals=%d last=%.2f active_orders=%d\n",
		*steps, signals, reversals, price, gw.ActiveOrders())

	stats := journal.Stats()
	fmt.Printf("trades=%d wins=%d losses=%d win_rate=%.2f avg_r=%.2f net_points=%.1f\n",
		stats.TotalTrades, stats.Wins, stats.Losses, stats.WinRate, stats.AvgRMultiple, stats.NetPoints)
}
