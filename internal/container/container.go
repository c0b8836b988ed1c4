package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gap-trader-go/config"
	"gap-trader-go/gateway"
	"gap-trader-go/infrastructure/logger"
	"gap-trader-go/internal/store"
	"gap-trader-go/metrics"
	"gap-trader-go/order"
	"gap-trader-go/strategy"
)

// Options 来自命令行，优先于配置文件。
type Options struct {
	DryRun      bool
	MetricsAddr *string // nil 表示沿用配置
	Once        bool
}

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	cfg     config.AppConfig
	cfgPath string
	opts    Options

	// 基础设施
	logger *logger.Logger
	sqlite *store.SQLiteStore
	states strategy.StateStore

	// 交易所网关
	restClient *gateway.BinanceRESTClient

	// 核心服务
	orderManager *order.Manager
	engine       *strategy.Engine
	scheduler    *strategy.Scheduler

	// HTTP服务器
	metricsServer *http.Server

	// 生命周期管理
	lifecycle lifecycle
}

// New 加载并校验配置；任何失败都是 *config.ConfigError。
func New(configPath string, opts Options) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, configPath, opts), nil
}

// NewWithConfig 使用已加载的配置，测试中可以绕开文件。
func NewWithConfig(cfg config.AppConfig, configPath string, opts Options) *Container {
	if opts.MetricsAddr != nil {
		cfg.Metrics.Addr = *opts.MetricsAddr
	}
	return &Container{
		cfg:     cfg,
		cfgPath: configPath,
		opts:    opts,
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	c.buildGateway()

	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}

	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	if c.logger == nil {
		lc := c.cfg.Log
		var err error
		c.logger, err = logger.New(logger.Config{
			Level:      lc.Level,
			Outputs:    lc.Outputs,
			OutputFile: lc.OutputFile,
			ErrorFile:  lc.ErrorFile,
			Format:     lc.Format,
		})
		if err != nil {
			return fmt.Errorf("create logger failed: %w", err)
		}
	}

	if path := c.cfg.Storage.StatePath; path != "" {
		db, err := store.NewSQLiteStore(path)
		if err != nil {
			return err
		}
		c.sqlite = db
		c.states = db
	} else {
		c.states = strategy.NewMemoryStore()
		c.logger.Warn("storage.statePath not set, engine state will not survive restart")
	}

	c.logger.Info("infrastructure built")
	return nil
}

func (c *Container) buildGateway() {
	gw := c.cfg.Gateway
	limiter := gateway.NoLimit
	if gw.RateLimited() {
		limiter = gateway.NewRateLimiter(gw.RestRate, gw.RestBurst)
	}
	c.restClient = &gateway.BinanceRESTClient{
		BaseURL:      gw.BaseURL,
		APIKey:       gw.APIKey,
		Secret:       gw.APISecret,
		HTTPClient:   gateway.NewDefaultHTTPClient(time.Duration(gw.TimeoutMs) * time.Millisecond),
		RecvWindowMs: gw.RecvWindowMs,
		Limiter:      limiter,
		MaxRetries:   gw.MaxRetries,
		RetryInitial: 200 * time.Millisecond,
		OnRequest:    metrics.ObserveREST,
	}

	c.logger.Info("gateway built")
}

func (c *Container) buildCoreServices() error {
	orderGw := &orderGatewayAdapter{
		client: c.restClient,
		dryRun: c.opts.DryRun,
		logger: c.logger,
	}
	c.orderManager = order.NewManager(orderGw)

	tc := c.cfg.Trading
	engine, err := strategy.NewEngine(strategy.EngineConfig{
		Symbol:          tc.Symbol,
		Timeframe:       tc.Timeframe,
		GapThreshold:    tc.Threshold(),
		TradeQuantity:   tc.TradeQuantity,
		CandleCount:     tc.CandleCount,
		RecoveryPoll:    tc.RecoveryPoll(),
		MaxRecoveryWait: tc.MaxRecoveryWait(),
	}, c.restClient, c.orderManager)
	if err != nil {
		return err
	}
	engine.SetStore(c.states)
	if c.sqlite != nil {
		engine.SetJournal(c.sqlite)
	}
	engine.SetObserver(metrics.Recorder{})
	engine.SetLogger(c.logger.WithFields(map[string]interface{}{"component": "engine"}))
	c.engine = engine

	c.scheduler = &strategy.Scheduler{
		Engine:          engine,
		Interval:        tc.CycleInterval(),
		Log:             c.logger,
		ContinueOnError: tc.ContinueOnError,
	}
	if c.opts.Once {
		c.scheduler.MaxCycles = 1
	}

	c.logger.Info("core services built")
	return nil
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.register("metrics_server", &httpServerComponent{
			name:   "metrics_server",
			addr:   c.cfg.Metrics.Addr,
			logger: c.logger,
			server: &c.metricsServer,
		})
	}
	if c.cfgPath != "" && !c.opts.Once {
		c.lifecycle.register("config_watcher", &configWatchComponent{
			path:   c.cfgPath,
			logger: c.logger,
		})
	}
}

// Start 恢复持久化状态并启动后台组件。
func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.engine.Restore(ctx); err != nil {
		return fmt.Errorf("restore state failed: %w", err)
	}
	if err := c.lifecycle.startAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	st := c.engine.State()
	c.logger.Info("container started")
	c.logger.LogEvent("engine_ready", map[string]interface{}{
		"symbol":    c.cfg.Trading.Symbol,
		"timeframe": c.cfg.Trading.Timeframe,
		"threshold": c.cfg.Trading.Threshold(),
		"qty":       c.cfg.Trading.TradeQuantity,
		"phase":     st.Phase.String(),
		"dryRun":    c.opts.DryRun,
	})
	return nil
}

// Run 阻塞运行调度循环，返回第一个未处理的周期错误或 ctx.Err()。
func (c *Container) Run(ctx context.Context) error {
	return c.scheduler.Run(ctx)
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")

	var firstErr error
	if err := c.lifecycle.stopAll(); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
		firstErr = err
	}
	// 不做撤单/平仓：未平仓位已持久化，重启后继续等待回补
	if c.engine != nil && !c.engine.State().IsIdle() {
		st := c.engine.State()
		c.logger.LogEvent("shutdown_with_open_position", map[string]interface{}{
			"symbol": c.cfg.Trading.Symbol,
			"target": st.TargetClose,
			"qty":    st.Quantity,
		})
	}
	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.logger != nil {
		c.logger.Close()
	}
	return firstErr
}

func (c *Container) Engine() *strategy.Engine { return c.engine }

// orderGatewayAdapter 把 order.Manager 的下单请求转给 REST 客户端；dryRun 时只记录日志。
type orderGatewayAdapter struct {
	client *gateway.BinanceRESTClient
	dryRun bool
	logger *logger.Logger
}

func (a *orderGatewayAdapter) PlaceMarket(ctx context.Context, o order.Order) (order.Receipt, error) {
	if a.dryRun {
		a.logger.LogOrder("order_place_dry_run", o.ClientID, map[string]interface{}{
			"symbol": o.Symbol,
			"side":   string(o.Side),
			"qty":    o.Quantity,
		})
		return order.Receipt{
			OrderID:       "dry-" + o.ClientID,
			ClientOrderID: o.ClientID,
			Symbol:        gateway.NormalizeSymbol(o.Symbol),
			Side:          o.Side,
			Quantity:      o.Quantity,
			ExecutedQty:   o.Quantity,
			Status:        order.StatusFilled,
			TransactTime:  time.Now().UTC(),
		}, nil
	}

	r, err := a.client.PlaceMarket(ctx, o)
	if err != nil {
		a.logger.LogError(err, map[string]interface{}{
			"action": "place_order",
			"symbol": o.Symbol,
			"side":   string(o.Side),
		})
		return order.Receipt{}, err
	}
	return r, nil
}
