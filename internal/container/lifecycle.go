package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gap-trader-go/config"
	"gap-trader-go/infrastructure/logger"
	"gap-trader-go/metrics"
)

// component 是容器托管的后台服务。
type component interface {
	Start(ctx context.Context) error
	Stop() error
}

type namedComponent struct {
	name string
	component
}

// lifecycle 按注册顺序启动，逆序停止；单 goroutine 使用，不加锁。
type lifecycle struct {
	started []namedComponent
	pending []namedComponent
}

func (l *lifecycle) register(name string, c component) {
	l.pending = append(l.pending, namedComponent{name: name, component: c})
}

// startAll 任一组件启动失败时停止已启动的组件并返回错误。
func (l *lifecycle) startAll(ctx context.Context) error {
	for _, c := range l.pending {
		if err := c.Start(ctx); err != nil {
			stopErr := l.stopAll()
			return errors.Join(fmt.Errorf("start %s: %w", c.name, err), stopErr)
		}
		l.started = append(l.started, c)
	}
	l.pending = nil
	return nil
}

func (l *lifecycle) stopAll() error {
	var errs []error
	for i := len(l.started) - 1; i >= 0; i-- {
		if err := l.started[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", l.started[i].name, err))
		}
	}
	l.started = nil
	return errors.Join(errs...)
}

// httpServerComponent 暴露 /metrics
type httpServerComponent struct {
	name    string
	addr    string
	logger  *logger.Logger
	server  **http.Server
	started bool
	mu      sync.Mutex
}

func (h *httpServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return nil
	}

	srv := &http.Server{
		Addr:              h.addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	*h.server = srv

	go func() {
		h.logger.Logger.Info(fmt.Sprintf("%s listening on %s", h.name, h.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.LogError(err, map[string]interface{}{
				"component": h.name,
				"action":    "listen",
			})
		}
	}()

	h.started = true
	return nil
}

func (h *httpServerComponent) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started || *h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := (*h.server).Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}

	h.logger.Logger.Info(fmt.Sprintf("%s stopped", h.name))
	h.started = false
	return nil
}


// configWatchComponent 监听配置文件；交易参数不会热更新，只提示需要重启。
type configWatchComponent struct {
	path   string
	logger *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *configWatchComponent) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	wctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	watcher := config.Watcher{
		Path:     w.path,
		Cooldown: time.Second,
		OnError: func(err error) {
			w.logger.LogError(err, map[string]interface{}{"component": "config_watcher", "path": w.path})
		},
	}
	go func() {
		defer close(w.done)
		err := watcher.Start(wctx, func(cfg config.AppConfig) {
			w.logger.LogEvent("config_changed", map[string]interface{}{
				"path":      w.path,
				"symbol":    cfg.Trading.Symbol,
				"threshold": cfg.Trading.Threshold(),
				"qty":       cfg.Trading.TradeQuantity,
				"action":    "restart required",
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.LogError(err, map[string]interface{}{"component": "config_watcher", "path": w.path})
		}
	}()
	return nil
}

func (w *configWatchComponent) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	return nil
}

