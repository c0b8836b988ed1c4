package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"gap-trader-go/config"
	"gap-trader-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不真正下单")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置；留空沿用配置")
	once := flag.Bool("once", false, "只执行一个周期后退出")
	flag.Parse()

	opts := container.Options{DryRun: *dryRun, Once: *once}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "metricsAddr" {
			opts.MetricsAddr = metricsAddr
		}
	})

	c, err := container.New(*cfgPath, opts)
	if err != nil {
		if config.IsConfigError(err) {
			log.Fatalf("配置错误: %v", err)
		}
		log.Fatalf("初始化失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("构建组件失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		if stopErr := c.Stop(); stopErr != nil {
			log.Printf("停止时出错: %v", stopErr)
		}
		log.Fatalf("启动失败: %v", err)
	}
	if err := sdNotify(daemon.SdNotifyReady); err != nil {
		log.Printf("sd_notify ready: %v", err)
	}

	runErr := c.Run(ctx)

	if err := sdNotify(daemon.SdNotifyStopping); err != nil {
		log.Printf("sd_notify stopping: %v", err)
	}
	if err := c.Stop(); err != nil {
		log.Printf("停止时出错: %v", err)
	}

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
		log.Println("gapbot exited")
	default:
		log.Printf("周期出错，退出: %v", runErr)
		os.Exit(1)
	}
}

// sdNotify 向 systemd 报告状态；未设置 NOTIFY_SOCKET 时什么也不做。
func sdNotify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}
