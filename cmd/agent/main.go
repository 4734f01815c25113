package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Hara602/micStreamer/internal/config"
	"github.com/Hara602/micStreamer/internal/rules"
	"github.com/Hara602/micStreamer/internal/soundcard"
	"github.com/Hara602/micStreamer/internal/status"
	"github.com/Hara602/micStreamer/internal/supervisor"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"github.com/Hara602/micStreamer/internal/watcher"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		// 日志还没起来，只能裸打
		println("config error:", err.Error())
		os.Exit(1)
	}

	// 初始化日志
	sysutil.InitLogger(cfg.LogLevel, cfg.PrettyLog)
	defer sysutil.Log.Sync()

	// udev netlink 和 ALSA 设备需要 Root 权限
	if os.Geteuid() != 0 {
		sysutil.LogSugar.Fatal("Must run as root (required by Netlink/ALSA).")
	}

	sysutil.Log.Info("🎙️ micStreamer Agent Starting...")

	// 初始化核心模块 (依赖注入)
	store := rules.NewStore(cfg.RulesFile, nil) // agent 只读规则，不开审计库
	enum := soundcard.NewEnumerator(store, cfg.RTSPHost, cfg.RTSPPort, cfg.DenylistExtra)
	sup := supervisor.New(supervisor.NewFFmpegRunner(cfg.FFmpegBin), cfg.StaggerDelay.Std(), cfg.StopGrace.Std())

	if cfg.StatusListen != "" {
		st := status.NewServer(cfg.StatusListen, sup)
		st.Start()
		defer st.Stop()
	}

	hotplug := watcher.New()
	triggers, err := hotplug.Start()
	if err != nil {
		sysutil.Log.Fatal("Watcher init failed", zap.Error(err))
	}
	defer hotplug.Stop()

	// 捕获操作系统信号，优雅关闭全部推流进程
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// 启动即做一轮，之后热插拔触发 + 定时兜底重扫，全部串行进同一个 Reconcile
	sup.Reconcile(enum.ListCaptureDevices())

	ticker := time.NewTicker(cfg.RescanInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-triggers:
			sysutil.Log.Info("🔌 hotplug detected, reconciling")
			sup.Reconcile(enum.ListCaptureDevices())

		case <-ticker.C:
			sup.Reconcile(enum.ListCaptureDevices())

		case <-sigCh:
			sysutil.Log.Info("Shutting down...")
			// Shutdown 自带 once 保护，第二个信号进来也不会重复清场
			sup.Shutdown()
			return
		}
	}
}
