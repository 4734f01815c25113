package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration yaml.v3 不认识 time.Duration，包一层让配置文件能写 "500ms" / "2s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config 聚合 agent 和 micname 两个入口的全部可调参数
type Config struct {
	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => 控制台彩色, false => JSON

	RulesFile    string `yaml:"rules_file"`    // udev 规则文件路径
	JournalDB    string `yaml:"journal_db"`    // 规则审计库 (sqlite)
	RTSPHost     string `yaml:"rtsp_host"`     // 推流服务器地址
	RTSPPort     int    `yaml:"rtsp_port"`     // 默认 8554
	FFmpegBin    string `yaml:"ffmpeg_bin"`    // 推流器二进制
	StatusListen string `yaml:"status_listen"` // 状态接口监听地址，空则关闭

	StaggerDelay   Duration `yaml:"stagger_delay"`   // 相邻 spawn 之间的间隔
	RescanInterval Duration `yaml:"rescan_interval"` // 周期性重扫
	StopGrace      Duration `yaml:"stop_grace"`      // SIGTERM 后等多久再 SIGKILL

	DenylistExtra []string `yaml:"denylist_extra"` // 板载声卡黑名单的追加项
}

const DefaultPath = "/etc/micstreamer/config.yaml"

func Default() *Config {
	return &Config{
		LogLevel:       "info",
		PrettyLog:      true,
		RulesFile:      "/etc/udev/rules.d/89-usb-mics.rules",
		JournalDB:      "/var/lib/micstreamer/rules.db",
		RTSPHost:       "localhost",
		RTSPPort:       8554,
		FFmpegBin:      "ffmpeg",
		StatusListen:   "127.0.0.1:8565",
		StaggerDelay:   Duration(2 * time.Second),
		RescanInterval: Duration(60 * time.Second),
		StopGrace:      Duration(5 * time.Second),
	}
}

// Load 读取 YAML 配置，文件不存在时静默使用默认值，环境变量最后覆盖
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// 无配置文件是正常情况
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.RTSPPort <= 0 || cfg.RTSPPort > 65535 {
		return nil, fmt.Errorf("invalid rtsp_port %d", cfg.RTSPPort)
	}
	return cfg, nil
}

// applyEnv MICSTREAMER_* 环境变量优先于文件
func applyEnv(cfg *Config) {
	cfg.LogLevel = getenv("MICSTREAMER_LOG_LEVEL", cfg.LogLevel)
	cfg.RulesFile = getenv("MICSTREAMER_RULES_FILE", cfg.RulesFile)
	cfg.JournalDB = getenv("MICSTREAMER_JOURNAL_DB", cfg.JournalDB)
	cfg.RTSPHost = getenv("MICSTREAMER_RTSP_HOST", cfg.RTSPHost)
	cfg.RTSPPort = getenvInt("MICSTREAMER_RTSP_PORT", cfg.RTSPPort)
	cfg.FFmpegBin = getenv("MICSTREAMER_FFMPEG_BIN", cfg.FFmpegBin)
	cfg.StatusListen = getenv("MICSTREAMER_STATUS_LISTEN", cfg.StatusListen)
	cfg.StaggerDelay = Duration(getenvDuration("MICSTREAMER_STAGGER_DELAY", cfg.StaggerDelay.Std()))
	cfg.RescanInterval = Duration(getenvDuration("MICSTREAMER_RESCAN_INTERVAL", cfg.RescanInterval.Std()))
	cfg.StopGrace = Duration(getenvDuration("MICSTREAMER_STOP_GRACE", cfg.StopGrace.Std()))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
