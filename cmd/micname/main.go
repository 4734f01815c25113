package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Hara602/micStreamer/internal/config"
	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/rules"
	"github.com/Hara602/micStreamer/internal/soundcard"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"github.com/Hara602/micStreamer/internal/usbtopo"
	"go.uber.org/zap"
)

// micname USB 麦克风命名工具
// 三种用法:
//
//	micname -interactive                         向导式起名
//	micname -vendor 0d8c -product 0014 -name micfront [-port 3-1.4] [-mode port-pattern]
//	micname -test                                只测端口解析，不写任何规则
func main() {
	var (
		cfgPath     = flag.String("config", config.DefaultPath, "config file path")
		interactive = flag.Bool("interactive", false, "guided prompts")
		testMode    = flag.Bool("test", false, "report port resolution per device, write nothing")
		history     = flag.Int("history", 0, "show last N journal entries and exit")
		deviceName  = flag.String("device", "", "source device name (annotation only)")
		vendorID    = flag.String("vendor", "", "usb vendor id, 4 hex digits")
		productID   = flag.String("product", "", "usb product id, 4 hex digits")
		port        = flag.String("port", "", "usb port path (optional)")
		name        = flag.String("name", "", "friendly name, ^[a-z0-9-]+$")
		modeStr     = flag.String("mode", "", "basic | port-pattern | exact-port")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	sysutil.InitLogger(cfg.LogLevel, cfg.PrettyLog)

	// 规则文件在 /etc/udev 下，sysfs 拓扑读取也要权限
	if os.Geteuid() != 0 {
		sysutil.LogSugar.Error("Must run as root.")
		sysutil.Log.Sync()
		os.Exit(2)
	}

	enum := soundcard.NewEnumerator(nil, cfg.RTSPHost, cfg.RTSPPort, cfg.DenylistExtra)
	resolver := usbtopo.NewResolver()

	var code int
	switch {
	case *history > 0:
		code = showHistory(cfg, *history)
	case *testMode:
		code = runTest(enum, resolver)
	case *interactive:
		code = runInteractive(cfg, enum, resolver)
	default:
		code = runFlags(cfg, *deviceName, *vendorID, *productID, *port, *name, *modeStr)
	}
	sysutil.Log.Sync()
	os.Exit(code)
}

func openStore(cfg *config.Config) *rules.Store {
	journal, err := rules.OpenJournal(cfg.JournalDB)
	if err != nil {
		// 审计库打不开不拦着写规则
		sysutil.Log.Warn("journal unavailable", zap.Error(err))
		journal = nil
	}
	return rules.NewStore(cfg.RulesFile, journal)
}

// runFlags 非交互模式：全部信息来自命令行，端口由 -port 直接给出，不走解析链
func runFlags(cfg *config.Config, device, vendor, product, port, name, modeStr string) int {
	if vendor == "" || product == "" || name == "" {
		fmt.Fprintln(os.Stderr, "need -vendor, -product and -name (or use -interactive)")
		return 1
	}

	mode := model.MatchBasic
	if modeStr != "" {
		var ok bool
		if mode, ok = model.ParseMatchMode(modeStr); !ok {
			fmt.Fprintf(os.Stderr, "unknown mode %q\n", modeStr)
			return 1
		}
	} else if port != "" {
		mode = model.MatchPortPattern
	}

	store := openStore(cfg)
	if _, err := store.AddRule(vendor, product, port, mode, name, device, ""); err != nil {
		sysutil.Log.Error("rule not written", zap.Error(err))
		return 1
	}
	fmt.Printf("rule for %q appended to %s\n", name, cfg.RulesFile)
	return 0
}

// runTest 对每块 USB 采集卡跑一遍解析链，统计成败，不落任何规则
func runTest(enum *soundcard.Enumerator, resolver *usbtopo.Resolver) int {
	devices := enum.ListCaptureDevices()
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return 0
	}

	resolved, failed := 0, 0
	for _, d := range devices {
		bus, dev, ok := enum.USBBusAddress(d.CardNumber)
		if !ok {
			fmt.Printf("card %d [%s]: not a usb device, skipped\n", d.CardNumber, d.CardID)
			continue
		}
		identity, err := resolver.ResolvePort(bus, dev)
		if err != nil {
			fmt.Printf("card %d [%s]: FAILED (%v)\n", d.CardNumber, d.CardID, err)
			failed++
			continue
		}
		fmt.Printf("card %d [%s]: port=%s token=%s\n", d.CardNumber, d.CardID, identity.PortPath, identity.Token)
		resolved++
	}
	fmt.Printf("\nresolved: %d, failed: %d\n", resolved, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// runInteractive 向导式：列卡、选卡、解析端口、要名字、选模式
func runInteractive(cfg *config.Config, enum *soundcard.Enumerator, resolver *usbtopo.Resolver) int {
	devices := enum.ListCaptureDevices()
	var usbDevices []model.CaptureDevice
	for _, d := range devices {
		if _, _, ok := enum.USBBusAddress(d.CardNumber); ok {
			usbDevices = append(usbDevices, d)
		}
	}
	if len(usbDevices) == 0 {
		fmt.Println("no usb capture devices present, plug one in first")
		return 1
	}

	fmt.Println("usb capture devices:")
	for i, d := range usbDevices {
		fmt.Printf("  [%d] card %d [%s] %s\n", i, d.CardNumber, d.CardID, d.Description)
	}

	in := bufio.NewReader(os.Stdin)
	idx, err := promptInt(in, "device number", 0, len(usbDevices)-1)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	chosen := usbDevices[idx]

	bus, dev, _ := enum.USBBusAddress(chosen.CardNumber)
	vendor, product := enum.USBID(chosen.CardNumber)

	identity, rerr := resolver.ResolvePort(bus, dev)
	portPattern := ""
	if rerr != nil {
		sysutil.Log.Warn("port resolution failed, rule will be vendor+product only", zap.Error(rerr))
	} else {
		portPattern = identity.PortPath
		fmt.Printf("resolved port: %s (token %s)\n", identity.PortPath, identity.Token)
	}

	friendly := prompt(in, "friendly name (lowercase, digits, hyphen)")

	mode := model.MatchBasic
	if portPattern != "" {
		answer := prompt(in, "match mode [basic/pattern/exact] (default pattern)")
		switch answer {
		case "", "pattern":
			mode = model.MatchPortPattern
		case "exact":
			mode = model.MatchExactPort
		case "basic":
			mode = model.MatchBasic
		default:
			fmt.Fprintf(os.Stderr, "unknown mode %q\n", answer)
			return 1
		}
	}

	uniqTag := ""
	if rerr == nil {
		uniqTag = identity.Token
	}

	store := openStore(cfg)
	if _, err := store.AddRule(vendor, product, portPattern, mode, friendly, chosen.Description, uniqTag); err != nil {
		sysutil.Log.Error("rule not written", zap.Error(err))
		return 1
	}
	fmt.Printf("rule for %q appended to %s\n", friendly, cfg.RulesFile)
	fmt.Println("replug the device (or reboot) for the name to take effect")
	return 0
}

func showHistory(cfg *config.Config, n int) int {
	journal, err := rules.OpenJournal(cfg.JournalDB)
	if err != nil {
		fmt.Fprintln(os.Stderr, "journal unavailable:", err)
		return 1
	}
	defer journal.Close()

	entries, err := journal.History(n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "journal read failed:", err)
		return 1
	}
	for _, r := range entries {
		fmt.Printf("%s  %s:%s  %-12s mode=%s port=%s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.VendorID, r.ProductID,
			r.FriendlyName, r.Mode, r.PortPattern)
	}
	return 0
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptInt(in *bufio.Reader, label string, min, max int) (int, error) {
	v := prompt(in, label)
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid choice %q", v)
	}
	return n, nil
}
