package soundcard

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/rules"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"go.uber.org/zap"
)

// defaultDenylist 板载声卡短 ID（小写子串匹配），树莓派的耳机口和 HDMI 音频
var defaultDenylist = []string{"bcm2835", "vc4hdmi", "vc4-hdmi"}

// CaptureLister `arecord -l` 的替身，测试时注入固定输出
// 返回空输出表示信号不可用，不是错误
type CaptureLister interface {
	ListCaptureCards() string
}

type execArecord struct{}

func (execArecord) ListCaptureCards() string {
	out, err := exec.Command("arecord", "-l").Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// Enumerator 列出当前在位的采集声卡
type Enumerator struct {
	procRoot string // 默认 /proc/asound
	lister   CaptureLister
	denylist []string
	store    *rules.Store // 可为 nil（纯枚举，不做友好名解析）
	rtspHost string
	rtspPort int
}

func NewEnumerator(store *rules.Store, rtspHost string, rtspPort int, extraDeny []string) *Enumerator {
	return &Enumerator{
		procRoot: "/proc/asound",
		lister:   execArecord{},
		denylist: append(append([]string{}, defaultDenylist...), extraDeny...),
		store:    store,
		rtspHost: rtspHost,
		rtspPort: rtspPort,
	}
}

// ListCaptureDevices 永不失败：读不到 cards 文件就返回空表
// 非采集卡和黑名单卡被过滤；无法归类的卡标记 unmapped 上报，绝不静默丢弃
func (e *Enumerator) ListCaptureDevices() []model.CaptureDevice {
	b, err := os.ReadFile(filepath.Join(e.procRoot, "cards"))
	if err != nil {
		sysutil.Log.Warn("cannot read sound card list", zap.Error(err))
		return nil
	}

	var ruleList []model.MappingRule
	if e.store != nil {
		if ruleList, err = e.store.Load(); err != nil {
			sysutil.Log.Warn("rule store unreadable, names stay raw", zap.Error(err))
		}
	}

	arecordOut := e.lister.ListCaptureCards()

	var out []model.CaptureDevice
	for _, card := range parseCards(string(b)) {
		if e.denied(card.ID) {
			sysutil.LogSugar.Debugf("card %d [%s] on denylist, skipped", card.Number, card.ID)
			continue
		}
		// 两路独立信号取或：arecord 列表提到这块卡，或 pcm*c 目录存在
		// 任一信号不可用时另一路还能兜底
		if !mentionsCard(arecordOut, card.Number) && !e.hasCaptureDir(card.Number) {
			continue
		}

		dev := model.CaptureDevice{
			CardNumber:   card.Number,
			CardID:       card.ID,
			Description:  card.Description,
			USBInfo:      card.USBInfo,
			CaptureIndex: e.captureIndex(card.Number),
		}
		dev.StreamName = e.resolveStreamName(card, ruleList, &dev.Unmapped)
		dev.EndpointURL = fmt.Sprintf("rtsp://%s:%d/%s", e.rtspHost, e.rtspPort, dev.StreamName)
		out = append(out, dev)
	}
	return out
}

func (e *Enumerator) denied(cardID string) bool {
	id := strings.ToLower(cardID)
	for _, d := range e.denylist {
		if strings.Contains(id, d) {
			return true
		}
	}
	return false
}

// mentionsCard arecord -l 输出里是否出现 "card N:"
func mentionsCard(arecordOut string, n int) bool {
	return strings.Contains(arecordOut, fmt.Sprintf("card %d:", n))
}

// hasCaptureDir /proc/asound/card<N> 下是否存在采集方向的 pcm*c 目录
func (e *Enumerator) hasCaptureDir(n int) bool {
	entries, err := os.ReadDir(filepath.Join(e.procRoot, fmt.Sprintf("card%d", n)))
	if err != nil {
		return false
	}
	for _, ent := range entries {
		if capturePCMRe.MatchString(ent.Name()) {
			return true
		}
	}
	return false
}

// captureIndex 第一个 pcm<i>c 目录的数字后缀，找不到默认 0
func (e *Enumerator) captureIndex(n int) int {
	entries, err := os.ReadDir(filepath.Join(e.procRoot, fmt.Sprintf("card%d", n)))
	if err != nil {
		return 0
	}
	var indices []int
	for _, ent := range entries {
		if m := capturePCMRe.FindStringSubmatch(ent.Name()); m != nil {
			if i, err := strconv.Atoi(m[1]); err == nil {
				indices = append(indices, i)
			}
		}
	}
	if len(indices) == 0 {
		return 0
	}
	sort.Ints(indices)
	return indices[0]
}

// resolveStreamName 优先规则表里的友好名，未命中退回净化后的原始短 ID
// udev 规则生效后 CardID 本身就是友好名，这里的查表只用于展示/校验
func (e *Enumerator) resolveStreamName(card rawCard, ruleList []model.MappingRule, unmapped *bool) string {
	vendorID, productID := e.readUSBID(card.Number)
	if vendorID != "" {
		if r := rules.Match(ruleList, vendorID, productID, card.USBInfo, ""); r != nil {
			return sanitizeStreamName(r.FriendlyName)
		}
	}
	// 没有规则命中不算错误，标记 unmapped 继续上报
	*unmapped = true
	return sanitizeStreamName(card.ID)
}

// USBBusAddress /proc/asound/card<N>/usbbus 格式 "003/014"（总线号/设备号）
// 非 USB 卡没有这个文件，返回 ok=false
func (e *Enumerator) USBBusAddress(n int) (bus, dev int, ok bool) {
	b, err := os.ReadFile(filepath.Join(e.procRoot, fmt.Sprintf("card%d", n), "usbbus"))
	if err != nil {
		return 0, 0, false
	}
	parts := strings.SplitN(strings.TrimSpace(string(b)), "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	bus, err1 := strconv.Atoi(strings.TrimLeft(parts[0], "0"))
	dev, err2 := strconv.Atoi(strings.TrimLeft(parts[1], "0"))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return bus, dev, true
}

// USBID /proc/asound/card<N>/usbid 里的 vendor/product 对
func (e *Enumerator) USBID(n int) (vendorID, productID string) {
	return e.readUSBID(n)
}

// readUSBID /proc/asound/card<N>/usbid 格式 "0d8c:0014"，非 USB 卡没有这个文件
func (e *Enumerator) readUSBID(n int) (vendorID, productID string) {
	b, err := os.ReadFile(filepath.Join(e.procRoot, fmt.Sprintf("card%d", n), "usbid"))
	if err != nil {
		return "", ""
	}
	parts := strings.SplitN(strings.TrimSpace(string(b)), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
