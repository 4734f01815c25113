package soundcard

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// /proc/asound/cards 两行一组:
//
//	 1 [Device         ]: USB-Audio - USB Audio Device
//	                      C-Media Electronics Inc. USB Audio Device at usb-3f980000.usb-1.2, full speed
//
// 第一行是 编号 [短ID]: 描述，第二行缩进续行里带 "at usb-..." 的物理位置信息

type rawCard struct {
	Number      int
	ID          string
	Description string
	USBInfo     string // 续行里 "at usb-..." 起的尾巴，可为空
}

var cardLineRe = regexp.MustCompile(`^\s*(\d+)\s+\[(\S+)\s*\]:\s*(.*)$`)

// parseCards 解析 /proc/asound/cards 的全文
func parseCards(text string) []rawCard {
	var out []rawCard
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		if m := cardLineRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			out = append(out, rawCard{Number: n, ID: m[2], Description: strings.TrimSpace(m[3])})
			continue
		}
		// 缩进续行归属上一块卡
		if len(out) > 0 && strings.HasPrefix(line, " ") {
			if idx := strings.Index(line, "at usb-"); idx >= 0 {
				out[len(out)-1].USBInfo = strings.TrimSuffix(strings.TrimSpace(line[idx:]), ",")
			}
		}
	}
	return out
}

// sanitizeStreamName 小写并剔除所有非字母数字字符
func sanitizeStreamName(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// capturePCMRe 采集方向子设备目录, e.g. pcm0c / pcm2c
var capturePCMRe = regexp.MustCompile(`^pcm(\d+)c$`)
