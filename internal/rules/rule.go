package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Hara602/micStreamer/internal/model"
)

// udev 规则文件一条规则 = 一行注释 + 一行规则
// 注释记录来源设备名、端口模式、唯一性标签，方便人工核对
//
//	# micname: Samson Go Mic port=3-1.4 tag=a1b2c3d4 mode=port-pattern created=2026-08-31T10:00:00Z
//	SUBSYSTEM=="sound", ATTRS{idVendor}=="17a0", ATTRS{idProduct}=="0305", DEVPATH=="*3-1.4*", ATTR{id}="micfront"

// RenderRule 序列化为注释行 + 规则行
func RenderRule(r model.MappingRule) (comment, line string) {
	comment = fmt.Sprintf("# micname: %s port=%s tag=%s mode=%s created=%s",
		orDash(r.SourceName), orDash(r.PortPattern), orDash(r.UniqTag),
		r.Mode, r.CreatedAt.UTC().Format(time.RFC3339))

	var b strings.Builder
	fmt.Fprintf(&b, `SUBSYSTEM=="sound", ATTRS{idVendor}=="%s", ATTRS{idProduct}=="%s"`, r.VendorID, r.ProductID)
	switch r.Mode {
	case model.MatchPortPattern:
		fmt.Fprintf(&b, `, DEVPATH=="*%s*"`, r.PortPattern)
	case model.MatchExactPort:
		fmt.Fprintf(&b, `, KERNELS=="%s"`, r.PortPattern)
	}
	fmt.Fprintf(&b, `, ATTR{id}="%s"`, r.FriendlyName)
	return comment, b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var (
	vendorRe   = regexp.MustCompile(`ATTRS\{idVendor\}=="([0-9a-f]{4})"`)
	productRe  = regexp.MustCompile(`ATTRS\{idProduct\}=="([0-9a-f]{4})"`)
	devpathRe  = regexp.MustCompile(`DEVPATH=="\*([^"*]+)\*"`)
	kernelsRe  = regexp.MustCompile(`KERNELS=="([^"]+)"`)
	assignRe   = regexp.MustCompile(`ATTR\{id\}="([a-z0-9-]+)"`)
	metaTagRe  = regexp.MustCompile(`tag=(\S+)`)
	metaSrcRe  = regexp.MustCompile(`# micname: (.+?) port=`)
	metaTimeRe = regexp.MustCompile(`created=(\S+)`)
)

// ParseRuleLine 把一行规则解析回 MappingRule，注释行传入 comment 补全元数据
// 不是声卡命名规则的行返回 false
func ParseRuleLine(line, comment string) (model.MappingRule, bool) {
	if !strings.Contains(line, `SUBSYSTEM=="sound"`) {
		return model.MappingRule{}, false
	}
	vm := vendorRe.FindStringSubmatch(line)
	pm := productRe.FindStringSubmatch(line)
	am := assignRe.FindStringSubmatch(line)
	if vm == nil || pm == nil || am == nil {
		return model.MappingRule{}, false
	}

	r := model.MappingRule{
		VendorID:     vm[1],
		ProductID:    pm[1],
		Mode:         model.MatchBasic,
		FriendlyName: am[1],
	}
	if m := devpathRe.FindStringSubmatch(line); m != nil {
		r.Mode = model.MatchPortPattern
		r.PortPattern = m[1]
	} else if m := kernelsRe.FindStringSubmatch(line); m != nil {
		r.Mode = model.MatchExactPort
		r.PortPattern = m[1]
	}

	if comment != "" {
		if m := metaTagRe.FindStringSubmatch(comment); m != nil && m[1] != "-" {
			r.UniqTag = m[1]
		}
		if m := metaSrcRe.FindStringSubmatch(comment); m != nil && m[1] != "-" {
			r.SourceName = m[1]
		}
		if m := metaTimeRe.FindStringSubmatch(comment); m != nil {
			if t, err := time.Parse(time.RFC3339, m[1]); err == nil {
				r.CreatedAt = t
			}
		}
	}
	return r, true
}
