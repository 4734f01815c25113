package rules

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"go.uber.org/zap"
)

// Store 有序规则表，落盘为 udev 规则文件
// 只追加；udev 对规则按先匹配先生效，这里的顺序就是生效顺序
// 单写者（规则制作流程），Enumerator 只读
type Store struct {
	path    string
	journal *Journal // 可为 nil，审计失败不影响规则文件
}

func NewStore(path string, journal *Journal) *Store {
	return &Store{path: path, journal: journal}
}

// AddRule 校验、降级、查重后追加一条规则
// mode 要求端口匹配但 portPattern 为空时，降级到 Basic 并显式告警（注释里也留痕）
// 规则文件写入失败对整次调用致命；审计库写入失败只记日志
func (s *Store) AddRule(vendorID, productID, portPattern string, mode model.MatchMode, friendlyName, sourceName, uniqTag string) (model.MappingRule, error) {
	if err := ValidateInputs(vendorID, productID, friendlyName); err != nil {
		return model.MappingRule{}, err
	}

	degraded := false
	if mode != model.MatchBasic && portPattern == "" {
		sysutil.Log.Warn("⚠️ no port pattern resolved, falling back to basic vendor+product match",
			zap.String("name", friendlyName),
			zap.String("requested_mode", mode.String()))
		mode = model.MatchBasic
		degraded = true
	}

	// 同 vendor+product 的旧规则会抢先匹配，新规则可能被遮蔽
	if existing, err := s.Load(); err == nil {
		for _, old := range existing {
			if old.VendorID == vendorID && old.ProductID == productID {
				sysutil.Log.Warn("⚠️ duplicate vendor/product pair, earlier rule may shadow this one (first match wins)",
					zap.String("vendor", vendorID),
					zap.String("product", productID),
					zap.String("existing_name", old.FriendlyName),
					zap.String("new_name", friendlyName))
				break
			}
		}
	}

	rule := model.MappingRule{
		VendorID:     vendorID,
		ProductID:    productID,
		PortPattern:  portPattern,
		Mode:         mode,
		FriendlyName: friendlyName,
		SourceName:   sourceName,
		UniqTag:      uniqTag,
		CreatedAt:    time.Now(),
	}

	comment, line := RenderRule(rule)
	if degraded {
		comment += " degraded=yes"
	}
	if err := s.appendLines(comment, line); err != nil {
		return model.MappingRule{}, fmt.Errorf("write rules file %s: %w", s.path, err)
	}

	if s.journal != nil {
		if err := s.journal.Record(rule); err != nil {
			sysutil.Log.Warn("rule journal write failed", zap.Error(err))
		}
	}

	sysutil.Log.Info("✅ rule appended",
		zap.String("name", friendlyName),
		zap.String("mode", mode.String()),
		zap.String("port", portPattern))
	return rule, nil
}

func (s *Store) appendLines(lines ...string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, l := range lines {
		if _, err := fmt.Fprintln(f, l); err != nil {
			return err
		}
	}
	return nil
}

// Load 按文件顺序读回全部规则，文件不存在视为空表
func (s *Store) Load() ([]model.MappingRule, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []model.MappingRule
	var lastComment string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			lastComment = ""
		case strings.HasPrefix(line, "#"):
			lastComment = line
		default:
			if r, ok := ParseRuleLine(line, lastComment); ok {
				out = append(out, r)
			}
			lastComment = ""
		}
	}
	return out, sc.Err()
}

// Match 按规则顺序找第一条命中的，udev 同款先匹配先生效语义
// devPath 是运行时设备路径（子串匹配用），portPath 是解析出的端口路径（精确匹配用）
// 没有命中返回 nil
func Match(ruleList []model.MappingRule, vendorID, productID, devPath, portPath string) *model.MappingRule {
	for i := range ruleList {
		r := &ruleList[i]
		if r.VendorID != vendorID || r.ProductID != productID {
			continue
		}
		switch r.Mode {
		case model.MatchBasic:
			return r
		case model.MatchPortPattern:
			if devPath != "" && strings.Contains(devPath, r.PortPattern) {
				return r
			}
		case model.MatchExactPort:
			if portPath != "" && portPath == r.PortPattern {
				return r
			}
		}
	}
	return nil
}
