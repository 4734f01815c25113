package model

import "time"

// MatchMode 规则匹配的严格程度
type MatchMode int

const (
	// MatchBasic 仅按 vendor+product 匹配，同型号多设备时不唯一
	MatchBasic MatchMode = iota
	// MatchPortPattern 额外要求端口片段是运行时 DEVPATH 的子串，对内核版本差异宽容
	MatchPortPattern
	// MatchExactPort 要求端口路径完全相等，换物理口即失效
	MatchExactPort
)

func (m MatchMode) String() string {
	switch m {
	case MatchBasic:
		return "basic"
	case MatchPortPattern:
		return "port-pattern"
	case MatchExactPort:
		return "exact-port"
	default:
		return "unknown"
	}
}

// ParseMatchMode CLI 传入的模式名
func ParseMatchMode(s string) (MatchMode, bool) {
	switch s {
	case "basic":
		return MatchBasic, true
	case "port-pattern", "pattern":
		return MatchPortPattern, true
	case "exact-port", "exact":
		return MatchExactPort, true
	}
	return MatchBasic, false
}

// MappingRule 一条 (vendor, product, port) -> 友好名 的命名规则
// 规则文件是有序追加的，udev 按先匹配先生效
type MappingRule struct {
	VendorID     string
	ProductID    string
	PortPattern  string // Basic 模式下为空
	Mode         MatchMode
	FriendlyName string // ^[a-z0-9-]+$
	UniqTag      string
	SourceName   string // 注释用：生成规则时的设备名
	CreatedAt    time.Time
}
