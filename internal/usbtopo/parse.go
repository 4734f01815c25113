package usbtopo

import (
	"bufio"
	"os/exec"
	"regexp"
	"strings"
)

// portFragmentRe 路径尾部的 <bus>-<port>[.<port>]* 片段, e.g. "3-1.4", "1-1.2.1"
// 排除接口节点 (带冒号, e.g. "3-1.4:1.0")
var portFragmentRe = regexp.MustCompile(`(\d+-\d+(?:\.\d+)*)$`)

// extractPortFragment 从拓扑路径里抠端口片段，没有则返回 false
func extractPortFragment(path string) (string, bool) {
	leaf := path[strings.LastIndex(path, "/")+1:]
	if strings.Contains(leaf, ":") {
		return "", false
	}
	m := portFragmentRe.FindStringSubmatch(leaf)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// UdevProperties udevadm 输出里我们关心的三个键
// 解析结果是类型化的，空字段即"信号不可用"，调用方不需要再去匹配原始文本
type UdevProperties struct {
	DevPath     string // E: DEVPATH=...
	SerialShort string // E: ID_SERIAL_SHORT=...
	Model       string // E: ID_MODEL=...
}

// ParseUdevProperties 解析 `udevadm info -q all` 的逐行输出
// 格式: "P: <path>" / "E: KEY=value"，未知行直接跳过
func ParseUdevProperties(out string) UdevProperties {
	var p UdevProperties
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "P: "):
			if p.DevPath == "" {
				p.DevPath = strings.TrimPrefix(line, "P: ")
			}
		case strings.HasPrefix(line, "E: "):
			kv := strings.SplitN(strings.TrimPrefix(line, "E: "), "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch kv[0] {
			case "DEVPATH":
				p.DevPath = kv[1]
			case "ID_SERIAL_SHORT":
				p.SerialShort = kv[1]
			case "ID_MODEL":
				p.Model = kv[1]
			}
		}
	}
	return p
}

// UdevadmRunner 设备管理器查询接口，测试时注入假实现
type UdevadmRunner interface {
	Query(devNode string) (string, error)
}

type execUdevadm struct{}

func (execUdevadm) Query(devNode string) (string, error) {
	out, err := exec.Command("udevadm", "info", "-q", "all", "-n", devNode).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
