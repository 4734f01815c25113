//go:build linux

package usbtopo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/sysutil"
)

// Resolver 把易变的 bus/dev 编号解析为持久的物理端口标识
// 查找链按置信度从高到低，第一个成功的为准
type Resolver struct {
	// 可注入，测试用假 sysfs 树
	devicesDir string // 默认 /sys/bus/usb/devices
	charDir    string // 默认 /sys/dev/char
	udevadm    UdevadmRunner
	now        func() int64 // 高精度时间戳，token 兜底哈希用
}

func NewResolver() *Resolver {
	return &Resolver{
		devicesDir: "/sys/bus/usb/devices",
		charDir:    "/sys/dev/char",
		udevadm:    execUdevadm{},
		now:        nanotime,
	}
}

// usbCharMajor USB 字符设备主设备号固定为 189，次设备号 = (bus-1)*128 + dev-1
const usbCharMajor = 189

// ResolvePort 解析链（见各 step 日志）:
//  1. 拓扑节点的 devpath 属性
//  2. 同节点的 serial / product 属性（与 step 1 独立）
//  3. 节点不存在时线性扫描全部拓扑节点，按 busnum/devnum 匹配
//  4. 节点路径尾部的 <bus>-<port>[.<port>]* 片段；失败则取含连字符的叶子目录名
//  5. udevadm 查询 DEVPATH / ID_SERIAL_SHORT / ID_MODEL
//  6. 全部失败时合成 usb-bus<N>-port<M>
//
// 仅在 bus/dev 编号本身缺失时返回 ResolutionFailure
func (r *Resolver) ResolvePort(bus, dev int) (model.PortIdentity, error) {
	if bus <= 0 || dev <= 0 {
		return model.PortIdentity{}, &model.ResolutionFailure{
			BusNumber: bus, DeviceNumber: dev, Reason: "bus/device number absent",
		}
	}

	var portPath, serial, product string

	nodePath := r.canonicalNode(bus, dev)
	if nodePath != "" {
		// step 1: devpath 属性直接给出端口路径
		if dp := readAttr(nodePath, "devpath"); dp != "" {
			if strings.Contains(dp, "-") {
				portPath = dp
			} else {
				// 内核的 devpath 不含总线号，补上
				portPath = fmt.Sprintf("%d-%s", bus, dp)
			}
			sysutil.LogSugar.Debugf("port via devpath attr: %s (confidence: high)", portPath)
		}
		// step 2: serial/product 与 step 1 无关，能读就读
		serial = readAttr(nodePath, "serial")
		product = readAttr(nodePath, "product")
	} else {
		// step 3: 直接节点不存在，扫描全部拓扑节点比对 busnum/devnum
		nodePath, serial, product = r.scanTopology(bus, dev)
		if nodePath != "" {
			sysutil.LogSugar.Debugf("node via topology scan: %s (confidence: medium)", nodePath)
		}
	}

	// step 4: 从节点路径里抠出端口片段
	if portPath == "" && nodePath != "" {
		if frag, ok := extractPortFragment(nodePath); ok {
			portPath = frag
			sysutil.LogSugar.Debugf("port via path fragment: %s (confidence: medium)", portPath)
		} else if leaf := filepath.Base(nodePath); strings.Contains(leaf, "-") {
			portPath = leaf
			sysutil.LogSugar.Debugf("port via leaf dir name: %s (confidence: low)", portPath)
		}
	}

	// step 5: udevadm 兜底
	if portPath == "" || serial == "" || product == "" {
		props, err := r.queryUdevadm(bus, dev)
		if err == nil {
			if serial == "" {
				serial = props.SerialShort
			}
			if product == "" {
				product = props.Model
			}
			if portPath == "" && props.DevPath != "" {
				if frag, ok := extractPortFragment(props.DevPath); ok {
					portPath = frag
					sysutil.LogSugar.Debugf("port via udevadm devpath: %s (confidence: medium)", portPath)
				}
			}
		}
	}

	// step 6: 彻底失败拿 bus/dev 合成一个
	// 编号重插会变，这个兜底形式只保证当下可用，token 负责区分
	if portPath == "" {
		portPath = fmt.Sprintf("usb-bus%d-port%d", bus, dev)
		sysutil.LogSugar.Warnf("topology unresolved, synthesized port: %s (confidence: none)", portPath)
	}

	return model.PortIdentity{
		PortPath: portPath,
		Token:    r.uniquenessToken(bus, dev, serial, product),
	}, nil
}

// canonicalNode 通过 /sys/dev/char/189:<minor> 符号链接定位设备节点，不存在返回空
func (r *Resolver) canonicalNode(bus, dev int) string {
	minor := (bus-1)*128 + dev - 1
	link := filepath.Join(r.charDir, fmt.Sprintf("%d:%d", usbCharMajor, minor))
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return ""
	}
	return resolved
}

// scanTopology 遍历 devicesDir 下所有节点，找 busnum/devnum 都匹配的那个
// 顺路把 serial/product 也带出来
func (r *Resolver) scanTopology(bus, dev int) (nodePath, serial, product string) {
	entries, err := os.ReadDir(r.devicesDir)
	if err != nil {
		return "", "", ""
	}
	for _, e := range entries {
		p := filepath.Join(r.devicesDir, e.Name())
		if readAttrInt(p, "busnum") != bus || readAttrInt(p, "devnum") != dev {
			continue
		}
		return p, readAttr(p, "serial"), readAttr(p, "product")
	}
	return "", "", ""
}

func (r *Resolver) queryUdevadm(bus, dev int) (UdevProperties, error) {
	devNode := fmt.Sprintf("/dev/bus/usb/%03d/%03d", bus, dev)
	out, err := r.udevadm.Query(devNode)
	if err != nil {
		return UdevProperties{}, err
	}
	return ParseUdevProperties(out), nil
}

func readAttr(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func readAttrInt(dir, name string) int {
	v := readAttr(dir, name)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
