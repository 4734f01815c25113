package model

// UsbDevice USB 设备的瞬时快照
// 每次枚举都会重新发现，总线/设备号在重新插拔后会被内核重新分配，因此绝不持久化
type UsbDevice struct {
	BusNumber    int
	DeviceNumber int
	VendorID     string // 4 位十六进制, e.g. "0d8c"
	ProductID    string // 4 位十六进制
	Serial       string // 可选，很多廉价声卡没有
	ProductName  string // 可选
}

// PortIdentity 从 USB 拓扑推导出的持久标识
// PortPath 单独并不保证唯一（解析器降级到 bus/dev 兜底时），(PortPath, Token) 组合才是持久键
type PortIdentity struct {
	PortPath string // 物理端口路径, e.g. "3-1.4"
	Token    string // 唯一性令牌：序列号前 8 位，或 8 位十六进制哈希
}

// String 调试用的完整标识, e.g. "3-1.4-1a2b3c4d"
func (p PortIdentity) String() string {
	return p.PortPath + "-" + p.Token
}

// CaptureDevice 一块当前在位的采集声卡
// 每轮 reconcile 重新计算，不持久化
type CaptureDevice struct {
	CardNumber   int
	CardID       string // /proc/asound/cards 中方括号里的短 ID
	Description  string
	USBInfo      string // 可选，"at usb-..." 尾部信息
	CaptureIndex int    // 采集子设备索引, pcm<i>c
	StreamName   string // CardID 小写去非字母数字
	EndpointURL  string // rtsp://host:port/<StreamName>
	Unmapped     bool   // 无法归类但仍然上报，绝不静默丢弃
}
