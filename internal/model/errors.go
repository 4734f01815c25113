package model

import "fmt"

// ValidationError 输入格式不合法（vendor/product/友好名），对该次操作致命，不写入任何部分规则
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ResolutionFailure 拓扑查找全部失败
// 非致命：规则生成降级到 Basic 模式并告警
type ResolutionFailure struct {
	BusNumber    int
	DeviceNumber int
	Reason       string
}

func (e *ResolutionFailure) Error() string {
	return fmt.Sprintf("cannot resolve usb %d/%d: %s", e.BusNumber, e.DeviceNumber, e.Reason)
}

// SpawnFailure 推流子进程启动失败
// 只记录日志，设备留在 Absent 等下一轮 reconcile 重试，绝不让 Supervisor 崩溃
type SpawnFailure struct {
	CardID string
	Err    error
}

func (e *SpawnFailure) Error() string {
	return fmt.Sprintf("spawn stream for card %q failed: %v", e.CardID, e.Err)
}

func (e *SpawnFailure) Unwrap() error { return e.Err }

// EnumerationGap 某块声卡无法归类
// 以 unmapped 形式上报，绝不静默丢弃
type EnumerationGap struct {
	CardNumber int
	Reason     string
}

func (e *EnumerationGap) Error() string {
	return fmt.Sprintf("card %d unclassified: %s", e.CardNumber, e.Reason)
}
