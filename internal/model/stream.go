package model

import "time"

// StreamState 单个设备流的状态机: Absent -> Starting -> Running -> Stopping -> Absent
type StreamState int

const (
	StateAbsent StreamState = iota
	StateStarting
	StateRunning
	StateStopping
	StateDead
)

func (s StreamState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// StreamProcess 由 Supervisor 独占持有的推流子进程记录
// 每个在位采集设备最多一个；设备消失或 Supervisor 关停时销毁
type StreamProcess struct {
	CardID      string
	PID         int
	EndpointURL string
	StartedAt   time.Time
	State       StreamState
}
