package supervisor

import (
	"time"

	"github.com/Hara602/micStreamer/internal/model"
)

// ProcRunner 推流子进程的启动器，测试时注入假实现
type ProcRunner interface {
	Spawn(dev model.CaptureDevice) (ProcHandle, error)
}

// ProcHandle Supervisor 独占持有的进程句柄
// 杀进程只通过句柄点杀，绝不按名字批量 pkill——部分设备变化时不能误伤别的流
type ProcHandle interface {
	PID() int
	Alive() bool
	// Terminate 先 SIGTERM，宽限期内没退出再 SIGKILL，阻塞到进程收尸完成
	Terminate(grace time.Duration)
}
