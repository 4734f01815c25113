package supervisor

import (
	"sync"
	"time"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"go.uber.org/zap"
)

// Supervisor 维持 在位采集设备 与 推流子进程 的 1:1 映射
// Reconcile 全程持锁：外部触发（热插拔、定时重扫、启动扫描）再多，两轮也绝不并发
type Supervisor struct {
	mu           sync.Mutex
	runner       ProcRunner
	procs        map[string]*entry // CardID -> 在管进程
	stagger      time.Duration     // 相邻 spawn 之间的固定间隔，开机一堆设备同时出现时错峰
	stopGrace    time.Duration
	shutdownOnce sync.Once
	sleep        func(time.Duration) // 测试替身
}

type entry struct {
	dev    model.CaptureDevice
	proc   model.StreamProcess
	handle ProcHandle
}

func New(runner ProcRunner, stagger, stopGrace time.Duration) *Supervisor {
	return &Supervisor{
		runner:    runner,
		procs:     make(map[string]*entry),
		stagger:   stagger,
		stopGrace: stopGrace,
		sleep:     time.Sleep,
	}
}

// Reconcile 比对期望态（当前设备集）和实际态（在管进程），做最小启停
// 幂等：设备集不变时什么都不发生
// 单个设备的失败只记日志，绝不中断其它设备的处理
func (s *Supervisor) Reconcile(devices []model.CaptureDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 先收尸：上一轮之后自己死掉的进程摘掉，本轮当新设备重启
	for id, e := range s.procs {
		if !e.handle.Alive() {
			e.proc.State = model.StateDead
			sysutil.Log.Warn("💀 stream process died",
				zap.String("card", id),
				zap.Int("pid", e.proc.PID))
			delete(s.procs, id)
		}
	}

	present := make(map[string]model.CaptureDevice, len(devices))
	for _, d := range devices {
		present[d.CardID] = d
	}

	// 设备消失 -> 只点杀它自己的进程
	for id, e := range s.procs {
		if _, ok := present[id]; ok {
			continue
		}
		e.proc.State = model.StateStopping
		sysutil.Log.Info("❌ device gone, stopping its stream",
			zap.String("card", id),
			zap.Int("pid", e.proc.PID),
			zap.String("endpoint", e.proc.EndpointURL))
		e.handle.Terminate(s.stopGrace)
		delete(s.procs, id)
	}

	// 新设备 -> 错峰拉起；已在管且端点没变的原样放过，不重启
	started := 0
	for _, d := range devices {
		if e, ok := s.procs[d.CardID]; ok {
			if e.proc.EndpointURL == d.EndpointURL {
				continue
			}
			// 解析出的端点变了（比如规则生效后改了名），老进程推错地方，重启
			sysutil.Log.Info("endpoint changed, restarting stream",
				zap.String("card", d.CardID),
				zap.String("old", e.proc.EndpointURL),
				zap.String("new", d.EndpointURL))
			e.handle.Terminate(s.stopGrace)
			delete(s.procs, d.CardID)
		}
		if started > 0 {
			s.sleep(s.stagger)
		}
		s.startLocked(d)
		started++
	}
}

// startLocked 调用方必须已持锁
// spawn 失败记日志后设备留在 Absent，下一轮重试（外层进程管理器自己限频）
func (s *Supervisor) startLocked(d model.CaptureDevice) {
	sysutil.Log.Info("🎙️ starting stream",
		zap.String("card", d.CardID),
		zap.Int("card_number", d.CardNumber),
		zap.String("endpoint", d.EndpointURL))

	handle, err := s.runner.Spawn(d)
	if err != nil {
		sysutil.Log.Error("spawn failed, will retry next pass", zap.Error(err))
		return
	}
	s.procs[d.CardID] = &entry{
		dev: d,
		proc: model.StreamProcess{
			CardID:      d.CardID,
			PID:         handle.PID(),
			EndpointURL: d.EndpointURL,
			StartedAt:   time.Now(),
			State:       model.StateRunning,
		},
		handle: handle,
	}
	sysutil.Log.Info("✅ stream running",
		zap.String("card", d.CardID),
		zap.Int("pid", handle.PID()))
}

// Shutdown 全量关停，只允许跑一次：第二个信号进来是空操作
// 这是唯一允许"见一个杀一个"全灭的路径
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sysutil.Log.Info("shutting down all streams", zap.Int("count", len(s.procs)))
		for id, e := range s.procs {
			e.proc.State = model.StateStopping
			e.handle.Terminate(s.stopGrace)
			delete(s.procs, id)
		}
	})
}

// StreamReport 状态接口的只读视图
type StreamReport struct {
	CardNumber   int       `json:"card_number"`
	CardID       string    `json:"card_id"`
	Description  string    `json:"description"`
	USBInfo      string    `json:"usb_info,omitempty"`
	CaptureIndex int       `json:"capture_index"`
	EndpointURL  string    `json:"endpoint_url"`
	PID          int       `json:"pid"`
	State        string    `json:"state"`
	StartedAt    time.Time `json:"started_at"`
}

// Snapshot 持锁拷贝一份当前在管流的报表
func (s *Supervisor) Snapshot() []StreamReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StreamReport, 0, len(s.procs))
	for _, e := range s.procs {
		out = append(out, StreamReport{
			CardNumber:   e.dev.CardNumber,
			CardID:       e.dev.CardID,
			Description:  e.dev.Description,
			USBInfo:      e.dev.USBInfo,
			CaptureIndex: e.dev.CaptureIndex,
			EndpointURL:  e.proc.EndpointURL,
			PID:          e.proc.PID,
			State:        e.proc.State.String(),
			StartedAt:    e.proc.StartedAt,
		})
	}
	return out
}
