//go:build linux

package supervisor

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/Hara602/micStreamer/internal/model"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"golang.org/x/sys/unix"
)

// FFmpegRunner 用 ffmpeg 把 ALSA 采集推成 RTSP
type FFmpegRunner struct {
	Bin string // e.g. "ffmpeg"
}

func NewFFmpegRunner(bin string) *FFmpegRunner {
	return &FFmpegRunner{Bin: bin}
}

func (r *FFmpegRunner) Spawn(dev model.CaptureDevice) (ProcHandle, error) {
	alsaDev := fmt.Sprintf("plughw:%d,%d", dev.CardNumber, dev.CaptureIndex)
	cmd := exec.Command(r.Bin,
		"-nostdin",
		"-hide_banner",
		"-f", "alsa",
		"-i", alsaDev,
		"-acodec", "aac",
		"-f", "rtsp",
		dev.EndpointURL,
	)
	if err := cmd.Start(); err != nil {
		return nil, &model.SpawnFailure{CardID: dev.CardID, Err: err}
	}

	h := &ffmpegHandle{cmd: cmd, done: make(chan struct{})}
	// 收尸 goroutine：进程一退出就关 done，下一轮 reconcile 据此判活
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

type ffmpegHandle struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func (h *ffmpegHandle) PID() int { return h.cmd.Process.Pid }

func (h *ffmpegHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *ffmpegHandle) Terminate(grace time.Duration) {
	pid := h.cmd.Process.Pid
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		// 进程早没了也算终止完成
		return
	}
	select {
	case <-h.done:
	case <-time.After(grace):
		sysutil.LogSugar.Warnf("pid %d ignored SIGTERM, escalating to SIGKILL", pid)
		_ = unix.Kill(pid, unix.SIGKILL)
		<-h.done
	}
}
