//go:build linux

package watcher

import (
	"time"

	"github.com/Hara602/micStreamer/internal/sysutil"
	"github.com/pilebones/go-udev/netlink"
)

// debounceWindow 一次插拔会连发多条 uevent（card/pcm/control 各一串），窗口期内合并成一次触发
const debounceWindow = 500 * time.Millisecond

type linuxWatcher struct {
	triggers chan struct{}
	stop     chan struct{}
}

func newWatcher() HotplugWatcher {
	return &linuxWatcher{
		triggers: make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

func (w *linuxWatcher) Start() (<-chan struct{}, error) {
	// 监听 UDEV 事件,连接 NETLINK_KOBJECT_UEVENT
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}

	queue := make(chan netlink.UEvent)
	errChan := make(chan error)
	quit := conn.Monitor(queue, errChan, nil)

	go func() {
		defer conn.Close()

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-w.stop:
				close(quit)
				return

			case <-errChan:
				// 忽略底层网络错误，继续尝试
				continue

			case uevent := <-queue:
				if !isSoundEvent(uevent) {
					continue
				}
				sysutil.LogSugar.Debugf("sound uevent: %s %s", uevent.Action, uevent.Env["DEVPATH"])
				// 重置去抖窗口
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
					timerC = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounceWindow)
				}

			case <-timerC:
				timer = nil
				timerC = nil
				// 通道已有未消费的触发就不重复塞
				select {
				case w.triggers <- struct{}{}:
				default:
				}
			}
		}
	}()
	return w.triggers, nil
}

// isSoundEvent 只关心 sound 子系统的 add/remove
func isSoundEvent(uevent netlink.UEvent) bool {
	if uevent.Env["SUBSYSTEM"] != "sound" {
		return false
	}
	return uevent.Action == "add" || uevent.Action == "remove"
}

func (w *linuxWatcher) Stop() {
	close(w.stop)
}
