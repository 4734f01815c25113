package watcher

// HotplugWatcher 声卡热插拔监听
// 不传设备详情，只发去抖后的"该重扫了"信号，设备集由 Enumerator 重新枚举
type HotplugWatcher interface {
	Start() (<-chan struct{}, error)
	Stop()
}

func New() HotplugWatcher {
	return newWatcher()
}
