//go:build windows

package watcher

type winWatcher struct{}

func newWatcher() HotplugWatcher { return &winWatcher{} }

func (w *winWatcher) Start() (<-chan struct{}, error) { return nil, nil }

func (w *winWatcher) Stop() {}
