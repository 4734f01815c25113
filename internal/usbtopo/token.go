//go:build linux

package usbtopo

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

func nanotime() int64 { return time.Now().UnixNano() }

// uniquenessToken 区分端口路径撞车的两台物理设备
// 优先序列号前 8 位；无序列号时哈希 (bus, dev, product, 纳秒时间戳) 取 8 位十六进制
// 时间戳保证两台同型号无序列号的设备也拿到不同 token
func (r *Resolver) uniquenessToken(bus, dev int, serial, product string) string {
	if serial != "" {
		if len(serial) > 8 {
			return serial[:8]
		}
		return serial
	}
	sum := sha1.Sum([]byte(fmt.Sprintf("%d:%d:%s:%d", bus, dev, product, r.now())))
	return hex.EncodeToString(sum[:])[:8]
}
