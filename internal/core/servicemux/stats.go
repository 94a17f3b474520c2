package servicemux

import (
	"fmt"
	"time"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// ============================================================================
//                              聚合统计
// ============================================================================

// BytesIn 所有通道入站字节之和
func (c *Connection) BytesIn() int64 {
	var total int64
	for _, ch := range c.snapshot() {
		total += ch.BytesIn()
	}
	return total
}

// BytesOut 所有通道出站字节之和
func (c *Connection) BytesOut() int64 {
	var total int64
	for _, ch := range c.snapshot() {
		total += ch.BytesOut()
	}
	return total
}

// Age 最老通道的存活时间
func (c *Connection) Age() time.Duration {
	var age time.Duration
	for _, ch := range c.snapshot() {
		age = max(age, ch.Age())
	}
	return age
}

// LastMessageTime 所有通道中最近一次收发消息的时间
func (c *Connection) LastMessageTime() time.Time {
	var last time.Time
	for _, ch := range c.snapshot() {
		if t := ch.LastMessageTime(); t.After(last) {
			last = t
		}
	}
	return last
}

// IsLANLocal 任一通道位于局域网
func (c *Connection) IsLANLocal() bool {
	for _, ch := range c.snapshot() {
		if ch.IsLANLocal() {
			return true
		}
	}
	return false
}

// IsTimedOut 全部通道都已超时；没有通道时返回 false
func (c *Connection) IsTimedOut() bool {
	channels := c.snapshot()
	if len(channels) == 0 {
		return false
	}
	for _, ch := range channels {
		if !ch.IsTimedOut() {
			return false
		}
	}
	return true
}

// UploadRate 上传速率之和（字节/秒）
func (c *Connection) UploadRate() int64 {
	var total int64
	for _, ch := range c.snapshot() {
		total += ch.UploadRate()
	}
	return total
}

// DownloadRate 下载速率之和（字节/秒）
func (c *Connection) DownloadRate() int64 {
	var total int64
	for _, ch := range c.snapshot() {
		total += ch.DownloadRate()
	}
	return total
}

// ChannelIDs 注册表中的通道标识
func (c *Connection) ChannelIDs() []types.ChannelID {
	channels := c.snapshot()
	ids := make([]types.ChannelID, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ChannelID())
	}
	return ids
}

// PathIDs 注册表中的路径标识
func (c *Connection) PathIDs() []types.PathID {
	channels := c.snapshot()
	ids := make([]types.PathID, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.PathID())
	}
	return ids
}

// RemotePeer 第一个已启动通道的远端；没有时返回空
func (c *Connection) RemotePeer() types.PeerID {
	for _, ch := range c.snapshot() {
		if ch.IsStarted() {
			return ch.RemotePeer()
		}
	}
	return types.EmptyPeerID
}

// RemoteAddr 第一个已启动通道的远端地址；没有时返回空
func (c *Connection) RemoteAddr() string {
	for _, ch := range c.snapshot() {
		if ch.IsStarted() {
			return ch.RemoteAddr()
		}
	}
	return ""
}

// ChannelCount 注册的通道数
func (c *Connection) ChannelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// PendingLen 待发队列长度
func (c *Connection) PendingLen() int {
	return c.pending.Len()
}

// Unacked 所有通道上已写出但未确认的消息条数
func (c *Connection) Unacked() int {
	total := 0
	for _, id := range c.ChannelIDs() {
		total += c.mux.OutstandingCount(id)
	}
	return total
}

// Description 人类可读描述
func (c *Connection) Description() string {
	channels := c.snapshot()
	if len(channels) == 0 {
		return "svcmux via: none."
	}
	return fmt.Sprintf("svcmux via: %s and %d others.", channels[0].Description(), len(channels)-1)
}

// Stats 连接统计快照
type Stats struct {
	ID           string
	Role         string
	Channels     int
	Pending      int
	BytesIn      int64
	BytesOut     int64
	UploadRate   int64
	DownloadRate int64
	Age          time.Duration
	Closed       bool
}

// Stats 返回统计快照
func (c *Connection) Stats() Stats {
	return Stats{
		ID:           c.id,
		Role:         c.role.Name(),
		Channels:     c.ChannelCount(),
		Pending:      c.PendingLen(),
		BytesIn:      c.BytesIn(),
		BytesOut:     c.BytesOut(),
		UploadRate:   c.UploadRate(),
		DownloadRate: c.DownloadRate(),
		Age:          c.Age(),
		Closed:       c.IsClosed(),
	}
}
