package servicemux

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/types"
)

// ============================================================================
//                              通道生命周期
// ============================================================================

// AddChannel 把物理通道接入逻辑连接，由角色完成协议相关的接入流程
func (c *Connection) AddChannel(ch pkgif.ChannelEndpoint) error {
	if ch == nil {
		return ErrNilChannel
	}
	if err := c.role.Attach(c, ch); err != nil {
		return fmt.Errorf("attach channel %s: %w", ch.ChannelID(), err)
	}
	return nil
}

// Register 把通道加入注册表
//
// 同一通道（同一对象或同一 ChannelID）不会被重复加入。
func (c *Connection) Register(ch pkgif.ChannelEndpoint) error {
	if ch == nil {
		return ErrNilChannel
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	for _, existing := range c.channels {
		if existing == ch || existing.ChannelID() == ch.ChannelID() {
			return fmt.Errorf("%w: %s", ErrDuplicateChannel, ch.ChannelID())
		}
	}
	c.channels = append(c.channels, ch)
	c.metrics.addChannels(1)

	logger.Debug("通道已加入服务连接",
		"id", c.id,
		"channel", ch.ChannelID(),
		"started", ch.IsStarted(),
		"outgoing", ch.IsOutgoing())
	return nil
}

// RemoveChannel 把通道移出注册表
//
// 通道上未确认的消息按发送顺序重新入队，然后尝试在剩余通道上排空。
func (c *Connection) RemoveChannel(ch pkgif.ChannelEndpoint) {
	if ch == nil {
		return
	}
	if !c.detachChannel(ch) {
		return
	}
	c.requeueOutstanding(ch.ChannelID())
	c.ChannelReady(nil)
}

// detachChannel 从注册表移除，返回通道此前是否在注册表中
func (c *Connection) detachChannel(ch pkgif.ChannelEndpoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.channels {
		if existing == ch {
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			c.metrics.addChannels(-1)
			logger.Debug("通道已移出服务连接", "id", c.id, "channel", ch.ChannelID())
			return true
		}
	}
	return false
}

// requeueOutstanding 把通道上未确认的消息放回待发队列，返回因队列已满被丢弃的条数
//
// 队列只截断尾部，被丢弃的总是最新发出的那几条。
func (c *Connection) requeueOutstanding(id types.ChannelID) int {
	msgs := c.mux.DrainOutstanding(id)
	c.mux.RemoveChannel(id)
	if len(msgs) == 0 || c.closed.Load() {
		return 0
	}
	dropped := c.pending.PushAll(msgs)
	c.metrics.addRequeued(len(msgs)-dropped, dropped)
	if dropped > 0 {
		logger.Warn("重新入队时待发队列已满，部分消息被丢弃",
			"id", c.id,
			"channel", id,
			"dropped", dropped)
	}
	logger.Debug("未确认消息已重新入队", "id", c.id, "channel", id, "count", len(msgs)-dropped)
	return dropped
}

// ChannelClosed 物理通道关闭时的回调
func (c *Connection) ChannelClosed(ch pkgif.ChannelEndpoint, err error) {
	if err != nil {
		logger.Debug("通道已关闭", "id", c.id, "channel", ch.ChannelID(), "err", err)
	}
	c.RemoveChannel(ch)
}

// HasChannel 通道是否在注册表中
func (c *Connection) HasChannel(ch pkgif.ChannelEndpoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.channels {
		if existing == ch {
			return true
		}
	}
	return false
}

func (c *Connection) channelByID(id types.ChannelID) pkgif.ChannelEndpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.channels {
		if ch.ChannelID() == id {
			return ch
		}
	}
	return nil
}

// snapshot 返回注册表的副本
func (c *Connection) snapshot() []pkgif.ChannelEndpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]pkgif.ChannelEndpoint, len(c.channels))
	copy(out, c.channels)
	return out
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭逻辑连接和全部物理通道
//
// 幂等；之后聚合查询返回零值，Submit 返回 ErrConnectionClosed。
func (c *Connection) Close(reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	channels := c.channels
	c.channels = nil
	c.mu.Unlock()
	c.metrics.addChannels(-len(channels))

	var errs error
	for _, ch := range channels {
		c.mux.RemoveChannel(ch.ChannelID())
		errs = multierr.Append(errs, ch.Close(reason))
	}
	c.buffer.Reset()
	dropped := c.pending.Clear()

	logger.Info("服务连接已关闭",
		"id", c.id,
		"reason", reason,
		"channels", len(channels),
		"droppedPending", dropped)

	for _, fn := range c.onClose {
		fn(c)
	}
	return errs
}

// CloseChannelReset 以重置方式关闭全部通道（远端会收到重置帧）
//
// 全部通道先移出注册表并把未确认消息重新入队，再发送重置，
// 最后排空一次，重新入队的消息不会落到即将重置的通道上。
func (c *Connection) CloseChannelReset() error {
	channels := c.snapshot()
	for _, ch := range channels {
		if c.detachChannel(ch) {
			c.requeueOutstanding(ch.ChannelID())
		}
	}

	var errs error
	for _, ch := range channels {
		if err := ch.CloseReset(); err != nil && !errors.Is(err, ErrConnectionClosed) {
			errs = multierr.Append(errs, err)
		}
	}
	c.ChannelReady(nil)
	return errs
}

// CloseConnectionClosed 底层好友连接断开时关闭经由该对等节点的通道
//
// peer 为空表示关闭全部通道。返回关闭的通道数。
func (c *Connection) CloseConnectionClosed(peer types.PeerID, reason string) (int, error) {
	var (
		closed int
		errs   error
	)
	for _, ch := range c.snapshot() {
		if !peer.IsEmpty() && ch.RemotePeer() != peer {
			continue
		}
		closed++
		if err := ch.Close(reason); err != nil && !errors.Is(err, ErrConnectionClosed) {
			errs = multierr.Append(errs, err)
		}
		c.RemoveChannel(ch)
	}
	logger.Info("好友连接断开，相关通道已关闭",
		"id", c.id,
		"peer", peer.ShortString(),
		"closed", closed,
		"remaining", c.ChannelCount())
	return closed, errs
}
