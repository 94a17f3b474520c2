package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-svcmux/internal/util/addrutil"
	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/lib/log"
	"github.com/dep2p/go-svcmux/pkg/types"
)

var logger = log.Logger("core/servicemux/channel")

// controlQueueSize 确认帧队列长度
const controlQueueSize = 1024

// Info 通道的静态描述
type Info struct {
	ID         types.ChannelID
	Path       types.PathID
	Peer       types.PeerID
	RemoteAddr string
	Outgoing   bool
}

// Channel 一条物理通道
//
// 读循环在独立 goroutine 中运行并回调 handler；确认帧通过控制队列
// 异步写出，读循环只在握手回复时同步写。
type Channel struct {
	cfg     Config
	info    Info
	rwc     io.ReadWriteCloser
	handler pkgif.ChannelHandler

	writeMu sync.Mutex
	control chan frame

	running   atomic.Bool
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	createdAt time.Time
	lastMsg   atomic.Int64

	// 已写出但未确认：通道内序号 -> 负载长度
	pendingMu   sync.Mutex
	pending     map[uint64]int
	outstanding atomic.Int64

	upload   *meter
	download *meter
}

// 确保实现接口
var _ pkgif.ChannelEndpoint = (*Channel)(nil)

// New 在任意 io.ReadWriteCloser 上创建通道，调用 Start 后才开始收发
func New(cfg Config, rwc io.ReadWriteCloser, info Info, handler pkgif.ChannelHandler) *Channel {
	cfg = cfg.normalized()
	now := cfg.Clock.Now()
	c := &Channel{
		cfg:       cfg,
		info:      info,
		rwc:       rwc,
		handler:   handler,
		control:   make(chan frame, controlQueueSize),
		done:      make(chan struct{}),
		createdAt: now,
		pending:   make(map[uint64]int),
		upload:    newMeter(cfg.Clock),
		download:  newMeter(cfg.Clock),
	}
	c.lastMsg.Store(now.UnixNano())
	return c
}

// Start 启动读循环；发起方同时发送 setup 帧
func (c *Channel) Start() error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	go c.controlLoop()
	go c.readLoop()

	if c.info.Outgoing {
		if err := c.writeFrame(frame{kind: types.KindSetup, channel: c.info.ID}); err != nil {
			c.closeWith(fmt.Errorf("send setup: %w", err))
			return err
		}
	}
	return nil
}

// ============================================================================
//                              写
// ============================================================================

// WriteMessage 写出一条数据消息，并记为未确认直到对端确认
//
// 写失败时关闭底层流，由读循环完成关闭回调。
func (c *Channel) WriteMessage(seq types.Sequence, payload []byte) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if !c.started.Load() {
		return ErrNotStarted
	}
	if len(payload) > c.cfg.MaxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), c.cfg.MaxFrameSize)
	}

	c.pendingMu.Lock()
	c.pending[seq.Channel] = len(payload)
	c.pendingMu.Unlock()
	c.outstanding.Add(int64(len(payload)))

	err := c.writeFrame(frame{kind: types.KindData, channel: c.info.ID, seq: seq, payload: payload})
	if err != nil {
		c.release(seq.Channel)
		_ = c.rwc.Close()
		return fmt.Errorf("write channel %s: %w", c.info.ID, err)
	}

	c.upload.Mark(len(payload))
	c.touch()
	return nil
}

func (c *Channel) writeFrame(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if d, ok := c.rwc.(interface{ SetWriteDeadline(time.Time) error }); ok && c.cfg.WriteTimeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		defer d.SetWriteDeadline(time.Time{})
	}
	return writeFrame(c.rwc, f)
}

// sendControl 排队一个控制帧
func (c *Channel) sendControl(f frame) {
	select {
	case c.control <- f:
	case <-c.done:
	}
}

func (c *Channel) controlLoop() {
	for {
		select {
		case f := <-c.control:
			if err := c.writeFrame(f); err != nil {
				logger.Debug("控制帧写入失败", "channel", c.info.ID, "kind", f.kind, "err", err)
				_ = c.rwc.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// ============================================================================
//                              读
// ============================================================================

func (c *Channel) readLoop() {
	r := bufio.NewReader(c.rwc)
	for {
		f, err := readFrame(r, c.cfg.MaxFrameSize)
		if err != nil {
			if c.closed.Load() || errors.Is(err, io.EOF) {
				c.closeWith(nil)
			} else {
				c.closeWith(err)
			}
			return
		}
		c.touch()

		switch f.kind {
		case types.KindSetup:
			c.handleSetup()
		case types.KindReset:
			logger.Debug("对端重置通道", "channel", c.info.ID)
			c.closeWith(ErrChannelReset)
			return
		case types.KindAck:
			c.release(f.seq.Channel)
			c.handler.HandleChannelMessage(c, c.message(f))
		case types.KindData:
			if !c.started.Load() {
				c.closeWith(fmt.Errorf("%w: data before setup", ErrNotStarted))
				return
			}
			c.download.Mark(len(f.payload))
			c.sendControl(frame{kind: types.KindAck, channel: c.info.ID, seq: f.seq})
			c.handler.HandleChannelMessage(c, c.message(f))
		default:
			// 由逻辑连接判定为协议违规
			c.handler.HandleChannelMessage(c, c.message(f))
		}
	}
}

// handleSetup 只在读循环中调用
//
// 接受方先同步写出回复再标记启动，保证对端收到的第一帧是握手回复。
func (c *Channel) handleSetup() {
	if c.started.Load() {
		return
	}
	if !c.info.Outgoing {
		if err := c.writeFrame(frame{kind: types.KindSetup, channel: c.info.ID}); err != nil {
			c.closeWith(fmt.Errorf("reply setup: %w", err))
			return
		}
	}
	c.started.Store(true)
	logger.Debug("通道已启动",
		"channel", c.info.ID,
		"path", c.info.Path,
		"outgoing", c.info.Outgoing)
	c.handler.ChannelReady(c)
}

func (c *Channel) message(f frame) types.ChannelMessage {
	return types.ChannelMessage{
		Kind:      f.kind,
		ChannelID: c.info.ID,
		Sequence:  f.seq,
		Payload:   f.payload,
	}
}

// release 确认到达或写失败时释放未确认字节
func (c *Channel) release(chanSeq uint64) {
	c.pendingMu.Lock()
	n, ok := c.pending[chanSeq]
	delete(c.pending, chanSeq)
	c.pendingMu.Unlock()
	if ok {
		c.outstanding.Add(-int64(n))
	}
}

func (c *Channel) touch() {
	c.lastMsg.Store(c.cfg.Clock.Now().UnixNano())
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭通道
func (c *Channel) Close(reason string) error {
	if c.closed.Load() {
		return nil
	}
	logger.Debug("关闭通道", "channel", c.info.ID, "reason", reason)
	return c.closeWith(nil)
}

// CloseReset 通知对端重置后关闭通道
func (c *Channel) CloseReset() error {
	if c.closed.Load() {
		return nil
	}
	if err := c.writeFrame(frame{kind: types.KindReset, channel: c.info.ID}); err != nil {
		logger.Debug("重置帧写入失败", "channel", c.info.ID, "err", err)
	}
	return c.closeWith(ErrChannelReset)
}

// closeWith 只执行一次：关闭底层流并通知 handler
func (c *Channel) closeWith(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.rwc.Close()
		c.handler.ChannelClosed(c, cause)
	})
	return err
}

// Done 通道关闭后关闭的 channel
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// ============================================================================
//                              查询
// ============================================================================

func (c *Channel) ChannelID() types.ChannelID { return c.info.ID }
func (c *Channel) PathID() types.PathID       { return c.info.Path }
func (c *Channel) RemotePeer() types.PeerID   { return c.info.Peer }
func (c *Channel) RemoteAddr() string         { return c.info.RemoteAddr }
func (c *Channel) IsOutgoing() bool           { return c.info.Outgoing }
func (c *Channel) IsStarted() bool            { return c.started.Load() && !c.closed.Load() }
func (c *Channel) IsClosed() bool             { return c.closed.Load() }
func (c *Channel) BytesIn() int64             { return c.download.Total() }
func (c *Channel) BytesOut() int64            { return c.upload.Total() }
func (c *Channel) Outstanding() int64         { return c.outstanding.Load() }
func (c *Channel) UploadRate() int64          { return int64(c.upload.Rate()) }
func (c *Channel) DownloadRate() int64        { return int64(c.download.Rate()) }

// IsLANLocal 远端地址是否位于局域网
func (c *Channel) IsLANLocal() bool {
	return addrutil.IsLANAddr(c.info.RemoteAddr)
}

// Age 通道存活时间
func (c *Channel) Age() time.Duration {
	return c.cfg.Clock.Since(c.createdAt)
}

// LastMessageTime 最近一次收发帧的时间
func (c *Channel) LastMessageTime() time.Time {
	return time.Unix(0, c.lastMsg.Load())
}

// IsTimedOut 超过 IdleTimeout 没有任何收发
func (c *Channel) IsTimedOut() bool {
	if c.cfg.IdleTimeout <= 0 {
		return false
	}
	return c.cfg.Clock.Since(c.LastMessageTime()) > c.cfg.IdleTimeout
}

// Description 人类可读描述
func (c *Channel) Description() string {
	dir := "in"
	if c.info.Outgoing {
		dir = "out"
	}
	return fmt.Sprintf("%s/%s(%s,%s)", c.info.Peer.ShortString(), c.info.ID, c.info.RemoteAddr, dir)
}
