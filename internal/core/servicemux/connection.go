package servicemux

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/lib/log"
	"github.com/dep2p/go-svcmux/pkg/types"
)

var logger = log.Logger("core/servicemux")

// Connection 逻辑服务连接
//
// 持有通道注册表、选择器、流多路复用器、序列缓冲区和待发队列。
// 创建后一直存在直到 Close，关闭后不可复用。
type Connection struct {
	id      string
	cfg     Config
	role    Role
	metrics *Metrics

	// 注册表互斥域：遍历、增删、轮转都在 mu 内完成
	mu       sync.Mutex
	channels []pkgif.ChannelEndpoint
	selector *selector

	mux     *StreamMultiplexer
	buffer  *SequenceBuffer
	pending *PendingQueue
	rate    *ServiceRateHandler

	// submitMu 串行化出站提交，流序号按接受顺序分配
	submitMu   sync.Mutex
	nextStream uint64

	drainMu   sync.Mutex
	deliverMu sync.Mutex

	closed  atomic.Bool
	onClose []func(*Connection)
}

// 确保实现接口
var (
	_ pkgif.ServiceEndpoint = (*Connection)(nil)
	_ pkgif.ChannelHandler  = (*Connection)(nil)
)

// ConnectionOption 连接选项
type ConnectionOption func(*Connection)

// WithMetrics 设置指标
func WithMetrics(m *Metrics) ConnectionOption {
	return func(c *Connection) {
		c.metrics = m
	}
}

// WithRand 设置随机源（random 策略使用）
func WithRand(rng *rand.Rand) ConnectionOption {
	return func(c *Connection) {
		c.selector = newSelector(c.cfg.Policy, rng)
	}
}

// WithCloseHook 连接关闭后回调
func WithCloseHook(fn func(*Connection)) ConnectionOption {
	return func(c *Connection) {
		c.onClose = append(c.onClose, fn)
	}
}

// NewConnection 创建逻辑服务连接
func NewConnection(cfg Config, role Role, opts ...ConnectionOption) *Connection {
	cfg = cfg.normalized()
	c := &Connection{
		id:      uuid.NewString(),
		cfg:     cfg,
		role:    role,
		mux:     NewStreamMultiplexer(),
		buffer:  NewSequenceBuffer(),
		pending: NewPendingQueue(),
	}
	c.selector = newSelector(cfg.Policy, nil)
	for _, opt := range opts {
		opt(c)
	}
	c.rate = NewServiceRateHandler(c, cfg.MaxBandwidth)

	logger.Debug("服务连接已创建",
		"id", c.id,
		"role", role.Name(),
		"policy", cfg.Policy.String())
	return c
}

// ID 返回逻辑连接标识
func (c *Connection) ID() string {
	return c.id
}

// IsOutgoing 是否为发起方
func (c *Connection) IsOutgoing() bool {
	return c.role.IsOutgoing()
}

// Policy 返回选择策略
func (c *Connection) Policy() Policy {
	return c.cfg.Policy
}

// IsClosed 是否已关闭
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// RateHandler 返回速率反馈钩子
func (c *Connection) RateHandler() *ServiceRateHandler {
	return c.rate
}

// ============================================================================
//                              出站
// ============================================================================

// Write 把应用数据按 MaxPayloadSize 切分后提交
//
// 实现 io.Writer；p 会被复制。队列已满时返回已接受的字节数和 ErrQueueFull。
func (c *Connection) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		end := min(written+c.cfg.MaxPayloadSize, len(p))
		chunk := make([]byte, end-written)
		copy(chunk, p[written:end])
		if err := c.Submit(types.ChannelMessage{Kind: types.KindData, Payload: chunk}); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// Submit 提交一条来自应用侧的服务消息
//
// 非数据消息视为协议违规并关闭整个逻辑连接。
// 消息被写出或缓冲时返回 nil；待发队列已满时返回 ErrQueueFull。
func (c *Connection) Submit(msg types.ChannelMessage) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if !msg.IsData() {
		reason := fmt.Sprintf("服务端返回了错误的消息类型: %s", msg.Kind)
		logger.Warn(reason, "id", c.id)
		c.metrics.incProtocolViolation()
		_ = c.Close(reason)
		return fmt.Errorf("%w: unexpected %s message", ErrProtocolViolation, msg.Kind)
	}
	if len(msg.Payload) > c.cfg.MaxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(msg.Payload), c.cfg.MaxPayloadSize)
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	// 已有积压时先尝试排空，仍有积压则排在其后，保持 FIFO
	if c.pending.Len() > 0 {
		c.drain()
	}
	item := pendingMessage{stream: c.nextStream, payload: msg.Payload}
	if err := c.route(item, c.pending.Len() == 0); err != nil {
		logger.Debug("不再接受客户端数据", "id", c.id, "err", err)
		return err
	}
	c.nextStream++
	return nil
}

// route 选择通道并写出；没有已启动的通道时缓冲到待发队列
func (c *Connection) route(item pendingMessage, direct bool) error {
	ch := c.selectChannel()
	if direct && ch != nil && ch.IsStarted() {
		err := c.writeTo(ch, item)
		if err == nil {
			return nil
		}
		// 写失败的消息已随未确认记录重新入队；队列已满时本条被丢弃
		c.drain()
		if errors.Is(err, ErrQueueFull) {
			c.metrics.incOutboundRejected()
			return err
		}
		return nil
	}

	if ch == nil {
		logger.Debug("没有可用通道，消息已缓冲", "id", c.id)
	} else if !ch.IsStarted() {
		logger.Debug("未启动通道被优先选中，消息已缓冲", "id", c.id, "channel", ch.ChannelID())
	}
	if err := c.pending.Push(item); err != nil {
		c.metrics.incOutboundRejected()
		return err
	}
	return nil
}

// selectChannel 在注册表锁内执行选择
func (c *Connection) selectChannel() pkgif.ChannelEndpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selector.selectLocked(c.channels)
}

// writeTo 分配通道内序号并写出
//
// 写失败时通道被移出注册表，其未确认消息（含本条）重新入队。
// 本条是通道上最新的一条，重新入队有丢弃时它一定在其中，此时返回 ErrQueueFull。
func (c *Connection) writeTo(ch pkgif.ChannelEndpoint, item pendingMessage) error {
	seq := c.mux.Next(ch.ChannelID(), item.stream, item.payload)
	if err := ch.WriteMessage(seq, item.payload); err != nil {
		logger.Warn("通道写入失败，移除通道",
			"id", c.id,
			"channel", ch.ChannelID(),
			"err", err)
		c.detachChannel(ch)
		if dropped := c.requeueOutstanding(ch.ChannelID()); dropped > 0 {
			return fmt.Errorf("%w: %v", ErrQueueFull, err)
		}
		return err
	}
	c.metrics.incRouted()
	logger.Debug("消息已写入通道", "channel", ch.ChannelID(), "seq", seq.String())
	return nil
}

// ChannelReady 通道就绪（接入、启动、容量释放或移除后）时排空待发队列
//
// ch 为 nil 表示由拆除触发；非 nil 但未注册的通道视为违规调用并被忽略。
func (c *Connection) ChannelReady(ch pkgif.ChannelEndpoint) {
	if ch != nil && !c.HasChannel(ch) {
		logger.Warn("未注册的通道尝试提供服务传输", "id", c.id, "channel", ch.ChannelID())
		c.metrics.incUnregistered()
		return
	}
	c.drain()
}

// drain 从队首开始依次路由，直到队列为空或一次尝试没有进展
func (c *Connection) drain() {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	for !c.closed.Load() {
		item, ok := c.pending.Peek()
		if !ok {
			return
		}
		ch := c.selectChannel()
		if ch == nil || !ch.IsStarted() {
			return
		}
		// 只有 drain 会弹出队首，drainMu 保证弹出的就是刚才看到的那条
		if _, ok := c.pending.PopFront(); !ok {
			return
		}
		_ = c.writeTo(ch, item)
	}
}

// ============================================================================
//                              入站
// ============================================================================

// HandleChannelMessage 处理物理通道上收到的消息
//
// 确认消息直接交给流多路复用器，从不缓冲；数据消息进入序列缓冲区后
// 尝试按序交付；其它类型视为协议违规并关闭逻辑连接。
func (c *Connection) HandleChannelMessage(ch pkgif.ChannelEndpoint, msg types.ChannelMessage) {
	if c.closed.Load() {
		return
	}
	if !c.HasChannel(ch) {
		logger.Warn("忽略未注册通道上的消息", "id", c.id, "channel", ch.ChannelID(), "kind", msg.Kind)
		c.metrics.incUnregistered()
		return
	}

	msg.ChannelID = ch.ChannelID()
	switch msg.Kind {
	case types.KindAck:
		if !c.mux.OnAck(msg) {
			c.metrics.incUnmatchedAck()
			return
		}
		// 容量已释放
		if c.pending.Len() > 0 {
			c.drain()
		}
	case types.KindData:
		c.writeMessageToServiceBuffer(msg)
	default:
		reason := fmt.Sprintf("通道上收到了错误的消息类型: %s", msg.Kind)
		logger.Warn(reason, "id", c.id, "channel", ch.ChannelID())
		c.metrics.incProtocolViolation()
		_ = c.Close(reason)
	}
}

// IncomingOverlayMessage 按通道标识把消息转给对应通道的处理路径
func (c *Connection) IncomingOverlayMessage(id types.ChannelID, msg types.ChannelMessage) {
	ch := c.channelByID(id)
	if ch == nil {
		logger.Warn("覆盖网络消息没有对应的通道", "id", c.id, "channel", id)
		c.metrics.incUnregistered()
		return
	}
	msg.ChannelID = id
	c.HandleChannelMessage(ch, msg)
}

func (c *Connection) writeMessageToServiceBuffer(msg types.ChannelMessage) {
	if err := c.buffer.Store(msg.Sequence.Stream, msg.Payload); err != nil {
		// 丢弃以防缓冲区溢出
		logger.Warn("入站服务消息被丢弃，超出消息缓冲区",
			"id", c.id,
			"seq", msg.Sequence.Stream,
			"next", c.buffer.Next())
		c.metrics.incInboundDropped()
		return
	}
	c.deliver()
}

// deliver 把窗口起点开始的连续消息依次交给角色
func (c *Connection) deliver() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	for !c.closed.Load() {
		payload, ok := c.buffer.PopNext()
		if !ok {
			return
		}
		if err := c.role.Deliver(payload); err != nil {
			logger.Warn("向应用层交付失败", "id", c.id, "err", err)
			_ = c.Close(fmt.Sprintf("交付失败: %v", err))
			return
		}
	}
}
