package svcmux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-svcmux/internal/core/servicemux"
	"github.com/dep2p/go-svcmux/internal/core/servicemux/channel"
	"github.com/dep2p/go-svcmux/pkg/lib/log"
	"github.com/dep2p/go-svcmux/pkg/types"
)

var logger = log.Logger("svcmux")

// Host 用户交互的主入口：创建逻辑连接、建立会话、把通道接入连接
type Host struct {
	app     *fx.App
	factory *servicemux.Factory
	manager *channel.Manager

	mu      sync.Mutex
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建 Host 但不启动
func New(opts ...Option) (*Host, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	h := &Host{}
	app, err := buildFxApp(o, h)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	h.app = app
	return h, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Host, error) {
	h, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := h.Start(ctx); err != nil {
		return nil, fmt.Errorf("start host: %w", err)
	}
	return h, nil
}

// Start 启动 Fx 应用
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	if h.started {
		return ErrAlreadyStarted
	}
	if err := h.app.Start(ctx); err != nil {
		return err
	}
	h.started = true
	logger.Info("svcmux 已启动", "version", Version)
	return nil
}

// Close 关闭所有逻辑连接和会话
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if !h.started {
		return nil
	}
	return h.app.Stop(ctx)
}

func (h *Host) running() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.closed:
		return ErrHostClosed
	case !h.started:
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              逻辑连接
// ════════════════════════════════════════════════════════════════════════════

// NewClientConnection 创建发起方逻辑连接，入站数据写入 w
func (h *Host) NewClientConnection(w io.Writer) *servicemux.Connection {
	return h.factory.NewClientConnection(w)
}

// NewServerConnection 创建接受方逻辑连接，入站数据写入 w
func (h *Host) NewServerConnection(w io.Writer) *servicemux.Connection {
	return h.factory.NewServerConnection(w)
}

// Connections 返回仍在使用的逻辑连接
func (h *Host) Connections() []*servicemux.Connection {
	return h.factory.Connections()
}

// ════════════════════════════════════════════════════════════════════════════
//                              会话
// ════════════════════════════════════════════════════════════════════════════

// Dial 拨号并建立客户端会话（一条新路径）
func (h *Host) Dial(ctx context.Context, addr string, peer types.PeerID) (*channel.Session, error) {
	if err := h.running(); err != nil {
		return nil, err
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	s, err := h.manager.NewSession(conn, false, peer)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Accept 在已接受的底层连接上建立服务端会话
func (h *Host) Accept(conn net.Conn, peer types.PeerID) (*channel.Session, error) {
	if err := h.running(); err != nil {
		return nil, err
	}
	return h.manager.NewSession(conn, true, peer)
}

// Attach 在会话上打开一条通道并接入逻辑连接
func (h *Host) Attach(ctx context.Context, conn *servicemux.Connection, s *channel.Session) error {
	ch, err := s.OpenChannel(ctx, conn)
	if err != nil {
		return err
	}
	return attachAndStart(conn, ch)
}

// Serve 持续接受会话上的通道并接入逻辑连接，直到会话关闭
func (h *Host) Serve(conn *servicemux.Connection, s *channel.Session) error {
	for {
		ch, err := s.AcceptChannel(conn)
		if err != nil {
			if s.IsClosed() || errors.Is(err, channel.ErrSessionClosed) {
				return nil
			}
			return err
		}
		if err := attachAndStart(conn, ch); err != nil {
			logger.Warn("通道接入失败", "channel", ch.ChannelID(), "err", err)
		}
	}
}

func attachAndStart(conn *servicemux.Connection, ch *channel.Channel) error {
	if err := conn.AddChannel(ch); err != nil {
		_ = ch.Close("接入失败")
		return err
	}
	if err := ch.Start(); err != nil {
		conn.RemoveChannel(ch)
		return err
	}
	return nil
}
