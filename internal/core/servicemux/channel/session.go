package channel

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/yamux"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/types"
)

// ============================================================================
//                              会话
// ============================================================================

// Session 一条到好友的底层连接（一条路径），以 yamux 承载多条通道
type Session struct {
	cfg      Config
	session  *yamux.Session
	path     types.PathID
	peer     types.PeerID
	isServer bool
	closed   atomic.Bool

	mu       sync.Mutex
	channels map[types.ChannelID]*Channel
}

// NewSession 在底层连接上创建 yamux 会话
func NewSession(cfg Config, conn io.ReadWriteCloser, isServer bool, path types.PathID, peer types.PeerID) (*Session, error) {
	if conn == nil {
		return nil, fmt.Errorf("连接不能为 nil")
	}
	if path == 0 || path > MaxPathID {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPath, path)
	}
	cfg = cfg.normalized()

	var (
		session *yamux.Session
		err     error
	)
	if isServer {
		session, err = yamux.Server(conn, cfg.yamuxConfig())
	} else {
		session, err = yamux.Client(conn, cfg.yamuxConfig())
	}
	if err != nil {
		return nil, fmt.Errorf("创建 yamux session 失败: %w", err)
	}

	return &Session{
		cfg:      cfg,
		session:  session,
		path:     path,
		peer:     peer,
		isServer: isServer,
		channels: make(map[types.ChannelID]*Channel),
	}, nil
}

// OpenChannel 打开一条发起方通道
//
// 返回的通道尚未启动：调用方先把它接入逻辑连接，再调用 Start。
func (s *Session) OpenChannel(ctx context.Context, handler pkgif.ChannelHandler) (*Channel, error) {
	if s.IsClosed() {
		return nil, ErrSessionClosed
	}

	// yamux 的 OpenStream 不支持 context
	type result struct {
		stream *yamux.Stream
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		st, err := s.session.OpenStream()
		resultCh <- result{stream: st, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			// 关闭孤立的流
			if r := <-resultCh; r.stream != nil {
				_ = r.stream.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-resultCh:
		if r.err != nil {
			return nil, fmt.Errorf("创建流失败: %w", r.err)
		}
		return s.wrap(r.stream, true, handler), nil
	}
}

// AcceptChannel 接受一条对端打开的通道，同样需要调用方 Start
func (s *Session) AcceptChannel(handler pkgif.ChannelHandler) (*Channel, error) {
	if s.IsClosed() {
		return nil, ErrSessionClosed
	}
	st, err := s.session.AcceptStream()
	if err != nil {
		return nil, fmt.Errorf("接受流失败: %w", err)
	}
	return s.wrap(st, false, handler), nil
}

func (s *Session) wrap(st *yamux.Stream, outgoing bool, handler pkgif.ChannelHandler) *Channel {
	info := Info{
		ID:         channelID(s.path, st.StreamID()),
		Path:       s.path,
		Peer:       s.peer,
		RemoteAddr: addrString(s.session.RemoteAddr()),
		Outgoing:   outgoing,
	}
	ch := New(s.cfg, st, info, &sessionHandler{ChannelHandler: handler, s: s})

	s.mu.Lock()
	s.channels[info.ID] = ch
	s.mu.Unlock()

	logger.Debug("通道已创建",
		"channel", info.ID,
		"path", s.path,
		"stream", st.StreamID(),
		"outgoing", outgoing)
	return ch
}

// MaxPathID 通道标识中路径部分能容纳的最大值
const MaxPathID = 1<<12 - 1

// channelID 路径标识占高 12 位，yamux 流标识占低 20 位
//
// 同一逻辑连接的多条路径各自从 1 开始分配流标识，组合后在连接内唯一。
func channelID(path types.PathID, stream uint32) types.ChannelID {
	return types.ChannelID(uint32(path)<<20 | stream&0xFFFFF)
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// sessionHandler 通道关闭时把它从会话中移除
type sessionHandler struct {
	pkgif.ChannelHandler
	s *Session
}

func (h *sessionHandler) ChannelClosed(ch pkgif.ChannelEndpoint, err error) {
	h.s.mu.Lock()
	delete(h.s.channels, ch.ChannelID())
	h.s.mu.Unlock()
	h.ChannelHandler.ChannelClosed(ch, err)
}

// PathID 会话的路径标识
func (s *Session) PathID() types.PathID {
	return s.path
}

// RemotePeer 远端节点
func (s *Session) RemotePeer() types.PeerID {
	return s.peer
}

// IsServer 是否为 yamux 服务端
func (s *Session) IsServer() bool {
	return s.isServer
}

// NumChannels 当前打开的通道数
func (s *Session) NumChannels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// IsClosed 会话是否已关闭
func (s *Session) IsClosed() bool {
	return s.closed.Load() || s.session.IsClosed()
}

// CloseChan 会话关闭时关闭
func (s *Session) CloseChan() <-chan struct{} {
	return s.session.CloseChan()
}

// Close 关闭全部通道和 yamux 会话
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	channels := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	var errs error
	for _, ch := range channels {
		errs = multierr.Append(errs, ignoreClosed(ch.Close("会话关闭")))
	}
	errs = multierr.Append(errs, s.session.Close())
	return errs
}
