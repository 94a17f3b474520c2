package channel

import (
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// Manager 创建会话并分配路径标识
type Manager struct {
	cfg Config

	mu       sync.Mutex
	nextPath types.PathID
	sessions map[types.PathID]*Session
}

// NewManager 创建会话管理器
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg.normalized(),
		nextPath: 1,
		sessions: make(map[types.PathID]*Session),
	}
}

// Config 返回通道配置
func (m *Manager) Config() Config {
	return m.cfg
}

// NewSession 在底层连接上创建会话，并分配新的路径标识
func (m *Manager) NewSession(conn io.ReadWriteCloser, isServer bool, peer types.PeerID) (*Session, error) {
	path, err := m.allocPath()
	if err != nil {
		return nil, err
	}

	s, err := NewSession(m.cfg, conn, isServer, path, peer)
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, path)
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[path] = s
	m.mu.Unlock()

	go func() {
		<-s.CloseChan()
		m.mu.Lock()
		delete(m.sessions, path)
		m.mu.Unlock()
	}()

	logger.Info("会话已建立",
		"path", path,
		"peer", peer.ShortString(),
		"server", isServer)
	return s, nil
}

// allocPath 分配一个未被占用的路径标识并预留
//
// 路径标识只有 12 位进入通道标识，超过 MaxPathID 后回绕到 1。
func (m *Manager) allocPath() (types.PathID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < MaxPathID; i++ {
		path := m.nextPath
		m.nextPath++
		if m.nextPath > MaxPathID {
			m.nextPath = 1
		}
		if _, used := m.sessions[path]; !used {
			// 先占位，会话建立后再填入
			m.sessions[path] = nil
			return path, nil
		}
	}
	return 0, ErrPathsExhausted
}

// Sessions 返回当前会话
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Close 关闭所有会话
func (m *Manager) Close() error {
	var errs error
	for _, s := range m.Sessions() {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
