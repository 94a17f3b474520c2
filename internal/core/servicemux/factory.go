package servicemux

import (
	"io"
	"math/rand/v2"
	"sync"

	"go.uber.org/multierr"
)

// Factory 创建并跟踪逻辑服务连接
type Factory struct {
	cfg     Config
	metrics *Metrics

	// rng 仅测试注入
	rng *rand.Rand

	mu    sync.Mutex
	conns map[string]*Connection
}

// NewFactory 创建工厂，metrics 可为 nil
func NewFactory(cfg Config, metrics *Metrics) *Factory {
	return &Factory{
		cfg:     cfg.normalized(),
		metrics: metrics,
		conns:   make(map[string]*Connection),
	}
}

// Config 返回工厂使用的连接配置
func (f *Factory) Config() Config {
	return f.cfg
}

// NewClientConnection 创建发起方逻辑连接，入站负载写入 w
func (f *Factory) NewClientConnection(w io.Writer) *Connection {
	return f.newConnection(NewClientRole(w))
}

// NewServerConnection 创建接受方逻辑连接，入站负载写入 w
func (f *Factory) NewServerConnection(w io.Writer) *Connection {
	return f.newConnection(NewServerRole(w))
}

func (f *Factory) newConnection(role Role) *Connection {
	opts := []ConnectionOption{
		WithMetrics(f.metrics),
		WithCloseHook(f.forget),
	}
	if f.rng != nil {
		opts = append(opts, WithRand(f.rng))
	}
	c := NewConnection(f.cfg, role, opts...)

	f.mu.Lock()
	f.conns[c.ID()] = c
	f.mu.Unlock()
	return c
}

func (f *Factory) forget(c *Connection) {
	f.mu.Lock()
	delete(f.conns, c.ID())
	f.mu.Unlock()
}

// Connections 返回仍在使用的逻辑连接
func (f *Factory) Connections() []*Connection {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*Connection, 0, len(f.conns))
	for _, c := range f.conns {
		out = append(out, c)
	}
	return out
}

// Close 关闭所有逻辑连接
func (f *Factory) Close() error {
	var errs error
	for _, c := range f.Connections() {
		errs = multierr.Append(errs, c.Close("服务关闭"))
	}
	return errs
}
