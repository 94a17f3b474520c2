package servicemux

import (
	"io"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
)

// Role 逻辑服务连接的角色
//
// 通道接入和向应用层交付数据是协议相关的，由角色实现；
// 多路复用核心只负责选择、缓冲和生命周期。
type Role interface {
	// Name 返回角色名
	Name() string

	// IsOutgoing 是否为发起方
	IsOutgoing() bool

	// Attach 完成协议相关的通道接入，通常调用 Connection.Register
	Attach(c *Connection, ch pkgif.ChannelEndpoint) error

	// Deliver 把一条按序就绪的负载交给应用层
	Deliver(payload []byte) error
}

// ClientRole 发起方：本端主动打开的通道接入后立即可用
type ClientRole struct {
	w io.Writer
}

// NewClientRole 创建发起方角色，负载写入 w
func NewClientRole(w io.Writer) *ClientRole {
	return &ClientRole{w: w}
}

// Name 返回角色名
func (r *ClientRole) Name() string { return "client" }

// IsOutgoing 发起方
func (r *ClientRole) IsOutgoing() bool { return true }

// Attach 注册通道并立即尝试排空待发队列
func (r *ClientRole) Attach(c *Connection, ch pkgif.ChannelEndpoint) error {
	if err := c.Register(ch); err != nil {
		return err
	}
	c.ChannelReady(ch)
	return nil
}

// Deliver 写入应用
func (r *ClientRole) Deliver(payload []byte) error {
	_, err := r.w.Write(payload)
	return err
}

// ServerRole 接受方：对端打开的通道完成服务握手后才参与路由
type ServerRole struct {
	w io.Writer
}

// NewServerRole 创建接受方角色，负载写入 w
func NewServerRole(w io.Writer) *ServerRole {
	return &ServerRole{w: w}
}

// Name 返回角色名
func (r *ServerRole) Name() string { return "server" }

// IsOutgoing 接受方
func (r *ServerRole) IsOutgoing() bool { return false }

// Attach 注册通道；尚未启动的通道在启动时通过 ChannelReady 通知
func (r *ServerRole) Attach(c *Connection, ch pkgif.ChannelEndpoint) error {
	if err := c.Register(ch); err != nil {
		return err
	}
	if ch.IsStarted() {
		c.ChannelReady(ch)
	}
	return nil
}

// Deliver 写入被共享的服务
func (r *ServerRole) Deliver(payload []byte) error {
	_, err := r.w.Write(payload)
	return err
}

var (
	_ Role = (*ClientRole)(nil)
	_ Role = (*ServerRole)(nil)
)
