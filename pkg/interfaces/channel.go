package interfaces

import (
	"time"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// ChannelEndpoint 定义一条到好友节点的物理通道
//
// 通道在对端链路建立后由外部创建，通过 AddChannel 交给逻辑连接；
// 关闭、重置或所属的好友连接断开时从注册表移除。
type ChannelEndpoint interface {
	// ChannelID 返回通道标识
	ChannelID() types.ChannelID

	// PathID 返回路径标识
	PathID() types.PathID

	// RemotePeer 返回远端好友节点
	RemotePeer() types.PeerID

	// RemoteAddr 返回远端网络地址
	RemoteAddr() string

	// IsStarted 服务握手是否已完成
	IsStarted() bool

	// IsOutgoing 是否由本端发起
	IsOutgoing() bool

	// IsLANLocal 远端是否在局域网内
	IsLANLocal() bool

	// IsTimedOut 通道是否已超时
	IsTimedOut() bool

	// Age 返回通道存活时长
	Age() time.Duration

	// LastMessageTime 返回最近一次收发消息的时间
	LastMessageTime() time.Time

	// BytesIn 累计接收字节数
	BytesIn() int64

	// BytesOut 累计发送字节数
	BytesOut() int64

	// Outstanding 已写出但尚未确认的字节数
	Outstanding() int64

	// UploadRate 上行速率（字节/秒）
	UploadRate() int64

	// DownloadRate 下行速率（字节/秒）
	DownloadRate() int64

	// WriteMessage 以给定序列号写出一条数据消息
	WriteMessage(seq types.Sequence, payload []byte) error

	// Close 以给定原因关闭通道
	Close(reason string) error

	// CloseReset 重置通道
	CloseReset() error

	// Description 返回可读描述
	Description() string
}

// ChannelHandler 接收物理通道上的事件
//
// 由逻辑服务连接实现，物理通道在读循环中回调。
type ChannelHandler interface {
	// HandleChannelMessage 处理通道上收到的数据或确认消息
	HandleChannelMessage(ch ChannelEndpoint, msg types.ChannelMessage)

	// ChannelReady 通道已可写（握手完成或容量释放）
	ChannelReady(ch ChannelEndpoint)

	// ChannelClosed 通道已关闭
	ChannelClosed(ch ChannelEndpoint, err error)
}
