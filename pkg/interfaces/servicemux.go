package interfaces

import (
	"io"
	"time"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// ServiceEndpoint 定义逻辑服务连接对应用暴露的端点视图
//
// 所有统计都由当前注册的物理通道聚合而来，没有独立状态；
// 通道注册表为空时返回零值而不是报错。
type ServiceEndpoint interface {
	io.Writer

	// ID 返回逻辑连接标识
	ID() string

	// IsOutgoing 是否为发起方
	IsOutgoing() bool

	// BytesIn 各通道接收字节数之和
	BytesIn() int64

	// BytesOut 各通道发送字节数之和
	BytesOut() int64

	// Age 各通道存活时长的最大值
	Age() time.Duration

	// LastMessageTime 各通道最近消息时间的最大值
	LastMessageTime() time.Time

	// IsLANLocal 任一通道在局域网内
	IsLANLocal() bool

	// IsTimedOut 所有通道均已超时
	IsTimedOut() bool

	// UploadRate 上行速率之和
	UploadRate() int64

	// DownloadRate 下行速率之和
	DownloadRate() int64

	// ChannelIDs 返回全部通道标识
	ChannelIDs() []types.ChannelID

	// PathIDs 返回全部路径标识
	PathIDs() []types.PathID

	// RemotePeer 返回第一个已启动通道的远端节点
	RemotePeer() types.PeerID

	// RemoteAddr 返回第一个已启动通道的远端地址
	RemoteAddr() string

	// Description 返回可读描述
	Description() string

	// Close 关闭逻辑连接
	Close(reason string) error
}

// RateHandler 速率反馈钩子
//
// 上游按 CurrentNumBytesAllowed 的返回值决定还能接收多少服务数据。
type RateHandler interface {
	// CurrentNumBytesAllowed 当前允许接收的字节数，永不为负
	CurrentNumBytesAllowed() int

	// BytesProcessed 报告已处理的字节数
	BytesProcessed(n int)
}
