package servicemux

import "errors"

var (
	// ErrQueueFull 待发队列已满（背压）
	ErrQueueFull = errors.New("pending outbound queue full")

	// ErrBufferOverflow 入站序号超出序列缓冲窗口
	ErrBufferOverflow = errors.New("sequence outside buffer window")

	// ErrConnectionClosed 逻辑连接已关闭
	ErrConnectionClosed = errors.New("service connection closed")

	// ErrDuplicateChannel 通道已注册
	ErrDuplicateChannel = errors.New("channel already registered")

	// ErrProtocolViolation 收到了不应出现的消息类型
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrPayloadTooLarge 负载超过上限
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrNilChannel 通道为 nil
	ErrNilChannel = errors.New("channel is nil")
)
