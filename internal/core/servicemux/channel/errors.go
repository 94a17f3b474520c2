package channel

import "errors"

var (
	// ErrChannelClosed 通道已关闭
	ErrChannelClosed = errors.New("channel closed")

	// ErrChannelReset 对端重置了通道
	ErrChannelReset = errors.New("channel reset by peer")

	// ErrFrameTooLarge 帧负载超过上限
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrNotStarted 通道尚未完成握手
	ErrNotStarted = errors.New("channel not started")

	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")

	// ErrPathsExhausted 没有空闲的路径标识
	ErrPathsExhausted = errors.New("path ids exhausted")

	// ErrInvalidPath 路径标识超出范围
	ErrInvalidPath = errors.New("invalid path id")

	// ErrAlreadyStarted 重复调用 Start
	ErrAlreadyStarted = errors.New("channel already started")
)
