package svcmux

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 尚未启动
	ErrNotStarted = errors.New("host not started")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("host already started")

	// ErrHostClosed 已关闭
	ErrHostClosed = errors.New("host closed")
)
