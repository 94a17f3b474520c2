package servicemux

import "strings"

// Policy 通道选择策略
type Policy int

const (
	// PolicyWeighted 加权（默认）：优先已启动且吞吐最高的通道，排除积压过多的通道
	PolicyWeighted Policy = iota
	// PolicyRoundRobin 轮询
	PolicyRoundRobin
	// PolicyRandom 随机
	PolicyRandom
)

// ParsePolicy 解析策略字符串
//
// "roundrobin" 与 "random" 之外的任何值都视为 weighted。
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roundrobin":
		return PolicyRoundRobin
	case "random":
		return PolicyRandom
	default:
		return PolicyWeighted
	}
}

// String 返回策略名
func (p Policy) String() string {
	switch p {
	case PolicyRoundRobin:
		return "roundrobin"
	case PolicyRandom:
		return "random"
	default:
		return "weighted"
	}
}
