package servicemux

import (
	"math/rand/v2"
	"time"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
)

// ============================================================================
//                              通道选择器
// ============================================================================

// selector 按策略从注册表中挑选下一条出站消息的通道
//
// 所有方法都要求调用方持有注册表锁；round-robin 会原地轮转注册表。
type selector struct {
	policy Policy
	rng    *rand.Rand
}

func newSelector(policy Policy, rng *rand.Rand) *selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &selector{policy: policy, rng: rng}
}

// qualifies 通道已启动，或由本端发起
//
// 服务端不会把数据路由到尚未完成服务握手的入站通道上。
func qualifies(ch pkgif.ChannelEndpoint) bool {
	return ch.IsStarted() || ch.IsOutgoing()
}

// selectLocked 返回选中的通道，没有合格通道时返回 nil
func (s *selector) selectLocked(channels []pkgif.ChannelEndpoint) pkgif.ChannelEndpoint {
	if len(channels) == 0 {
		return nil
	}
	switch s.policy {
	case PolicyRoundRobin:
		return selectRoundRobin(channels)
	case PolicyRandom:
		return s.selectRandom(channels)
	default:
		return selectWeighted(channels)
	}
}

// selectRoundRobin 每检查一个通道就把它轮转到队尾，最多检查一整圈
func selectRoundRobin(channels []pkgif.ChannelEndpoint) pkgif.ChannelEndpoint {
	for range channels {
		ch := channels[0]
		copy(channels, channels[1:])
		channels[len(channels)-1] = ch
		if qualifies(ch) {
			return ch
		}
	}
	return nil
}

// selectRandom 按随机排列依次检查，在合格通道中均匀选取
func (s *selector) selectRandom(channels []pkgif.ChannelEndpoint) pkgif.ChannelEndpoint {
	for _, i := range s.rng.Perm(len(channels)) {
		if qualifies(channels[i]) {
			return channels[i]
		}
	}
	return nil
}

// selectWeighted 单次扫描
//
// 已启动且积压超过 ChannelBufferCap 的通道被排除；
// 已启动通道优先于未启动通道，已启动通道之间比较生命周期吞吐率；
// 没有已启动通道时退回第一个未被排除的通道（引导阶段）。
func selectWeighted(channels []pkgif.ChannelEndpoint) pkgif.ChannelEndpoint {
	var best pkgif.ChannelEndpoint
	var bestRate float64

	for _, c := range channels {
		if !qualifies(c) {
			continue
		}
		// 不让已满的路径继续贪婪占用
		if c.IsStarted() && c.Outstanding() > ChannelBufferCap {
			continue
		}
		if best == nil {
			best = c
			if c.IsStarted() {
				bestRate = throughput(c)
			}
			continue
		}
		if !c.IsStarted() {
			continue
		}
		rate := throughput(c)
		if !best.IsStarted() || rate > bestRate {
			best = c
			bestRate = rate
		}
	}
	return best
}

// throughput 生命周期吞吐率（字节/秒）
func throughput(ch pkgif.ChannelEndpoint) float64 {
	age := ch.Age()
	if age < time.Millisecond {
		age = time.Millisecond
	}
	return float64(ch.BytesOut()) / age.Seconds()
}
