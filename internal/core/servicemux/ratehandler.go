package servicemux

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
)

// AvailableBytes 可立即写出的字节数
//
// 对每个已启动或由本端发起的通道累加 max(0, ChannelBufferCap - 未确认字节)。
func (c *Connection) AvailableBytes() int {
	total := 0
	for _, ch := range c.snapshot() {
		if !qualifies(ch) {
			continue
		}
		total += max(0, ChannelBufferCap-int(ch.Outstanding()))
	}
	return total
}

// ServiceRateHandler 入站读取的速率反馈
//
// 应用侧每次读取前查询 CurrentNumBytesAllowed，读取后回报 BytesProcessed。
type ServiceRateHandler struct {
	conn *Connection

	mu      sync.Mutex
	limiter *rate.Limiter
	now     func() time.Time
}

var _ pkgif.RateHandler = (*ServiceRateHandler)(nil)

// NewServiceRateHandler 创建速率反馈；maxBandwidth > 0 时附加令牌桶限速
func NewServiceRateHandler(conn *Connection, maxBandwidth int64) *ServiceRateHandler {
	h := &ServiceRateHandler{conn: conn, now: time.Now}
	if maxBandwidth > 0 {
		burst := max(int(maxBandwidth), ChannelBufferCap)
		h.limiter = rate.NewLimiter(rate.Limit(maxBandwidth), burst)
	}
	return h
}

// CurrentNumBytesAllowed 当前允许读取的字节数，不会为负
func (h *ServiceRateHandler) CurrentNumBytesAllowed() int {
	allowed := h.conn.AvailableBytes()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.limiter != nil {
		tokens := int(h.limiter.TokensAt(h.now()))
		allowed = min(allowed, max(0, tokens))
	}
	return allowed
}

// BytesProcessed 回报已读取的字节数
func (h *ServiceRateHandler) BytesProcessed(n int) {
	if n <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.limiter != nil {
		// 预约可使令牌变为负数，之后的允许量归零直到补足
		h.limiter.ReserveN(h.now(), n)
	}
}
