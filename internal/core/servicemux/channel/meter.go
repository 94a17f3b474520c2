package channel

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
//                              流量计量器
// ============================================================================

// EWMA 参数
const (
	// alpha 平滑因子，越大对新数据越敏感
	alpha = 0.25

	// tickInterval 速率更新间隔
	tickInterval = time.Second
)

// meter 使用指数加权移动平均计算实时速率
type meter struct {
	clk clock.Clock

	mu       sync.Mutex
	total    int64
	window   int64
	rate     float64
	lastTick time.Time
}

func newMeter(clk clock.Clock) *meter {
	return &meter{clk: clk, lastTick: clk.Now()}
}

// Mark 记录字节数
func (m *meter) Mark(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += int64(n)
	m.window += int64(n)
	m.tickLocked()
}

// Rate 当前速率（字节/秒）
func (m *meter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickLocked()
	return m.rate
}

// Total 累计字节数
func (m *meter) Total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// tickLocked 经过足够时间后把窗口内的字节折算进速率
func (m *meter) tickLocked() {
	now := m.clk.Now()
	elapsed := now.Sub(m.lastTick)
	if elapsed < tickInterval {
		return
	}

	instant := float64(m.window) / elapsed.Seconds()
	if m.rate == 0 {
		m.rate = instant
	} else {
		m.rate = alpha*instant + (1-alpha)*m.rate
	}
	m.window = 0
	m.lastTick = now
}
