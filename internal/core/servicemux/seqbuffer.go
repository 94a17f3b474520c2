package servicemux

import (
	"fmt"
	"sync"
)

// ============================================================================
//                              序列缓冲区
// ============================================================================

type seqSlot struct {
	seq     uint64
	payload []byte
	full    bool
}

// SequenceBuffer 固定容量的入站消息环形缓冲
//
// 槽位为 seq mod ServiceMsgBufferSize，只接受落在
// [next, next+ServiceMsgBufferSize) 窗口内的序号，窗口外的消息被拒绝，
// 永远不会覆盖无关槽位，也不会增长。
type SequenceBuffer struct {
	mu    sync.Mutex
	slots [ServiceMsgBufferSize]seqSlot
	next  uint64
	count int
}

// NewSequenceBuffer 创建序列缓冲区
func NewSequenceBuffer() *SequenceBuffer {
	return &SequenceBuffer{}
}

// Store 把消息放入 seq 对应的槽位
//
// 窗口内的同一序号重复到达时替换原负载。
func (b *SequenceBuffer) Store(seq uint64, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq < b.next || seq >= b.next+ServiceMsgBufferSize {
		return fmt.Errorf("%w: seq=%d window=[%d,%d)", ErrBufferOverflow, seq, b.next, b.next+ServiceMsgBufferSize)
	}
	slot := &b.slots[seq&(ServiceMsgBufferSize-1)]
	if !slot.full {
		b.count++
	}
	*slot = seqSlot{seq: seq, payload: payload, full: true}
	return nil
}

// PopNext 取出窗口起点的消息并推进窗口
func (b *SequenceBuffer) PopNext() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot := &b.slots[b.next&(ServiceMsgBufferSize-1)]
	if !slot.full || slot.seq != b.next {
		return nil, false
	}
	payload := slot.payload
	*slot = seqSlot{}
	b.count--
	b.next++
	return payload, true
}

// Next 返回下一个期望的序号（窗口起点）
func (b *SequenceBuffer) Next() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// Len 返回已缓冲的消息条数
func (b *SequenceBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Reset 释放全部槽位，窗口起点保持不变
func (b *SequenceBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots = [ServiceMsgBufferSize]seqSlot{}
	b.count = 0
}
