package servicemux

import "sync"

// ============================================================================
//                              待发队列
// ============================================================================

// pendingMessage 等待路由的出站消息
type pendingMessage struct {
	// stream 提交时分配的流序号，重排入队时保持不变
	stream  uint64
	payload []byte
}

// PendingQueue 无可用通道时的有界 FIFO 出站积压
//
// 容量与序列缓冲区相同，满后拒绝新消息。
type PendingQueue struct {
	mu    sync.Mutex
	items []pendingMessage
	cap   int
}

// NewPendingQueue 创建待发队列
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{cap: ServiceMsgBufferSize}
}

// Push 追加到队尾，队列已满时返回 ErrQueueFull
func (q *PendingQueue) Push(m pendingMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.cap {
		return ErrQueueFull
	}
	q.items = append(q.items, m)
	return nil
}

// PushAll 按顺序追加，返回因队列已满而丢弃的条数
func (q *PendingQueue) PushAll(ms []pendingMessage) (dropped int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	room := q.cap - len(q.items)
	if room < len(ms) {
		dropped = len(ms) - room
		ms = ms[:room]
	}
	q.items = append(q.items, ms...)
	return dropped
}

// Peek 返回队首但不移除
func (q *PendingQueue) Peek() (pendingMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return pendingMessage{}, false
	}
	return q.items[0], true
}

// PopFront 移除并返回队首
func (q *PendingQueue) PopFront() (pendingMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return pendingMessage{}, false
	}
	m := q.items[0]
	q.items[0] = pendingMessage{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return m, true
}

// Len 返回当前长度
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap 返回容量
func (q *PendingQueue) Cap() int {
	return q.cap
}

// Clear 清空队列，返回被清除的条数
func (q *PendingQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}
