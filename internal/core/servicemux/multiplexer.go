package servicemux

import (
	"sync"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// ============================================================================
//                              流多路复用器
// ============================================================================

// outstandingMessage 已发出但尚未确认的消息
type outstandingMessage struct {
	seq     types.Sequence
	payload []byte
}

// channelStream 单个通道的发送状态
type channelStream struct {
	next        uint64
	outstanding []outstandingMessage
}

// StreamMultiplexer 为跨多个通道发送的消息分配通道内序号，
// 并按通道记录未确认的消息
type StreamMultiplexer struct {
	mu      sync.Mutex
	streams map[types.ChannelID]*channelStream
}

// NewStreamMultiplexer 创建流多路复用器
func NewStreamMultiplexer() *StreamMultiplexer {
	return &StreamMultiplexer{
		streams: make(map[types.ChannelID]*channelStream),
	}
}

// Next 为通道分配下一个通道内序号，并把消息记为未确认
func (m *StreamMultiplexer) Next(ch types.ChannelID, stream uint64, payload []byte) types.Sequence {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[ch]
	if !ok {
		s = &channelStream{}
		m.streams[ch] = s
	}
	seq := types.Sequence{Stream: stream, Channel: s.next}
	s.next++
	s.outstanding = append(s.outstanding, outstandingMessage{seq: seq, payload: payload})
	return seq
}

// OnAck 移除确认消息对应的一条未确认记录
//
// 找不到匹配记录时记录日志并返回 false，不视为错误。
func (m *StreamMultiplexer) OnAck(msg types.ChannelMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[msg.ChannelID]
	if ok {
		for i, o := range s.outstanding {
			if o.seq.Channel != msg.Sequence.Channel {
				continue
			}
			s.outstanding = append(s.outstanding[:i], s.outstanding[i+1:]...)
			return true
		}
	}

	logger.Warn("确认消息没有匹配的未确认记录",
		"channel", msg.ChannelID,
		"seq", msg.Sequence.String())
	return false
}

// HasOutstanding 通道上是否还有未确认消息
func (m *StreamMultiplexer) HasOutstanding(ch types.ChannelID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[ch]
	return ok && len(s.outstanding) > 0
}

// OutstandingCount 通道上未确认消息条数
func (m *StreamMultiplexer) OutstandingCount(ch types.ChannelID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.streams[ch]; ok {
		return len(s.outstanding)
	}
	return 0
}

// DrainOutstanding 按发送顺序返回并清空通道上的未确认消息
func (m *StreamMultiplexer) DrainOutstanding(ch types.ChannelID) []pendingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[ch]
	if !ok || len(s.outstanding) == 0 {
		return nil
	}
	out := make([]pendingMessage, 0, len(s.outstanding))
	for _, o := range s.outstanding {
		out = append(out, pendingMessage{stream: o.seq.Stream, payload: o.payload})
	}
	s.outstanding = nil
	return out
}

// RemoveChannel 丢弃通道的全部发送状态
func (m *StreamMultiplexer) RemoveChannel(ch types.ChannelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, ch)
}
