package types

import "fmt"

// ============================================================================
//                              Sequence - 序列号
// ============================================================================

// Sequence 一条服务消息的序列号
type Sequence struct {
	// Stream 逻辑连接内的全局序号，接收端按它重排
	Stream uint64

	// Channel 通道内序号，由流多路复用器分配，确认时回传
	Channel uint64
}

// String 返回 "stream/channel" 形式
func (s Sequence) String() string {
	return fmt.Sprintf("%d/%d", s.Stream, s.Channel)
}

// ============================================================================
//                              ChannelMessage - 通道消息
// ============================================================================

// ChannelMessage 在物理通道上收发的一条消息
type ChannelMessage struct {
	Kind      MessageKind
	ChannelID ChannelID
	Sequence  Sequence
	Payload   []byte
}

// IsAck 是否为确认消息
func (m ChannelMessage) IsAck() bool {
	return m.Kind == KindAck
}

// IsData 是否为数据消息
func (m ChannelMessage) IsData() bool {
	return m.Kind == KindData
}

// Size 返回负载字节数
func (m ChannelMessage) Size() int {
	return len(m.Payload)
}
