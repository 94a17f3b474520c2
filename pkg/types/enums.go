package types

// ============================================================================
//                              MessageKind - 消息类型
// ============================================================================

// MessageKind 通道消息类型
type MessageKind uint8

const (
	// KindUnknown 未知类型
	KindUnknown MessageKind = iota
	// KindData 服务数据
	KindData
	// KindAck 数据确认
	KindAck
	// KindSetup 通道握手
	KindSetup
	// KindReset 通道重置
	KindReset
)

// String 返回消息类型的字符串表示
func (k MessageKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindAck:
		return "ack"
	case KindSetup:
		return "setup"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// IsValid 检查是否为已知类型
func (k MessageKind) IsValid() bool {
	return k >= KindData && k <= KindReset
}

// ============================================================================
//                              Direction - 通道方向
// ============================================================================

// Direction 通道方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站（对端发起）
	DirInbound
	// DirOutbound 出站（本端发起）
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}
