package types

import "strconv"

// ============================================================================
//                              PeerID - 好友节点标识
// ============================================================================

// PeerID 远端好友节点标识
//
// 身份与信任管理不在本层处理，这里只把它当作不透明字符串。
type PeerID string

// EmptyPeerID 空节点ID
const EmptyPeerID PeerID = ""

// String 返回字符串表示
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回前 8 个字符，用于日志
func (id PeerID) ShortString() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// IsEmpty 检查是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// ============================================================================
//                              ChannelID / PathID
// ============================================================================

// ChannelID 物理通道标识
//
// 在一个逻辑服务连接内唯一。
type ChannelID uint32

// String 返回十进制表示
func (id ChannelID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// PathID 路径标识
//
// 同一条底层会话（例如一个 yamux session）上的通道共享同一个 PathID。
type PathID uint32

// String 返回十进制表示
func (id PathID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
