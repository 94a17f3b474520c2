package servicemux

import (
	"fmt"
	"sync"
	"time"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/types"
)

// ============================================================================
//                              测试用通道
// ============================================================================

// WrittenMessage FakeChannel 记录的一次写入
type WrittenMessage struct {
	Seq     types.Sequence
	Payload []byte
}

// FakeChannel 可编程的内存通道端点，用于测试
type FakeChannel struct {
	mu sync.Mutex

	ID       types.ChannelID
	Path     types.PathID
	Peer     types.PeerID
	Addr     string
	Started  bool
	Outgoing bool
	LAN      bool
	TimedOut bool
	AgeValue time.Duration
	LastMsg  time.Time
	In       int64
	Out      int64
	Pending  int64
	Up       int64
	Down     int64

	// WriteErr 非 nil 时 WriteMessage 返回该错误
	WriteErr error

	writes      []WrittenMessage
	closed      bool
	reset       bool
	closeReason string
}

var _ pkgif.ChannelEndpoint = (*FakeChannel)(nil)

// NewFakeChannel 创建已启动的出站测试通道
func NewFakeChannel(id types.ChannelID) *FakeChannel {
	return &FakeChannel{
		ID:       id,
		Path:     types.PathID(id),
		Peer:     types.PeerID(fmt.Sprintf("peer-%d", id)),
		Started:  true,
		Outgoing: true,
	}
}

func (f *FakeChannel) ChannelID() types.ChannelID { return f.ID }
func (f *FakeChannel) PathID() types.PathID       { return f.Path }
func (f *FakeChannel) RemotePeer() types.PeerID   { return f.Peer }
func (f *FakeChannel) RemoteAddr() string         { return f.Addr }

func (f *FakeChannel) IsStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Started
}

// SetStarted 修改启动状态
func (f *FakeChannel) SetStarted(v bool) {
	f.mu.Lock()
	f.Started = v
	f.mu.Unlock()
}

func (f *FakeChannel) IsOutgoing() bool           { return f.Outgoing }
func (f *FakeChannel) IsLANLocal() bool           { return f.LAN }
func (f *FakeChannel) IsTimedOut() bool           { return f.TimedOut }
func (f *FakeChannel) Age() time.Duration         { return f.AgeValue }
func (f *FakeChannel) LastMessageTime() time.Time { return f.LastMsg }
func (f *FakeChannel) BytesIn() int64             { return f.In }
func (f *FakeChannel) UploadRate() int64          { return f.Up }
func (f *FakeChannel) DownloadRate() int64        { return f.Down }
func (f *FakeChannel) Description() string        { return f.Peer.ShortString() }

func (f *FakeChannel) BytesOut() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Out
}

func (f *FakeChannel) Outstanding() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pending
}

// SetOutstanding 设置未确认字节数
func (f *FakeChannel) SetOutstanding(n int64) {
	f.mu.Lock()
	f.Pending = n
	f.mu.Unlock()
}

// SetWriteErr 设置写入错误
func (f *FakeChannel) SetWriteErr(err error) {
	f.mu.Lock()
	f.WriteErr = err
	f.mu.Unlock()
}

// WriteMessage 记录写入
func (f *FakeChannel) WriteMessage(seq types.Sequence, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.writes = append(f.writes, WrittenMessage{Seq: seq, Payload: payload})
	f.Out += int64(len(payload))
	return nil
}

// Writes 返回已记录的写入
func (f *FakeChannel) Writes() []WrittenMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WrittenMessage, len(f.writes))
	copy(out, f.writes)
	return out
}

// Close 标记关闭
func (f *FakeChannel) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeReason = reason
	return nil
}

// CloseReset 标记重置
func (f *FakeChannel) CloseReset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.reset = true
	return nil
}

// Closed 是否已关闭，以及关闭原因
func (f *FakeChannel) Closed() (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeReason
}

// WasReset 是否以重置方式关闭
func (f *FakeChannel) WasReset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reset
}
