// Package channel 提供基于 yamux 的物理通道实现
//
// 每条物理通道是一条 yamux 流，承载一个逻辑服务连接的一部分流量。
// 一个 Session 对应一条到好友的底层连接（一条路径），可以承载多条通道。
//
// # 帧格式
//
//	[kind:1][channel:uvarint][stream:uvarint][chanSeq:uvarint][len:uvarint][payload]
//
// # 握手
//
// 发起方在 Start 时发送 setup 帧；接受方收到后标记为已启动并回复 setup，
// 发起方收到回复后标记为已启动。两端启动时都会通知 ChannelReady。
//
// # 使用
//
//	ch, err := sess.OpenChannel(ctx, conn)
//	if err != nil { ... }
//	if err := conn.AddChannel(ch); err != nil { ... }
//	ch.Start()
//
// 先接入再 Start，保证读循环交付的第一条消息就能找到已注册的通道。
package channel
