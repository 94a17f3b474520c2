// Package servicemux 实现好友网络中的服务连接多路复用
//
// 一个逻辑服务连接（应用看到的双向连接）透明地承载在一组动态变化的
// 物理通道上，通道可能随时出现、消失、停滞或变慢。
//
// # 组件
//
//   - Selector: 通道选择策略（roundrobin / random / weighted）
//   - StreamMultiplexer: 分配通道内序号，记录每个通道上未确认的消息
//   - SequenceBuffer: 1024 槽环形缓冲，按流序号对入站消息重排
//   - PendingQueue: 无可用通道时的有界 FIFO 出站积压
//   - ServiceRateHandler: 按各通道剩余容量计算还能接收多少服务数据
//   - Connection: 持有以上全部组件，驱动通道生命周期并对外提供聚合统计
//
// # 数据流
//
//	应用 ──Write/Submit──▶ Selector ──▶ StreamMultiplexer ──▶ ChannelEndpoint
//	                          │
//	                          └─ 无就绪通道 ─▶ PendingQueue ─(ChannelReady)─▶ 重新路由
//
//	ChannelEndpoint ──HandleChannelMessage──▶ ack: StreamMultiplexer.OnAck
//	                                      └─▶ data: SequenceBuffer ──▶ Role.Deliver ──▶ 应用
//
// # 角色
//
// 通道接入与交付钩子由 Role 提供：ClientRole（发起方，通道接入即可用）
// 与 ServerRole（接受方，通道完成握手后才可用）。
//
// # 并发
//
// 注册表的所有读写（遍历、增删、轮转）都在同一把锁内完成；
// 序列缓冲区与待发队列各自持有独立的锁。除 Pump 外所有操作都立即返回。
//
// # 已知限制
//
// 通道移除时，其未确认消息会重新排入待发队列等待重发，
// 但已被对端部分接收或确认的状态不会被对账，重发语义是尽力而为而非恰好一次。
package servicemux
