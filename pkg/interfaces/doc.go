// Package interfaces 定义 svcmux 的公共接口
//
// 一个逻辑服务连接（应用看到的端点）承载在一组动态变化的物理通道上。
// 本包只定义两侧的边界：
//
//   - channel.go    - ChannelEndpoint 物理通道契约，ChannelHandler 通道事件回调
//   - servicemux.go - ServiceEndpoint 聚合端点视图，RateHandler 速率反馈
//
// 物理通道的传输、握手状态机和线上编码由实现方负责，
// 多路复用层只消费这里列出的方法。
package interfaces
