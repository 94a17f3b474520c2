// Package svcmux 提供好友网络中的服务连接多路复用
//
// 一个逻辑服务连接在应用看来是一条普通的双向字节流，实际承载在
// 一组经由不同路径、随时可能出现或消失的物理通道上。
//
// # 快速开始
//
//	host, err := svcmux.Start(ctx, svcmux.WithPolicy("roundrobin"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close(ctx)
//
//	// 客户端：每条路径一个会话，每个会话打开一条通道
//	conn := host.NewClientConnection(os.Stdout)
//	sess, _ := host.Dial(ctx, "10.0.0.2:4100", "friend")
//	_ = host.Attach(ctx, conn, sess)
//	_ = conn.Pump(ctx, os.Stdin)
//
//	// 服务端：接受会话上的全部通道
//	conn := host.NewServerConnection(backend)
//	sess, _ := host.Accept(netConn, "friend")
//	go host.Serve(conn, sess)
//
// # 组件
//
//   - internal/core/servicemux: 逻辑连接、通道选择、序列缓冲、待发队列、速率反馈
//   - internal/core/servicemux/channel: 基于 yamux 的物理通道与会话
//   - config: JSON 统一配置
package svcmux
