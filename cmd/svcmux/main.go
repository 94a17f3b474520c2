// Package main 提供 svcmux 命令行入口
//
// 服务端：
//
//	svcmux -listen 0.0.0.0:4100 > received.bin
//
// 客户端（三条路径）：
//
//	svcmux -connect 10.0.0.2:4100 -channels 3 -policy roundrobin < payload.bin
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-svcmux"
	"github.com/dep2p/go-svcmux/internal/core/servicemux"
	"github.com/dep2p/go-svcmux/pkg/lib/log"
	"golang.org/x/sync/errgroup"
)

var logger = log.Logger("svcmux/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径（JSON）")
	listenAddr  = flag.String("listen", "", "服务端监听地址")
	connectAddr = flag.String("connect", "", "客户端连接地址")
	channels    = flag.Int("channels", 2, "客户端建立的路径数（每条路径一条通道）")
	policy      = flag.String("policy", "", "通道选择策略 (weighted/roundrobin/random)")
	logLevel    = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(svcmux.VersionInfo())
		return nil
	}
	if (*listenAddr == "") == (*connectAddr == "") {
		return errors.New("必须且只能指定 -listen 或 -connect 之一")
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host, err := svcmux.Start(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := host.Close(stopCtx); err != nil {
			logger.Warn("关闭失败", "err", err)
		}
	}()

	if *listenAddr != "" {
		return runServer(ctx, host)
	}
	return runClient(ctx, host)
}

func buildOptions() ([]svcmux.Option, error) {
	var opts []svcmux.Option
	if *configFile != "" {
		opts = append(opts, svcmux.WithConfigFile(*configFile))
	}
	if *policy != "" {
		opts = append(opts, svcmux.WithPolicy(*policy))
	}
	if *logLevel != "" {
		if _, err := log.ParseLevel(*logLevel); err != nil {
			return nil, err
		}
		opts = append(opts, svcmux.WithLogLevel(*logLevel))
	}
	if *channels < 1 {
		return nil, fmt.Errorf("-channels 必须为正数: %d", *channels)
	}
	return opts, nil
}

// runServer 所有会话的通道接入同一个逻辑连接，数据写到标准输出
func runServer(ctx context.Context, host *svcmux.Host) error {
	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	defer ln.Close()
	logger.Info("等待连接", "addr", ln.Addr().String())

	conn := host.NewServerConnection(os.Stdout)
	defer logStats(conn)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s, err := host.Accept(c, "")
		if err != nil {
			logger.Warn("建立会话失败", "remote", c.RemoteAddr().String(), "err", err)
			_ = c.Close()
			continue
		}
		go func() {
			if err := host.Serve(conn, s); err != nil {
				logger.Warn("会话结束", "path", s.PathID(), "err", err)
			}
		}()
	}
}

// runClient 建立 -channels 条路径，把标准输入泵入逻辑连接
func runClient(ctx context.Context, host *svcmux.Host) error {
	conn := host.NewClientConnection(os.Stdout)
	defer logStats(conn)

	// 每条路径独立拨号，任一失败即放弃
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *channels; i++ {
		g.Go(func() error {
			s, err := host.Dial(gctx, *connectAddr, "")
			if err != nil {
				return err
			}
			if err := host.Attach(gctx, conn, s); err != nil {
				return fmt.Errorf("打开通道失败: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := conn.Pump(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// 等待积压发完并被确认
	for (conn.PendingLen() > 0 || conn.Unacked() > 0) && ctx.Err() == nil {
		time.Sleep(servicemux.DefaultConfig().DrainInterval)
	}
	return nil
}

func logStats(conn *servicemux.Connection) {
	st := conn.Stats()
	logger.Info("连接统计",
		"id", st.ID,
		"role", st.Role,
		"channels", st.Channels,
		"pending", st.Pending,
		"bytesIn", st.BytesIn,
		"bytesOut", st.BytesOut,
		"age", st.Age.String())
}
