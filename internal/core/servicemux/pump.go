package servicemux

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// Pump 按速率反馈从 r 读取应用数据并提交，直到 EOF 或 ctx 取消
//
// 每次读取不超过当前允许字节数和 MaxPayloadSize；没有可用容量或
// 待发队列已满时等待 DrainInterval。读到 EOF 返回 nil。
func (c *Connection) Pump(ctx context.Context, r io.Reader) error {
	buf := make([]byte, c.cfg.MaxPayloadSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.closed.Load() {
			return ErrConnectionClosed
		}

		allowed := min(c.rate.CurrentNumBytesAllowed(), c.cfg.MaxPayloadSize)
		if allowed <= 0 || c.pending.Len() >= c.pending.Cap() {
			if err := sleepCtx(ctx, c.cfg.DrainInterval); err != nil {
				return err
			}
			continue
		}

		n, err := r.Read(buf[:allowed])
		if n > 0 {
			c.rate.BytesProcessed(n)
			payload := make([]byte, n)
			copy(payload, buf[:n])
			if serr := c.submitWithRetry(ctx, payload); serr != nil {
				return serr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// submitWithRetry 队列满时等待后重试，其它错误直接返回
func (c *Connection) submitWithRetry(ctx context.Context, payload []byte) error {
	for {
		err := c.Submit(types.ChannelMessage{Kind: types.KindData, Payload: payload})
		if !errors.Is(err, ErrQueueFull) {
			return err
		}
		if err := sleepCtx(ctx, c.cfg.DrainInterval); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
