package ratelimiter

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSettleDelay は外部APIを呼び出す前に必ず待機する時間です。
const DefaultSettleDelay = 500 * time.Millisecond

// Waiter は外部API呼び出しの直前に待機を挟むインターフェースです。
type Waiter interface {
	Wait(ctx context.Context) error
}

// SettleDelay は呼び出しごとに固定時間だけ待機し、プロバイダー側のスロットリングを抑えます。
// コンテキストがキャンセルされた場合は待機を中断します。
type SettleDelay struct {
	delay time.Duration
}

// NewSettleDelay は新しいSettleDelayを生成します。delayが0以下の場合は待機しません。
func NewSettleDelay(delay time.Duration) *SettleDelay {
	if delay < 0 {
		delay = 0
	}
	return &SettleDelay{delay: delay}
}

// Wait は設定時間だけ待機します。
func (s *SettleDelay) Wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		slog.Debug("settle delay interrupted", "error", ctx.Err())
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoWait は待機しないWaiterです。テストやローカル開発で使用します。
type NoWait struct{}

// Wait はコンテキストの状態だけを確認します。
func (NoWait) Wait(ctx context.Context) error {
	return ctx.Err()
}
