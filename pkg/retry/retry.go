package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries は、既定の最大リトライ回数です。
	DefaultMaxRetries = 3

	// バックオフ間隔の既定値
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// newBackOffPolicy は Config とコンテキストから指数バックオフのポリシーを組み立てます。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do は指数バックオフとカスタムエラー判定を使用して操作をリトライします。
// shouldRetryFn が false を返したエラーは致命的と見なし、即座にリトライを打ち切ります。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	var (
		lastErr   error
		permanent bool
	)

	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}

		if shouldRetryFn(err) {
			lastErr = fmt.Errorf("一時的なエラーが発生したためリトライします: %w", err)
			return lastErr
		}

		// 致命的なエラーは backoff.Permanent でラップし、即時終了させる
		permanent = true
		lastErr = fmt.Errorf("致命的なエラーのためリトライを中止しました: %w", err)
		return backoff.Permanent(lastErr)
	}

	err := backoff.Retry(retryableOp, newBackOffPolicy(ctx, cfg))
	if err == nil {
		return nil
	}

	// コンテキストのタイムアウト/キャンセルはリトライ上限と区別して報告する
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%sに失敗しました: コンテキストのタイムアウトまたはキャンセル: %w", operationName, err)
	}

	// NOTE: backoff.Retry は PermanentError を元のエラーへ展開して返すため、
	// 型ではなくフラグで致命的エラーを判定しています。
	if permanent {
		return lastErr
	}

	return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達しました: %w", operationName, cfg.MaxRetries, err)
}
