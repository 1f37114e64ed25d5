// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheBackend はヘルスチェックで報告するキャッシュバックエンドです。
type CacheBackend interface {
	Name() string
}

// Pinger は疎通確認ができるバックエンドが実装します（Redisなど）。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はサービスヘルスチェック用の /healthz エンドポイントを処理します。
type HealthHandler struct {
	cache   CacheBackend
	timeout time.Duration
}

// NewHealthHandler はHealthHandlerを生成します。cacheがnilの場合はキャッシュ状態を報告しません。
func NewHealthHandler(cache CacheBackend) *HealthHandler {
	return &HealthHandler{cache: cache, timeout: time.Second}
}

// Health はHTTPメソッドに応じて適切にレスポンスし、キャッシュを防止します。
// キャッシュバックエンドが落ちていてもサービス自体は応答できるため、常に200を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		body := gin.H{"status": "ok"}
		if h.cache != nil {
			body["cache"] = h.cacheStatus(c.Request.Context())
		}
		c.JSON(http.StatusOK, body)
	}
}

func (h *HealthHandler) cacheStatus(ctx context.Context) gin.H {
	st := gin.H{"backend": h.cache.Name(), "status": "ok"}
	p, ok := h.cache.(Pinger)
	if !ok {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		st["status"] = "degraded"
		st["error"] = err.Error()
	}
	return st
}
