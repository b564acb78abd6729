package client

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/clarity"
	llmcache "github.com/BaSui01/claritycast/llm/cache"
	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 🧭 带缓存的 Clarity 客户端
// =============================================================================

// ClarityClient wraps Client with the request-fingerprint cache. Fresh
// requests consult the cache; refinements always go to the server. Identical
// in-flight fresh calls share one round-trip.
type ClarityClient struct {
	client *Client
	cache  *llmcache.FingerprintCache
	group  singleflight.Group
	logger *zap.Logger
}

// NewClarityClient 创建客户端，cache 为 nil 时不缓存
func NewClarityClient(c *Client, cache *llmcache.FingerprintCache, logger *zap.Logger) *ClarityClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClarityClient{
		client: c,
		cache:  cache,
		logger: logger.With(zap.String("component", "clarity_client")),
	}
}

// Prune removes expired cache entries. Call it once at start-up.
func (cc *ClarityClient) Prune(ctx context.Context) (int, error) {
	if cc.cache == nil {
		return 0, nil
	}
	return cc.cache.ClearExpired(ctx)
}

// Clarify 调用 /api/clarify
func (cc *ClarityClient) Clarify(ctx context.Context, req clarity.ClarifyRequest, opts ...CallOption) (clarity.Result, error) {
	return fetch(ctx, cc, api.PathClarify, req, req.CacheKey(), req.IsRefinement(), opts, decodeClarify)
}

// Communicate 调用 /api/communicate
func (cc *ClarityClient) Communicate(ctx context.Context, req clarity.CommunicateRequest, opts ...CallOption) (*clarity.CommunicateResult, error) {
	return fetch(ctx, cc, api.PathCommunicate, req, req.CacheKey(), req.IsRefinement(), opts, decodeCommunicate)
}

func decodeClarify(raw json.RawMessage) (clarity.Result, error) {
	result, err := clarity.DecodeResult(raw)
	if err != nil {
		return nil, types.NewParseError(200, "response is not a clarity result").WithCause(err)
	}
	return result, nil
}

func decodeCommunicate(raw json.RawMessage) (*clarity.CommunicateResult, error) {
	result, err := clarity.DecodeCommunicateResult(raw)
	if err != nil {
		return nil, types.NewParseError(200, "response is not a communicate result").WithCause(err)
	}
	return result, nil
}

// fetch 只缓存能解码的响应体。相同的进行中请求共享一次调用，该调用脱离
// 发起者的取消信号运行（单次尝试的超时仍然生效），每个调用方只等待自己的 ctx。
func fetch[T any](ctx context.Context, cc *ClarityClient, path string, body, cacheKey any, refinement bool, opts []CallOption, decode func(json.RawMessage) (T, error)) (T, error) {
	var zero T
	fresh := func(ctx context.Context) (T, json.RawMessage, error) {
		raw, err := cc.call(ctx, path, body, opts)
		if err != nil {
			return zero, nil, err
		}
		v, err := decode(raw)
		if err != nil {
			return zero, nil, err
		}
		return v, raw, nil
	}

	if refinement || cc.cache == nil {
		v, _, err := fresh(ctx)
		return v, err
	}

	key, err := cc.cache.Key(cacheKey)
	if err != nil {
		cc.logger.Warn("fingerprint failed, bypassing cache", zap.Error(err))
		v, _, err := fresh(ctx)
		return v, err
	}

	if entry, ok := cc.cache.Get(ctx, key); ok {
		if v, derr := decode(entry.Data); derr == nil {
			cc.logger.Debug("cache hit", zap.String("path", path), zap.String("key", key))
			return v, nil
		}
		cc.logger.Warn("cached entry does not decode, refetching", zap.String("key", key))
	}

	shared := context.WithoutCancel(ctx)
	ch := cc.group.DoChan(key, func() (any, error) {
		v, raw, err := fresh(shared)
		if err != nil {
			return nil, err
		}
		if serr := cc.cache.Set(shared, key, raw); serr != nil {
			cc.logger.Warn("cache write failed", zap.String("key", key), zap.Error(serr))
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, types.NewNetworkError("request canceled").WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			cc.logger.Debug("joined in-flight request", zap.String("key", key))
		}
		return res.Val.(T), nil
	}
}

func (cc *ClarityClient) call(ctx context.Context, path string, body any, opts []CallOption) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := cc.client.Call(ctx, path, body, &raw, opts...); err != nil {
		return nil, err
	}
	return raw, nil
}
