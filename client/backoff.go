package client

import (
	"math"
	"math/rand/v2"
	"time"
)

// =============================================================================
// ⏱️ 退避策略
// =============================================================================

// 默认重试参数
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultTimeout    = 60 * time.Second
)

// 抖动系数范围
const (
	JitterMin = 0.5
	JitterMax = 1.5
)

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxRetries int           // 最大重试次数（0 表示不重试）
	BaseDelay  time.Duration // 第一次重试前的基础延迟
	MaxDelay   time.Duration // 抖动前的延迟上限
}

// DefaultRetryPolicy 返回默认的重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// normalized 修正非法参数
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Backoff returns the delay before retry n (1-indexed):
// min(MaxDelay, BaseDelay*2^(n-1)) * jitter. jitter is clamped to
// [JitterMin, JitterMax].
func (p RetryPolicy) Backoff(n int, jitter float64) time.Duration {
	p = p.normalized()
	if n < 1 {
		n = 1
	}
	jitter = math.Min(math.Max(jitter, JitterMin), JitterMax)

	// 指数退避：delay = base * 2^(n-1)
	delay := float64(p.BaseDelay) * math.Pow(2, float64(n-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay * jitter)
}

// JitterFunc 返回 [JitterMin, JitterMax] 内的抖动系数
type JitterFunc func() float64

// UniformJitter 均匀分布的抖动
func UniformJitter() float64 {
	return JitterMin + rand.Float64()*(JitterMax-JitterMin)
}

// NoJitter 固定为 1，测试用
func NoJitter() float64 { return 1 }
