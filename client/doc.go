// Copyright (c) ClarityCast Authors.
// Licensed under the MIT License.

/*
Package client 是 ClarityCast API 的弹性 Go 客户端。

# 重试

每次调用由纯函数 Next 驱动的状态机控制：

	Attempting -> Succeeded
	Attempting -> Waiting(delay) -> Attempting
	Attempting -> Failed

408、429、500、502、503、504、超时与网络错误可重试，其余非 2xx 立即失败。
第 n 次重试前等待 min(MaxDelay, BaseDelay*2^(n-1)) 乘以 [0.5, 1.5] 的抖动，
并以服务端的 Retry-After（响应头或 retryAfterSeconds）为下限。

# 缓存

ClarityClient 在 Client 之上叠加请求指纹缓存：新请求先查缓存，
带 followup_answer / refiningAnswer 的请求总是直达服务端；
相同的并发请求通过 singleflight 合并为一次往返。
*/
package client
