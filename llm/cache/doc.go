// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供按请求指纹缓存成功响应的能力，减少重复的 LLM 往返。

# 概述

请求先被规范化为按键排序的 JSON，再取 SHA-256 作为指纹。成功响应以
{ts, data} 的形式写入 Store，键为 Prefix + 指纹。读取时超过 TTL 的条目
视为不存在并被删除。

# 核心接口

  - Store：Get/Set/Delete/Keys 键值后端，MemoryStore 为默认实现；
    internal/cache.RedisStore 与 internal/database.SQLStore 为持久化实现
  - FingerprintCache：Get/Set/ClearExpired/ClearAll

# TTL

TTL 通过 Config 注入，不读取全局环境变量。DefaultTTL("development") 为
24h，其他环境为 1h。时钟可用 WithClock 替换，便于测试边界。

# 使用方式

	c := cache.New(cache.NewMemoryStore(), cache.DefaultConfig("production"))
	key, _ := c.Key(req.CacheKey())
	if e, ok := c.Get(ctx, key); ok {
		_ = e.Decode(&out)
	}
*/
package cache
