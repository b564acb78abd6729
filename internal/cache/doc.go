// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的指纹缓存存储，实现 llm/cache.Store。

# 概述

RedisStore 封装 go-redis 客户端，负责连接生命周期、后台健康检查与
优雅关闭。条目的新鲜度由上层 FingerprintCache 根据 ts 判断，
KeyTTL 只是 Redis 侧的兜底过期。

# 核心类型

  - RedisStore：Get/Set/Delete/Keys/Ping/Close
  - Config：地址、密码、连接池大小、KeyTTL、健康检查间隔、SCAN 批量

# 主要能力

  - 前缀枚举：Keys 使用 SCAN 迭代，不使用阻塞的 KEYS
  - 错误语义：缺失键返回 llm/cache.ErrNotFound，关闭后返回 ErrClosed
  - 健康检查：后台定时 Ping，异常时通过 zap 日志告警
*/
package cache
