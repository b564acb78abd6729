// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的连接池管理与 SQL 指纹缓存存储。

# 概述

PoolManager 封装 GORM 与 database/sql 的连接池配置，负责健康检查、
统计信息与事务重试。SQLStore 在其上实现 llm/cache.Store，
把缓存条目写入 claritycast_cache_entries 表，可替代 Redis。

# 核心类型

  - PoolManager：DB()/Ping()/Stats()/Close()，
    WithTransaction 与 WithTransactionRetry（死锁、序列化失败按指数退避重试）
  - PoolConfig：最大空闲/打开连接数、生命周期、健康检查间隔
  - Open / Dialector：按驱动名（postgres、mysql、sqlite）选择方言
  - SQLStore：Get/Set/Delete/Keys/Ping，Set 使用 ON CONFLICT upsert
  - CacheEntry：缓存表模型
*/
package database
