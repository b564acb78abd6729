// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理指纹缓存表 claritycast_cache_entries 的 Schema，
基于 golang-migrate 与内嵌 SQL 文件实现。

# 概述

PostgreSQL 与 MySQL 通过 golang-migrate 做版本化迁移；SQLite 只用于
本地开发与测试，表结构由 SQL 缓存存储在启动时自行创建，
migrations/sqlite 下的文件仅作为对照。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/Version/Status/Info/Close
  - Config：数据库类型、连接 URL、迁移表名
  - CLI：终端格式化输出，供 claritycast migrate 子命令使用
  - AvailableMigrations：列出内嵌迁移文件
*/
package migration
