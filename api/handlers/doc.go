// Copyright (c) ClarityCast Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ClarityCast HTTP API 的请求处理器实现。

# 核心类型

  - ClarityHandler  处理 POST /api/clarify 与 POST /api/communicate
  - HealthHandler   服务健康检查（/health, /healthz, /ready, /version）
  - PingCheck       把缓存存储等组件的 Ping 适配为就绪检查
  - ResponseWriter  包装 http.ResponseWriter 以捕获状态码与响应大小

# 错误处理

所有失败都经过 WriteError 输出为 api.ErrorResponse。RATE_LIMIT 额外设置
Retry-After 头；debug 字段只在请求上下文标记为调试模式时保留。
请求体必须是 application/json，且不超过配置的上限（默认 1 MiB）。
*/
package handlers
