// Copyright (c) ClarityCast Authors.
// Licensed under the MIT License.

/*
Package types 提供 ClarityCast 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent/structured、llm、
clarity、api、client 等上层模块提供统一的错误契约。

# 错误体系

ErrorType 是封闭集合，每个类型对应一个构造函数：

  - INVALID_INPUT：NewInvalidInput，调用模型前的输入校验失败（400）
  - AI_ERROR：NewAIError，模型侧失败，修复重试一次后终止（500）
  - RATE_LIMIT：NewRateLimit，提供方配额耗尽，携带 retryAfterSeconds（429）
  - TIMEOUT：NewTimeout，客户端单次尝试超时（408）
  - NETWORK_ERROR：NewNetworkError，传输层失败（0）
  - SERVER_ERROR：NewServerError，服务端返回了未知类型的非 2xx
  - PARSE_ERROR：NewParseError，响应体无法解析

Issue 表示字段级校验问题，DebugInfo 只在调试模式下附加。
*/
package types
