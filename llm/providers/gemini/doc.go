// Copyright 2026 ClarityCast Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gemini 提供 Google Gemini 模型的 Provider 适配实现。该包直接对接
Gemini REST API（generativelanguage.googleapis.com），自行处理请求构建
与响应解析。

# 核心结构体

  - GeminiProvider：持有 http.Client 与 GeminiConfig；使用
    x-goog-api-key 请求头认证
  - geminiRequest / geminiResponse：Gemini 原生请求/响应结构

# 构造函数

  - NewGeminiProvider(cfg, logger)：创建实例，默认模型 gemini-3-flash-preview

# 支持能力

  - generateContent（/v1beta/models/{model}:generateContent）
  - responseMimeType=application/json
  - 模型 404 时回退到 FallbackModel
  - 429 错误解析 RetryInfo.retryDelay，供限流分类器使用
  - ListModels / HealthCheck
*/
package gemini
