// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义文本补全模型的统一接入契约。

# 概述

[Provider] 只做一件事：接收 [ChatRequest]，返回 [ChatResponse]。返回的文本
不保证是合法 JSON，提取与校验由 agent/structured 负责。

# 错误语义

Provider 的失败统一表示为 [*Error]，[ErrorCode] 决定可重试性：

  - [ErrRateLimited] / [ErrQuotaExceeded]：上游限流或额度耗尽
  - [ErrUpstreamTimeout]：上游超时
  - [ErrModelNotFound]：模型不存在，可回退到备用模型

# 限流分类

[IsRateLimited]、[IsTimeout] 与 [ExtractRetryAfterSeconds] 从任意错误中
识别限流/超时，并取出建议的重试等待秒数。优先使用结构化的
[Error.RetryAfter]，其次解析错误文本中的 "retry in Ns"，最后回退到
[DefaultRetryAfterSeconds]。
*/
package llm
