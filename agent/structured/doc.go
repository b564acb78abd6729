// Copyright 2026 ClarityCast Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 structured 负责把不可靠的 LLM 文本输出变成经过 Schema 校验的 JSON。

流程：构建 Prompt → 调用 Provider → 提取 JSON → 校验 → 失败时构建一次
修复 Prompt 再调用 → 提取 → 校验 → 返回结果或 types.Error。

# 主要类型

  - JSONSchema：校验器支持的 JSON Schema 子集（type/properties/required/
    additionalProperties/items/minItems/maxItems/enum/const/minLength/pattern）
  - DefaultValidator：字段级校验，错误按键名排序，路径形如 options[1].why
  - ExtractJSON：依次尝试整段解析、代码块、忽略字符串内括号的扫描
  - Pipeline：有界的生成循环，MaxRepairAttempts = 1，单次调用上限 50s

# 错误语义

  - Provider 限流：立即返回 RATE_LIMIT，不做修复调用
  - 上游 ctx 取消：立即返回
  - 其他 Provider 错误、空响应、无 JSON、校验失败：进入修复
  - 修复预算耗尽：AI_ERROR，Debug 中包含每次尝试的 issues 与原文预览，
    Cause 为 *GenerationError

# 典型用法

	p := structured.NewPipeline(provider, structured.WithLogger(logger))
	gen, err := p.Generate(ctx, structured.GenerateRequest{
		SystemPrompt: system,
		UserPrompt:   prompt,
		Schema:       schema,
		Label:        "clarify:decision",
	})
*/
package structured
