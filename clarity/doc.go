// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package clarity 实现 ClarityCast 的领域逻辑：模式、语境与意图枚举，请求校验，
按 problem_type 区分的结果联合类型，每种模式的结果 schema，提示词与修复提示构建。

# 核心流程

Service.Clarify 与 Service.Communicate 先按请求 schema 校验输入，再通过
Generator（通常为 structured.Pipeline）调用 LLM，最后用 DecodeResult 或
DecodeCommunicateResult 解码已通过校验的 JSON。

# 结果类型

Result 由四种变体实现：DecisionResult、PlanResult、OverwhelmResult、
MessagePrepResult。DecodeResult 是唯一的分派点，Sections 用于终端渲染。
*/
package clarity
