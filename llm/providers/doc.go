/*
包 providers 提供具体 Provider 实现共享的配置与辅助函数。

  - BaseProviderConfig / GeminiConfig：Provider 配置
  - MapHTTPError：HTTP 状态码映射为带 Retryable 标记的 llm.Error
  - ReadErrorMessage：从错误响应体中取出可读信息
  - ChooseModel / NormalizeModelName：模型选择与 "models/" 前缀清理
  - IsModelNotFound：判断是否应回退到备用模型
*/
package providers
