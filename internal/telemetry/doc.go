// Package telemetry 初始化 OpenTelemetry SDK（OTLP gRPC 导出 trace 与 metric），
// 并安装 W3C TraceContext/Baggage 传播器。结构化生成管线、API 客户端与
// HTTP 追踪中间件都通过全局 otel Provider 取得 Tracer。
package telemetry
