// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、结构化生成与缓存三个维度。

# 概述

Collector 使用 promauto 注册到默认 Registry，所有指标按 namespace 隔离。
/metrics 由独立的指标端口暴露。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，按 method/path/status 分组，
    状态码归类为 2xx/3xx/4xx/5xx；限流拒绝计数。
  - 结构化生成：每次 LLM 调用按 label/outcome 计数并记录耗时，
    Collector 实现 structured.MetricsRecorder。
  - 缓存指标：命中与未命中计数，Collector 实现 cache.StatsRecorder。
*/
package metrics
