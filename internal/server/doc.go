// 版权所有 2024 ClarityCast Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 claritycast 的 HTTP 服务器生命周期。

API 服务与 Prometheus 指标服务各由一个 Manager 承载，cmd/claritycast
通过 errgroup 并行运行二者。

# 核心类型

  - Manager：封装 net/http.Server，提供 Start/Run/Shutdown。
    Run 阻塞直到上下文取消或服务出错，然后在 ShutdownTimeout 内
    排空连接。
  - Config：监听地址、读写与空闲超时、请求头上限、关闭超时，
    以及可选的 TLS 证书对。

配置了证书对时，监听器使用 tlsutil 的加固配置（TLS 1.2+，AEAD）。
*/
package server
