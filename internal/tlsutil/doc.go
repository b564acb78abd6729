// Package tlsutil 提供统一的 TLS 加固配置（TLS 1.2+，仅 AEAD 密码套件），
// 用于 API 服务端监听、Gemini 与 CLI 的 HTTP 客户端以及 Redis 连接。
package tlsutil
