// Package config 提供 ClarityCast 的配置管理功能。
//
// 配置只在启动时加载一次：默认值、YAML 文件、.env 文件与环境变量
// 依次叠加，随后由 Validate 统一校验。
package config
