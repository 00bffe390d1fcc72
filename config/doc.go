// Package config 提供 AgentMesh 的配置管理功能。
//
// 支持从默认值、YAML 文件和环境变量加载配置，
// 优先级依次递增，并在加载后统一校验。
package config
