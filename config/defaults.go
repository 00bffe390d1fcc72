// =============================================================================
// 📦 AgentMesh 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Router:    DefaultRouterConfig(),
		Redis:     DefaultRedisConfig(),
		Oracle:    DefaultOracleConfig(),
		Executor:  DefaultExecutorConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultRouterConfig 返回默认路由器配置
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CacheTTL:        5 * time.Minute,
		CacheMaxEntries: 1000,
		// 短语与关键词留空表示使用 router 包的内置默认
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  false,
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
		PoolSize: 10,
	}
}

// DefaultOracleConfig 返回默认 oracle 配置
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		Model:     "gpt-4o-mini",
		RateLimit: 0,
		RateBurst: 1,
		Timeout:   30 * time.Second,
	}
}

// DefaultExecutorConfig 返回默认执行器配置
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		EnableHandoff: true,
		PreviewLength: 200,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		EnableCaller: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentmesh",
		SampleRate:   1.0,
	}
}
