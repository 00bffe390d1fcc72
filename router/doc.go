/*
Package router 负责把任务映射为规范化的路由决策。

处理顺序：

 1. 决策缓存查询（fingerprint = 任务文本 + 团队签名的确定性哈希）
 2. 琐碎任务快速通道（问候/单词确认 → 直接响应 agent，完全绕过 oracle）
 3. 时效性任务快速通道（"latest"、"current"、未来年份等 → 强制
    web 搜索工具与研究型 agent）
 4. 调用外部决策 oracle 并做防御性规范化（缺失字段回填默认值）
 5. 写入决策缓存

缓存为本地有界 TTL 缓存，可选 Redis 二级层；对同一 fingerprint 的并发
路由请求经 singleflight 合并，oracle 只被调用一次。
*/
package router
