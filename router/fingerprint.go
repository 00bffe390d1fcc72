package router

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint 对任务文本与团队签名做确定性哈希，作为决策缓存键。
// 两个输入之间用 NUL 分隔，避免 ("ab","c") 与 ("a","bc") 碰撞。
func Fingerprint(taskText, teamSignature string) string {
	h := sha256.New()
	h.Write([]byte(taskText))
	h.Write([]byte{0})
	h.Write([]byte(teamSignature))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
