package ingestion

import (
	"crypto/sha1"
	"encoding/hex"
)

// ComputeSHA1 计算内容指纹，用于填充 file_sha1 和跳过未变更内容的重复处理
func ComputeSHA1(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
