package processor

import (
	"context"

	"github.com/tmc/langchaingo/schema"
)

// ETLProcessor 知识文件解析器，把原始字节切分为文本分片
type ETLProcessor interface {
	// 判断是否支持传入的文件类型
	CanProcess(fileType string) bool

	// 解析并切分文件内容
	Parse(ctx context.Context, data []byte) ([]schema.Document, error)
}

const (
	chunkSize    = 4000
	chunkOverlap = 200
)

// 中英文混排的递归切分分隔符
var separators = []string{"\n\n", "\n", "。", "！", "？", "；", "，", " ", ""}
