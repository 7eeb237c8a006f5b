package ingestion

import (
	"context"

	"knowledge-agent-backend/model"
)

// EmitFunc 逐个接收 (knowledge, file) 对。
// 父知识先于子知识被送出；送出后文件所有权转移给回调方，由回调方Close。
type EmitFunc func(ctx context.Context, k *model.Knowledge, f *IngestFile) error

// SourceFetcher 按来源抓取知识内容。
// 每次Fetch重新抓取，产生的序列有限且不可重放。
type SourceFetcher interface {
	Fetch(ctx context.Context, k *model.Knowledge, emit EmitFunc) error
}
