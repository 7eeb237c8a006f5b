package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/schema"

	"knowledge-agent-backend/model"
)

// KnowledgeUpdate 一次状态持久化携带的字段，nil字段不更新
type KnowledgeUpdate struct {
	Status       *model.Status
	FileSHA1     *string
	FileSize     *int64
	LastSyncedAt *time.Time
}

// Repository 摄取核心的持久化边界。
// UpdateKnowledge落库的同时把非nil字段应用到传入的实体上。
type Repository interface {
	GetKnowledge(ctx context.Context, id uuid.UUID) (*model.Knowledge, error)
	UpdateKnowledge(ctx context.Context, k *model.Knowledge, update KnowledgeUpdate) error

	// CreateKnowledge 创建知识并链接到指定的Brain，
	// 同一Brain内出现重复内容指纹时返回ErrDuplicateContent
	CreateKnowledge(ctx context.Context, k *model.Knowledge, brainIDs []uuid.UUID) error

	// MapSyncKnowledge 返回某个同步连接下已知的知识记录，按sync_file_id索引
	MapSyncKnowledge(ctx context.Context, syncID uint, userEmail string) (map[string]*model.Knowledge, error)

	// GetOutdatedSyncKnowledge 查询 last_synced_at 早于 before 的同步知识，按批返回
	GetOutdatedSyncKnowledge(ctx context.Context, before time.Time, batchSize int, syncType model.SyncType) ([]*model.Knowledge, error)

	GetSync(ctx context.Context, id uint) (*model.Sync, error)

	// Transaction 打开一个嵌套事务作用域，fn返回错误时回滚该作用域内的写入
	Transaction(ctx context.Context, fn func(Repository) error) error
}

// Storage 对象存储能力，LOCAL来源的原始字节由此下载
type Storage interface {
	DownloadFile(ctx context.Context, k *model.Knowledge) ([]byte, error)
}

// Crawler 网页抓取能力，WEB来源的内容由此提取
type Crawler interface {
	ExtractFromURL(ctx context.Context, url string) (string, error)
}

// Parser 将临时文件解析为文本分片
type Parser interface {
	Parse(ctx context.Context, f *IngestFile) ([]schema.Document, error)
}

// ChunkStore 将分片向量化并写入向量库
type ChunkStore interface {
	StoreChunks(ctx context.Context, k *model.Knowledge, chunks []schema.Document) error
}

// SyncProvider 外部同步服务商客户端。
// 远端文件不存在时返回包装了ErrFileNotFound的错误。
type SyncProvider interface {
	GetFilesByID(ctx context.Context, credentials json.RawMessage, fileIDs []string) ([]model.SyncFile, error)
	ListChildren(ctx context.Context, credentials json.RawMessage, folderID string) ([]model.SyncFile, error)
	Download(ctx context.Context, credentials json.RawMessage, file *model.SyncFile) ([]byte, error)
}
