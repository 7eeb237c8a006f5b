package request

import "github.com/google/uuid"

// UploadKnowledgeRequest 在前端将文件成功直传到OSS后调用
type UploadKnowledgeRequest struct {
	FileName string      `json:"file_name" binding:"required"`
	FileSize int64       `json:"file_size"`
	BrainIDs []uuid.UUID `json:"brain_ids" binding:"required,min=1"`
}

type CrawlWebKnowledgeRequest struct {
	URL      string      `json:"url" binding:"required,url"`
	Name     string      `json:"name"`
	BrainIDs []uuid.UUID `json:"brain_ids" binding:"required,min=1"`
}

// AddSyncKnowledgeRequest 把某个同步连接下的远端文件/文件夹登记为知识
type AddSyncKnowledgeRequest struct {
	SyncID     uint        `json:"sync_id" binding:"required"`
	SyncFileID string      `json:"sync_file_id" binding:"required"`
	SourceLink string      `json:"source_link" binding:"required"`
	FileName   string      `json:"file_name" binding:"required"`
	IsFolder   bool        `json:"is_folder"`
	BrainIDs   []uuid.UUID `json:"brain_ids" binding:"required,min=1"`
}

type LinkKnowledgeRequest struct {
	KnowledgeID uuid.UUID `json:"knowledge_id" binding:"required"`
	BrainID     uuid.UUID `json:"brain_id" binding:"required"`
}
