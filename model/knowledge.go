package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceLocal   Source = "local"
	SourceWeb     Source = "web"
	SourceGDrive  Source = "google_drive"
	SourceDropbox Source = "dropbox"
)

// IsSync 判断知识来源是否为外部同步服务商
func (s Source) IsSync() bool {
	return s == SourceGDrive || s == SourceDropbox
}

type Status string

const (
	// 知识已登记，等待处理
	StatusPending Status = "PENDING"

	// 知识正在解析、向量化
	StatusProcessing Status = "PROCESSING"

	// 知识处理完成，可被检索
	StatusProcessed Status = "PROCESSED"

	// 知识处理失败，可手动重试
	StatusError Status = "ERROR"
)

// Knowledge 存储知识条目（文件、网页或同步目录）
// 建立联合索引 (user_email, created_at)，文件夹层级通过 parent_id 自引用表达
type Knowledge struct {
	ID        uuid.UUID `gorm:"type:char(36);primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_email_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	UserEmail string    `gorm:"not null;index:idx_email_created" json:"user_email"`
	FileName  string    `gorm:"size:255" json:"file_name"`
	URL       string    `gorm:"size:2048" json:"url"`
	Extension string    `gorm:"size:100;default:.txt" json:"extension"`
	Status    Status    `gorm:"size:50;not null;default:PENDING" json:"status"`
	Source    Source    `gorm:"size:255;not null" json:"source"`

	// 同步知识在服务商侧的访问链接
	SourceLink string `gorm:"size:2048" json:"source_link"`

	FileSize int64 `json:"file_size"`

	// 内容指纹，40位SHA-1十六进制，未处理的知识和文件夹为空
	FileSHA1 string `gorm:"size:40;index:idx_sha1" json:"file_sha1"`

	IsFolder bool `gorm:"not null;default:false" json:"is_folder"`

	// 同步知识必须同时具备 sync_id、sync_file_id 和 source_link
	SyncID       *uint      `gorm:"index" json:"sync_id"`
	SyncFileID   *string    `gorm:"size:255;index" json:"sync_file_id"`
	LastSyncedAt *time.Time `json:"last_synced_at"`

	Metadata json.RawMessage `gorm:"type:json" json:"metadata"`

	// 文件夹层级，删除父知识时级联删除所有子知识
	ParentID *uuid.UUID  `gorm:"type:char(36);index" json:"parent_id"`
	Children []Knowledge `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"children,omitempty"`

	Brains []Brain `gorm:"many2many:knowledge_brain;constraint:OnDelete:CASCADE" json:"brains,omitempty"`
}

func (Knowledge) TableName() string {
	return "knowledge"
}

// IsSyncBound 判断知识是否携带完整的同步来源信息
func (k *Knowledge) IsSyncBound() bool {
	return k.SyncID != nil && k.SyncFileID != nil && k.SourceLink != ""
}
