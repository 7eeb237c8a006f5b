package model

import (
	"encoding/json"
	"time"
)

type SyncType string

const (
	SyncTypeFile   SyncType = "file"
	SyncTypeFolder SyncType = "folder"
)

// Sync 用户与外部服务商的一条授权连接
type Sync struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	UserEmail string    `gorm:"not null;index" json:"user_email"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Provider  Source    `gorm:"not null;size:255" json:"provider"`

	// 服务商凭证，核心流程不解析其内容，只透传给对应的服务商客户端
	Credentials json.RawMessage `gorm:"type:json" json:"-"`

	// 轮询间隔（分钟）
	SyncInterval int `gorm:"not null;default:60" json:"sync_interval"`

	LastSyncedAt *time.Time `json:"last_synced_at"`

	// 置位后下一次调度强制全量重新同步
	ForceSync bool `gorm:"not null;default:false" json:"force_sync"`
}

func (Sync) TableName() string {
	return "sync"
}

// SyncFile 服务商上报的远端文件/文件夹描述，不落库
type SyncFile struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Extension      string     `json:"extension"`
	ParentID       string     `json:"parent_id"`
	IsFolder       bool       `json:"is_folder"`
	LastModifiedAt *time.Time `json:"last_modified_at"`
	WebViewLink    string     `json:"web_view_link"`
}
