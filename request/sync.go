package request

import "encoding/json"

type CreateSyncRequest struct {
	Name     string `json:"name" binding:"required"`
	Provider string `json:"provider" binding:"required,oneof=google_drive dropbox"`

	// 服务商OAuth凭证，原样透传给对应的服务商客户端
	Credentials json.RawMessage `json:"credentials" binding:"required"`

	// 轮询间隔（分钟）
	SyncInterval int `json:"sync_interval"`
}
