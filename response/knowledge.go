package response

import (
	"time"

	"github.com/google/uuid"
)

// GetPolicyTokenResponse 前端直传文件至OSS的凭证
type GetPolicyTokenResponse struct {
	Policy           string `json:"policy"`
	SecurityToken    string `json:"security_token"`
	SignatureVersion string `json:"x_oss_signature_version"`
	Credential       string `json:"x_oss_credential"`
	Date             string `json:"x_oss_date"`
	Signature        string `json:"signature"`
	Host             string `json:"host"`
	Dir              string `json:"dir"`
}

type KnowledgeResponse struct {
	ID           uuid.UUID  `json:"id"`
	FileName     string     `json:"file_name"`
	Extension    string     `json:"extension"`
	URL          string     `json:"url,omitempty"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	SourceLink   string     `json:"source_link,omitempty"`
	FileSize     int64      `json:"file_size"`
	IsFolder     bool       `json:"is_folder"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type GetKnowledgeResponse struct {
	Knowledge []KnowledgeResponse `json:"knowledge"`
}

type GetPreSignedURLResponse struct {
	URL string `json:"url"`
}
