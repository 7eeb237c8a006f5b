package response

import "time"

type SyncResponse struct {
	ID           uint       `json:"id"`
	Name         string     `json:"name"`
	Provider     string     `json:"provider"`
	SyncInterval int        `json:"sync_interval"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type GetSyncsResponse struct {
	Syncs []SyncResponse `json:"syncs"`
}
