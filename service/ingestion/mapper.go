package ingestion

import (
	"context"

	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

// SyncFileMapper 把服务商上报的远端文件清单与本地知识记录对账
type SyncFileMapper struct {
	repo Repository
}

func NewSyncFileMapper(repo Repository) *SyncFileMapper {
	return &SyncFileMapper{repo: repo}
}

// Reconcile 为一个远端文件找到或创建对应的知识记录。
// 已知的远端id直接复用；新记录继承父知识的用户、同步连接和Brain归属，
// 初始状态为PENDING，并登记到known映射中。
func (m *SyncFileMapper) Reconcile(ctx context.Context, known map[string]*model.Knowledge, remote *model.SyncFile, parent *model.Knowledge) (*model.Knowledge, error) {
	if existing, ok := known[remote.ID]; ok {
		return existing, nil
	}

	fileID := remote.ID
	k := &model.Knowledge{
		ID:         uuid.New(),
		UserEmail:  parent.UserEmail,
		FileName:   remote.Name,
		Extension:  remote.Extension,
		Status:     model.StatusPending,
		Source:     parent.Source,
		SourceLink: remote.WebViewLink,
		IsFolder:   remote.IsFolder,
		SyncID:     parent.SyncID,
		SyncFileID: &fileID,
		ParentID:   &parent.ID,
	}
	// 文件夹没有扩展名，缺失扩展名的文件按纯文本处理
	if k.Extension == "" && !remote.IsFolder {
		k.Extension = ".txt"
	}

	brainIDs := make([]uuid.UUID, 0, len(parent.Brains))
	for _, b := range parent.Brains {
		brainIDs = append(brainIDs, b.ID)
	}

	if err := m.repo.CreateKnowledge(ctx, k, brainIDs); err != nil {
		return nil, err
	}

	known[remote.ID] = k
	return k, nil
}

// DeletedRemotely 找出远端清单中已不存在的本地知识（对应远端文件被删除）
func DeletedRemotely(known map[string]*model.Knowledge, listing []model.SyncFile) []*model.Knowledge {
	remoteIDs := make(map[string]bool, len(listing))
	for _, f := range listing {
		remoteIDs[f.ID] = true
	}

	var deleted []*model.Knowledge
	for fileID, k := range known {
		if !remoteIDs[fileID] {
			deleted = append(deleted, k)
		}
	}
	return deleted
}

// RemoteChanged 判断远端文件相对本地记录是否发生变化。
// 远端缺失修改时间时保守地视为可能已变化。
func RemoteChanged(remote *model.SyncFile, k *model.Knowledge) bool {
	if k.LastSyncedAt == nil {
		return true
	}
	if remote.LastModifiedAt == nil {
		return true
	}
	return remote.LastModifiedAt.After(*k.LastSyncedAt)
}
