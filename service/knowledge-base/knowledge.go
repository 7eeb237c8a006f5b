package knowledgebase

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"knowledge-agent-backend/dao"
	"knowledge-agent-backend/model"
	"knowledge-agent-backend/request"
)

// RegisterUploadedKnowledge 登记一条前端已直传到OSS的文件知识，状态为PENDING
func RegisterUploadedKnowledge(ctx context.Context, req request.UploadKnowledgeRequest, email string) (*model.Knowledge, error) {
	k := &model.Knowledge{
		ID:        uuid.New(),
		UserEmail: email,
		FileName:  req.FileName,
		Extension: strings.ToLower(filepath.Ext(req.FileName)),
		Source:    model.SourceLocal,
		Status:    model.StatusPending,
		FileSize:  req.FileSize,
	}

	repo := dao.NewKnowledgeRepository(dao.DB)
	if err := repo.CreateKnowledge(ctx, k, req.BrainIDs); err != nil {
		return nil, err
	}
	return k, nil
}

// RegisterWebKnowledge 登记一条网页知识，抓取在Worker侧异步执行
func RegisterWebKnowledge(ctx context.Context, req request.CrawlWebKnowledgeRequest, email string) (*model.Knowledge, error) {
	name := req.Name
	if name == "" {
		if parsed, err := url.Parse(req.URL); err == nil {
			name = parsed.Host
		}
	}

	k := &model.Knowledge{
		ID:        uuid.New(),
		UserEmail: email,
		FileName:  name,
		URL:       req.URL,
		Extension: ".txt",
		Source:    model.SourceWeb,
		Status:    model.StatusPending,
	}

	repo := dao.NewKnowledgeRepository(dao.DB)
	if err := repo.CreateKnowledge(ctx, k, req.BrainIDs); err != nil {
		return nil, err
	}
	return k, nil
}

// RegisterSyncKnowledge 把服务商侧的远端文件/文件夹登记为知识，
// 来源取自对应同步连接的服务商类型
func RegisterSyncKnowledge(ctx context.Context, req request.AddSyncKnowledgeRequest, email string) (*model.Knowledge, error) {
	repo := dao.NewKnowledgeRepository(dao.DB)

	sync, err := repo.GetSync(ctx, req.SyncID)
	if err != nil {
		return nil, err
	}

	syncFileID := req.SyncFileID
	k := &model.Knowledge{
		ID:         uuid.New(),
		UserEmail:  email,
		FileName:   req.FileName,
		Extension:  strings.ToLower(filepath.Ext(req.FileName)),
		Source:     sync.Provider,
		Status:     model.StatusPending,
		SourceLink: req.SourceLink,
		IsFolder:   req.IsFolder,
		SyncID:     &sync.ID,
		SyncFileID: &syncFileID,
	}
	if k.IsFolder {
		k.Extension = ""
	}

	if err := repo.CreateKnowledge(ctx, k, req.BrainIDs); err != nil {
		return nil, err
	}
	return k, nil
}

// DeleteKnowledge 级联删除知识及其后代，返回被删除的实体，
// 调用方负责投递向量分片和OSS对象的清理任务
func DeleteKnowledge(ctx context.Context, id uuid.UUID) ([]*model.Knowledge, error) {
	repo := dao.NewKnowledgeRepository(dao.DB)
	return repo.DeleteKnowledgeCascade(ctx, id)
}
