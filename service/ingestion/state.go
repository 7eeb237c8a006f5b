package ingestion

import (
	"context"
	"fmt"
	"time"

	"knowledge-agent-backend/model"
)

// StateMachine 知识生命周期的唯一权威：校验迁移合法性并通过Repository落库。
// 重试策略不在这里决定，由编排方负责。
type StateMachine struct {
	repo Repository
}

func NewStateMachine(repo Repository) *StateMachine {
	return &StateMachine{repo: repo}
}

// PROCESSED不是严格的终态：过期同步对账可以把知识拉回PROCESSING重新摄取
var legalTransitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusProcessing, model.StatusError},
	model.StatusProcessing: {model.StatusProcessed, model.StatusError},
	model.StatusError:      {model.StatusProcessing},
	model.StatusProcessed:  {model.StatusProcessing},
}

func canTransition(from, to model.Status) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition 校验并执行一次状态迁移。
// 迁移到PROCESSED时非文件夹知识必须携带内容指纹，
// 同步知识必须带上last_synced_at。
func (m *StateMachine) Transition(ctx context.Context, k *model.Knowledge, target model.Status, update KnowledgeUpdate) error {
	if !canTransition(k.Status, target) {
		return fmt.Errorf("%w: %s -> %s for knowledge %s", ErrInvalidTransition, k.Status, target, k.ID)
	}

	if target == model.StatusProcessed {
		if !k.IsFolder && (update.FileSHA1 == nil || *update.FileSHA1 == "") {
			return fmt.Errorf("%w: knowledge %s cannot be processed without a content hash", ErrInvalidTransition, k.ID)
		}
		if k.SyncID != nil && update.LastSyncedAt == nil {
			now := time.Now().UTC()
			update.LastSyncedAt = &now
		}
	}

	update.Status = &target
	return m.repo.UpdateKnowledge(ctx, k, update)
}
