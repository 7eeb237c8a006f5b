package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-agent-backend/model"
)

func strPtr(s string) *string { return &s }

func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    model.Status
		to      model.Status
		update  KnowledgeUpdate
		wantErr bool
	}{
		{name: "pending to processing", from: model.StatusPending, to: model.StatusProcessing},
		{name: "error to processing", from: model.StatusError, to: model.StatusProcessing},
		{name: "processing to processed", from: model.StatusProcessing, to: model.StatusProcessed, update: KnowledgeUpdate{FileSHA1: strPtr("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")}},
		{name: "processing to error", from: model.StatusProcessing, to: model.StatusError},
		{name: "pending to error", from: model.StatusPending, to: model.StatusError},
		{name: "processed restart", from: model.StatusProcessed, to: model.StatusProcessing},
		{name: "pending to processed", from: model.StatusPending, to: model.StatusProcessed, update: KnowledgeUpdate{FileSHA1: strPtr("x")}, wantErr: true},
		{name: "processed to error", from: model.StatusProcessed, to: model.StatusError, wantErr: true},
		{name: "error to processed", from: model.StatusError, to: model.StatusProcessed, update: KnowledgeUpdate{FileSHA1: strPtr("x")}, wantErr: true},
		{name: "processed without sha1", from: model.StatusProcessing, to: model.StatusProcessed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			k := &model.Knowledge{
				ID:       uuid.New(),
				FileName: "a.txt",
				Source:   model.SourceLocal,
				Status:   tt.from,
			}
			repo.addKnowledge(k)

			err := NewStateMachine(repo).Transition(context.Background(), k, tt.to, tt.update)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, repo.status(k.ID))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, k.Status)
			assert.Equal(t, tt.to, repo.status(k.ID))
		})
	}
}

func TestStateMachineFolderProcessedWithoutSHA1(t *testing.T) {
	repo := newFakeRepo()
	k := &model.Knowledge{
		ID:       uuid.New(),
		FileName: "docs",
		Source:   model.SourceLocal,
		Status:   model.StatusProcessing,
		IsFolder: true,
	}
	repo.addKnowledge(k)

	// 文件夹知识没有内容指纹要求
	err := NewStateMachine(repo).Transition(context.Background(), k, model.StatusProcessed, KnowledgeUpdate{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessed, repo.status(k.ID))
}

func TestStateMachineSyncBoundProcessedSetsLastSynced(t *testing.T) {
	repo := newFakeRepo()
	syncID := uint(1)
	fileID := "remote-1"
	k := &model.Knowledge{
		ID:         uuid.New(),
		FileName:   "a.txt",
		Source:     model.SourceGDrive,
		Status:     model.StatusProcessing,
		SyncID:     &syncID,
		SyncFileID: &fileID,
		SourceLink: "https://drive.example/a",
	}
	repo.addKnowledge(k)

	before := time.Now().UTC()
	err := NewStateMachine(repo).Transition(context.Background(), k, model.StatusProcessed, KnowledgeUpdate{
		FileSHA1: strPtr("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"),
	})
	require.NoError(t, err)

	stored := repo.knowledge[k.ID]
	require.NotNil(t, stored.LastSyncedAt)
	assert.False(t, stored.LastSyncedAt.Before(before))
}
