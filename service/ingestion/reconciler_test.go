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

type requeueRecorder struct {
	ids []uuid.UUID
}

func (r *requeueRecorder) requeue(ctx context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return nil
}

func staleSyncKnowledge(syncID uint, fileID string, lastSynced time.Time) *model.Knowledge {
	return &model.Knowledge{
		ID:           uuid.New(),
		UserEmail:    "user@example.com",
		FileName:     fileID + ".txt",
		Source:       model.SourceGDrive,
		SourceLink:   "https://drive.example/" + fileID,
		Status:       model.StatusProcessed,
		FileSHA1:     helloSHA1,
		SyncID:       &syncID,
		SyncFileID:   &fileID,
		LastSyncedAt: &lastSynced,
	}
}

func TestReconcilerRequeuesChangedFile(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	recorder := &requeueRecorder{}

	repo.addSync(&model.Sync{ID: 1, Provider: model.SourceGDrive, Credentials: []byte(`{"token":"t"}`)})

	lastSynced := time.Now().UTC().Add(-24 * time.Hour)
	changed := staleSyncKnowledge(1, "f-changed", lastSynced)
	unchanged := staleSyncKnowledge(1, "f-same", lastSynced)
	repo.addKnowledge(changed)
	repo.addKnowledge(unchanged)

	modified := lastSynced.Add(2 * time.Hour)
	untouched := lastSynced.Add(-2 * time.Hour)
	provider.filesByID["f-changed"] = model.SyncFile{ID: "f-changed", LastModifiedAt: &modified}
	provider.filesByID["f-same"] = model.SyncFile{ID: "f-same", LastModifiedAt: &untouched}

	r := NewReconciler(repo, map[model.Source]SyncProvider{model.SourceGDrive: provider}, recorder.requeue)
	require.NoError(t, r.UpdateOutdatedSyncFiles(context.Background(), 8*time.Hour, 100))

	// 远端有变化的知识被拉回PROCESSING并重新投递
	require.Len(t, recorder.ids, 1)
	assert.Equal(t, changed.ID, recorder.ids[0])
	assert.Equal(t, model.StatusProcessing, repo.status(changed.ID))
	assert.Equal(t, model.StatusProcessed, repo.status(unchanged.ID))
}

func TestReconcilerTreatsMissingTimestampAsChanged(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	recorder := &requeueRecorder{}

	repo.addSync(&model.Sync{ID: 1, Provider: model.SourceGDrive, Credentials: []byte(`{"token":"t"}`)})

	k := staleSyncKnowledge(1, "f-1", time.Now().UTC().Add(-24*time.Hour))
	repo.addKnowledge(k)
	provider.filesByID["f-1"] = model.SyncFile{ID: "f-1"}

	r := NewReconciler(repo, map[model.Source]SyncProvider{model.SourceGDrive: provider}, recorder.requeue)
	require.NoError(t, r.UpdateOutdatedSyncFiles(context.Background(), 8*time.Hour, 100))

	// 远端缺失修改时间时保守地视为可能已变化
	require.Len(t, recorder.ids, 1)
	assert.Equal(t, k.ID, recorder.ids[0])
}

func TestReconcilerLeavesDeletedFileForTombstoneCleanup(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	recorder := &requeueRecorder{}

	repo.addSync(&model.Sync{ID: 1, Provider: model.SourceGDrive, Credentials: []byte(`{"token":"t"}`)})

	k := staleSyncKnowledge(1, "f-gone", time.Now().UTC().Add(-24*time.Hour))
	repo.addKnowledge(k)
	provider.notFound["f-gone"] = true

	r := NewReconciler(repo, map[model.Source]SyncProvider{model.SourceGDrive: provider}, recorder.requeue)
	require.NoError(t, r.UpdateOutdatedSyncFiles(context.Background(), 8*time.Hour, 100))

	// 远端已删除：不重新摄取，状态留给墓碑清理
	assert.Empty(t, recorder.ids)
	assert.Equal(t, model.StatusProcessed, repo.status(k.ID))
}

func TestReconcilerMissingCredentialsSkipsOnlyThatSync(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	recorder := &requeueRecorder{}

	repo.addSync(&model.Sync{ID: 1, Provider: model.SourceGDrive})
	repo.addSync(&model.Sync{ID: 2, Provider: model.SourceGDrive, Credentials: []byte(`{"token":"t"}`)})

	lastSynced := time.Now().UTC().Add(-24 * time.Hour)
	broken := staleSyncKnowledge(1, "f-broken", lastSynced)
	healthy := staleSyncKnowledge(2, "f-healthy", lastSynced)
	repo.addKnowledge(broken)
	repo.addKnowledge(healthy)

	provider.filesByID["f-healthy"] = model.SyncFile{ID: "f-healthy"}

	r := NewReconciler(repo, map[model.Source]SyncProvider{model.SourceGDrive: provider}, recorder.requeue)
	err := r.UpdateOutdatedSyncFiles(context.Background(), 8*time.Hour, 100)

	// 凭证缺失只作废自己的批次，另一个sync照常对账
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.Len(t, recorder.ids, 1)
	assert.Equal(t, healthy.ID, recorder.ids[0])
	assert.Equal(t, model.StatusProcessed, repo.status(broken.ID))
}

func TestReconcilerFetchesEachSyncOnce(t *testing.T) {
	repo := newFakeRepo()
	provider := newFakeProvider()
	recorder := &requeueRecorder{}

	repo.addSync(&model.Sync{ID: 1, Provider: model.SourceGDrive, Credentials: []byte(`{"token":"t"}`)})

	lastSynced := time.Now().UTC().Add(-24 * time.Hour)
	for _, fileID := range []string{"f-1", "f-2", "f-3"} {
		repo.addKnowledge(staleSyncKnowledge(1, fileID, lastSynced))
		provider.filesByID[fileID] = model.SyncFile{ID: fileID, LastModifiedAt: &lastSynced}
	}

	r := NewReconciler(repo, map[model.Source]SyncProvider{model.SourceGDrive: provider}, recorder.requeue)
	require.NoError(t, r.UpdateOutdatedSyncFiles(context.Background(), 8*time.Hour, 100))

	// 同一个sync在一轮扫描里只查询一次
	assert.Equal(t, 1, repo.getSyncCalls)
}
