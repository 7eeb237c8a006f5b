package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
)

// KnowledgeRepository 摄取核心持久化边界的GORM实现
type KnowledgeRepository struct {
	db *gorm.DB
}

var _ ingestion.Repository = &KnowledgeRepository{}

func NewKnowledgeRepository(db *gorm.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

func (r *KnowledgeRepository) GetKnowledge(ctx context.Context, id uuid.UUID) (*model.Knowledge, error) {
	var k model.Knowledge
	err := r.db.WithContext(ctx).
		Preload("Brains").
		Where("id = ?", id).
		First(&k).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ingestion.ErrKnowledgeNotFound, id)
		}
		return nil, err
	}
	return &k, nil
}

func (r *KnowledgeRepository) UpdateKnowledge(ctx context.Context, k *model.Knowledge, update ingestion.KnowledgeUpdate) error {
	values := make(map[string]any)
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if update.FileSHA1 != nil {
		values["file_sha1"] = *update.FileSHA1
	}
	if update.FileSize != nil {
		values["file_size"] = *update.FileSize
	}
	if update.LastSyncedAt != nil {
		values["last_synced_at"] = *update.LastSyncedAt
	}
	if len(values) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Knowledge{}).
		Where("id = ?", k.ID).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 知识可能已被并发删除
		return fmt.Errorf("%w: %s", ingestion.ErrKnowledgeNotFound, k.ID)
	}

	if update.Status != nil {
		k.Status = *update.Status
	}
	if update.FileSHA1 != nil {
		k.FileSHA1 = *update.FileSHA1
	}
	if update.FileSize != nil {
		k.FileSize = *update.FileSize
	}
	if update.LastSyncedAt != nil {
		k.LastSyncedAt = update.LastSyncedAt
	}

	return nil
}

func (r *KnowledgeRepository) CreateKnowledge(ctx context.Context, k *model.Knowledge, brainIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if k.FileSHA1 != "" && len(brainIDs) > 0 {
			dup, err := hasDuplicateContent(tx, brainIDs, k.FileSHA1)
			if err != nil {
				return err
			}
			if dup {
				return fmt.Errorf("%w: sha1 %s", ingestion.ErrDuplicateContent, k.FileSHA1)
			}
		}

		if err := tx.Omit("Brains", "Children").Create(k).Error; err != nil {
			return err
		}

		for _, brainID := range brainIDs {
			link := map[string]any{
				"knowledge_id": k.ID.String(),
				"brain_id":     brainID.String(),
			}
			if err := tx.Table("knowledge_brain").Create(link).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// LinkKnowledgeToBrain 把已存在的知识挂到另一个Brain下，
// 目标Brain内已有相同内容指纹时返回ErrDuplicateContent
func (r *KnowledgeRepository) LinkKnowledgeToBrain(ctx context.Context, knowledgeID, brainID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var k model.Knowledge
		if err := tx.Where("id = ?", knowledgeID).First(&k).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ingestion.ErrKnowledgeNotFound, knowledgeID)
			}
			return err
		}

		if k.FileSHA1 != "" {
			dup, err := hasDuplicateContent(tx, []uuid.UUID{brainID}, k.FileSHA1)
			if err != nil {
				return err
			}
			if dup {
				return fmt.Errorf("%w: sha1 %s", ingestion.ErrDuplicateContent, k.FileSHA1)
			}
		}

		link := map[string]any{
			"knowledge_id": knowledgeID.String(),
			"brain_id":     brainID.String(),
		}
		return tx.Table("knowledge_brain").Create(link).Error
	})
}

func hasDuplicateContent(tx *gorm.DB, brainIDs []uuid.UUID, sha1 string) (bool, error) {
	ids := make([]string, 0, len(brainIDs))
	for _, id := range brainIDs {
		ids = append(ids, id.String())
	}

	var count int64
	err := tx.Table("knowledge_brain").
		Joins("JOIN knowledge ON knowledge.id = knowledge_brain.knowledge_id").
		Where("knowledge_brain.brain_id IN ? AND knowledge.file_sha1 = ?", ids, sha1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *KnowledgeRepository) MapSyncKnowledge(ctx context.Context, syncID uint, userEmail string) (map[string]*model.Knowledge, error) {
	var rows []*model.Knowledge
	err := r.db.WithContext(ctx).
		Where("sync_id = ? AND user_email = ? AND sync_file_id IS NOT NULL", syncID, userEmail).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	known := make(map[string]*model.Knowledge, len(rows))
	for _, k := range rows {
		known[*k.SyncFileID] = k
	}
	return known, nil
}

func (r *KnowledgeRepository) GetOutdatedSyncKnowledge(ctx context.Context, before time.Time, batchSize int, syncType model.SyncType) ([]*model.Knowledge, error) {
	var rows []*model.Knowledge
	err := r.db.WithContext(ctx).
		Where("sync_id IS NOT NULL AND is_folder = ? AND last_synced_at < ?", syncType == model.SyncTypeFolder, before).
		Order("last_synced_at ASC").
		Limit(batchSize).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *KnowledgeRepository) GetSync(ctx context.Context, id uint) (*model.Sync, error) {
	var s model.Sync
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Transaction gorm对嵌套事务使用savepoint，fn失败只回滚本层写入
func (r *KnowledgeRepository) Transaction(ctx context.Context, fn func(ingestion.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&KnowledgeRepository{db: tx})
	})
}

// DeleteKnowledgeCascade 删除知识及其全部后代，返回被删除的知识实体，
// 调用方负责清理对应的向量分片和OSS对象
func (r *KnowledgeRepository) DeleteKnowledgeCascade(ctx context.Context, id uuid.UUID) ([]*model.Knowledge, error) {
	var deleted []*model.Knowledge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root model.Knowledge
		if err := tx.Where("id = ?", id).First(&root).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ingestion.ErrKnowledgeNotFound, id)
			}
			return err
		}

		deleted = []*model.Knowledge{&root}

		// 逐层展开文件夹层级
		frontier := []uuid.UUID{root.ID}
		for len(frontier) > 0 {
			var children []*model.Knowledge
			if err := tx.Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
				return err
			}
			if len(children) == 0 {
				break
			}

			frontier = frontier[:0]
			for _, c := range children {
				deleted = append(deleted, c)
				frontier = append(frontier, c.ID)
			}
		}

		ids := make([]uuid.UUID, 0, len(deleted))
		for _, k := range deleted {
			ids = append(ids, k.ID)
		}

		if err := tx.Table("knowledge_brain").Where("knowledge_id IN ?", ids).Delete(nil).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.Knowledge{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func GetKnowledgeByBrain(brainID uuid.UUID) ([]model.Knowledge, error) {
	var brain model.Brain
	err := DB.Preload("Knowledges", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC")
	}).Where("id = ?", brainID).First(&brain).Error
	if err != nil {
		return nil, err
	}
	return brain.Knowledges, nil
}

func SearchKnowledge(email, keyword string) ([]model.Knowledge, error) {
	var rows []model.Knowledge
	err := DB.Where("user_email = ? AND file_name LIKE ?", email, "%"+keyword+"%").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
