package dao

import (
	"github.com/google/uuid"

	"knowledge-agent-backend/model"
)

func CreateBrain(brain *model.Brain) error {
	return DB.Create(brain).Error
}

func GetBrainByID(id uuid.UUID) (*model.Brain, error) {
	var brain model.Brain
	if err := DB.Where("id = ?", id).First(&brain).Error; err != nil {
		return nil, err
	}
	return &brain, nil
}

func GetBrainsByEmail(email string) ([]model.Brain, error) {
	var brains []model.Brain
	if err := DB.Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&brains).Error; err != nil {
		return nil, err
	}
	return brains, nil
}

func UpdateBrain(email string, id uuid.UUID, name, description string) error {
	return DB.Model(&model.Brain{}).
		Where("user_email = ? AND id = ?", email, id).
		Updates(map[string]any{
			"name":        name,
			"description": description,
		}).Error
}

// DeleteBrain 只解除知识关联，不删除知识本身
func DeleteBrain(email string, id uuid.UUID) error {
	err := DB.Table("knowledge_brain").
		Where("brain_id = ?", id.String()).
		Delete(nil).Error
	if err != nil {
		return err
	}

	return DB.Where("user_email = ? AND id = ?", email, id).
		Delete(&model.Brain{}).Error
}
