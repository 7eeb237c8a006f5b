package dao

import (
	"knowledge-agent-backend/model"
)

func CreateSync(sync *model.Sync) error {
	return DB.Create(sync).Error
}

func GetSyncsByEmail(email string) ([]model.Sync, error) {
	var syncs []model.Sync
	if err := DB.Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&syncs).Error; err != nil {
		return nil, err
	}
	return syncs, nil
}

func DeleteSync(email string, id uint) error {
	return DB.Where("user_email = ? AND id = ?", email, id).
		Delete(&model.Sync{}).Error
}
