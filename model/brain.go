package model

import (
	"time"

	"github.com/google/uuid"
)

// Brain 知识集合，作为一次对话的检索范围
type Brain struct {
	ID          uuid.UUID `gorm:"type:char(36);primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
	UserEmail   string    `gorm:"not null;index" json:"user_email"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Description string    `gorm:"size:1024" json:"description"`

	Knowledges []Knowledge `gorm:"many2many:knowledge_brain;" json:"knowledges,omitempty"`
}

func (Brain) TableName() string {
	return "brain"
}
