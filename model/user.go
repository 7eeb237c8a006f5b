package model

import "time"

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"not null;uniqueIndex;size:255" json:"email"`

	// bcrypt哈希
	Password string `gorm:"not null;size:255" json:"-"`

	Avatar string `gorm:"size:2048" json:"avatar"`
}

func (User) TableName() string {
	return "user"
}
