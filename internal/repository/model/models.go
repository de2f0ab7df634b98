package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Title        string      `gorm:"size:255;not null"`
	HostID       uuid.UUID   `gorm:"type:uuid;not null"`
	RoomCode     string      `gorm:"size:16;uniqueIndex;not null"`
	ActivityType string      `gorm:"size:32;not null"`
	CreatedAt    time.Time   `gorm:"not null"`
	ExpiresAt    *time.Time  `gorm:"index"`
	Files        []MediaFile `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoomID"`
}

type MediaFile struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID          uuid.UUID `gorm:"type:uuid;index;not null"`
	FileName        string    `gorm:"size:512;not null"`
	FileURL         string    `gorm:"size:2048;not null"`
	FileType        string    `gorm:"size:128;not null"`
	FileSize        int64     `gorm:"not null"`
	DurationSeconds float64
	UploadedBy      uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt       time.Time `gorm:"not null"`
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Email     *string   `gorm:"size:255;uniqueIndex:idx_users_email,where:email IS NOT NULL"`
	IsGuest   bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	MemberID  string    `gorm:"size:64"`
	Username  string    `gorm:"size:255"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
