package models

import (
	"time"

	"github.com/google/uuid"
)

type ChamaMember struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChamaID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chama_members_chama_user"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chama_members_chama_user"`
	Role                 string    `gorm:"type:varchar(20);not null"`
	TotalContributions   int64     `gorm:"not null;default:0"`
	LastContributionDate *time.Time
	IsActive             bool `gorm:"not null"`
	JoinedAt             time.Time
}

func (ChamaMember) TableName() string {
	return "chama_members"
}

type LeaderboardEntry struct {
	ChamaID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	NetWorth             int64     `gorm:"not null"`
	RankPosition         int       `gorm:"not null"`
	LastContributionDate *time.Time
	CalculatedAt         time.Time
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}

// All lists every model for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&Wallet{},
		&Transaction{},
		&LedgerEntry{},
		&ChamaMember{},
		&LeaderboardEntry{},
	}
}
