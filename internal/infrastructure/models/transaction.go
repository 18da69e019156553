package models

import (
	"time"

	"github.com/google/uuid"
)

type Transaction struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	IdempotencyKey    string     `gorm:"type:varchar(128);not null;uniqueIndex"`
	FromWalletID      *uuid.UUID `gorm:"type:uuid;index"`
	ToWalletID        *uuid.UUID `gorm:"type:uuid;index"`
	Amount            int64      `gorm:"not null"`
	Fee               int64      `gorm:"not null;default:0"`
	NetAmount         int64      `gorm:"not null;default:0"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	TransactionType   string     `gorm:"type:varchar(20);not null;index"`
	Status            string     `gorm:"type:varchar(20);not null;index"`
	ExternalReference *string    `gorm:"type:varchar(100);uniqueIndex"`
	Method            *string    `gorm:"type:varchar(30)"`
	InitiatedBy       *uuid.UUID `gorm:"type:uuid"`
	FailureReason     *string    `gorm:"type:text"`
	Metadata          string     `gorm:"type:jsonb;default:'{}'"`
	CreatedAt         time.Time  `gorm:"index"`
	CompletedAt       *time.Time
}

func (Transaction) TableName() string {
	return "transactions"
}

type LedgerEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index"`
	WalletID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Direction     string    `gorm:"type:varchar(10);not null"`
	Amount        int64     `gorm:"not null"`
	BalanceAfter  int64     `gorm:"not null"`
	CreatedAt     time.Time
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
