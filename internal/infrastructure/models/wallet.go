package models

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	OwnerType      string     `gorm:"type:varchar(20);not null"`
	ChamaID        *uuid.UUID `gorm:"type:uuid;index"`
	ParentWalletID *uuid.UUID `gorm:"type:uuid;index"`
	Name           string     `gorm:"type:varchar(100)"`
	WalletType     string     `gorm:"type:varchar(30);not null;index"`
	Balance        int64      `gorm:"not null;default:0;check:chk_wallets_balance_non_negative,balance >= 0"`
	Currency       string     `gorm:"type:varchar(3);not null"`
	IsLocked       bool       `gorm:"not null"`
	LockedBy       *uuid.UUID `gorm:"type:uuid"`
	IsActive       bool       `gorm:"not null"`
	CanView        bool       `gorm:"not null"`
	CanSend        bool       `gorm:"not null"`
	CanReceive     bool       `gorm:"not null"`
	CanConvert     bool       `gorm:"not null"`
	PinHash        string     `gorm:"type:varchar(100)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Wallet) TableName() string {
	return "wallets"
}
