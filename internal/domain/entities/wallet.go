package entities

import (
	"time"

	"github.com/google/uuid"
)

// WalletType tags what a wallet is used for
type WalletType string

const (
	WalletTypePersonal      WalletType = "personal"
	WalletTypeChamaCentral  WalletType = "chama_central"
	WalletTypeChamaViewOnly WalletType = "chama_view_only"
	WalletTypeSubAccount    WalletType = "sub_account"
	WalletTypeMGR           WalletType = "mgr"
	WalletTypeGame          WalletType = "game"
	WalletTypePlatform      WalletType = "platform"
)

// Valid reports whether t is a known wallet type
func (t WalletType) Valid() bool {
	switch t {
	case WalletTypePersonal, WalletTypeChamaCentral, WalletTypeChamaViewOnly,
		WalletTypeSubAccount, WalletTypeMGR, WalletTypeGame, WalletTypePlatform:
		return true
	}
	return false
}

// IsChamaScoped reports whether wallets of this type belong to a chama context
func (t WalletType) IsChamaScoped() bool {
	return t == WalletTypeChamaCentral || t == WalletTypeChamaViewOnly || t == WalletTypeMGR
}

// OwnerType distinguishes who owns a wallet
type OwnerType string

const (
	OwnerTypeUser     OwnerType = "user"
	OwnerTypeChama    OwnerType = "chama"
	OwnerTypePlatform OwnerType = "platform"
)

// WalletPermissions are the sub-account flags. Other wallet types ignore them.
type WalletPermissions struct {
	CanView    bool `json:"canView"`
	CanSend    bool `json:"canSend"`
	CanReceive bool `json:"canReceive"`
	CanConvert bool `json:"canConvert"`
}

// FullPermissions is what every non sub-account wallet implicitly has
func FullPermissions() WalletPermissions {
	return WalletPermissions{CanView: true, CanSend: true, CanReceive: true, CanConvert: true}
}

// Wallet is a named, owned balance ledger
type Wallet struct {
	ID             uuid.UUID         `json:"id"`
	OwnerID        uuid.UUID         `json:"ownerId"`
	OwnerType      OwnerType         `json:"ownerType"`
	ChamaID        *uuid.UUID        `json:"chamaId,omitempty"`
	ParentWalletID *uuid.UUID        `json:"parentWalletId,omitempty"`
	Name           string            `json:"name"`
	Type           WalletType        `json:"walletType"`
	Balance        Money             `json:"balance"`
	Currency       string            `json:"currency"`
	IsLocked       bool              `json:"isLocked"`
	LockedBy       *uuid.UUID        `json:"lockedBy,omitempty"`
	IsActive       bool              `json:"isActive"`
	Permissions    WalletPermissions `json:"permissions"`
	PinHash        string            `json:"-"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// HasPin reports whether a transaction PIN guards outbound movements
func (w *Wallet) HasPin() bool {
	return w.PinHash != ""
}

// EffectivePermissions returns the flags the engine enforces for this wallet
func (w *Wallet) EffectivePermissions() WalletPermissions {
	switch w.Type {
	case WalletTypeSubAccount:
		return w.Permissions
	case WalletTypeChamaViewOnly:
		return WalletPermissions{CanView: true, CanReceive: true}
	default:
		return FullPermissions()
	}
}

// CreateWalletInput is the payload for opening a wallet
type CreateWalletInput struct {
	Type           WalletType         `json:"walletType" binding:"required"`
	Name           string             `json:"name"`
	Currency       string             `json:"currency"`
	ChamaID        *uuid.UUID         `json:"chamaId,omitempty"`
	ParentWalletID *uuid.UUID         `json:"parentWalletId,omitempty"`
	Permissions    *WalletPermissions `json:"permissions,omitempty"`
}

// SetLockInput toggles the fund lock
type SetLockInput struct {
	Locked *bool `json:"locked" binding:"required"`
}

// SetPinInput sets or rotates a wallet transaction PIN
type SetPinInput struct {
	Pin        string `json:"pin" binding:"required"`
	CurrentPin string `json:"currentPin"`
}
