package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet is a tracked Polymarket wallet address.
type Wallet struct {
	gorm.Model
	Address    string     `gorm:"uniqueIndex;not null" json:"address"`
	Label      string     `json:"label,omitempty"`
	IsProxy    bool       `gorm:"default:false" json:"is_proxy"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}
