package model

import (
	"gorm.io/gorm"
)

// PlayerKit holds one player's tier within one kit. There is deliberately no
// database uniqueness constraint on (PlayerID, KitID); the ledger repository
// enforces the one-record-per-pair invariant itself.
type PlayerKit struct {
	gorm.Model
	PlayerID uint   `gorm:"index"`
	KitID    uint   `gorm:"index"`
	TierCode string
	Points   int
}
