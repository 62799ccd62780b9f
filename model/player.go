package model

import (
	"gorm.io/gorm"
)

type Player struct {
	gorm.Model
	Username string `gorm:"uniqueIndex"`
}
