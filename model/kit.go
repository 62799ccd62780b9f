package model

import (
	"gorm.io/gorm"
)

type Kit struct {
	gorm.Model
	Name string `gorm:"uniqueIndex"`
}
