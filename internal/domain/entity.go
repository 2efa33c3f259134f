package domain

import (
	"time"
)

// Setting is one persisted configuration override (Key-Value)
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
