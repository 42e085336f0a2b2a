package models

import "time"

// Record is one key/value pair stored in a table file.
type Record struct {
	Key       string    `json:"key" gorm:"column:record_key;primaryKey"`
	Value     []byte    `json:"value" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Record Model
func (Record) TableName() string {
	return "records"
}
