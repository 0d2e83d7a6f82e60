package models

import "time"

// SchemaVersion marks one successfully applied migration step. Rows are
// append-only; the row count is the current schema version number.
type SchemaVersion struct {
	Number    int64     `gorm:"column:number;primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"column:created_date"`
}

// TableName keeps the legacy table name.
func (SchemaVersion) TableName() string { return "dbversion" }
