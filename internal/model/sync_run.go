package model

import (
	"time"

	"gorm.io/datatypes"
)

// 同步作业
const (
	SyncJobGraph     = "graph"
	SyncJobDocuments = "documents"
	SyncJobStudents  = "students"
)

// 同步状态
const (
	SyncStatusRunning   = "running"
	SyncStatusSucceeded = "succeeded"
	SyncStatusFailed    = "failed"
)

// SyncRun 派生存储同步审计，对应 sync_runs
type SyncRun struct {
	ID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Job        string         `gorm:"type:varchar(32);not null"                      json:"job"`
	Status     string         `gorm:"type:varchar(16);not null;default:'running'"    json:"status"`
	StartedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Stats      datatypes.JSON `gorm:"type:jsonb"                                     json:"stats,omitempty"`
	Error      string         `gorm:"type:text"                                      json:"error,omitempty"`
}

func (SyncRun) TableName() string { return "sync_runs" }
