package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Source     SourceRepository
	Session    SessionRepository
	Student    StudentRepository
	Attendance AttendanceRepository
	Partition  PartitionRepository
	SyncRun    SyncRunRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Source:     NewSourceRepo(db),
		Session:    NewSessionRepo(db),
		Student:    NewStudentRepo(db),
		Attendance: NewAttendanceRepo(db),
		Partition:  NewPartitionRepo(db),
		SyncRun:    NewSyncRunRepo(db),
	}
}
