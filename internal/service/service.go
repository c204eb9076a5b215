package service

import (
	"go.uber.org/zap"

	"academic-mesh/backend/internal/repository"
	"academic-mesh/backend/internal/snapshot"
)

// Dependencies 派生存储的客户端，由 cmd 层组装
type Dependencies struct {
	Graph      GraphReader
	Counter    GraphCounter
	Replicator GraphReplicator
	Stream     StreamOpener
	Documents  snapshot.DocumentStore
	Students   StudentCache
	Snapshot   SnapshotOptions
}

// Service 所有 Service 的聚合入口
type Service struct {
	Partition   PartitionManager
	Attendance  AttendanceService
	Analytics   AnalyticsService
	Export      ExportService
	Calendar    CalendarService
	Replication ReplicationService
	Snapshot    SnapshotService
	Student     StudentService
	SyncRun     SyncRunService
}

// NewService 创建 Service 聚合
func NewService(repo *repository.Repository, deps Dependencies, logger *zap.Logger) *Service {
	partitions := NewPartitionManager(repo, logger)
	attendance := NewAttendanceService(repo, partitions, logger)
	analytics := NewAnalyticsService(repo, attendance, deps.Graph, logger)

	return &Service{
		Partition:   partitions,
		Attendance:  attendance,
		Analytics:   analytics,
		Export:      NewExportService(analytics, logger),
		Calendar:    NewCalendarService(deps.Graph, logger),
		Replication: NewReplicationService(repo, deps.Replicator, deps.Counter, logger),
		Snapshot:    NewSnapshotService(repo, deps.Stream, deps.Documents, deps.Snapshot, logger),
		Student:     NewStudentService(repo, deps.Students, logger),
		SyncRun:     NewSyncRunService(repo, logger),
	}
}
