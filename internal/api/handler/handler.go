package handler

import "academic-mesh/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Attendance *AttendanceHandler
	Analytics  *AnalyticsHandler
	Export     *ExportHandler
	Sync       *SyncHandler
	Student    *StudentHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Attendance: NewAttendanceHandler(svc.Attendance, svc.Partition),
		Analytics:  NewAnalyticsHandler(svc.Analytics),
		Export:     NewExportHandler(svc.Export, svc.Calendar),
		Sync:       NewSyncHandler(svc.Replication, svc.Snapshot, svc.SyncRun),
		Student:    NewStudentHandler(svc.Student),
	}
}
