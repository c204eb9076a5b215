package dto

// ── 考勤模块 DTO ──

// UpsertAttendanceRequest 记录考勤请求
type UpsertAttendanceRequest struct {
	StudentID int64 `json:"student_id" binding:"required,gt=0"`
	SessionID int64 `json:"session_id" binding:"required,gt=0"`
	Attended  *bool `json:"attended"   binding:"required"`
}

// CheckAttendanceQuery 查询单条考勤
type CheckAttendanceQuery struct {
	StudentID int64 `form:"student_id" binding:"required,gt=0"`
	SessionID int64 `form:"session_id" binding:"required,gt=0"`
}

// CheckAttendanceResponse 单条考勤结果，无事实记录时 attended 为 false
type CheckAttendanceResponse struct {
	StudentID int64 `json:"student_id"`
	SessionID int64 `json:"session_id"`
	Attended  bool  `json:"attended"`
}

// RescheduleSessionRequest 课次改期请求
type RescheduleSessionRequest struct {
	Date string `json:"date" binding:"required"` // RFC3339 或 "2006-01-02 15:04"
}

// SessionResponse 课次信息
type SessionResponse struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	LectureID int64  `json:"lecture_id"`
	GroupID   int64  `json:"group_id"`
	Semester  string `json:"semester"`
}

// PartitionListResponse 已存在的考勤分区
type PartitionListResponse struct {
	Partitions []string `json:"partitions"`
}
