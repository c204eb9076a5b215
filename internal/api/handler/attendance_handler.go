package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/model"
	"academic-mesh/backend/internal/service"
	pkgerrors "academic-mesh/backend/pkg/errors"
	"academic-mesh/backend/pkg/response"
)

// AttendanceHandler 考勤事实 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	partitions    service.PartitionManager
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, partitions service.PartitionManager) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, partitions: partitions}
}

// Upsert 记录考勤
// POST /api/v1/attendance
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	var req dto.UpsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	err := h.attendanceSvc.UpsertFact(c.Request.Context(), req.StudentID, req.SessionID, *req.Attended)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, dto.CheckAttendanceResponse{
		StudentID: req.StudentID,
		SessionID: req.SessionID,
		Attended:  *req.Attended,
	})
}

// Check 查询单条考勤
// GET /api/v1/attendance/check?student_id=&session_id=
func (h *AttendanceHandler) Check(c *gin.Context) {
	var q dto.CheckAttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 21001, "student_id 与 session_id 必须为正整数")
		return
	}

	attended, err := h.attendanceSvc.CheckAttendance(c.Request.Context(), q.StudentID, q.SessionID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, dto.CheckAttendanceResponse{
		StudentID: q.StudentID,
		SessionID: q.SessionID,
		Attended:  attended,
	})
}

// RescheduleSession 课次改期
// PUT /api/v1/sessions/:id/date
func (h *AttendanceHandler) RescheduleSession(c *gin.Context) {
	id, ok := mustParseID(c, "id", 21001)
	if !ok {
		return
	}
	var req dto.RescheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}
	date, err := parseSessionTime(req.Date)
	if err != nil {
		response.BadRequest(c, 21001, "date 格式应为 RFC3339 或 YYYY-MM-DD HH:MM")
		return
	}

	session, err := h.attendanceSvc.RescheduleSession(c.Request.Context(), id, date)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, toSessionResponse(session))
}

// DeleteSession 删除课次及其考勤
// DELETE /api/v1/sessions/:id
func (h *AttendanceHandler) DeleteSession(c *gin.Context) {
	id, ok := mustParseID(c, "id", 21001)
	if !ok {
		return
	}
	if err := h.attendanceSvc.DeleteSession(c.Request.Context(), id); err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, nil)
}

// DeleteStudent 删除学生及其考勤
// DELETE /api/v1/students/:id
func (h *AttendanceHandler) DeleteStudent(c *gin.Context) {
	id, ok := mustParseID(c, "id", 21001)
	if !ok {
		return
	}
	if err := h.attendanceSvc.DeleteStudent(c.Request.Context(), id); err != nil {
		h.handleAttendanceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListPartitions 已存在的考勤分区
// GET /api/v1/partitions
func (h *AttendanceHandler) ListPartitions(c *gin.Context) {
	keys, err := h.partitions.ListPartitions(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}
	response.OK(c, dto.PartitionListResponse{Partitions: names})
}

func toSessionResponse(s *model.Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:        s.ID,
		Date:      s.Date.Format(time.RFC3339),
		LectureID: s.LectureID,
		GroupID:   s.GroupID,
		Semester:  s.Semester,
	}
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 21101, "课次不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21102, "学生不存在")
	case errors.Is(err, pkgerrors.ErrPartitionCreate):
		response.Error(c, http.StatusServiceUnavailable, 50002, "创建考勤分区失败，请稍后重试")
	default:
		response.InternalError(c)
	}
}
