package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"academic-mesh/backend/internal/service"
	"academic-mesh/backend/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportAttendance 导出出勤统计
// GET /api/v1/export/summary.xlsx?lecture_ids=1,2&top=10&from=&to=
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	q, lectureIDs, r, ok := bindAnalyticsQuery(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), lectureIDs, q.Top, r)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	c.Header("Content-Description", "File Transfer")
	response.File(c, filename, xlsxContentType, buf.Bytes())
}

// ExportGroupReport 导出班级学时报告
// GET /api/v1/export/groups/:file  （:file 形如 "12.xlsx"）
func (h *ExportHandler) ExportGroupReport(c *gin.Context) {
	raw := strings.TrimSuffix(c.Param("file"), ".xlsx")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 23001, "班级 ID 必须为正整数")
		return
	}
	r, ok := bindDateRange(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportGroupReport(c.Request.Context(), id, r)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	c.Header("Content-Description", "File Transfer")
	response.File(c, filename, xlsxContentType, buf.Bytes())
}

// GroupTimetable 导出班级课表
// GET /api/v1/groups/:id/timetable.ics?from=&to=
func (h *ExportHandler) GroupTimetable(c *gin.Context) {
	id, ok := mustParseID(c, "id", 23001)
	if !ok {
		return
	}
	r, ok := bindDateRange(c)
	if !ok {
		return
	}

	data, filename, err := h.calendarSvc.GroupTimetable(c.Request.Context(), id, r)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	response.File(c, filename, icsContentType, data)
}
