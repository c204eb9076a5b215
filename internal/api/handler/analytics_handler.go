package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/service"
	"academic-mesh/backend/pkg/response"
)

// AnalyticsHandler 考勤分析 HTTP 处理器
type AnalyticsHandler struct {
	analyticsSvc service.AnalyticsService
}

// NewAnalyticsHandler 创建 AnalyticsHandler
func NewAnalyticsHandler(analyticsSvc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsSvc: analyticsSvc}
}

// Worst 出勤率最低的学生
// GET /api/v1/analytics/worst?lecture_ids=1,2&top=10&from=&to=
func (h *AnalyticsHandler) Worst(c *gin.Context) {
	q, lectureIDs, r, ok := bindAnalyticsQuery(c)
	if !ok {
		return
	}

	stats, err := h.analyticsSvc.RankWorst(c.Request.Context(), lectureIDs, q.Top, r)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	response.OK(c, gin.H{"list": stats})
}

// Summary 全部学生出勤率
// GET /api/v1/analytics/summary?lecture_ids=1,2&from=&to=
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	_, lectureIDs, r, ok := bindAnalyticsQuery(c)
	if !ok {
		return
	}

	stats, err := h.analyticsSvc.Summarize(c.Request.Context(), lectureIDs, r)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	response.OK(c, gin.H{"list": stats})
}

// GroupReport 班级学时报告
// GET /api/v1/analytics/groups/:id?from=&to=
func (h *AnalyticsHandler) GroupReport(c *gin.Context) {
	id, ok := mustParseID(c, "id", 22001)
	if !ok {
		return
	}
	r, ok := bindDateRange(c)
	if !ok {
		return
	}

	report, err := h.analyticsSvc.GenerateGroupReport(c.Request.Context(), id, r)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	response.OK(c, report)
}

// Audience 学期受众报告
// GET /api/v1/analytics/audience?year=2024&half=fall
func (h *AnalyticsHandler) Audience(c *gin.Context) {
	var q dto.AudienceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 22001, "year 必填，half 取值 spring 或 fall")
		return
	}

	rows, err := h.analyticsSvc.AudienceReport(c.Request.Context(), q.Year, calendar.Half(q.Half))
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	response.OK(c, gin.H{"list": rows})
}

// SessionStudents 课次面向的学生
// GET /api/v1/sessions/:id/students
func (h *AnalyticsHandler) SessionStudents(c *gin.Context) {
	id, ok := mustParseID(c, "id", 22001)
	if !ok {
		return
	}

	students, err := h.analyticsSvc.ScheduledStudents(c.Request.Context(), id)
	if err != nil {
		handleAnalyticsError(c, err)
		return
	}
	response.OK(c, gin.H{"list": students})
}

// ── 参数绑定 ──

func bindAnalyticsQuery(c *gin.Context) (dto.AnalyticsQuery, []int64, calendar.DateRange, bool) {
	var q dto.AnalyticsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 22001, "lecture_ids 不能为空")
		return q, nil, calendar.DateRange{}, false
	}
	lectureIDs, err := parseIDList(q.LectureIDs)
	if err != nil {
		response.BadRequest(c, 22001, err.Error())
		return q, nil, calendar.DateRange{}, false
	}
	r, err := parseDateRange(q.From, q.To)
	if err != nil {
		response.BadRequest(c, 22002, err.Error())
		return q, nil, calendar.DateRange{}, false
	}
	return q, lectureIDs, r, true
}

func bindDateRange(c *gin.Context) (calendar.DateRange, bool) {
	var q dto.DateRangeQuery
	_ = c.ShouldBindQuery(&q)
	r, err := parseDateRange(q.From, q.To)
	if err != nil {
		response.BadRequest(c, 22002, err.Error())
		return r, false
	}
	return r, true
}

func handleAnalyticsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 22101, "班级不存在")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 22002, "起始日期不能晚于结束日期")
	case errors.Is(err, service.ErrExportNoData):
		response.NotFound(c, 23101, "所选范围内没有可导出的考勤数据")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
