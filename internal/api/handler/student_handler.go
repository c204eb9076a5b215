package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/service"
	"academic-mesh/backend/pkg/response"
)

// StudentHandler 学生档案缓存 HTTP 处理器
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// Profile 学生档案
// GET /api/v1/students/:id/profile
func (h *StudentHandler) Profile(c *gin.Context) {
	id, ok := mustParseID(c, "id", 25001)
	if !ok {
		return
	}

	profile, err := h.studentSvc.GetProfile(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotCached) {
			response.NotFound(c, 25101, "学生档案未缓存")
			return
		}
		response.StoreUnavailable(c, "学生缓存")
		return
	}
	response.OK(c, profile)
}

// Search 按姓名片段检索
// GET /api/v1/students/search?name=
func (h *StudentHandler) Search(c *gin.Context) {
	var q dto.StudentSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 25001, "name 不能为空")
		return
	}

	profiles, err := h.studentSvc.SearchByName(c.Request.Context(), q.Name)
	if err != nil {
		response.StoreUnavailable(c, "学生缓存")
		return
	}
	response.OK(c, gin.H{"list": profiles})
}

// SyncCache 全量刷新学生缓存
// POST /api/v1/sync/students
func (h *StudentHandler) SyncCache(c *gin.Context) {
	n, err := h.studentSvc.SyncCache(c.Request.Context())
	if err != nil {
		response.StoreUnavailable(c, "学生缓存")
		return
	}
	response.OK(c, gin.H{"students": n})
}
