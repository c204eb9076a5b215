package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"academic-mesh/backend/internal/dto"
	"academic-mesh/backend/internal/service"
	pkgerrors "academic-mesh/backend/pkg/errors"
	"academic-mesh/backend/pkg/response"
)

// SyncHandler 派生存储同步作业 HTTP 处理器
type SyncHandler struct {
	replicationSvc service.ReplicationService
	snapshotSvc    service.SnapshotService
	syncRunSvc     service.SyncRunService
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(replicationSvc service.ReplicationService, snapshotSvc service.SnapshotService, syncRunSvc service.SyncRunService) *SyncHandler {
	return &SyncHandler{
		replicationSvc: replicationSvc,
		snapshotSvc:    snapshotSvc,
		syncRunSvc:     syncRunSvc,
	}
}

// SyncGraph 全量复制到图存储
// POST /api/v1/sync/graph
func (h *SyncHandler) SyncGraph(c *gin.Context) {
	result, err := h.replicationSvc.Run(c.Request.Context())
	if err != nil {
		handleSyncError(c, err, "图存储")
		return
	}
	response.OK(c, result)
}

// SyncDocuments 回放变更流并发布文档快照
// POST /api/v1/sync/documents
func (h *SyncHandler) SyncDocuments(c *gin.Context) {
	result, err := h.snapshotSvc.Rebuild(c.Request.Context())
	if err != nil {
		handleSyncError(c, err, "变更流")
		return
	}
	response.OK(c, result)
}

// ListRuns 同步作业记录
// GET /api/v1/sync/runs?job=&page=&page_size=
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var q dto.SyncRunQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 24001, "参数校验失败")
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}

	runs, total, err := h.syncRunSvc.List(c.Request.Context(), &q)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, runs, total, q.Page, q.PageSize)
}

func handleSyncError(c *gin.Context, err error, store string) {
	switch {
	case errors.Is(err, service.ErrSnapshotRunning):
		response.Error(c, http.StatusConflict, 24102, "已有文档快照重建在进行，请稍后重试")
	case errors.Is(err, pkgerrors.ErrReferentialGap):
		response.Error(c, http.StatusConflict, 24101, "来源数据存在悬空引用，复制已中止")
	case errors.Is(err, pkgerrors.ErrPublishFailed):
		response.StoreUnavailable(c, "文档存储")
	default:
		response.StoreUnavailable(c, store)
	}
}
