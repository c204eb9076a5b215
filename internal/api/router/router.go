package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academic-mesh/backend/config"
	"academic-mesh/backend/internal/api/handler"
	"academic-mesh/backend/internal/api/middleware"
	"academic-mesh/backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时导出接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	operator := middleware.RoleAuth(jwt.RoleOperator)
	exportLimit := middleware.RateLimit(limiter, cfg.Server.ExportRateLimit, time.Minute)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 考勤模块
		attendance := v1.Group("/attendance")
		{
			attendance.POST("", operator, h.Attendance.Upsert)
			attendance.GET("/check", h.Attendance.Check)
		}
		v1.GET("/partitions", h.Attendance.ListPartitions)

		// 课次模块
		sessions := v1.Group("/sessions")
		{
			sessions.PUT("/:id/date", operator, h.Attendance.RescheduleSession)
			sessions.DELETE("/:id", operator, h.Attendance.DeleteSession)
			sessions.GET("/:id/students", h.Analytics.SessionStudents)
		}

		// 学生模块
		students := v1.Group("/students")
		{
			students.GET("/search", h.Student.Search)
			students.GET("/:id/profile", h.Student.Profile)
			students.DELETE("/:id", operator, h.Attendance.DeleteStudent)
		}

		// 分析模块
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/worst", h.Analytics.Worst)
			analytics.GET("/summary", h.Analytics.Summary)
			analytics.GET("/groups/:id", h.Analytics.GroupReport)
			analytics.GET("/audience", h.Analytics.Audience)
		}

		// 导出模块
		export := v1.Group("/export")
		export.Use(exportLimit)
		{
			export.GET("/summary.xlsx", h.Export.ExportAttendance)
			export.GET("/groups/:file", h.Export.ExportGroupReport)
		}
		v1.GET("/groups/:id/timetable.ics", exportLimit, h.Export.GroupTimetable)

		// 同步模块
		sync := v1.Group("/sync")
		{
			sync.POST("/graph", operator, h.Sync.SyncGraph)
			sync.POST("/documents", operator, h.Sync.SyncDocuments)
			sync.POST("/students", operator, h.Student.SyncCache)
			sync.GET("/runs", h.Sync.ListRuns)
		}
	}

	return r
}
