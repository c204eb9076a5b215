package dto

// ── 同步作业 DTO ──

// SyncRunQuery 同步记录列表参数
type SyncRunQuery struct {
	Job      string `form:"job"       binding:"omitempty,oneof=graph documents students"`
	Page     int    `form:"page"      binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// SyncRunResponse 同步记录
type SyncRunResponse struct {
	ID         string      `json:"id"`
	Job        string      `json:"job"`
	Status     string      `json:"status"`
	StartedAt  string      `json:"started_at"`
	FinishedAt string      `json:"finished_at,omitempty"`
	Stats      interface{} `json:"stats,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// StudentProfile 缓存中的学生档案
type StudentProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Mail  string `json:"mail"`
	Group string `json:"group"`
}

// StudentSearchQuery 学生名称检索
type StudentSearchQuery struct {
	Name string `form:"name" binding:"required,min=1,max=100"`
}
