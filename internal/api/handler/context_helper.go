package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"academic-mesh/backend/internal/calendar"
	"academic-mesh/backend/pkg/response"
)

// MustGetSubject 从 Gin 上下文中安全提取 Token 主体（操作人）。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
func MustGetSubject(c *gin.Context) (string, bool) {
	v, exists := c.Get("subject")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// mustParseID 解析正整数路径参数，失败时写入 400 响应
func mustParseID(c *gin.Context, name string, code int) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, code, name+" 必须为正整数")
		return 0, false
	}
	return id, true
}

// parseIDList 解析逗号分隔的 ID 列表，忽略空项
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("ID 列表格式无效")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseDateRange 解析 from/to（含端点，按 UTC 自然日），空值表示不限
func parseDateRange(from, to string) (calendar.DateRange, error) {
	return calendar.ParseDateRange(from, to)
}

// parseSessionTime 课次时间：RFC3339 或 "2006-01-02 15:04"（UTC）
func parseSessionTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02 15:04", raw)
}
