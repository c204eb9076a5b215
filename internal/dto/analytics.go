package dto

// ── 考勤分析 DTO ──

// AnalyticsQuery 排名 / 汇总查询参数
type AnalyticsQuery struct {
	LectureIDs string `form:"lecture_ids" binding:"required"` // 逗号分隔
	Top        int    `form:"top"`                            // 仅 worst 使用，<=0 不截断
	From       string `form:"from"`                           // "2006-01-02"，含
	To         string `form:"to"`                             // "2006-01-02"，含
}

// DateRangeQuery 日期区间参数
type DateRangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// AudienceQuery 受众报告参数
type AudienceQuery struct {
	Year int    `form:"year" binding:"required,gt=1900"`
	Half string `form:"half" binding:"required,oneof=spring fall"`
}

// AttendanceStat 单个学生的出勤率
type AttendanceStat struct {
	StudentID  int64   `json:"student_id"`
	Name       string  `json:"name"`
	Attended   int64   `json:"attended"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// GroupInfo 班级及所属系
type GroupInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	DepartmentID   int64  `json:"department_id"`
	DepartmentName string `json:"department_name"`
}

// GroupReportRow 学生学时统计
type GroupReportRow struct {
	StudentID      int64  `json:"student_id"`
	StudentName    string `json:"student_name"`
	PlannedHours   int64  `json:"planned_hours"`
	AttendedHours  int64  `json:"attended_hours"`
	RemainingHours int64  `json:"remaining_hours"`
}

// GroupReport 班级学时报告
type GroupReport struct {
	Group           GroupInfo        `json:"group"`
	Sessions        int              `json:"sessions"`
	HoursPerSession int64            `json:"hours_per_session"`
	Rows            []GroupReportRow `json:"rows"`
}

// AudienceRow 受众报告行
type AudienceRow struct {
	SessionID     int64    `json:"session_id"`
	Date          string   `json:"date"`
	CourseName    string   `json:"course_name"`
	LectureName   string   `json:"lecture_name"`
	Materials     []string `json:"materials"`
	TotalStudents int64    `json:"total_students"`
}

// StudentBrief 学生简要信息
type StudentBrief struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
